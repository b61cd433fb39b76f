package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/arrgate/internal/core/domain"
)

var (
	gatesPlugins         string
	gatesGate            string
	gatesURL             string
	gatesAPIKey          string
	gatesContainer       string
	gatesDiagnosticsPath string
	gatesNoDiagnostics   bool
	gatesIndexerMatch    string
	gatesJSON            bool
)

var gatesCmd = &cobra.Command{
	Use:   "gates",
	Short: "Live instance verification gates",
}

var gatesRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run gates against a live instance",
	Long: `Runs the selected gates for every plugin against a live instance.

Gates:
  schema  the plugin's indexer, download client or import list is registered
  search  the plugin's configured indexer passes its test and answers a search
  grab    always skipped: a grab needs a release picked by a human

Search and grab need an API key (--api-key, $` + EnvAPIKey + ` or instance.api_key).
A failing gate never stops the others. When anything fails a diagnostics
bundle is written unless --no-diagnostics is given.

The command exits 0 only when no gate failed.`,
	Example: `  arrgate gates run --plugins qobuzarr,tidalarr --url http://localhost:8686
  arrgate gates run --plugins brainarr --gate schema --json`,
	Args: cobra.NoArgs,
	RunE: runGates,
}

func init() {
	f := gatesRunCmd.Flags()
	f.StringVar(&gatesPlugins, "plugins", "", "comma-separated plugin names (required)")
	f.StringVarP(&gatesGate, "gate", "g", domain.GateSelectorAll, "gate to run: schema, search, grab or all")
	f.StringVar(&gatesURL, "url", "", "instance URL (default from config, then "+domain.DefaultInstanceURL+")")
	f.StringVar(&gatesAPIKey, "api-key", "", "instance API key (default $"+EnvAPIKey+", then config)")
	f.StringVar(&gatesContainer, "container", "", "container whose logs go into the diagnostics bundle")
	f.StringVar(&gatesDiagnosticsPath, "diagnostics-path", "", "directory for diagnostics bundles")
	f.BoolVar(&gatesNoDiagnostics, "no-diagnostics", false, "never write a diagnostics bundle")
	f.StringVar(&gatesIndexerMatch, "indexer-match", "", "indexer matching: auto, explicit or substring")
	f.BoolVar(&gatesJSON, "json", false, "output the report as JSON")
	gatesCmd.AddCommand(gatesRunCmd)
	rootCmd.AddCommand(gatesCmd)
}

func runGates(cmd *cobra.Command, _ []string) error {
	if err := requireServices(); err != nil {
		return err
	}

	plugins := domain.ParsePluginList(gatesPlugins)
	if len(plugins) == 0 {
		return &ExitError{Code: ExitFailure, Err: fmt.Errorf("%w: --plugins is required", domain.ErrInvalidInput)}
	}
	gates, err := domain.ParseGateSelector(gatesGate)
	if err != nil {
		return &ExitError{Code: ExitFailure, Err: err}
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if err := applyGateFlags(settings); err != nil {
		return &ExitError{Code: ExitFailure, Err: err}
	}

	runner, err := serviceFactory.GateRunner(*settings)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := runner.Run(ctx, domain.GateRunRequest{
		Plugins:         plugins,
		Gates:           gates,
		Instance:        settings.Instance.Config(),
		DiagnosticsPath: settings.Gates.DiagnosticsPath,
		SkipDiagnostics: gatesNoDiagnostics,
		Profiles:        settings.Gates.Profiles,
	})
	if err != nil {
		return &ExitError{Code: ExitFailure, Err: err}
	}

	out := cmd.OutOrStdout()
	if gatesJSON {
		if err := writeJSON(out, report); err != nil {
			return err
		}
	} else {
		outputGatesText(out, report)
	}

	if !report.Success {
		return &ExitError{Code: ExitFailure}
	}
	return nil
}

// applyGateFlags overlays command-line flags on the configured settings.
// The API key comes from the flag, then the environment, then config.
func applyGateFlags(settings *domain.Settings) error {
	inst := &settings.Instance
	if gatesURL != "" {
		inst.URL = gatesURL
	}
	inst.ResolveAPIKey(gatesAPIKey, os.Getenv(EnvAPIKey))
	if gatesContainer != "" {
		inst.ContainerID = gatesContainer
	}

	if gatesDiagnosticsPath != "" {
		settings.Gates.DiagnosticsPath = gatesDiagnosticsPath
	}
	if gatesIndexerMatch != "" {
		mode, err := domain.ParseIndexerMatchMode(gatesIndexerMatch)
		if err != nil {
			return err
		}
		settings.Gates.IndexerMatch = mode
	}
	return nil
}

func outputGatesText(w io.Writer, report *domain.GateRunReport) {
	st := newStyles(w)

	fmt.Fprintln(w, st.Title.Render("Gate Results"))

	t := newTable("Plugin", "Gate", "Status", "Details", "Time")
	for _, r := range report.Results {
		t.AppendRow([]any{r.PluginName, r.Gate, statusLabel(st, r.Status), resultDetails(r), formatDuration(r.Duration)})
	}
	fmt.Fprintln(w, t.Render())

	fmt.Fprintf(w, "Attempted %d, passed %d, failed %d, skipped %d\n",
		report.Attempted, report.Passed, report.Failed, report.Skipped)

	switch {
	case report.Cancelled:
		fmt.Fprintln(w, st.Warning.Render("Run cancelled before all gates completed."))
	case report.Success:
		fmt.Fprintln(w, st.Success.Render("All attempted gates passed."))
	default:
		fmt.Fprintln(w, st.Error.Render("Gate failures:"))
		fmt.Fprintln(w, indent(report.FailureSummary, "  "))
	}

	if report.BundlePath != "" {
		fmt.Fprintf(w, "Diagnostics bundle: %s\n", report.BundlePath)
	}
	if report.BundleError != "" {
		fmt.Fprintln(w, st.Warning.Render("Diagnostics bundle failed: "+report.BundleError))
	}
}

func statusLabel(st styles, s domain.GateStatus) string {
	label := strings.ToUpper(string(s))
	switch s {
	case domain.GateStatusPassed:
		return st.Success.Render(label)
	case domain.GateStatusFailed:
		return st.Error.Render(label)
	default:
		return st.Muted.Render(label)
	}
}

func resultDetails(r domain.GateResult) string {
	switch {
	case r.SkipReason != "":
		return r.SkipReason
	case len(r.Errors) > 0:
		return strings.Join(r.Errors, "\n")
	case r.Metrics["resultCount"] != nil:
		return fmt.Sprintf("%v results", r.Metrics["resultCount"])
	}
	return ""
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}
