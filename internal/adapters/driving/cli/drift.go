package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/arrgate/internal/core/domain"
	"github.com/custodia-labs/arrgate/internal/logger"
)

var (
	driftArtifacts       string
	driftProvider        string
	driftThreshold       int
	driftMaxInconclusive float64
	driftWindow          int
	driftWindowMode      string
	driftJSON            bool
	driftWatch           bool
)

var driftCheckCmd = &cobra.Command{
	Use:   "drift-check",
	Short: "Check provider promotion readiness",
	Long: `Analyses nightly drift artifacts and reports, per provider, whether it is
ready to be promoted to strict mode.

A provider is ready when its most recent runs form an unbroken streak of
clean runs at least as long as its threshold, and the share of
inconclusive probes in the recent window does not exceed the maximum.

The command exits 0 whenever the analysis ran, whatever the verdict, and
1 when no artifact could be loaded.`,
	Args: cobra.NoArgs,
	RunE: runDriftCheck,
}

func init() {
	f := driftCheckCmd.Flags()
	f.StringVarP(&driftArtifacts, "artifacts", "a", "", "artifact file or directory (default from config, then "+
		domain.DefaultArtifactsPath+")")
	f.StringVarP(&driftProvider, "provider", "p", domain.ProviderFilterAll, "provider to check (qobuz, tidal, ... or all)")
	f.IntVarP(&driftThreshold, "threshold", "t", 0, "pass streak required (default per provider)")
	f.Float64Var(&driftMaxInconclusive, "max-inconclusive", domain.DefaultMaxInconclusivePercent,
		"maximum inconclusive percentage allowed")
	f.IntVar(&driftWindow, "window", 0, "inconclusive-rate window size (implies --window-mode explicit)")
	f.StringVar(&driftWindowMode, "window-mode", "", "window sizing: coupled (window = threshold) or explicit")
	f.BoolVar(&driftJSON, "json", false, "output the report as JSON")
	f.BoolVarP(&driftWatch, "watch", "w", false, "re-run whenever the artifacts change")
	rootCmd.AddCommand(driftCheckCmd)
}

func runDriftCheck(cmd *cobra.Command, _ []string) error {
	if err := requireServices(); err != nil {
		return err
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	path := driftArtifacts
	if path == "" {
		path = settings.Drift.ArtifactsPath
	}
	checker, err := serviceFactory.DriftChecker(path, settings.Drift.Policy)
	if err != nil {
		return err
	}

	req := domain.DriftCheckRequest{
		ProviderFilter: driftProvider,
		Threshold:      driftThreshold,
		WindowSize:     driftWindow,
	}
	if cmd.Flags().Changed("max-inconclusive") {
		maxPct := driftMaxInconclusive
		req.MaxInconclusivePercent = &maxPct
	}
	if driftWindowMode != "" {
		mode, err := domain.ParseWindowMode(driftWindowMode)
		if err != nil {
			return err
		}
		req.WindowMode = mode
	}

	out := cmd.OutOrStdout()

	if driftWatch {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return checker.Watch(ctx, req, func(report *domain.DriftReport, err error) {
			if err != nil {
				logger.Error("Drift check failed: %v", err)
				return
			}
			if err := renderDrift(out, report); err != nil {
				logger.Error("Render failed: %v", err)
			}
		})
	}

	report, err := checker.Check(cmd.Context(), req)
	if errors.Is(err, domain.ErrNoArtifacts) {
		return &ExitError{Code: ExitFailure, Err: err}
	}
	if err != nil {
		return fmt.Errorf("drift check failed: %w", err)
	}

	return renderDrift(out, report)
}

func renderDrift(w io.Writer, report *domain.DriftReport) error {
	if driftJSON {
		return writeJSON(w, report)
	}
	outputDriftText(w, report)
	return nil
}

func outputDriftText(w io.Writer, report *domain.DriftReport) {
	st := newStyles(w)

	fmt.Fprintln(w, st.Title.Render("Drift Promotion Readiness"))
	fmt.Fprintln(w, st.Muted.Render(fmt.Sprintf("%d artifacts, generated %s",
		report.ArtifactCount, report.GeneratedAt.Format(domain.RecentRunDateLayout))))
	fmt.Fprintln(w)

	for i := range report.Providers {
		p := &report.Providers[i]

		verdict := st.Success.Render("READY")
		if !p.Ready {
			verdict = st.Error.Render("NOT READY")
		}
		fmt.Fprintf(w, "%s  %s\n", st.Title.Render(strings.ToUpper(p.Provider)), verdict)
		fmt.Fprintf(w, "  Pass streak:        %d / %d\n", p.PassStreak, p.Threshold)
		fmt.Fprintf(w, "  Inconclusive rate:  %.1f%% (max %g%%, last %d runs)\n",
			p.InconclusiveRate, p.MaxInconclusiveAllowed, p.WindowSize)
		fmt.Fprintf(w, "  Runs analysed:      %d\n", p.RunCount)

		if len(p.RecentRuns) > 0 {
			t := newTable("Date", "Result", "Inconclusive")
			for _, r := range p.RecentRuns {
				t.AppendRow([]any{r.Date, runOutcome(r), r.InconclusivePercentString})
			}
			fmt.Fprintln(w, indent(t.Render(), "  "))
		} else {
			fmt.Fprintln(w, st.Warning.Render("  No runs recorded for this provider."))
		}

		fmt.Fprintf(w, "  %s\n\n", p.Recommendation)
	}
}

func runOutcome(r domain.RecentRun) string {
	switch {
	case r.Clean:
		return "clean"
	case r.Drift && r.Error:
		return "drift+error"
	case r.Drift:
		return "drift"
	default:
		return "error"
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\n")
}
