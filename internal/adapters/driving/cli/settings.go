package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/arrgate/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show application settings",
	Long: `Show the settings resolved from the config file over the defaults.

Settings are read from config.toml in the config directory
(default ~/.arrgate, see --config-dir).`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	outputSettings(cmd.OutOrStdout(), settings)
	return nil
}

func outputSettings(w io.Writer, settings *domain.Settings) {
	fmt.Fprintln(w, "Current Settings")
	fmt.Fprintln(w, "================")
	fmt.Fprintln(w)

	inst := settings.Instance
	fmt.Fprintln(w, "[Instance]")
	fmt.Fprintf(w, "  URL: %s\n", inst.URL)
	if inst.APIKey != "" {
		fmt.Fprintf(w, "  API Key: %s\n", maskAPIKey(inst.APIKey))
	} else {
		fmt.Fprintf(w, "  API Key: (not set)\n")
	}
	if inst.ContainerID != "" {
		fmt.Fprintf(w, "  Container: %s\n", inst.ContainerID)
	}
	fmt.Fprintf(w, "  Timeout: %s\n", inst.Timeout)
	fmt.Fprintf(w, "  Requests/s: %g\n", inst.RequestsPerSecond)
	fmt.Fprintln(w)

	drift := settings.Drift
	fmt.Fprintln(w, "[Drift]")
	fmt.Fprintf(w, "  Artifacts: %s\n", drift.ArtifactsPath)
	fmt.Fprintf(w, "  Max inconclusive: %g%%\n", drift.Policy.MaxInconclusivePercent)
	fmt.Fprintf(w, "  Window mode: %s\n", drift.Policy.WindowMode)
	if drift.Policy.WindowMode == domain.WindowModeExplicit {
		fmt.Fprintf(w, "  Window size: %d\n", drift.Policy.WindowSize)
	}
	for _, name := range drift.Policy.ProviderNames() {
		fmt.Fprintf(w, "  Provider %s: threshold %d\n", name, drift.Policy.PolicyFor(name).Threshold)
	}
	fmt.Fprintln(w)

	gates := settings.Gates
	fmt.Fprintln(w, "[Gates]")
	fmt.Fprintf(w, "  Indexer match: %s\n", gates.IndexerMatch)
	fmt.Fprintf(w, "  Diagnostics: %s\n", gates.DiagnosticsPath)
	fmt.Fprintf(w, "  Search term: %s\n", gates.SearchTerm)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[Plugins]")
	t := newTable("Plugin", "Indexer", "Download client", "Import list", "Indexer ID")
	for _, name := range sortedProfileNames(gates.Profiles) {
		p := gates.Profiles[name]
		id := "-"
		if p.IndexerID > 0 {
			id = fmt.Sprint(p.IndexerID)
		}
		t.AppendRow([]any{name, yesNo(p.ExpectIndexer), yesNo(p.ExpectDownloadClient), yesNo(p.ExpectImportList), id})
	}
	fmt.Fprintln(w, indent(t.Render(), "  "))
}

func sortedProfileNames(profiles map[string]domain.PluginExpectationProfile) []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
