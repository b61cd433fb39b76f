// Package cli implements the arrgate command line.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/arrgate/internal/core/domain"
	"github.com/custodia-labs/arrgate/internal/core/ports/driving"
	"github.com/custodia-labs/arrgate/internal/logger"
)

// EnvAPIKey supplies the instance API key when --api-key is not given.
const EnvAPIKey = domain.EnvAPIKey

// Bootstrap builds the services from the config directory.
// It runs after flags are parsed.
type Bootstrap func(configDir string) (driving.SettingsService, driving.ServiceFactory, error)

var (
	version = "dev"

	verbose   bool
	quiet     bool
	configDir string

	bootstrap       Bootstrap
	settingsService driving.SettingsService
	serviceFactory  driving.ServiceFactory
)

var rootCmd = &cobra.Command{
	Use:   "arrgate",
	Short: "Promotion readiness and live verification for *arr plugins",
	Long: `arrgate answers two questions for plugin maintainers:

  drift-check  Is a provider ready to be promoted to strict mode?
               (pass streak and inconclusive rate over nightly drift artifacts)
  gates run    Is this deployed instance healthy for a plugin?
               (schema, search and grab gates against the live API)`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug output to stderr")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress warnings on stderr")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.arrgate)")
}

// setup applies global flags and builds the services.
func setup(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	logger.SetQuiet(quiet)
	if bootstrap == nil {
		return nil
	}

	settings, factory, err := bootstrap(configDir)
	if err != nil {
		return err
	}
	settingsService = settings
	serviceFactory = factory
	return nil
}

// Execute runs the root command.
func Execute(ctx context.Context, v string, b Bootstrap) error {
	if v != "" {
		version = v
	}
	bootstrap = b
	return rootCmd.ExecuteContext(ctx)
}

func requireServices() error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	if serviceFactory == nil {
		return errors.New("service factory not configured")
	}
	return nil
}
