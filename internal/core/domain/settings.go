package domain

import (
	"strings"
	"time"
)

// Instance defaults.
const (
	DefaultInstanceURL       = "http://localhost:8686"
	DefaultInstanceTimeout   = 10 * time.Second
	DefaultRequestsPerSecond = 5.0
	DefaultArtifactsPath     = "artifacts/drift"
	DefaultDiagnosticsPath   = "diagnostics"
	DefaultSearchTerm        = "Radiohead"
)

// EnvAPIKey names the environment variable holding the instance API key.
// It sits between an explicit key and the configured one.
//
//nolint:gosec // G101: environment variable name, not a credential.
const EnvAPIKey = "ARRGATE_API_KEY"

// Settings is the resolved application configuration.
type Settings struct {
	Instance InstanceSettings
	Drift    DriftSettings
	Gates    GateSettings
}

// InstanceSettings configures access to the live instance.
type InstanceSettings struct {
	URL               string
	APIKey            string
	ContainerID       string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Config converts the settings into an InstanceConfig.
func (s InstanceSettings) Config() InstanceConfig {
	return InstanceConfig{
		APIURL:      s.URL,
		APIKey:      s.APIKey,
		ContainerID: s.ContainerID,
		Timeout:     s.Timeout,
	}
}

// ResolveAPIKey sets the API key from the explicit value, then the
// environment value, keeping the configured key when both are empty.
func (s *InstanceSettings) ResolveAPIKey(explicit, env string) {
	switch {
	case strings.TrimSpace(explicit) != "":
		s.APIKey = strings.TrimSpace(explicit)
	case strings.TrimSpace(env) != "":
		s.APIKey = strings.TrimSpace(env)
	}
}

// DriftSettings configures drift-check.
type DriftSettings struct {
	// ArtifactsPath is a file or directory of drift artifacts.
	ArtifactsPath string

	Policy DriftPolicy
}

// GateSettings configures the gate runner.
type GateSettings struct {
	// Profiles holds plugin expectation profiles: builtins merged with config.
	Profiles map[string]PluginExpectationProfile

	IndexerMatch    IndexerMatchMode
	DiagnosticsPath string
	SearchTerm      string
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Instance: InstanceSettings{
			URL:               DefaultInstanceURL,
			Timeout:           DefaultInstanceTimeout,
			RequestsPerSecond: DefaultRequestsPerSecond,
		},
		Drift: DriftSettings{
			ArtifactsPath: DefaultArtifactsPath,
			Policy:        DefaultDriftPolicy(),
		},
		Gates: GateSettings{
			Profiles:        BuiltinPluginProfiles(),
			IndexerMatch:    IndexerMatchAuto,
			DiagnosticsPath: DefaultDiagnosticsPath,
			SearchTerm:      DefaultSearchTerm,
		},
	}
}
