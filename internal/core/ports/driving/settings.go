package driving

import "github.com/custodia-labs/arrgate/internal/core/domain"

// SettingsService resolves application settings from configuration.
type SettingsService interface {
	// Get returns the configured settings merged over the defaults.
	Get() (*domain.Settings, error)
}
