package arr

import (
	"time"

	"github.com/custodia-labs/arrgate/internal/core/domain"
)

// Default configuration values.
const (
	DefaultTimeout           = domain.DefaultInstanceTimeout
	DefaultRequestsPerSecond = domain.DefaultRequestsPerSecond
	DefaultBurst             = 5
	DefaultSearchTerm        = domain.DefaultSearchTerm

	// APIPrefix is the versioned API root.
	APIPrefix = "/api/v1"

	// HeaderAPIKey carries the instance API key.
	HeaderAPIKey = "X-Api-Key"
)

// Config holds configuration for the instance client.
type Config struct {
	// BaseURL is the instance URL (e.g. http://localhost:8686).
	// Initialize may replace it.
	BaseURL string

	// APIKey authenticates requests. Initialize may replace it.
	APIKey string

	// Timeout bounds each request (default: 10s).
	Timeout time.Duration

	// RequestsPerSecond is the sustained request rate (default: 5).
	RequestsPerSecond float64

	// Burst is the token bucket size (default: 5).
	Burst int

	// SearchTerm is the query used by the search gate (default: "Radiohead").
	SearchTerm string
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.Burst <= 0 {
		c.Burst = DefaultBurst
	}
	if c.SearchTerm == "" {
		c.SearchTerm = DefaultSearchTerm
	}
	return c
}
