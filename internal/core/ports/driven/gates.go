package driven

import (
	"context"

	"github.com/custodia-labs/arrgate/internal/core/domain"
)

// GateProbe runs verification checks against a live instance.
// Returned errors are lookup failures; the orchestrator records them as
// failed results for the pair being evaluated.
type GateProbe interface {
	// Initialize establishes the connection context used by later calls.
	Initialize(ctx context.Context, apiURL, apiKey string) error

	// CheckStatus calls the instance status endpoint with the configured credentials.
	// Returns domain.ErrUnauthorized when the instance rejects the request.
	CheckStatus(ctx context.Context) error

	// RunSchemaGate checks the instance schemas for the plugin's components.
	RunSchemaGate(ctx context.Context, plugin string, profile domain.PluginExpectationProfile) (domain.GateResult, error)

	// RunSearchGate checks that the given indexer answers searches.
	RunSearchGate(ctx context.Context, plugin string, indexer domain.Indexer) (domain.GateResult, error)
}

// IndexerLister lists indexers configured on the live instance.
type IndexerLister interface {
	ListIndexers(ctx context.Context) ([]domain.Indexer, error)
}

// IndexerResolver maps a plugin to one configured indexer.
type IndexerResolver interface {
	// ResolveIndexer returns the plugin's indexer.
	// Returns domain.ErrNotConfigured when no indexer matches; any other error
	// is a lookup failure.
	ResolveIndexer(ctx context.Context, plugin string, profile domain.PluginExpectationProfile) (domain.Indexer, error)
}

// DiagnosticsCollector captures evidence after a failed gate run.
type DiagnosticsCollector interface {
	// CreateBundle writes a diagnostics bundle and returns its location.
	CreateBundle(ctx context.Context, req domain.DiagnosticsRequest) (string, error)

	// SummarizeFailures renders the failed results as text.
	SummarizeFailures(results []domain.GateResult) string
}
