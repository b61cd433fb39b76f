package driving

import (
	"context"

	"github.com/custodia-labs/arrgate/internal/core/domain"
)

// GateRunner verifies a live instance for a set of plugins.
type GateRunner interface {
	// Run evaluates every requested (plugin, gate) pair.
	// Only pre-flight problems are returned as errors (wrapping
	// domain.ErrConfiguration or domain.ErrInvalidInput); gate outcomes are
	// reported in the returned report.
	Run(ctx context.Context, req domain.GateRunRequest) (*domain.GateRunReport, error)
}
