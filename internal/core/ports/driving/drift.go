package driving

import (
	"context"

	"github.com/custodia-labs/arrgate/internal/core/domain"
)

// DriftChecker evaluates provider promotion readiness from drift artifacts.
type DriftChecker interface {
	// Check loads the artifacts and builds a report per selected provider.
	// Returns domain.ErrNoArtifacts when nothing could be loaded.
	Check(ctx context.Context, req domain.DriftCheckRequest) (*domain.DriftReport, error)

	// Watch runs Check once and again after every artifact change until ctx is done.
	Watch(ctx context.Context, req domain.DriftCheckRequest, onReport func(*domain.DriftReport, error)) error
}
