package driven

import (
	"context"

	"github.com/custodia-labs/arrgate/internal/core/domain"
)

// ArtifactRepository provides read-only access to drift artifacts.
type ArtifactRepository interface {
	// List returns every loadable artifact.
	// Returns domain.ErrNoArtifacts when none can be loaded.
	List(ctx context.Context) ([]domain.Artifact, error)
}

// ArtifactWatcher signals when the artifact source changes.
type ArtifactWatcher interface {
	// Watch emits a value after each change. The channel is closed when ctx is done.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
