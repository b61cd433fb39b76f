package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/arrgate/internal/core/domain"
	"github.com/custodia-labs/arrgate/internal/core/ports/driven"
	"github.com/custodia-labs/arrgate/internal/logger"
)

// Ensure RegistryIndexerResolver implements the interface.
var _ driven.IndexerResolver = (*RegistryIndexerResolver)(nil)

// RegistryIndexerResolver resolves a plugin's indexer from the instance's
// configured indexers.
type RegistryIndexerResolver struct {
	lister driven.IndexerLister
	mode   domain.IndexerMatchMode
}

// NewRegistryIndexerResolver creates a resolver over the given lister.
func NewRegistryIndexerResolver(lister driven.IndexerLister, mode domain.IndexerMatchMode) *RegistryIndexerResolver {
	if mode == "" {
		mode = domain.IndexerMatchAuto
	}
	return &RegistryIndexerResolver{lister: lister, mode: mode}
}

// ResolveIndexer returns the indexer configured for the plugin.
func (r *RegistryIndexerResolver) ResolveIndexer(
	ctx context.Context, plugin string, profile domain.PluginExpectationProfile,
) (domain.Indexer, error) {
	if r.lister == nil {
		return domain.Indexer{}, errors.New("indexer lister not configured")
	}

	mode := r.mode
	if mode == domain.IndexerMatchAuto {
		mode = domain.IndexerMatchSubstring
		if profile.IndexerID > 0 {
			mode = domain.IndexerMatchExplicit
		}
	}

	if mode == domain.IndexerMatchExplicit && profile.IndexerID <= 0 {
		return domain.Indexer{}, fmt.Errorf("%w: no indexer id set for %s", domain.ErrNotConfigured, plugin)
	}

	indexers, err := r.lister.ListIndexers(ctx)
	if err != nil {
		return domain.Indexer{}, fmt.Errorf("list indexers: %w", err)
	}
	logger.Debug("Resolving indexer for %s among %d (mode %s)", plugin, len(indexers), mode)

	var (
		found domain.Indexer
		ok    bool
	)
	switch mode {
	case domain.IndexerMatchExplicit:
		found, ok = MatchIndexerByID(indexers, profile.IndexerID)
	default:
		found, ok = MatchIndexerBySubstring(indexers, plugin)
	}
	if !ok {
		return domain.Indexer{}, fmt.Errorf("%w: no indexer for %s", domain.ErrNotConfigured, plugin)
	}
	return found, nil
}

// MatchIndexerByID returns the indexer with the given ID.
func MatchIndexerByID(indexers []domain.Indexer, id int) (domain.Indexer, bool) {
	for _, ix := range indexers {
		if ix.ID == id {
			return ix, true
		}
	}
	return domain.Indexer{}, false
}

// MatchIndexerBySubstring returns the first indexer whose name or implementation
// contains the plugin name, ignoring case.
func MatchIndexerBySubstring(indexers []domain.Indexer, plugin string) (domain.Indexer, bool) {
	needle := strings.ToLower(strings.TrimSpace(plugin))
	if needle == "" {
		return domain.Indexer{}, false
	}
	for _, ix := range indexers {
		if strings.Contains(strings.ToLower(ix.Name), needle) ||
			strings.Contains(strings.ToLower(ix.Implementation), needle) {
			return ix, true
		}
	}
	return domain.Indexer{}, false
}
