package main

import (
	"context"

	"github.com/custodia-labs/arrgate/internal/adapters/driven/arr"
	"github.com/custodia-labs/arrgate/internal/adapters/driven/artifacts/filesystem"
	"github.com/custodia-labs/arrgate/internal/adapters/driven/config/file"
	"github.com/custodia-labs/arrgate/internal/adapters/driven/config/memory"
	"github.com/custodia-labs/arrgate/internal/adapters/driven/diagnostics"
	"github.com/custodia-labs/arrgate/internal/core/domain"
	"github.com/custodia-labs/arrgate/internal/core/ports/driven"
	"github.com/custodia-labs/arrgate/internal/core/ports/driving"
	"github.com/custodia-labs/arrgate/internal/core/services"
	"github.com/custodia-labs/arrgate/internal/logger"
)

// Ensure factory implements the interface.
var _ driving.ServiceFactory = (*factory)(nil)

// bootstrap opens the config store and builds the services.
// An unusable config directory falls back to defaults.
func bootstrap(configDir string) (driving.SettingsService, driving.ServiceFactory, error) {
	var store driven.ConfigStore
	fileStore, err := file.NewConfigStore(configDir)
	if err != nil {
		logger.Warn("Config unavailable, using defaults: %v", err)
		store = memory.NewConfigStore()
	} else {
		logger.Debug("Config: %s", fileStore.Path())
		store = fileStore
	}

	return services.NewSettingsService(store), &factory{}, nil
}

// factory assembles services from resolved settings.
type factory struct{}

// DriftChecker builds a drift check service over the artifact directory or file.
func (f *factory) DriftChecker(path string, policy domain.DriftPolicy) (driving.DriftChecker, error) {
	repo, err := filesystem.NewRepository(path)
	if err != nil {
		return nil, err
	}
	return services.NewDriftCheckService(repo, policy), nil
}

// GateRunner builds a gate orchestrator against the configured instance.
func (f *factory) GateRunner(settings domain.Settings) (driving.GateRunner, error) {
	cfg := arr.Config{
		Timeout:           settings.Instance.Timeout,
		RequestsPerSecond: settings.Instance.RequestsPerSecond,
		SearchTerm:        settings.Gates.SearchTerm,
	}

	client := arr.NewClient(cfg)
	resolver := services.NewRegistryIndexerResolver(client, settings.Gates.IndexerMatch)
	collector := diagnostics.NewCollector(statusFetcher(cfg), diagnostics.DockerLogs)

	return services.NewGateOrchestrator(client, resolver, collector, settings.Gates.Profiles), nil
}

// statusFetcher adapts the instance client for the diagnostics bundle.
func statusFetcher(cfg arr.Config) diagnostics.StatusFetcher {
	return func(ctx context.Context, apiURL, apiKey string) ([]byte, error) {
		return arr.FetchSystemStatus(ctx, cfg, apiURL, apiKey)
	}
}
