package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/arrgate/internal/core/domain"
	"github.com/custodia-labs/arrgate/internal/core/ports/driven"
	"github.com/custodia-labs/arrgate/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyInstanceURL        = "instance.url"
	keyInstanceAPIKey     = "instance.api_key"
	keyInstanceContainer  = "instance.container"
	keyInstanceTimeout    = "instance.timeout_seconds"
	keyInstanceRPS        = "instance.requests_per_second"
	keyDriftArtifacts     = "drift.artifacts"
	keyDriftMaxInconcl    = "drift.max_inconclusive_percent"
	keyDriftWindowMode    = "drift.window_mode"
	keyDriftWindowSize    = "drift.window_size"
	keyDriftProviders     = "drift.providers."
	keyGatesIndexerMatch  = "gates.indexer_match"
	keyGatesDiagnostics   = "gates.diagnostics_path"
	keyGatesSearchTerm    = "gates.search_term"
	keyPlugins            = "plugins."
	suffixThreshold       = ".threshold"
	suffixExpectIndexer   = ".expect_indexer"
	suffixExpectDownload  = ".expect_download_client"
	suffixExpectImport    = ".expect_import_list"
	suffixPluginIndexerID = ".indexer_id"
)

// SettingsService resolves settings from the config store over the defaults.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.Settings, error) {
	settings := domain.DefaultSettings()
	if s.configStore == nil {
		return &settings, nil
	}

	inst := &settings.Instance
	inst.URL = s.getString(keyInstanceURL, inst.URL)
	inst.APIKey = s.configStore.GetString(keyInstanceAPIKey)
	inst.ContainerID = s.configStore.GetString(keyInstanceContainer)
	if secs := s.configStore.GetInt(keyInstanceTimeout); secs > 0 {
		inst.Timeout = time.Duration(secs) * time.Second
	}
	if rps := s.configStore.GetFloat(keyInstanceRPS); rps > 0 {
		inst.RequestsPerSecond = rps
	}

	drift := &settings.Drift
	drift.ArtifactsPath = s.getString(keyDriftArtifacts, drift.ArtifactsPath)
	if _, ok := s.configStore.Get(keyDriftMaxInconcl); ok {
		drift.Policy.MaxInconclusivePercent = s.configStore.GetFloat(keyDriftMaxInconcl)
	}
	if raw := s.configStore.GetString(keyDriftWindowMode); raw != "" {
		mode, err := domain.ParseWindowMode(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", keyDriftWindowMode, err)
		}
		drift.Policy.WindowMode = mode
	}
	if size := s.configStore.GetInt(keyDriftWindowSize); size > 0 {
		drift.Policy.WindowSize = size
	}
	for _, name := range s.children(keyDriftProviders) {
		threshold := s.configStore.GetInt(keyDriftProviders + name + suffixThreshold)
		if threshold <= 0 {
			return nil, fmt.Errorf("%w: %s%s%s must be positive",
				domain.ErrInvalidInput, keyDriftProviders, name, suffixThreshold)
		}
		drift.Policy.Providers[name] = domain.ProviderPolicy{Name: name, Threshold: threshold}
	}

	gates := &settings.Gates
	if raw := s.configStore.GetString(keyGatesIndexerMatch); raw != "" {
		mode, err := domain.ParseIndexerMatchMode(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", keyGatesIndexerMatch, err)
		}
		gates.IndexerMatch = mode
	}
	gates.DiagnosticsPath = s.getString(keyGatesDiagnostics, gates.DiagnosticsPath)
	gates.SearchTerm = s.getString(keyGatesSearchTerm, gates.SearchTerm)
	for _, name := range s.children(keyPlugins) {
		base, ok := domain.LookupPluginProfile(gates.Profiles, name)
		if !ok {
			base = domain.DefaultPluginProfile()
		}
		gates.Profiles[strings.ToLower(name)] = s.pluginProfile(name, base)
	}

	return &settings, nil
}

// pluginProfile overlays configured expectations on a base profile.
func (s *SettingsService) pluginProfile(name string, base domain.PluginExpectationProfile) domain.PluginExpectationProfile {
	prefix := keyPlugins + name
	if _, ok := s.configStore.Get(prefix + suffixExpectIndexer); ok {
		base.ExpectIndexer = s.configStore.GetBool(prefix + suffixExpectIndexer)
	}
	if _, ok := s.configStore.Get(prefix + suffixExpectDownload); ok {
		base.ExpectDownloadClient = s.configStore.GetBool(prefix + suffixExpectDownload)
	}
	if _, ok := s.configStore.Get(prefix + suffixExpectImport); ok {
		base.ExpectImportList = s.configStore.GetBool(prefix + suffixExpectImport)
	}
	if id := s.configStore.GetInt(prefix + suffixPluginIndexerID); id > 0 {
		base.IndexerID = id
	}
	return base
}

// children returns the distinct second-level names under a dotted prefix,
// e.g. "plugins." -> ["qobuzarr", "tidalarr"].
func (s *SettingsService) children(prefix string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, key := range s.configStore.Keys(prefix) {
		rest := strings.TrimPrefix(key, prefix)
		name, _, found := strings.Cut(rest, ".")
		if !found || name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

func (s *SettingsService) getString(key, fallback string) string {
	if v := s.configStore.GetString(key); v != "" {
		return v
	}
	return fallback
}
