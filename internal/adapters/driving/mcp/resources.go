package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/arrgate/internal/core/domain"
)

const (
	// URIScheme is the custom URI scheme for arrgate resources.
	uriScheme = "arrgate://"
)

// settingsInfo is the settings view exposed to clients. The API key is
// reported as present or not, never echoed.
type settingsInfo struct {
	InstanceURL            string                `json:"instance_url"`
	APIKeySet              bool                  `json:"api_key_set"`
	Container              string                `json:"container,omitempty"`
	TimeoutSeconds         float64               `json:"timeout_seconds"`
	ArtifactsPath          string                `json:"artifacts_path"`
	MaxInconclusivePercent float64               `json:"max_inconclusive_percent"`
	WindowMode             string                `json:"window_mode"`
	WindowSize             int                   `json:"window_size,omitempty"`
	ProviderThresholds     map[string]int        `json:"provider_thresholds"`
	IndexerMatch           string                `json:"indexer_match"`
	DiagnosticsPath        string                `json:"diagnostics_path"`
	Plugins                []pluginProfileOutput `json:"plugins"`
}

type pluginProfileOutput struct {
	Name                 string `json:"name"`
	ExpectIndexer        bool   `json:"expect_indexer"`
	ExpectDownloadClient bool   `json:"expect_download_client"`
	ExpectImportList     bool   `json:"expect_import_list"`
	IndexerID            int    `json:"indexer_id,omitempty"`
}

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "settings",
		Name:        "settings",
		Description: "Resolved arrgate settings (API key redacted)",
		MIMEType:    "application/json",
	}, s.handleSettingsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "plugins/{plugin}",
		Name:        "plugin-profile",
		Description: "Components a plugin is expected to register on the instance",
		MIMEType:    "application/json",
	}, s.handlePluginResource)
}

// handleSettingsResource returns the resolved settings.
func (s *Server) handleSettingsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	settings, err := s.ports.Settings.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	policy := settings.Drift.Policy
	thresholds := make(map[string]int, len(policy.Providers))
	for _, name := range policy.ProviderNames() {
		thresholds[name] = policy.PolicyFor(name).Threshold
	}

	names := make([]string, 0, len(settings.Gates.Profiles))
	for name := range settings.Gates.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	plugins := make([]pluginProfileOutput, len(names))
	for i, name := range names {
		plugins[i] = newPluginProfileOutput(name, settings.Gates.Profiles[name])
	}

	return jsonResource(req.Params.URI, settingsInfo{
		InstanceURL:            settings.Instance.URL,
		APIKeySet:              settings.Instance.APIKey != "",
		Container:              settings.Instance.ContainerID,
		TimeoutSeconds:         settings.Instance.Timeout.Seconds(),
		ArtifactsPath:          settings.Drift.ArtifactsPath,
		MaxInconclusivePercent: policy.MaxInconclusivePercent,
		WindowMode:             string(policy.WindowMode),
		WindowSize:             policy.WindowSize,
		ProviderThresholds:     thresholds,
		IndexerMatch:           string(settings.Gates.IndexerMatch),
		DiagnosticsPath:        settings.Gates.DiagnosticsPath,
		Plugins:                plugins,
	})
}

// handlePluginResource returns the expectation profile of one plugin.
// Unknown plugins get the default profile the gate runner would use.
func (s *Server) handlePluginResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract plugin from URI: arrgate://plugins/{plugin}
	name := extractPluginName(req.Params.URI)
	if name == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	settings, err := s.ports.Settings.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	profile, ok := domain.LookupPluginProfile(settings.Gates.Profiles, name)
	if !ok {
		profile = domain.DefaultPluginProfile()
	}
	return jsonResource(req.Params.URI, newPluginProfileOutput(name, profile))
}

func newPluginProfileOutput(name string, p domain.PluginExpectationProfile) pluginProfileOutput {
	return pluginProfileOutput{
		Name:                 name,
		ExpectIndexer:        p.ExpectIndexer,
		ExpectDownloadClient: p.ExpectDownloadClient,
		ExpectImportList:     p.ExpectImportList,
		IndexerID:            p.IndexerID,
	}
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractPluginName extracts the plugin from a URI like arrgate://plugins/{plugin}.
func extractPluginName(uri string) string {
	const prefix = uriScheme + "plugins/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	name := strings.TrimPrefix(uri, prefix)
	if strings.Contains(name, "/") {
		return ""
	}
	return name
}
