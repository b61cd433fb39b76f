package mcp

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/arrgate/internal/core/domain"
)

// DriftCheckInput is the input schema for the drift_check tool.
type DriftCheckInput struct {
	Artifacts              string   `json:"artifacts,omitempty" jsonschema:"artifact file or directory (default from config)"`
	Provider               string   `json:"provider,omitempty" jsonschema:"provider to check, or all (default all)"`
	Threshold              int      `json:"threshold,omitempty" jsonschema:"pass streak required (default per provider)"`
	MaxInconclusivePercent *float64 `json:"max_inconclusive_percent,omitempty" jsonschema:"maximum inconclusive percentage allowed"`
	Window                 int      `json:"window,omitempty" jsonschema:"inconclusive-rate window size (implies explicit window mode)"`
	WindowMode             string   `json:"window_mode,omitempty" jsonschema:"coupled or explicit"`
}

// DriftCheckOutput is the output schema for the drift_check tool.
type DriftCheckOutput struct {
	GeneratedAt   string                  `json:"generated_at"`
	ArtifactCount int                     `json:"artifact_count"`
	Providers     []domain.ProviderReport `json:"providers"`
}

// RunGatesInput is the input schema for the run_gates tool.
type RunGatesInput struct {
	Plugins       []string `json:"plugins" jsonschema:"plugin names to verify, e.g. qobuzarr"`
	Gate          string   `json:"gate,omitempty" jsonschema:"schema, search, grab or all (default all)"`
	URL           string   `json:"url,omitempty" jsonschema:"instance URL (default from config)"`
	APIKey        string   `json:"api_key,omitempty" jsonschema:"instance API key (default from environment, then config)"`
	Container     string   `json:"container,omitempty" jsonschema:"container whose logs go into the diagnostics bundle"`
	NoDiagnostics bool     `json:"no_diagnostics,omitempty" jsonschema:"never write a diagnostics bundle"`
}

// RunGatesOutput is the output schema for the run_gates tool.
type RunGatesOutput struct {
	Results        []GateResultOutput `json:"results"`
	Success        bool               `json:"success"`
	Attempted      int                `json:"attempted"`
	Passed         int                `json:"passed"`
	Failed         int                `json:"failed"`
	Skipped        int                `json:"skipped"`
	Cancelled      bool               `json:"cancelled"`
	BundlePath     string             `json:"bundle_path,omitempty"`
	BundleError    string             `json:"bundle_error,omitempty"`
	FailureSummary string             `json:"failure_summary,omitempty"`
}

// GateResultOutput represents a single gate result.
type GateResultOutput struct {
	Plugin     string         `json:"plugin"`
	Gate       string         `json:"gate"`
	Status     string         `json:"status"`
	Errors     []string       `json:"errors"`
	SkipReason string         `json:"skip_reason,omitempty"`
	Metrics    map[string]any `json:"metrics,omitempty"`
	StartedAt  string         `json:"started_at,omitempty"`
	DurationMS int64          `json:"duration_ms"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "drift_check",
		Description: "Report whether each provider is ready for promotion to strict mode, from nightly drift artifacts",
	}, s.handleDriftCheck)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "run_gates",
		Description: "Run schema, search and grab gates for plugins against the live instance",
	}, s.handleRunGates)
}

// handleDriftCheck handles the drift_check tool invocation.
func (s *Server) handleDriftCheck(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DriftCheckInput,
) (*mcp.CallToolResult, DriftCheckOutput, error) {
	settings, err := s.ports.Settings.Get()
	if err != nil {
		return nil, DriftCheckOutput{}, fmt.Errorf("loading settings: %w", err)
	}

	path := input.Artifacts
	if path == "" {
		path = settings.Drift.ArtifactsPath
	}
	checker, err := s.ports.Factory.DriftChecker(path, settings.Drift.Policy)
	if err != nil {
		return nil, DriftCheckOutput{}, err
	}

	req := domain.DriftCheckRequest{
		ProviderFilter:         input.Provider,
		Threshold:              input.Threshold,
		MaxInconclusivePercent: input.MaxInconclusivePercent,
		WindowSize:             input.Window,
	}
	if input.WindowMode != "" {
		mode, err := domain.ParseWindowMode(input.WindowMode)
		if err != nil {
			return nil, DriftCheckOutput{}, err
		}
		req.WindowMode = mode
	}

	report, err := checker.Check(ctx, req)
	if err != nil {
		return nil, DriftCheckOutput{}, err
	}

	return nil, DriftCheckOutput{
		GeneratedAt:   report.GeneratedAt.UTC().Format(time.RFC3339),
		ArtifactCount: report.ArtifactCount,
		Providers:     report.Providers,
	}, nil
}

// handleRunGates handles the run_gates tool invocation. Gate failures are
// reported in the output, not as tool errors.
func (s *Server) handleRunGates(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RunGatesInput,
) (*mcp.CallToolResult, RunGatesOutput, error) {
	plugins := normalizePlugins(input.Plugins)
	if len(plugins) == 0 {
		return nil, RunGatesOutput{}, fmt.Errorf("%w: plugins is required", domain.ErrInvalidInput)
	}
	gates, err := domain.ParseGateSelector(input.Gate)
	if err != nil {
		return nil, RunGatesOutput{}, err
	}

	settings, err := s.ports.Settings.Get()
	if err != nil {
		return nil, RunGatesOutput{}, fmt.Errorf("loading settings: %w", err)
	}
	if input.URL != "" {
		settings.Instance.URL = input.URL
	}
	if input.Container != "" {
		settings.Instance.ContainerID = input.Container
	}
	settings.Instance.ResolveAPIKey(input.APIKey, os.Getenv(domain.EnvAPIKey))

	runner, err := s.ports.Factory.GateRunner(*settings)
	if err != nil {
		return nil, RunGatesOutput{}, err
	}

	report, err := runner.Run(ctx, domain.GateRunRequest{
		Plugins:         plugins,
		Gates:           gates,
		Instance:        settings.Instance.Config(),
		DiagnosticsPath: settings.Gates.DiagnosticsPath,
		SkipDiagnostics: input.NoDiagnostics,
		Profiles:        settings.Gates.Profiles,
	})
	if err != nil {
		return nil, RunGatesOutput{}, err
	}

	return nil, newRunGatesOutput(report), nil
}

func newRunGatesOutput(report *domain.GateRunReport) RunGatesOutput {
	out := RunGatesOutput{
		Results:        make([]GateResultOutput, len(report.Results)),
		Success:        report.Success,
		Attempted:      report.Attempted,
		Passed:         report.Passed,
		Failed:         report.Failed,
		Skipped:        report.Skipped,
		Cancelled:      report.Cancelled,
		BundlePath:     report.BundlePath,
		BundleError:    report.BundleError,
		FailureSummary: report.FailureSummary,
	}

	for i, r := range report.Results {
		started := ""
		if !r.StartedAt.IsZero() {
			started = r.StartedAt.UTC().Format(time.RFC3339)
		}
		out.Results[i] = GateResultOutput{
			Plugin:     r.PluginName,
			Gate:       r.Gate.String(),
			Status:     string(r.Status),
			Errors:     r.Errors,
			SkipReason: r.SkipReason,
			Metrics:    r.Metrics,
			StartedAt:  started,
			DurationMS: r.Duration.Milliseconds(),
		}
	}
	return out
}

// normalizePlugins accepts both ["a", "b"] and ["a,b"].
func normalizePlugins(in []string) []string {
	return domain.ParsePluginList(strings.Join(in, ","))
}
