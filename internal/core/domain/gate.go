package domain

import (
	"fmt"
	"strings"
	"time"
)

// Gate identifies one verification check run against a live instance.
type Gate string

const (
	// GateSchema checks that the plugin's components appear in the instance schemas.
	GateSchema Gate = "schema"
	// GateSearch checks that a configured indexer answers searches.
	GateSearch Gate = "search"
	// GateGrab checks that a release can be grabbed through the download client.
	GateGrab Gate = "grab"
)

// GateSelectorAll selects every gate.
const GateSelectorAll = "all"

// AllGates returns every gate in execution order.
func AllGates() []Gate {
	return []Gate{GateSchema, GateSearch, GateGrab}
}

// RequiresCredentials reports whether the gate needs an API key.
func (g Gate) RequiresCredentials() bool {
	return g == GateSearch || g == GateGrab
}

// String returns the gate name.
func (g Gate) String() string {
	return string(g)
}

// ParseGateSelector expands a gate selector (schema|search|grab|all).
func ParseGateSelector(s string) ([]Gate, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", GateSelectorAll:
		return AllGates(), nil
	case string(GateSchema):
		return []Gate{GateSchema}, nil
	case string(GateSearch):
		return []Gate{GateSearch}, nil
	case string(GateGrab):
		return []Gate{GateGrab}, nil
	default:
		return nil, fmt.Errorf("%w: unknown gate %q (want schema, search, grab or all)", ErrInvalidInput, s)
	}
}

// GateStatus is the lifecycle state of a (plugin, gate) pair.
type GateStatus string

const (
	GateStatusNotRun  GateStatus = "not_run"
	GateStatusRunning GateStatus = "running"
	GateStatusPassed  GateStatus = "passed"
	GateStatusFailed  GateStatus = "failed"
	GateStatusSkipped GateStatus = "skipped"
)

// IsTerminal reports whether no further transition is allowed.
func (s GateStatus) IsTerminal() bool {
	return s == GateStatusPassed || s == GateStatusFailed || s == GateStatusSkipped
}

// CanTransition reports whether moving from s to next is legal.
func (s GateStatus) CanTransition(next GateStatus) bool {
	switch s {
	case GateStatusNotRun:
		return next == GateStatusRunning
	case GateStatusRunning:
		return next.IsTerminal()
	default:
		return false
	}
}

// GateResult is the outcome of running one gate for one plugin.
type GateResult struct {
	Gate       Gate           `json:"gate"`
	PluginName string         `json:"pluginName"`
	Status     GateStatus     `json:"status"`
	Success    bool           `json:"success"`
	Errors     []string       `json:"errors"`
	SkipReason string         `json:"skipReason,omitempty"`
	Metrics    map[string]any `json:"metrics"`
	StartedAt  time.Time      `json:"startedAt"`
	Duration   time.Duration  `json:"durationNs"`
}

// PassedResult builds a passing result.
func PassedResult(gate Gate, plugin string, metrics map[string]any) GateResult {
	return GateResult{
		Gate:       gate,
		PluginName: plugin,
		Status:     GateStatusPassed,
		Success:    true,
		Errors:     []string{},
		Metrics:    ensureMetrics(metrics),
	}
}

// FailedResult builds a failing result with the given error messages.
func FailedResult(gate Gate, plugin string, metrics map[string]any, errs ...string) GateResult {
	if errs == nil {
		errs = []string{}
	}
	return GateResult{
		Gate:       gate,
		PluginName: plugin,
		Status:     GateStatusFailed,
		Errors:     errs,
		Metrics:    ensureMetrics(metrics),
	}
}

// SkippedResult builds a skipped result.
func SkippedResult(gate Gate, plugin, reason string) GateResult {
	return GateResult{
		Gate:       gate,
		PluginName: plugin,
		Status:     GateStatusSkipped,
		Errors:     []string{},
		SkipReason: reason,
		Metrics:    map[string]any{},
	}
}

// Attempted reports whether the gate actually ran (was not skipped).
func (r GateResult) Attempted() bool {
	return r.Status == GateStatusPassed || r.Status == GateStatusFailed
}

// Failed reports whether the gate ran and failed.
func (r GateResult) Failed() bool {
	return r.Status == GateStatusFailed
}

func ensureMetrics(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// Skip reasons shared by gate implementations.
const (
	SkipReasonNoIndexerExpected        = "no indexer expected"
	SkipReasonNoIndexerConfigured      = "no configured indexer found"
	SkipReasonNoDownloadClientExpected = "no download client expected"
	SkipReasonManualGrab               = "manual verification required: grab needs a release identifier"
	SkipReasonSchemaNeedsAPIKey        = "API key required for schema gate"

	// ErrMsgSchemaUnauthenticated marks an instance that answered an
	// unauthenticated status probe.
	ErrMsgSchemaUnauthenticated = "API key required even for schema gate"
)

// Indexer is an indexer configured on the live instance.
type Indexer struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Implementation string `json:"implementation"`
}

// InstanceConfig identifies and authenticates against the live instance.
type InstanceConfig struct {
	// APIURL is the instance base URL (e.g. http://localhost:8686).
	APIURL string

	// APIKey authenticates API calls. Empty means no credentials.
	APIKey string

	// ContainerID names the container or process whose logs are collected.
	ContainerID string

	// Timeout bounds each call to the instance.
	Timeout time.Duration
}

// HasCredentials reports whether an API key was supplied.
func (c InstanceConfig) HasCredentials() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// IndexerMatchMode selects how a plugin is mapped to a configured indexer.
type IndexerMatchMode string

const (
	// IndexerMatchAuto uses the explicit indexer ID when the profile has one,
	// and substring matching otherwise.
	IndexerMatchAuto IndexerMatchMode = "auto"
	// IndexerMatchExplicit only accepts the profile's indexer ID.
	IndexerMatchExplicit IndexerMatchMode = "explicit"
	// IndexerMatchSubstring picks the first indexer whose name or implementation
	// contains the plugin name, ignoring case.
	IndexerMatchSubstring IndexerMatchMode = "substring"
)

// ParseIndexerMatchMode parses a match mode name. Empty input yields auto.
func ParseIndexerMatchMode(s string) (IndexerMatchMode, error) {
	switch IndexerMatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", IndexerMatchAuto:
		return IndexerMatchAuto, nil
	case IndexerMatchExplicit:
		return IndexerMatchExplicit, nil
	case IndexerMatchSubstring:
		return IndexerMatchSubstring, nil
	default:
		return "", fmt.Errorf("%w: unknown indexer match mode %q", ErrInvalidInput, s)
	}
}

// GateRunRequest parameterises one orchestrator run.
type GateRunRequest struct {
	// Plugins are evaluated in order.
	Plugins []string

	// Gates are evaluated in order for every plugin.
	Gates []Gate

	// Instance identifies the live instance.
	Instance InstanceConfig

	// DiagnosticsPath is where a bundle is written on failure.
	DiagnosticsPath string

	// SkipDiagnostics suppresses bundle creation.
	SkipDiagnostics bool

	// Profiles overrides plugin expectation profiles by (lower-cased) plugin name.
	Profiles map[string]PluginExpectationProfile
}

// GateRunReport aggregates every result of an orchestrator run.
type GateRunReport struct {
	Results        []GateResult `json:"results"`
	Success        bool         `json:"success"`
	Attempted      int          `json:"attempted"`
	Passed         int          `json:"passed"`
	Failed         int          `json:"failed"`
	Skipped        int          `json:"skipped"`
	Cancelled      bool         `json:"cancelled"`
	BundlePath     string       `json:"bundlePath,omitempty"`
	BundleError    string       `json:"bundleError,omitempty"`
	FailureSummary string       `json:"failureSummary,omitempty"`
}

// Tally recomputes the counters and overall success from Results.
func (r *GateRunReport) Tally() {
	r.Attempted, r.Passed, r.Failed, r.Skipped = 0, 0, 0, 0
	for _, res := range r.Results {
		switch res.Status {
		case GateStatusPassed:
			r.Attempted++
			r.Passed++
		case GateStatusFailed:
			r.Attempted++
			r.Failed++
		case GateStatusSkipped:
			r.Skipped++
		}
	}
	r.Success = r.Failed == 0 && !r.Cancelled
}

// DiagnosticsRequest is the call contract for bundle collection.
type DiagnosticsRequest struct {
	OutputPath  string
	ContainerID string
	APIURL      string
	APIKey      string
	Results     []GateResult
}
