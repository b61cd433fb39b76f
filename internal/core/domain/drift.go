package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// WindowMode selects how the inconclusive-rate window is sized.
type WindowMode string

const (
	// WindowModeCoupled sizes the window to the provider's promotion threshold.
	// This is the historical behaviour and the default.
	WindowModeCoupled WindowMode = "coupled"

	// WindowModeExplicit uses DriftPolicy.WindowSize regardless of threshold.
	WindowModeExplicit WindowMode = "explicit"
)

// ParseWindowMode parses a window mode name. Empty input yields the default.
func ParseWindowMode(s string) (WindowMode, error) {
	switch WindowMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", WindowModeCoupled:
		return WindowModeCoupled, nil
	case WindowModeExplicit:
		return WindowModeExplicit, nil
	default:
		return "", fmt.Errorf("%w: unknown window mode %q (want coupled or explicit)", ErrInvalidInput, s)
	}
}

// Known provider names.
const (
	ProviderQobuz = "qobuz"
	ProviderTidal = "tidal"

	// ProviderFilterAll selects every configured provider.
	ProviderFilterAll = "all"
)

// Drift defaults.
const (
	DefaultProviderThreshold      = 5
	DefaultMaxInconclusivePercent = 10.0
	DefaultRecentRuns             = 10
)

// ProviderPolicy holds the promotion parameters for one provider.
type ProviderPolicy struct {
	// Name is the provider name as it appears in probes.
	Name string

	// Threshold is the pass streak required for promotion.
	Threshold int
}

// DriftPolicy configures promotion readiness evaluation.
type DriftPolicy struct {
	// Providers maps provider name to its policy.
	Providers map[string]ProviderPolicy

	// MaxInconclusivePercent is the highest inconclusive rate still allowing promotion.
	MaxInconclusivePercent float64

	// WindowMode selects how WindowFor sizes the inconclusive-rate window.
	WindowMode WindowMode

	// WindowSize is the window used in WindowModeExplicit.
	WindowSize int
}

// DefaultDriftPolicy returns the stock policy for the known providers.
func DefaultDriftPolicy() DriftPolicy {
	return DriftPolicy{
		Providers: map[string]ProviderPolicy{
			ProviderQobuz: {Name: ProviderQobuz, Threshold: 5},
			ProviderTidal: {Name: ProviderTidal, Threshold: 7},
		},
		MaxInconclusivePercent: DefaultMaxInconclusivePercent,
		WindowMode:             WindowModeCoupled,
	}
}

// PolicyFor returns the policy for a provider, falling back to the default threshold.
func (p DriftPolicy) PolicyFor(provider string) ProviderPolicy {
	if pp, ok := p.Providers[provider]; ok && pp.Threshold > 0 {
		pp.Name = provider
		return pp
	}
	return ProviderPolicy{Name: provider, Threshold: DefaultProviderThreshold}
}

// WindowFor returns the inconclusive-rate window size for a provider policy.
func (p DriftPolicy) WindowFor(pp ProviderPolicy) int {
	if p.WindowMode == WindowModeExplicit && p.WindowSize > 0 {
		return p.WindowSize
	}
	return pp.Threshold
}

// ProviderNames returns the configured provider names in sorted order.
func (p DriftPolicy) ProviderNames() []string {
	names := make([]string, 0, len(p.Providers))
	for name := range p.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveProviders expands a provider filter into provider names.
// "all" (or empty) yields every configured provider.
func (p DriftPolicy) ResolveProviders(filter string) []string {
	filter = strings.ToLower(strings.TrimSpace(filter))
	if filter == "" || filter == ProviderFilterAll {
		return p.ProviderNames()
	}
	return []string{filter}
}

// RecentRun is the per-run row shown in a provider report.
type RecentRun struct {
	Date                      string  `json:"date"`
	Clean                     bool    `json:"clean"`
	Drift                     bool    `json:"drift"`
	Error                     bool    `json:"error"`
	InconclusivePercent       float64 `json:"inconclusivePercent"`
	InconclusivePercentString string  `json:"inconclusivePercentString"`
}

// RecentRunDateLayout is the layout used for RecentRun.Date.
const RecentRunDateLayout = "2006-01-02 15:04"

// NewRecentRun builds a report row from a run result.
func NewRecentRun(r ProviderRunResult) RecentRun {
	return RecentRun{
		Date:                      r.Timestamp.UTC().Format(RecentRunDateLayout),
		Clean:                     r.IsClean,
		Drift:                     r.HasDrift,
		Error:                     r.HasError,
		InconclusivePercent:       r.InconclusivePercent,
		InconclusivePercentString: fmt.Sprintf("%.1f%%", r.InconclusivePercent),
	}
}

// ProviderReport is the readiness report for one provider. Both the human and
// the JSON renderings are produced from this value.
type ProviderReport struct {
	Provider               string      `json:"provider"`
	Threshold              int         `json:"threshold"`
	WindowSize             int         `json:"windowSize"`
	RunCount               int         `json:"runCount"`
	PassStreak             int         `json:"passStreak"`
	InconclusiveRate       float64     `json:"inconclusiveRate"`
	MaxInconclusiveAllowed float64     `json:"maxInconclusiveAllowed"`
	Ready                  bool        `json:"ready"`
	Blockers               []string    `json:"blockers"`
	RecentRuns             []RecentRun `json:"recentRuns"`
	Recommendation         string      `json:"recommendation"`
}

// DriftReport is the result of one drift-check invocation.
type DriftReport struct {
	GeneratedAt   time.Time        `json:"generatedAt"`
	ArtifactCount int              `json:"artifactCount"`
	Providers     []ProviderReport `json:"providers"`
}

// DriftCheckRequest parameterises a drift check. Zero values fall back to policy.
type DriftCheckRequest struct {
	// ProviderFilter is a provider name or "all".
	ProviderFilter string

	// Threshold overrides every selected provider's threshold when positive.
	Threshold int

	// MaxInconclusivePercent overrides the policy maximum when non-nil.
	MaxInconclusivePercent *float64

	// WindowMode overrides the policy window mode when set.
	WindowMode WindowMode

	// WindowSize overrides the policy window size when positive.
	WindowSize int
}
