package domain

import "time"

// Probe is one observation of a provider within a single nightly run.
type Probe struct {
	// Provider is the content source that was probed (e.g. "qobuz").
	Provider string `json:"provider"`

	// DriftDetected is set when observed behaviour deviated from expectations.
	DriftDetected bool `json:"driftDetected"`

	// HasError is set when the probe itself failed.
	HasError bool `json:"hasError"`

	// IsInconclusive is set when the probe could neither confirm nor deny drift
	// (e.g. it was rate-limited).
	IsInconclusive bool `json:"isInconclusive"`
}

// Artifact is a timestamped snapshot of probes produced by one nightly run.
// Artifacts are produced externally and consumed read-only.
type Artifact struct {
	// Timestamp is when the run happened.
	Timestamp time.Time `json:"timestamp"`

	// ExpectationsVersion identifies the expectation set the run was checked against.
	ExpectationsVersion string `json:"expectationsVersion"`

	// Probes are the observations in the order they were recorded.
	Probes []Probe `json:"probes"`

	// Source is where the artifact was loaded from. Not part of the wire format.
	Source string `json:"-"`
}

// ProbesFor returns the probes recorded for the given provider.
func (a Artifact) ProbesFor(provider string) []Probe {
	var matched []Probe
	for _, p := range a.Probes {
		if p.Provider == provider {
			matched = append(matched, p)
		}
	}
	return matched
}

// ProviderRunResult summarises one artifact from the perspective of one provider.
// It is derived fresh on every analysis and never persisted.
type ProviderRunResult struct {
	Timestamp           time.Time
	Version             string
	Provider            string
	HasDrift            bool
	HasError            bool
	InconclusiveCount   int
	TotalProbes         int
	InconclusivePercent float64
	IsClean             bool
}

// PromotionDecision is the outcome of a readiness evaluation.
type PromotionDecision struct {
	// Ready is true only when every promotion condition holds.
	Ready bool `json:"ready"`

	// Reasons lists every violated condition, in evaluation order.
	Reasons []string `json:"reasons"`
}

// PercentOneDecimal returns 100*part/whole rounded to one decimal place,
// rounding halves away from zero. It returns 0 when whole is not positive.
//
// The rounding is done on integers so that exact halves such as 6.25 always
// round up to 6.3 regardless of floating point representation.
func PercentOneDecimal(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	if part < 0 {
		part = 0
	}
	if part > whole {
		part = whole
	}
	p, w := int64(part), int64(whole)
	tenths := (2000*p + w) / (2 * w)
	return float64(tenths) / 10
}
