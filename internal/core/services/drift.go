package services

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/arrgate/internal/core/domain"
)

// ProjectProviderResults derives one run result per artifact containing probes
// for the provider, newest first. Artifacts without matching probes are dropped.
// The input slice is not modified.
func ProjectProviderResults(artifacts []domain.Artifact, provider string) []domain.ProviderRunResult {
	results := make([]domain.ProviderRunResult, 0, len(artifacts))

	for i := range artifacts {
		probes := artifacts[i].ProbesFor(provider)
		if len(probes) == 0 {
			continue
		}

		r := domain.ProviderRunResult{
			Timestamp:   artifacts[i].Timestamp,
			Version:     artifacts[i].ExpectationsVersion,
			Provider:    provider,
			TotalProbes: len(probes),
		}
		for _, p := range probes {
			if p.DriftDetected {
				r.HasDrift = true
			}
			if p.HasError {
				r.HasError = true
			}
			if p.IsInconclusive {
				r.InconclusiveCount++
			}
		}
		r.InconclusivePercent = domain.PercentOneDecimal(r.InconclusiveCount, r.TotalProbes)
		r.IsClean = !r.HasDrift && !r.HasError

		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Timestamp.After(results[j].Timestamp)
	})

	return results
}

// ComputePassStreak counts the clean runs at the head of results.
// Results must already be ordered newest first.
func ComputePassStreak(results []domain.ProviderRunResult) int {
	streak := 0
	for i := range results {
		if !results[i].IsClean {
			break
		}
		streak++
	}
	return streak
}

// ComputeAverageInconclusiveRate returns the inconclusive percentage across the
// newest windowSize results. A window without probes has a rate of 0.
func ComputeAverageInconclusiveRate(results []domain.ProviderRunResult, windowSize int) float64 {
	if windowSize <= 0 {
		return 0
	}
	if windowSize > len(results) {
		windowSize = len(results)
	}

	var total, inconclusive int
	for _, r := range results[:windowSize] {
		total += r.TotalProbes
		inconclusive += r.InconclusiveCount
	}

	return domain.PercentOneDecimal(inconclusive, total)
}

// EvaluatePromotionReadiness checks every promotion condition and reports
// each violated one.
func EvaluatePromotionReadiness(
	passStreak int, inconclusiveRate float64, threshold int, maxInconclusivePercent float64,
) domain.PromotionDecision {
	reasons := []string{}

	if passStreak < threshold {
		reasons = append(reasons, fmt.Sprintf("Pass streak (%d) < threshold (%d)", passStreak, threshold))
	}
	if inconclusiveRate > maxInconclusivePercent {
		reasons = append(reasons, fmt.Sprintf("Inconclusive rate (%.1f%%) > max allowed (%g%%)",
			inconclusiveRate, maxInconclusivePercent))
	}

	return domain.PromotionDecision{
		Ready:   len(reasons) == 0,
		Reasons: reasons,
	}
}
