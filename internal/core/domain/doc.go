// Package domain defines the core business entities for arrgate.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Artifact, Probe: one nightly drift run and its provider observations
//   - ProviderRunResult, PromotionDecision: derived drift analysis values
//   - Gate, GateResult: verification checks against a live instance
//   - PluginExpectationProfile: what a plugin is expected to register
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
