package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/arrgate/internal/core/domain"
	"github.com/custodia-labs/arrgate/internal/core/ports/driven"
	"github.com/custodia-labs/arrgate/internal/core/ports/driving"
	"github.com/custodia-labs/arrgate/internal/logger"
)

// Ensure GateOrchestrator implements the interface.
var _ driving.GateRunner = (*GateOrchestrator)(nil)

// GateOrchestrator runs gates for every requested plugin against a live
// instance and triggers diagnostics when the run fails.
type GateOrchestrator struct {
	probe     driven.GateProbe
	resolver  driven.IndexerResolver
	collector driven.DiagnosticsCollector
	profiles  map[string]domain.PluginExpectationProfile
	now       func() time.Time
}

// NewGateOrchestrator creates a new gate orchestrator.
// The collector is optional (can be nil). A nil profiles map means the
// built-in plugin profiles.
func NewGateOrchestrator(
	probe driven.GateProbe,
	resolver driven.IndexerResolver,
	collector driven.DiagnosticsCollector,
	profiles map[string]domain.PluginExpectationProfile,
) *GateOrchestrator {
	if profiles == nil {
		profiles = domain.BuiltinPluginProfiles()
	}
	return &GateOrchestrator{
		probe:     probe,
		resolver:  resolver,
		collector: collector,
		profiles:  profiles,
		now:       time.Now,
	}
}

// Run evaluates every (plugin, gate) pair of the request. Gate failures never
// stop the run; only pre-flight problems are returned as errors.
func (o *GateOrchestrator) Run(ctx context.Context, req domain.GateRunRequest) (*domain.GateRunReport, error) {
	logger.Section("Gate Run")

	if err := o.preflight(&req); err != nil {
		return nil, err
	}

	if err := o.probe.Initialize(ctx, req.Instance.APIURL, req.Instance.APIKey); err != nil {
		return nil, fmt.Errorf("%w: initialize instance client: %v", domain.ErrConfiguration, err)
	}
	logger.Info("Instance: %s (credentials: %t)", req.Instance.APIURL, req.Instance.HasCredentials())

	report := &domain.GateRunReport{Results: []domain.GateResult{}}

plugins:
	for _, plugin := range req.Plugins {
		profile := o.resolveProfile(plugin, req.Profiles)
		logger.Debug("%s profile: indexer=%t downloadClient=%t importList=%t",
			plugin, profile.ExpectIndexer, profile.ExpectDownloadClient, profile.ExpectImportList)

		for _, gate := range req.Gates {
			if ctx.Err() != nil {
				logger.Warn("Gate run cancelled before %s/%s", plugin, gate)
				report.Cancelled = true
				break plugins
			}

			result := o.runPair(ctx, plugin, gate, profile, req.Instance)
			logger.Info("%s/%s: %s", plugin, gate, result.Status)
			report.Results = append(report.Results, result)
		}
	}

	report.Tally()
	o.collectDiagnostics(ctx, req, report)

	return report, nil
}

// preflight validates the request before any network call is made.
func (o *GateOrchestrator) preflight(req *domain.GateRunRequest) error {
	if o.probe == nil {
		return errors.New("gate probe not configured")
	}
	if len(req.Plugins) == 0 {
		return fmt.Errorf("%w: at least one plugin is required", domain.ErrInvalidInput)
	}
	if len(req.Gates) == 0 {
		req.Gates = domain.AllGates()
	}
	if !req.Instance.HasCredentials() {
		for _, gate := range req.Gates {
			if gate.RequiresCredentials() {
				return fmt.Errorf("%w: %s gate requires an API key", domain.ErrConfiguration, gate)
			}
		}
	}
	return nil
}

// resolveProfile picks the request override, then the known profile, then the default.
func (o *GateOrchestrator) resolveProfile(
	plugin string, overrides map[string]domain.PluginExpectationProfile,
) domain.PluginExpectationProfile {
	if p, ok := domain.LookupPluginProfile(overrides, plugin); ok {
		return p
	}
	if p, ok := domain.LookupPluginProfile(o.profiles, plugin); ok {
		return p
	}
	logger.Warn("Unknown plugin %q, using default profile (indexer + download client)", plugin)
	return domain.DefaultPluginProfile()
}

// runPair evaluates one (plugin, gate) pair. Errors and panics are converted
// into a failed result here so they never reach sibling pairs.
func (o *GateOrchestrator) runPair(
	ctx context.Context,
	plugin string,
	gate domain.Gate,
	profile domain.PluginExpectationProfile,
	instance domain.InstanceConfig,
) (result domain.GateResult) {
	start := o.now()
	status := domain.GateStatusNotRun
	if status.CanTransition(domain.GateStatusRunning) {
		status = domain.GateStatusRunning
	}

	defer func() {
		if r := recover(); r != nil {
			result = domain.FailedResult(gate, plugin, nil, fmt.Sprintf("%s gate panicked: %v", gate, r))
		}
		result = normalizeResult(result, gate, plugin)
		if !status.CanTransition(result.Status) {
			result = domain.FailedResult(gate, plugin, result.Metrics,
				fmt.Sprintf("%s gate ended in invalid state %q", gate, result.Status))
		}
		result.StartedAt = start
		result.Duration = o.now().Sub(start)
	}()

	var err error
	switch gate {
	case domain.GateSchema:
		result, err = o.runSchemaGate(ctx, plugin, profile, instance)
	case domain.GateSearch:
		result, err = o.runSearchGate(ctx, plugin, profile)
	case domain.GateGrab:
		result = o.runGrabGate(plugin, profile)
	default:
		err = fmt.Errorf("%w: unknown gate %q", domain.ErrInvalidInput, gate)
	}

	if err != nil {
		if ctx.Err() != nil {
			return domain.SkippedResult(gate, plugin, "cancelled: "+ctx.Err().Error())
		}
		return domain.FailedResult(gate, plugin, result.Metrics, err.Error())
	}
	return result
}

func (o *GateOrchestrator) runSchemaGate(
	ctx context.Context, plugin string, profile domain.PluginExpectationProfile, instance domain.InstanceConfig,
) (domain.GateResult, error) {
	if instance.HasCredentials() {
		return o.probe.RunSchemaGate(ctx, plugin, profile)
	}

	// Without credentials the only thing we can learn is whether the instance
	// enforces authentication at all.
	err := o.probe.CheckStatus(ctx)
	switch {
	case err == nil:
		return domain.FailedResult(domain.GateSchema, plugin,
			map[string]any{"unauthenticatedStatus": true}, domain.ErrMsgSchemaUnauthenticated), nil
	case errors.Is(err, domain.ErrUnauthorized):
		return domain.SkippedResult(domain.GateSchema, plugin, domain.SkipReasonSchemaNeedsAPIKey), nil
	default:
		return domain.GateResult{}, fmt.Errorf("status check failed: %w", err)
	}
}

func (o *GateOrchestrator) runSearchGate(
	ctx context.Context, plugin string, profile domain.PluginExpectationProfile,
) (domain.GateResult, error) {
	if !profile.ExpectIndexer {
		return domain.SkippedResult(domain.GateSearch, plugin, domain.SkipReasonNoIndexerExpected), nil
	}
	if o.resolver == nil {
		return domain.GateResult{}, errors.New("indexer resolver not configured")
	}

	indexer, err := o.resolver.ResolveIndexer(ctx, plugin, profile)
	if errors.Is(err, domain.ErrNotConfigured) {
		logger.Debug("%s: %v", plugin, err)
		return domain.SkippedResult(domain.GateSearch, plugin, domain.SkipReasonNoIndexerConfigured), nil
	}
	if err != nil {
		return domain.GateResult{}, fmt.Errorf("indexer lookup failed: %w", err)
	}

	logger.Debug("%s: using indexer %d (%s)", plugin, indexer.ID, indexer.Name)
	return o.probe.RunSearchGate(ctx, plugin, indexer)
}

// runGrabGate never runs a grab: it needs a release identifier that cannot be
// derived automatically.
func (o *GateOrchestrator) runGrabGate(plugin string, profile domain.PluginExpectationProfile) domain.GateResult {
	if !profile.ExpectDownloadClient {
		return domain.SkippedResult(domain.GateGrab, plugin, domain.SkipReasonNoDownloadClientExpected)
	}
	return domain.SkippedResult(domain.GateGrab, plugin, domain.SkipReasonManualGrab)
}

// collectDiagnostics asks the collector for a bundle when the run failed.
func (o *GateOrchestrator) collectDiagnostics(ctx context.Context, req domain.GateRunRequest, report *domain.GateRunReport) {
	if report.Success || report.Cancelled || o.collector == nil {
		return
	}

	report.FailureSummary = o.collector.SummarizeFailures(report.Results)

	if req.SkipDiagnostics {
		logger.Info("Diagnostics suppressed")
		return
	}
	if !req.Instance.HasCredentials() {
		logger.Info("Diagnostics skipped: no API key")
		return
	}

	path, err := o.collector.CreateBundle(ctx, domain.DiagnosticsRequest{
		OutputPath:  req.DiagnosticsPath,
		ContainerID: req.Instance.ContainerID,
		APIURL:      req.Instance.APIURL,
		APIKey:      req.Instance.APIKey,
		Results:     report.Results,
	})
	if err != nil {
		logger.Error("Diagnostics bundle failed: %v", err)
		report.BundleError = err.Error()
		return
	}
	report.BundlePath = path
}

// normalizeResult fills identity fields and keeps Success consistent with Status.
func normalizeResult(r domain.GateResult, gate domain.Gate, plugin string) domain.GateResult {
	r.Gate = gate
	r.PluginName = plugin
	if r.Status == "" {
		r.Status = domain.GateStatusFailed
		if r.Success {
			r.Status = domain.GateStatusPassed
		}
	}
	r.Success = r.Status == domain.GateStatusPassed
	if r.Errors == nil {
		r.Errors = []string{}
	}
	if r.Metrics == nil {
		r.Metrics = map[string]any{}
	}
	return r
}
