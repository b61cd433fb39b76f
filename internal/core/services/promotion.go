package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/arrgate/internal/core/domain"
	"github.com/custodia-labs/arrgate/internal/core/ports/driven"
	"github.com/custodia-labs/arrgate/internal/core/ports/driving"
	"github.com/custodia-labs/arrgate/internal/logger"
)

// Ensure DriftCheckService implements the interface.
var _ driving.DriftChecker = (*DriftCheckService)(nil)

// RecommendationReady is the recommendation for a provider ready for promotion.
const RecommendationReady = "READY: Promote to strict mode"

// Recommendation renders a decision for operators. Every reason is kept.
func Recommendation(decision domain.PromotionDecision) string {
	if decision.Ready {
		return RecommendationReady
	}
	return "NOT READY: " + strings.Join(decision.Reasons, "; ")
}

// DriftCheckService builds provider readiness reports from drift artifacts.
type DriftCheckService struct {
	repo   driven.ArtifactRepository
	policy domain.DriftPolicy
	now    func() time.Time
}

// NewDriftCheckService creates a new drift check service.
func NewDriftCheckService(repo driven.ArtifactRepository, policy domain.DriftPolicy) *DriftCheckService {
	return &DriftCheckService{
		repo:   repo,
		policy: policy,
		now:    time.Now,
	}
}

// Check loads every artifact and evaluates the selected providers.
func (s *DriftCheckService) Check(ctx context.Context, req domain.DriftCheckRequest) (*domain.DriftReport, error) {
	logger.Section("Drift Check")

	if s.repo == nil {
		return nil, errors.New("artifact repository not configured")
	}

	policy, err := s.effectivePolicy(req)
	if err != nil {
		return nil, err
	}

	artifacts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load artifacts: %w", err)
	}
	if len(artifacts) == 0 {
		return nil, domain.ErrNoArtifacts
	}
	logger.Info("Loaded %d artifacts", len(artifacts))

	providers := policy.ResolveProviders(req.ProviderFilter)
	logger.Debug("Providers: %v, window mode: %s", providers, policy.WindowMode)

	reports := make([]domain.ProviderReport, len(providers))

	// Providers share no state, so each one is analysed independently.
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range providers {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pp := policy.PolicyFor(name)
			if req.Threshold > 0 {
				pp.Threshold = req.Threshold
			}
			reports[i] = BuildProviderReport(artifacts, pp, policy.WindowFor(pp), policy.MaxInconclusivePercent)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &domain.DriftReport{
		GeneratedAt:   s.now().UTC(),
		ArtifactCount: len(artifacts),
		Providers:     reports,
	}, nil
}

// Watch runs Check immediately and after every change reported by the
// repository. It returns when ctx is done.
func (s *DriftCheckService) Watch(
	ctx context.Context, req domain.DriftCheckRequest, onReport func(*domain.DriftReport, error),
) error {
	watcher, ok := s.repo.(driven.ArtifactWatcher)
	if !ok {
		return fmt.Errorf("%w: artifact source cannot be watched", domain.ErrInvalidInput)
	}

	changes, err := watcher.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch artifacts: %w", err)
	}

	onReport(s.Check(ctx, req))
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, open := <-changes:
			if !open {
				return nil
			}
			logger.Info("Artifacts changed, re-evaluating")
			onReport(s.Check(ctx, req))
		}
	}
}

// effectivePolicy applies request overrides to the configured policy.
func (s *DriftCheckService) effectivePolicy(req domain.DriftCheckRequest) (domain.DriftPolicy, error) {
	policy := s.policy
	if policy.Providers == nil {
		policy.Providers = domain.DefaultDriftPolicy().Providers
	}
	if req.MaxInconclusivePercent != nil {
		policy.MaxInconclusivePercent = *req.MaxInconclusivePercent
	}
	if policy.MaxInconclusivePercent < 0 || policy.MaxInconclusivePercent > 100 {
		return policy, fmt.Errorf("%w: max inconclusive percent %g outside [0,100]",
			domain.ErrInvalidInput, policy.MaxInconclusivePercent)
	}
	if req.WindowMode != "" {
		policy.WindowMode = req.WindowMode
	}
	if req.WindowSize > 0 {
		policy.WindowSize = req.WindowSize
		if req.WindowMode == "" {
			policy.WindowMode = domain.WindowModeExplicit
		}
	}
	if req.Threshold < 0 || req.WindowSize < 0 {
		return policy, fmt.Errorf("%w: threshold and window must not be negative", domain.ErrInvalidInput)
	}
	if policy.WindowMode == domain.WindowModeExplicit && policy.WindowSize <= 0 {
		return policy, fmt.Errorf("%w: explicit window mode needs a positive window size", domain.ErrInvalidInput)
	}
	return policy, nil
}

// BuildProviderReport runs the full analysis for one provider.
func BuildProviderReport(
	artifacts []domain.Artifact, pp domain.ProviderPolicy, windowSize int, maxInconclusive float64,
) domain.ProviderReport {
	results := ProjectProviderResults(artifacts, pp.Name)
	streak := ComputePassStreak(results)
	rate := ComputeAverageInconclusiveRate(results, windowSize)
	decision := EvaluatePromotionReadiness(streak, rate, pp.Threshold, maxInconclusive)

	logger.Debug("%s: runs=%d streak=%d rate=%.1f%% ready=%t",
		pp.Name, len(results), streak, rate, decision.Ready)

	recent := make([]domain.RecentRun, 0, domain.DefaultRecentRuns)
	for i := 0; i < len(results) && i < domain.DefaultRecentRuns; i++ {
		recent = append(recent, domain.NewRecentRun(results[i]))
	}

	return domain.ProviderReport{
		Provider:               pp.Name,
		Threshold:              pp.Threshold,
		WindowSize:             windowSize,
		RunCount:               len(results),
		PassStreak:             streak,
		InconclusiveRate:       rate,
		MaxInconclusiveAllowed: maxInconclusive,
		Ready:                  decision.Ready,
		Blockers:               decision.Reasons,
		RecentRuns:             recent,
		Recommendation:         Recommendation(decision),
	}
}
