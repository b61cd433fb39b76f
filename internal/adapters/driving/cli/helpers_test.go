package cli

import (
	"bytes"
	"context"

	"github.com/spf13/pflag"

	"github.com/custodia-labs/arrgate/internal/core/domain"
	"github.com/custodia-labs/arrgate/internal/core/ports/driving"
)

// mockSettingsService returns fixed settings.
type mockSettingsService struct {
	settings *domain.Settings
	err      error
}

func (m *mockSettingsService) Get() (*domain.Settings, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.settings == nil {
		s := domain.DefaultSettings()
		return &s, nil
	}
	s := *m.settings
	return &s, nil
}

// mockDriftChecker records the last request.
type mockDriftChecker struct {
	report  *domain.DriftReport
	err     error
	lastReq domain.DriftCheckRequest
	watched bool
}

func (m *mockDriftChecker) Check(_ context.Context, req domain.DriftCheckRequest) (*domain.DriftReport, error) {
	m.lastReq = req
	return m.report, m.err
}

func (m *mockDriftChecker) Watch(
	ctx context.Context, req domain.DriftCheckRequest, onReport func(*domain.DriftReport, error),
) error {
	m.watched = true
	onReport(m.Check(ctx, req))
	return nil
}

// mockGateRunner records the last request.
type mockGateRunner struct {
	report  *domain.GateRunReport
	err     error
	lastReq domain.GateRunRequest
	called  bool
}

func (m *mockGateRunner) Run(_ context.Context, req domain.GateRunRequest) (*domain.GateRunReport, error) {
	m.called = true
	m.lastReq = req
	return m.report, m.err
}

// mockServiceFactory hands out the configured mocks and records its inputs.
type mockServiceFactory struct {
	checker    *mockDriftChecker
	runner     *mockGateRunner
	err        error
	lastPath   string
	lastPolicy domain.DriftPolicy
	lastConfig domain.Settings
}

func (m *mockServiceFactory) DriftChecker(path string, policy domain.DriftPolicy) (driving.DriftChecker, error) {
	m.lastPath = path
	m.lastPolicy = policy
	if m.err != nil {
		return nil, m.err
	}
	return m.checker, nil
}

func (m *mockServiceFactory) GateRunner(settings domain.Settings) (driving.GateRunner, error) {
	m.lastConfig = settings
	if m.err != nil {
		return nil, m.err
	}
	return m.runner, nil
}

// installServices replaces the package services and returns a restore func.
func installServices(settings driving.SettingsService, factory driving.ServiceFactory) func() {
	oldSettings, oldFactory, oldBootstrap := settingsService, serviceFactory, bootstrap
	settingsService, serviceFactory, bootstrap = settings, factory, nil
	return func() {
		settingsService, serviceFactory, bootstrap = oldSettings, oldFactory, oldBootstrap
	}
}

// executeCommand runs the root command with fresh flag values and returns its output.
func executeCommand(args ...string) (string, error) {
	resetFlags()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// resetFlags restores every flag to its default; cobra keeps values between runs.
func resetFlags() {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue) //nolint:errcheck // defaults always parse
		f.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(reset)
		for _, sub := range c.Commands() {
			sub.Flags().VisitAll(reset)
		}
	}
}
