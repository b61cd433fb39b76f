package mcp

import (
	"context"

	"github.com/custodia-labs/arrgate/internal/core/domain"
	"github.com/custodia-labs/arrgate/internal/core/ports/driving"
)

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings *domain.Settings
	err      error
}

func (m *mockSettingsService) Get() (*domain.Settings, error) {
	if m.err != nil {
		return nil, m.err
	}
	s := domain.DefaultSettings()
	if m.settings != nil {
		s = *m.settings
	}
	return &s, nil
}

// mockDriftChecker is a mock implementation of driving.DriftChecker.
type mockDriftChecker struct {
	report  *domain.DriftReport
	err     error
	lastReq domain.DriftCheckRequest
}

func (m *mockDriftChecker) Check(_ context.Context, req domain.DriftCheckRequest) (*domain.DriftReport, error) {
	m.lastReq = req
	return m.report, m.err
}

func (m *mockDriftChecker) Watch(
	_ context.Context, _ domain.DriftCheckRequest, _ func(*domain.DriftReport, error),
) error {
	return m.err
}

// mockGateRunner is a mock implementation of driving.GateRunner.
type mockGateRunner struct {
	report  *domain.GateRunReport
	err     error
	lastReq domain.GateRunRequest
}

func (m *mockGateRunner) Run(_ context.Context, req domain.GateRunRequest) (*domain.GateRunReport, error) {
	m.lastReq = req
	return m.report, m.err
}

// mockServiceFactory is a mock implementation of driving.ServiceFactory.
type mockServiceFactory struct {
	checker  *mockDriftChecker
	runner   *mockGateRunner
	err      error
	lastPath string
}

func (m *mockServiceFactory) DriftChecker(path string, _ domain.DriftPolicy) (driving.DriftChecker, error) {
	m.lastPath = path
	if m.err != nil {
		return nil, m.err
	}
	return m.checker, nil
}

func (m *mockServiceFactory) GateRunner(_ domain.Settings) (driving.GateRunner, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.runner, nil
}

func newTestServer(settings *mockSettingsService, factory *mockServiceFactory) (*Server, error) {
	return NewServer(&Ports{Settings: settings, Factory: factory})
}
