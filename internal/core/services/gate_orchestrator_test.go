package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/arrgate/internal/core/domain"
	"github.com/custodia-labs/arrgate/internal/logger"
)

// --- Mock implementations for gate testing ---

// mockGateProbe implements driven.GateProbe.
type mockGateProbe struct {
	initErr     error
	statusErr   error
	schemaFn    func(plugin string, profile domain.PluginExpectationProfile) (domain.GateResult, error)
	searchFn    func(plugin string, indexer domain.Indexer) (domain.GateResult, error)
	initCalls   int
	statusCalls int
	schemaCalls []string
	searchCalls []domain.Indexer
}

func (m *mockGateProbe) Initialize(_ context.Context, _, _ string) error {
	m.initCalls++
	return m.initErr
}

func (m *mockGateProbe) CheckStatus(_ context.Context) error {
	m.statusCalls++
	return m.statusErr
}

func (m *mockGateProbe) RunSchemaGate(
	_ context.Context, plugin string, profile domain.PluginExpectationProfile,
) (domain.GateResult, error) {
	m.schemaCalls = append(m.schemaCalls, plugin)
	if m.schemaFn != nil {
		return m.schemaFn(plugin, profile)
	}
	return domain.PassedResult(domain.GateSchema, plugin, nil), nil
}

func (m *mockGateProbe) RunSearchGate(
	_ context.Context, plugin string, indexer domain.Indexer,
) (domain.GateResult, error) {
	m.searchCalls = append(m.searchCalls, indexer)
	if m.searchFn != nil {
		return m.searchFn(plugin, indexer)
	}
	return domain.PassedResult(domain.GateSearch, plugin, map[string]any{"resultCount": 3}), nil
}

// mockIndexerResolver implements driven.IndexerResolver.
type mockIndexerResolver struct {
	indexers map[string]domain.Indexer
	err      error
}

func (m *mockIndexerResolver) ResolveIndexer(
	_ context.Context, plugin string, _ domain.PluginExpectationProfile,
) (domain.Indexer, error) {
	if m.err != nil {
		return domain.Indexer{}, m.err
	}
	if ix, ok := m.indexers[strings.ToLower(plugin)]; ok {
		return ix, nil
	}
	return domain.Indexer{}, domain.ErrNotConfigured
}

// mockCollector implements driven.DiagnosticsCollector.
type mockCollector struct {
	requests []domain.DiagnosticsRequest
	err      error
}

func (m *mockCollector) CreateBundle(_ context.Context, req domain.DiagnosticsRequest) (string, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return "", m.err
	}
	return "/tmp/bundle.zip", nil
}

func (m *mockCollector) SummarizeFailures(results []domain.GateResult) string {
	var n int
	for _, r := range results {
		if r.Failed() {
			n++
		}
	}
	return strings.Repeat("x", n)
}

func withAPIKey() domain.InstanceConfig {
	return domain.InstanceConfig{APIURL: "http://lidarr:8686", APIKey: "secret", ContainerID: "lidarr"}
}

func findResult(t *testing.T, report *domain.GateRunReport, plugin string, gate domain.Gate) domain.GateResult {
	t.Helper()
	for _, r := range report.Results {
		if r.PluginName == plugin && r.Gate == gate {
			return r
		}
	}
	t.Fatalf("no result for %s/%s", plugin, gate)
	return domain.GateResult{}
}

func TestGateOrchestrator_MissingCredentialsFailsFast(t *testing.T) {
	probe := &mockGateProbe{}
	o := NewGateOrchestrator(probe, &mockIndexerResolver{}, &mockCollector{}, nil)

	for _, gates := range [][]domain.Gate{{domain.GateSearch}, {domain.GateGrab}, domain.AllGates()} {
		report, err := o.Run(context.Background(), domain.GateRunRequest{
			Plugins: []string{"qobuzarr"},
			Gates:   gates,
		})
		assert.ErrorIs(t, err, domain.ErrConfiguration)
		assert.Nil(t, report)
	}
	assert.Equal(t, 0, probe.initCalls, "no network call before the credential check")
	assert.Equal(t, 0, probe.statusCalls)
}

func TestGateOrchestrator_NoPlugins(t *testing.T) {
	o := NewGateOrchestrator(&mockGateProbe{}, nil, nil, nil)

	_, err := o.Run(context.Background(), domain.GateRunRequest{Instance: withAPIKey()})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGateOrchestrator_InitializeError(t *testing.T) {
	o := NewGateOrchestrator(&mockGateProbe{initErr: errors.New("bad url")}, nil, nil, nil)

	_, err := o.Run(context.Background(), domain.GateRunRequest{
		Plugins:  []string{"qobuzarr"},
		Gates:    []domain.Gate{domain.GateSchema},
		Instance: withAPIKey(),
	})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "bad url")
}

func TestGateOrchestrator_SchemaWithoutCredentials(t *testing.T) {
	tests := []struct {
		name       string
		statusErr  error
		wantStatus domain.GateStatus
		wantText   string
	}{
		{"unauthenticated status succeeds", nil, domain.GateStatusFailed, domain.ErrMsgSchemaUnauthenticated},
		{"instance enforces auth", domain.ErrUnauthorized, domain.GateStatusSkipped, domain.SkipReasonSchemaNeedsAPIKey},
		{"instance unreachable", errors.New("dial tcp: timeout"), domain.GateStatusFailed, "dial tcp: timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probe := &mockGateProbe{statusErr: tt.statusErr}
			collector := &mockCollector{}
			o := NewGateOrchestrator(probe, nil, collector, nil)

			report, err := o.Run(context.Background(), domain.GateRunRequest{
				Plugins:  []string{"qobuzarr"},
				Gates:    []domain.Gate{domain.GateSchema},
				Instance: domain.InstanceConfig{APIURL: "http://lidarr:8686"},
			})

			require.NoError(t, err)
			r := findResult(t, report, "qobuzarr", domain.GateSchema)
			assert.Equal(t, tt.wantStatus, r.Status)
			assert.Contains(t, strings.Join(append(r.Errors, r.SkipReason), " "), tt.wantText)
			assert.Empty(t, probe.schemaCalls, "schema endpoints need credentials")
			assert.Empty(t, collector.requests, "no bundle without credentials")
		})
	}
}

func TestGateOrchestrator_UnknownPluginDoesNotStopOthers(t *testing.T) {
	var logs bytes.Buffer
	logger.SetOutput(&logs)
	defer logger.SetOutput(os.Stderr)

	probe := &mockGateProbe{
		schemaFn: func(plugin string, profile domain.PluginExpectationProfile) (domain.GateResult, error) {
			if plugin == "UnknownX" {
				assert.Equal(t, domain.DefaultPluginProfile(), profile)
				return domain.FailedResult(domain.GateSchema, plugin, nil,
					"indexer schema missing for UnknownX", "download client schema missing for UnknownX"), nil
			}
			return domain.PassedResult(domain.GateSchema, plugin, nil), nil
		},
	}
	collector := &mockCollector{}
	o := NewGateOrchestrator(probe, nil, collector, map[string]domain.PluginExpectationProfile{
		"knowna": {ExpectIndexer: true},
	})

	// UnknownX runs first so a fail-fast implementation would never reach KnownA.
	report, err := o.Run(context.Background(), domain.GateRunRequest{
		Plugins:         []string{"UnknownX", "KnownA"},
		Gates:           []domain.Gate{domain.GateSchema},
		Instance:        withAPIKey(),
		DiagnosticsPath: "/tmp/diag",
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"UnknownX", "KnownA"}, probe.schemaCalls)
	require.Len(t, report.Results, 2)

	unknown := findResult(t, report, "UnknownX", domain.GateSchema)
	assert.Equal(t, domain.GateStatusFailed, unknown.Status)
	assert.Len(t, unknown.Errors, 2)

	known := findResult(t, report, "KnownA", domain.GateSchema)
	assert.Equal(t, domain.GateStatusPassed, known.Status)
	assert.True(t, known.Success)

	assert.False(t, report.Success)
	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, logs.String(), `Unknown plugin "UnknownX"`)

	require.Len(t, collector.requests, 1, "diagnostics collected exactly once")
	req := collector.requests[0]
	assert.Equal(t, "/tmp/diag", req.OutputPath)
	assert.Equal(t, "lidarr", req.ContainerID)
	assert.Equal(t, "http://lidarr:8686", req.APIURL)
	assert.Equal(t, "secret", req.APIKey)
	assert.Len(t, req.Results, 2)
	assert.Equal(t, "/tmp/bundle.zip", report.BundlePath)
	assert.Equal(t, "x", report.FailureSummary)
}

func TestGateOrchestrator_NotConfiguredVersusLookupFailure(t *testing.T) {
	run := func(resolver *mockIndexerResolver) domain.GateResult {
		o := NewGateOrchestrator(&mockGateProbe{}, resolver, nil, nil)
		report, err := o.Run(context.Background(), domain.GateRunRequest{
			Plugins:  []string{"qobuzarr"},
			Gates:    []domain.Gate{domain.GateSearch},
			Instance: withAPIKey(),
		})
		require.NoError(t, err)
		return findResult(t, report, "qobuzarr", domain.GateSearch)
	}

	notConfigured := run(&mockIndexerResolver{})
	assert.Equal(t, domain.GateStatusSkipped, notConfigured.Status)
	assert.Equal(t, domain.SkipReasonNoIndexerConfigured, notConfigured.SkipReason)

	lookupFailure := run(&mockIndexerResolver{err: errors.New("503 service unavailable")})
	assert.Equal(t, domain.GateStatusFailed, lookupFailure.Status)
	require.Len(t, lookupFailure.Errors, 1)
	assert.Contains(t, lookupFailure.Errors[0], "indexer lookup failed")
	assert.Contains(t, lookupFailure.Errors[0], "503 service unavailable")
}

func TestGateOrchestrator_SearchGate(t *testing.T) {
	probe := &mockGateProbe{}
	resolver := &mockIndexerResolver{indexers: map[string]domain.Indexer{
		"qobuzarr": {ID: 4, Name: "Qobuzarr", Implementation: "Qobuzarr"},
	}}
	o := NewGateOrchestrator(probe, resolver, nil, nil)

	report, err := o.Run(context.Background(), domain.GateRunRequest{
		Plugins:  []string{"qobuzarr", "brainarr"},
		Gates:    []domain.Gate{domain.GateSearch},
		Instance: withAPIKey(),
	})

	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Equal(t, []domain.Indexer{{ID: 4, Name: "Qobuzarr", Implementation: "Qobuzarr"}}, probe.searchCalls)

	passed := findResult(t, report, "qobuzarr", domain.GateSearch)
	assert.Equal(t, domain.GateStatusPassed, passed.Status)
	assert.Equal(t, 3, passed.Metrics["resultCount"])

	skipped := findResult(t, report, "brainarr", domain.GateSearch)
	assert.Equal(t, domain.SkipReasonNoIndexerExpected, skipped.SkipReason)
}

func TestGateOrchestrator_GrabAlwaysManual(t *testing.T) {
	o := NewGateOrchestrator(&mockGateProbe{}, nil, nil, nil)

	report, err := o.Run(context.Background(), domain.GateRunRequest{
		Plugins:  []string{"tidalarr", "brainarr"},
		Gates:    []domain.Gate{domain.GateGrab},
		Instance: withAPIKey(),
	})

	require.NoError(t, err)
	assert.True(t, report.Success, "skips are not failures")
	assert.Equal(t, 0, report.Attempted)
	assert.Equal(t, domain.SkipReasonManualGrab, findResult(t, report, "tidalarr", domain.GateGrab).SkipReason)
	assert.Equal(t, domain.SkipReasonNoDownloadClientExpected, findResult(t, report, "brainarr", domain.GateGrab).SkipReason)
}

func TestGateOrchestrator_ErrorsAndPanicsBecomeFailures(t *testing.T) {
	probe := &mockGateProbe{
		schemaFn: func(plugin string, _ domain.PluginExpectationProfile) (domain.GateResult, error) {
			switch plugin {
			case "a":
				return domain.GateResult{}, errors.New("context deadline exceeded (Client.Timeout exceeded)")
			case "b":
				panic("nil map")
			}
			return domain.PassedResult(domain.GateSchema, plugin, nil), nil
		},
	}
	o := NewGateOrchestrator(probe, nil, nil, nil)

	report, err := o.Run(context.Background(), domain.GateRunRequest{
		Plugins:  []string{"a", "b", "c"},
		Gates:    []domain.Gate{domain.GateSchema},
		Instance: withAPIKey(),
	})

	require.NoError(t, err)
	require.Len(t, report.Results, 3)
	assert.Contains(t, findResult(t, report, "a", domain.GateSchema).Errors[0], "Client.Timeout")
	assert.Contains(t, findResult(t, report, "b", domain.GateSchema).Errors[0], "panicked")
	assert.True(t, findResult(t, report, "c", domain.GateSchema).Success)
	assert.Equal(t, 2, report.Failed)
}

func TestGateOrchestrator_NormalizesProbeResults(t *testing.T) {
	probe := &mockGateProbe{
		schemaFn: func(plugin string, _ domain.PluginExpectationProfile) (domain.GateResult, error) {
			switch plugin {
			case "ok":
				return domain.GateResult{Success: true}, nil
			default:
				return domain.GateResult{Status: domain.GateStatusRunning}, nil
			}
		},
	}
	o := NewGateOrchestrator(probe, nil, nil, nil)

	report, err := o.Run(context.Background(), domain.GateRunRequest{
		Plugins:  []string{"ok", "stuck"},
		Gates:    []domain.Gate{domain.GateSchema},
		Instance: withAPIKey(),
	})

	require.NoError(t, err)
	ok := findResult(t, report, "ok", domain.GateSchema)
	assert.Equal(t, domain.GateStatusPassed, ok.Status)
	assert.Equal(t, domain.GateSchema, ok.Gate)
	assert.NotNil(t, ok.Metrics)

	stuck := findResult(t, report, "stuck", domain.GateSchema)
	assert.Equal(t, domain.GateStatusFailed, stuck.Status, "a non-terminal state is never reported")
}

func TestGateOrchestrator_DiagnosticsSuppressed(t *testing.T) {
	probe := &mockGateProbe{
		schemaFn: func(plugin string, _ domain.PluginExpectationProfile) (domain.GateResult, error) {
			return domain.FailedResult(domain.GateSchema, plugin, nil, "missing"), nil
		},
	}
	collector := &mockCollector{}
	o := NewGateOrchestrator(probe, nil, collector, nil)

	report, err := o.Run(context.Background(), domain.GateRunRequest{
		Plugins:         []string{"qobuzarr"},
		Gates:           []domain.Gate{domain.GateSchema},
		Instance:        withAPIKey(),
		SkipDiagnostics: true,
	})

	require.NoError(t, err)
	assert.False(t, report.Success)
	assert.Empty(t, collector.requests)
	assert.Empty(t, report.BundlePath)
	assert.Equal(t, "x", report.FailureSummary)
}

func TestGateOrchestrator_NoDiagnosticsOnSuccess(t *testing.T) {
	collector := &mockCollector{}
	o := NewGateOrchestrator(&mockGateProbe{}, nil, collector, nil)

	report, err := o.Run(context.Background(), domain.GateRunRequest{
		Plugins:  []string{"qobuzarr"},
		Gates:    []domain.Gate{domain.GateSchema},
		Instance: withAPIKey(),
	})

	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Empty(t, collector.requests)
}

func TestGateOrchestrator_BundleErrorKeepsResults(t *testing.T) {
	var logs bytes.Buffer
	logger.SetOutput(&logs)
	defer logger.SetOutput(os.Stderr)

	probe := &mockGateProbe{
		schemaFn: func(plugin string, _ domain.PluginExpectationProfile) (domain.GateResult, error) {
			return domain.FailedResult(domain.GateSchema, plugin, nil, "missing"), nil
		},
	}
	o := NewGateOrchestrator(probe, nil, &mockCollector{err: errors.New("disk full")}, nil)

	report, err := o.Run(context.Background(), domain.GateRunRequest{
		Plugins:  []string{"qobuzarr"},
		Gates:    []domain.Gate{domain.GateSchema},
		Instance: withAPIKey(),
	})

	require.NoError(t, err)
	assert.Len(t, report.Results, 1)
	assert.Equal(t, "disk full", report.BundleError)
	assert.Contains(t, logs.String(), "disk full")
}

func TestGateOrchestrator_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	probe := &mockGateProbe{
		schemaFn: func(plugin string, _ domain.PluginExpectationProfile) (domain.GateResult, error) {
			if plugin == "second" {
				cancel()
				return domain.GateResult{}, context.Canceled
			}
			return domain.PassedResult(domain.GateSchema, plugin, nil), nil
		},
	}
	collector := &mockCollector{}
	o := NewGateOrchestrator(probe, nil, collector, nil)

	report, err := o.Run(ctx, domain.GateRunRequest{
		Plugins:  []string{"first", "second", "third"},
		Gates:    []domain.Gate{domain.GateSchema},
		Instance: withAPIKey(),
	})

	require.NoError(t, err)
	assert.True(t, report.Cancelled)
	assert.False(t, report.Success)
	assert.Equal(t, []string{"first", "second"}, probe.schemaCalls, "no pair starts after cancellation")
	require.Len(t, report.Results, 2)
	assert.Equal(t, domain.GateStatusPassed, report.Results[0].Status, "completed pairs stay valid")
	assert.Equal(t, domain.GateStatusSkipped, report.Results[1].Status)
	assert.Equal(t, 0, report.Failed)
	assert.Empty(t, collector.requests)
}

func TestGateOrchestrator_RequestProfilesOverrideBuiltins(t *testing.T) {
	o := NewGateOrchestrator(&mockGateProbe{}, &mockIndexerResolver{}, nil, nil)

	report, err := o.Run(context.Background(), domain.GateRunRequest{
		Plugins:  []string{"Qobuzarr"},
		Gates:    []domain.Gate{domain.GateSearch},
		Instance: withAPIKey(),
		Profiles: map[string]domain.PluginExpectationProfile{"qobuzarr": {ExpectImportList: true}},
	})

	require.NoError(t, err)
	assert.Equal(t, domain.SkipReasonNoIndexerExpected, report.Results[0].SkipReason)
}

func TestGateOrchestrator_ResultsCarryTiming(t *testing.T) {
	o := NewGateOrchestrator(&mockGateProbe{}, nil, nil, nil)

	report, err := o.Run(context.Background(), domain.GateRunRequest{
		Plugins:  []string{"qobuzarr"},
		Instance: withAPIKey(),
	})

	require.NoError(t, err)
	require.Len(t, report.Results, 3, "empty gate selection means all gates")
	for _, r := range report.Results {
		assert.False(t, r.StartedAt.IsZero())
		assert.GreaterOrEqual(t, int64(r.Duration), int64(0))
	}
}
