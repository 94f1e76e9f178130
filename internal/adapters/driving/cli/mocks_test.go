package cli

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/holdings-sync/internal/core/domain"
)

// mockTenants implements driven.TenantConfigStore for testing.
type mockTenants struct {
	tenants []domain.TenantConfiguration
}

func (m *mockTenants) ListTenants(_ context.Context) ([]domain.TenantConfiguration, error) {
	return m.tenants, nil
}

func (m *mockTenants) GetTenant(_ context.Context, id string) (*domain.TenantConfiguration, error) {
	for _, t := range m.tenants {
		if t.TenantID == id {
			tenant := t
			return &tenant, nil
		}
	}
	return nil, domain.ErrNotFound
}

// mockSink implements driving.HoldingsSink for testing.
type mockSink struct {
	mu       sync.Mutex
	statuses map[domain.TenantKey]*domain.HoldingsLoadStatus
	loadErr  error
	loaded   []string
}

func newMockSink() *mockSink {
	return &mockSink{statuses: make(map[domain.TenantKey]*domain.HoldingsLoadStatus)}
}

func (m *mockSink) Send(_ context.Context, _ domain.SinkMessage) error {
	return nil
}

func (m *mockSink) LoadHoldings(_ context.Context, tenant domain.TenantConfiguration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = append(m.loaded, tenant.TenantID)
	if m.loadErr != nil {
		return m.loadErr
	}
	key := domain.TenantKey{TenantID: tenant.TenantID, CredentialsID: tenant.CredentialsID}
	m.statuses[key] = &domain.HoldingsLoadStatus{
		TenantID:        tenant.TenantID,
		CredentialsID:   tenant.CredentialsID,
		Status:          domain.LoadStatusCompleted,
		ImportedRecords: 10,
		ImportedPages:   2,
		TotalPages:      2,
		UpdatedAt:       time.Now(),
	}
	return nil
}

func (m *mockSink) Status(_ context.Context, key domain.TenantKey) (*domain.HoldingsLoadStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status, ok := m.statuses[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *status
	return &cp, nil
}

func (m *mockSink) set(status domain.HoldingsLoadStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[status.Key()] = &status
}

// mockLoader implements driving.HoldingsLoader and finishes every snapshot
// request immediately with result.
type mockLoader struct {
	sink   *mockSink
	result domain.HoldingsLoadStatus
	calls  int
}

func (m *mockLoader) CreateSnapshot(_ context.Context, req domain.SnapshotRequest) {
	m.calls++
	status := m.result
	status.TenantID = req.TenantID
	status.CredentialsID = req.CredentialsID
	status.UpdatedAt = time.Now()
	m.sink.set(status)
}

func (m *mockLoader) LoadHoldings(_ context.Context, _ domain.LoadRequest) {}

// mockScheduler implements driving.Scheduler and returns once ctx ends.
type mockScheduler struct {
	started chan struct{}
	stopped bool
}

func (m *mockScheduler) Start(ctx context.Context) error {
	close(m.started)
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockScheduler) Stop() error {
	m.stopped = true
	return nil
}

var testTenant = domain.TenantConfiguration{
	TenantID:      "tenant-a",
	CredentialsID: "cred-1",
	Remote:        domain.RemoteConfiguration{URL: "https://api.example.com", CustomerID: "cust1", APIKey: "k"},
}

// setupAppTest installs a with test doubles and restores the previous app.
func setupAppTest(a *App) func() {
	oldApp := app
	oldInterval := statusPollInterval
	app = a
	statusPollInterval = 5 * time.Millisecond
	return func() {
		app = oldApp
		statusPollInterval = oldInterval
	}
}

func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

// mockHoldings implements driven.HoldingsStore for testing; only Count matters.
type mockHoldings struct {
	counts map[domain.TenantKey]int
}

func (m *mockHoldings) Upsert(_ context.Context, _ domain.TenantKey, _ []domain.HoldingRecord) error {
	return nil
}

func (m *mockHoldings) Delete(_ context.Context, _ domain.TenantKey, _ []domain.HoldingKey) error {
	return nil
}

func (m *mockHoldings) DeleteAll(_ context.Context, _ domain.TenantKey) error {
	return nil
}

func (m *mockHoldings) Get(_ context.Context, _ domain.TenantKey, _ domain.HoldingKey) (*domain.HoldingRecord, error) {
	return nil, domain.ErrNotFound
}

func (m *mockHoldings) List(_ context.Context, _ domain.TenantKey) ([]domain.HoldingRecord, error) {
	return nil, nil
}

func (m *mockHoldings) Count(_ context.Context, tenant domain.TenantKey) (int, error) {
	return m.counts[tenant], nil
}

// mockTasks implements driven.SchedulerStore for testing.
type mockTasks struct {
	tasks   []domain.ScheduledTask
	history map[string][]domain.TaskResult
}

func (m *mockTasks) GetTask(_ context.Context, _ string) (*domain.ScheduledTask, error) {
	return nil, nil
}

func (m *mockTasks) ListTasks(_ context.Context) ([]domain.ScheduledTask, error) {
	return m.tasks, nil
}

func (m *mockTasks) SaveTask(_ context.Context, _ *domain.ScheduledTask) error {
	return nil
}

func (m *mockTasks) RecordResult(_ context.Context, _ *domain.TaskResult) error {
	return nil
}

func (m *mockTasks) GetTaskHistory(_ context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	results := m.history[taskID]
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *mockTasks) PruneHistory(_ context.Context, _ int) error {
	return nil
}
