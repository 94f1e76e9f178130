package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/holdings-sync/internal/core/domain"
	"github.com/custodia-labs/holdings-sync/internal/core/ports/driven"
)

var errTransient = errors.New("connection reset")

// testSyncConfig returns a configuration with millisecond delays and tiny pages.
func testSyncConfig() domain.SyncConfig {
	cfg := domain.DefaultSyncConfig()
	cfg.StatusPollDelay = time.Millisecond
	cfg.StatusPollAttempts = 3
	cfg.PageLoadAttempts = 2
	cfg.PageRetryDelay = time.Millisecond
	cfg.RefreshPeriod = time.Hour
	cfg.DeltaReportPollDelay = time.Millisecond
	cfg.DeltaReportPollAttempts = 3
	cfg.SnapshotPageSize = 2
	cfg.TransactionPageSize = 2
	cfg.DeltaPageSize = 2
	return cfg
}

func testRemote() domain.RemoteConfiguration {
	return domain.RemoteConfiguration{URL: "http://rm.example", CustomerID: "cust", APIKey: "key"}
}

func holding(title string) domain.HoldingRecord {
	return domain.HoldingRecord{
		ProviderID: "p1",
		PackageID:  "k1",
		TitleID:    title,
		TitleName:  "Title " + title,
	}
}

// fakeLoadGateway is a scripted full snapshot backend.
type fakeLoadGateway struct {
	mu sync.Mutex

	// statuses are returned in order; the last one repeats.
	statuses      []domain.SnapshotStatus
	statusErr     error
	statusCalls   int
	populateErr   error
	populateCalls int

	pages     map[int][]domain.HoldingRecord
	failPages map[int]int // page -> remaining failures, -1 fails forever
	pageCalls []int
}

var _ driven.LoadGateway = (*fakeLoadGateway)(nil)

func (g *fakeLoadGateway) PopulateSnapshot(_ context.Context, _ domain.RemoteConfiguration) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.populateCalls++
	return g.populateErr
}

func (g *fakeLoadGateway) GetSnapshotStatus(
	_ context.Context,
	_ domain.RemoteConfiguration,
) (domain.SnapshotStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statusCalls++
	if g.statusErr != nil {
		return domain.SnapshotStatus{}, g.statusErr
	}
	if len(g.statuses) == 0 {
		return domain.SnapshotStatus{Status: domain.LoadStatusNone}, nil
	}
	status := g.statuses[0]
	if len(g.statuses) > 1 {
		g.statuses = g.statuses[1:]
	}
	return status, nil
}

func (g *fakeLoadGateway) LoadPage(
	_ context.Context,
	_ domain.RemoteConfiguration,
	page, _ int,
) ([]domain.HoldingRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pageCalls = append(g.pageCalls, page)
	if remaining, ok := g.failPages[page]; ok && remaining != 0 {
		if remaining > 0 {
			g.failPages[page] = remaining - 1
		}
		return nil, errTransient
	}
	return g.pages[page], nil
}

func (g *fakeLoadGateway) calls() (status, populate int, pages []int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.statusCalls, g.populateCalls, append([]int(nil), g.pageCalls...)
}

// fakeTransactionalGateway is a scripted transactional backend.
type fakeTransactionalGateway struct {
	mu sync.Mutex

	transactions []domain.TransactionSummary
	listErr      error
	listCalls    int

	// statuses holds the status sequence per transaction id; the last one repeats.
	statuses    map[string][]domain.TransactionSummary
	statusCalls int

	populateID    string
	populateCalls int

	txPages     map[int][]domain.HoldingRecord
	txPageCalls []int

	reportID       string
	deltaArgs      []string
	deltaCalls     int
	reports        []domain.ReportSummary
	reportCalls    int
	deltaPages     map[int][]domain.HoldingChange
	deltaPageCalls []int
}

var _ driven.TransactionalGateway = (*fakeTransactionalGateway)(nil)

func (g *fakeTransactionalGateway) PopulateTransaction(_ context.Context, _ domain.RemoteConfiguration) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.populateCalls++
	return g.populateID, nil
}

func (g *fakeTransactionalGateway) GetTransactionStatus(
	_ context.Context,
	_ domain.RemoteConfiguration,
	id string,
) (domain.TransactionSummary, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statusCalls++
	seq := g.statuses[id]
	if len(seq) == 0 {
		return domain.TransactionSummary{}, domain.ErrNotFound
	}
	summary := seq[0]
	if len(seq) > 1 {
		g.statuses[id] = seq[1:]
	}
	return summary, nil
}

func (g *fakeTransactionalGateway) ListTransactions(
	_ context.Context,
	_ domain.RemoteConfiguration,
) ([]domain.TransactionSummary, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listCalls++
	if g.listErr != nil {
		return nil, g.listErr
	}
	return append([]domain.TransactionSummary(nil), g.transactions...), nil
}

func (g *fakeTransactionalGateway) LoadTransactionPage(
	_ context.Context,
	_ domain.RemoteConfiguration,
	_ string,
	page, _ int,
) ([]domain.HoldingRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.txPageCalls = append(g.txPageCalls, page)
	return g.txPages[page], nil
}

func (g *fakeTransactionalGateway) PopulateDeltaReport(
	_ context.Context,
	_ domain.RemoteConfiguration,
	current, previous string,
) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deltaCalls++
	g.deltaArgs = []string{current, previous}
	return g.reportID, nil
}

func (g *fakeTransactionalGateway) GetDeltaReportStatus(
	_ context.Context,
	_ domain.RemoteConfiguration,
	_ string,
) (domain.ReportSummary, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reportCalls++
	if len(g.reports) == 0 {
		return domain.ReportSummary{}, domain.ErrNotFound
	}
	report := g.reports[0]
	if len(g.reports) > 1 {
		g.reports = g.reports[1:]
	}
	return report, nil
}

func (g *fakeTransactionalGateway) LoadDeltaPage(
	_ context.Context,
	_ domain.RemoteConfiguration,
	_ string,
	page, _ int,
) ([]domain.HoldingChange, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deltaPageCalls = append(g.deltaPageCalls, page)
	return g.deltaPages[page], nil
}

// recordingSink collects every message it is sent.
type recordingSink struct {
	mu       sync.Mutex
	messages []domain.SinkMessage
	sendErr  error
}

func (s *recordingSink) Send(_ context.Context, msg domain.SinkMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.messages = append(s.messages, msg)
	return nil
}

func (s *recordingSink) LoadHoldings(_ context.Context, _ domain.TenantConfiguration) error {
	return nil
}

func (s *recordingSink) Status(_ context.Context, _ domain.TenantKey) (*domain.HoldingsLoadStatus, error) {
	return nil, domain.ErrNotFound
}

func (s *recordingSink) received() []domain.SinkMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.SinkMessage(nil), s.messages...)
}

// recordingLoader collects the requests handed to it.
type recordingLoader struct {
	mu        sync.Mutex
	snapshots []domain.SnapshotRequest
	loads     []domain.LoadRequest
}

func (l *recordingLoader) CreateSnapshot(_ context.Context, req domain.SnapshotRequest) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snapshots = append(l.snapshots, req)
}

func (l *recordingLoader) LoadHoldings(_ context.Context, req domain.LoadRequest) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads = append(l.loads, req)
}

func (l *recordingLoader) snapshotRequests() []domain.SnapshotRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.SnapshotRequest(nil), l.snapshots...)
}

func (l *recordingLoader) loadRequests() []domain.LoadRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.LoadRequest(nil), l.loads...)
}
