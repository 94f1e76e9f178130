package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/holdings-sync/internal/core/domain"
	"github.com/custodia-labs/holdings-sync/internal/core/ports/driven"
	"github.com/custodia-labs/holdings-sync/internal/core/ports/driving"
	"github.com/custodia-labs/holdings-sync/internal/logger"
)

// DefaultMailboxSize is the mailbox capacity used when none is given.
const DefaultMailboxSize = 64

// Ensure HoldingsSink implements the interface.
var _ driving.HoldingsSink = (*HoldingsSink)(nil)

// HoldingsSink is the actor that persists streamed pages and keeps the
// durable progress record of each tenant. Other components reach it only
// through Send; messages are applied one at a time by Run.
type HoldingsSink struct {
	holdings driven.HoldingsStore
	statuses driven.LoadStatusStore
	gateway  driven.LoadGateway
	config   domain.SyncConfig
	now      func() time.Time
	newRunID func() string

	mailbox  chan domain.SinkMessage
	done     chan struct{}
	stopOnce sync.Once

	// applyMu serialises message application between Run and LoadHoldings.
	applyMu sync.Mutex

	mu     sync.RWMutex
	loader driving.HoldingsLoader
}

// NewHoldingsSink creates a sink. The gateway is only used by the
// synchronous LoadHoldings path and may be nil.
func NewHoldingsSink(
	holdings driven.HoldingsStore,
	statuses driven.LoadStatusStore,
	gateway driven.LoadGateway,
	config domain.SyncConfig,
	mailboxSize int,
) *HoldingsSink {
	if mailboxSize <= 0 {
		mailboxSize = DefaultMailboxSize
	}
	return &HoldingsSink{
		holdings: holdings,
		statuses: statuses,
		gateway:  gateway,
		config:   config,
		now:      time.Now,
		newRunID: uuid.NewString,
		mailbox:  make(chan domain.SinkMessage, mailboxSize),
		done:     make(chan struct{}),
	}
}

// SetLoader binds the loader that SnapshotCreated messages are forwarded to.
func (s *HoldingsSink) SetLoader(loader driving.HoldingsLoader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loader = loader
}

// Send enqueues msg. It blocks only while the mailbox is full.
func (s *HoldingsSink) Send(ctx context.Context, msg domain.SinkMessage) error {
	select {
	case <-s.done:
		return domain.ErrMailboxClosed
	default:
	}

	select {
	case s.mailbox <- msg:
		return nil
	case <-s.done:
		return domain.ErrMailboxClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run applies messages until ctx is cancelled or Stop is called. Either
// way the mailbox is closed, so blocked and later Sends fail with
// domain.ErrMailboxClosed, and messages already queued are applied before
// returning.
func (s *HoldingsSink) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.Stop()
			s.drain(context.WithoutCancel(ctx))
			return ctx.Err()
		case <-s.done:
			s.drain(ctx)
			return nil
		case msg := <-s.mailbox:
			s.dispatch(ctx, msg)
		}
	}
}

// Stop closes the mailbox to new messages.
func (s *HoldingsSink) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
}

func (s *HoldingsSink) stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *HoldingsSink) drain(ctx context.Context) {
	for {
		select {
		case msg := <-s.mailbox:
			s.dispatch(ctx, msg)
		default:
			return
		}
	}
}

func (s *HoldingsSink) dispatch(ctx context.Context, msg domain.SinkMessage) {
	if err := s.apply(ctx, msg); err != nil {
		logger.Error("Sink: tenant %s: %T: %v", msg.Tenant().TenantID, msg, err)
	}
}

// Status returns the durable progress record of a tenant.
func (s *HoldingsSink) Status(ctx context.Context, tenant domain.TenantKey) (*domain.HoldingsLoadStatus, error) {
	return s.statuses.Get(ctx, tenant)
}

// apply handles one message. It is the only writer of progress records.
func (s *HoldingsSink) apply(ctx context.Context, msg domain.SinkMessage) error {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	switch m := msg.(type) {
	case domain.SnapshotCreated:
		return s.snapshotCreated(ctx, m)
	case domain.SnapshotFailed:
		return s.snapshotFailed(ctx, m)
	case domain.LoadStarted:
		return s.loadStarted(ctx, m)
	case domain.RecordPage:
		return s.saveHolding(ctx, m)
	case domain.ChangesPage:
		return s.processChanges(ctx, m)
	case domain.LoadingFailed:
		return s.loadingFailed(ctx, m)
	default:
		return fmt.Errorf("%w: unsupported message %T", domain.ErrInvalidInput, msg)
	}
}

// snapshotCreated starts a new load cycle and hands it to the loader.
func (s *HoldingsSink) snapshotCreated(ctx context.Context, m domain.SnapshotCreated) error {
	if s.stopped() {
		logger.Warn("Sink stopped, snapshot %q for tenant %s not loaded", m.TransactionID, m.TenantID)
		return nil
	}

	status, err := s.progress(ctx, m.Tenant())
	if err != nil {
		return err
	}
	if s.activeRun(status) {
		logger.Warn("Tenant %s is still loading run %s, snapshot %q skipped", m.TenantID, status.RunID, m.TransactionID)
		return nil
	}

	s.startRun(status, s.newRunID(), m.TransactionID, m.TotalRecordCount, m.TotalPages)

	if m.TransactionID != "" && m.TransactionID == status.LastLoadedTransactionID {
		logger.Info("Transaction %s already loaded for tenant %s", m.TransactionID, m.TenantID)
		status.Status = domain.LoadStatusCompleted
		status.FinishedAt = status.StartedAt
		return s.statuses.Save(ctx, status)
	}

	if err := s.statuses.Save(ctx, status); err != nil {
		return err
	}

	s.mu.RLock()
	loader := s.loader
	s.mu.RUnlock()
	if loader == nil {
		return fmt.Errorf("%w: no loader bound to sink", domain.ErrInvalidInput)
	}

	loader.LoadHoldings(ctx, domain.LoadRequest{
		RunID:                 status.RunID,
		Configuration:         m.Configuration,
		TenantID:              m.TenantID,
		CredentialsID:         m.CredentialsID,
		CurrentTransactionID:  m.TransactionID,
		PreviousTransactionID: status.LastLoadedTransactionID,
		TotalRecordCount:      m.TotalRecordCount,
		TotalPages:            m.TotalPages,
	})
	return nil
}

func (s *HoldingsSink) snapshotFailed(ctx context.Context, m domain.SnapshotFailed) error {
	status, err := s.progress(ctx, m.Tenant())
	if err != nil {
		return err
	}
	logger.Error("Snapshot failed for tenant %s: %s", m.TenantID, m.Reason)
	if s.activeRun(status) {
		return nil
	}
	s.fail(status, m.Reason)
	return s.statuses.Save(ctx, status)
}

// loadStarted resets progress for the announced page stream. A full load
// clears the tenant's holdings first; readers may briefly see none.
func (s *HoldingsSink) loadStarted(ctx context.Context, m domain.LoadStarted) error {
	status, err := s.progress(ctx, m.Tenant())
	if err != nil {
		return err
	}
	if !s.ownedBy(status, m.RunID, m) {
		return nil
	}

	if m.Mode == domain.LoadModeFull {
		if err := s.holdings.DeleteAll(ctx, m.Tenant()); err != nil {
			return fmt.Errorf("clear holdings: %w", err)
		}
	}
	status.Status = domain.LoadStatusInProgress
	status.Mode = m.Mode
	status.TransactionID = m.TransactionID
	status.TotalRecords = m.TotalRecordCount
	status.TotalPages = m.TotalPages
	status.ImportedRecords = 0
	status.ImportedPages = 0
	status.Error = ""
	status.UpdatedAt = s.now()
	if status.StartedAt.IsZero() {
		status.StartedAt = status.UpdatedAt
	}
	s.completeIfDone(status)
	return s.statuses.Save(ctx, status)
}

// saveHolding upserts one page. Re-delivering a page leaves the same state.
func (s *HoldingsSink) saveHolding(ctx context.Context, m domain.RecordPage) error {
	status, err := s.progress(ctx, m.Tenant())
	if err != nil {
		return err
	}
	if !s.ownedBy(status, m.RunID, m) {
		return nil
	}

	records := make([]domain.HoldingRecord, 0, len(m.Records))
	for _, r := range m.Records {
		if err := r.Validate(); err != nil {
			logger.Warn("Skipping holding on page %d: %v", m.Page, err)
			continue
		}
		records = append(records, r)
	}
	if err := s.holdings.Upsert(ctx, m.Tenant(), records); err != nil {
		return fmt.Errorf("save page %d: %w", m.Page, err)
	}
	return s.advance(ctx, status, m.Page, len(records))
}

// processChanges applies one delta page: removals first, then upserts.
func (s *HoldingsSink) processChanges(ctx context.Context, m domain.ChangesPage) error {
	status, err := s.progress(ctx, m.Tenant())
	if err != nil {
		return err
	}
	if !s.ownedBy(status, m.RunID, m) {
		return nil
	}

	var (
		upserts []domain.HoldingRecord
		deletes []domain.HoldingKey
	)
	for _, c := range m.Changes {
		switch c.Type {
		case domain.ChangeDeleted:
			deletes = append(deletes, c.Holding.Key())
		case domain.ChangeAdded, domain.ChangeUpdated:
			if err := c.Holding.Validate(); err != nil {
				logger.Warn("Skipping change on page %d: %v", m.Page, err)
				continue
			}
			upserts = append(upserts, c.Holding)
		default:
			logger.Warn("Skipping change of unknown type %q on page %d", c.Type, m.Page)
		}
	}

	if len(deletes) > 0 {
		if err := s.holdings.Delete(ctx, m.Tenant(), deletes); err != nil {
			return fmt.Errorf("delete changes on page %d: %w", m.Page, err)
		}
	}
	if err := s.holdings.Upsert(ctx, m.Tenant(), upserts); err != nil {
		return fmt.Errorf("save changes on page %d: %w", m.Page, err)
	}
	return s.advance(ctx, status, m.Page, len(upserts)+len(deletes))
}

func (s *HoldingsSink) loadingFailed(ctx context.Context, m domain.LoadingFailed) error {
	status, err := s.progress(ctx, m.Tenant())
	if err != nil {
		return err
	}
	if !s.ownedBy(status, m.RunID, m) {
		return nil
	}
	logger.Error("Load failed for tenant %s (transaction %q, previous %q, %d/%d pages): %s",
		m.TenantID, m.CurrentTransactionID, m.PreviousTransactionID, m.PagesLoaded, m.TotalPages, m.Reason)
	s.fail(status, m.Reason)
	return s.statuses.Save(ctx, status)
}

// advance records a sunk page. Counts only move for pages not seen yet.
func (s *HoldingsSink) advance(ctx context.Context, status *domain.HoldingsLoadStatus, page, records int) error {
	if page > status.ImportedPages {
		status.ImportedPages = page
		status.ImportedRecords += records
	}
	status.UpdatedAt = s.now()
	s.completeIfDone(status)
	return s.statuses.Save(ctx, status)
}

// activeRun reports whether status belongs to a run that is still loading.
// A run without progress for a whole refresh period is taken as abandoned.
func (s *HoldingsSink) activeRun(status *domain.HoldingsLoadStatus) bool {
	return status.Status == domain.LoadStatusInProgress &&
		s.now().Sub(status.UpdatedAt) < s.config.RefreshPeriod
}

// ownedBy reports whether a message of runID may change status.
func (s *HoldingsSink) ownedBy(status *domain.HoldingsLoadStatus, runID string, msg domain.SinkMessage) bool {
	if runID == "" || status.RunID == "" || runID == status.RunID {
		return true
	}
	logger.Warn("Dropping %T of run %s for tenant %s: current run is %s", msg, runID, status.TenantID, status.RunID)
	return false
}

func (s *HoldingsSink) completeIfDone(status *domain.HoldingsLoadStatus) {
	if status.Status != domain.LoadStatusInProgress || status.Mode == "" || !status.Done() {
		return
	}
	status.Status = domain.LoadStatusCompleted
	status.FinishedAt = s.now()
	if status.TransactionID != "" {
		status.LastLoadedTransactionID = status.TransactionID
	}
	logger.Info("Load completed for tenant %s: %d records in %d pages",
		status.TenantID, status.ImportedRecords, status.ImportedPages)
}

func (s *HoldingsSink) fail(status *domain.HoldingsLoadStatus, reason string) {
	now := s.now()
	status.Status = domain.LoadStatusFailed
	status.Error = reason
	status.UpdatedAt = now
	status.FinishedAt = now
}

// progress returns the tenant's progress record, or a fresh one.
func (s *HoldingsSink) progress(ctx context.Context, tenant domain.TenantKey) (*domain.HoldingsLoadStatus, error) {
	status, err := s.statuses.Get(ctx, tenant)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.HoldingsLoadStatus{
			TenantID:      tenant.TenantID,
			CredentialsID: tenant.CredentialsID,
			Status:        domain.LoadStatusNone,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get load status: %w", err)
	}
	return status, nil
}

// LoadHoldings synchronously makes the full snapshot available and reloads
// the tenant from it, applying pages directly instead of through the mailbox.
func (s *HoldingsSink) LoadHoldings(ctx context.Context, tenant domain.TenantConfiguration) error {
	if s.gateway == nil {
		return fmt.Errorf("%w: no snapshot gateway configured", domain.ErrInvalidInput)
	}
	key := domain.TenantKey{TenantID: tenant.TenantID, CredentialsID: tenant.CredentialsID}

	current, err := s.statuses.Get(ctx, key)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("get load status: %w", err)
	}
	if current != nil && s.activeRun(current) {
		return fmt.Errorf("%w: tenant %s", domain.ErrLoadInProgress, tenant.TenantID)
	}

	strategy := NewFullSnapshotStrategy(s.gateway)
	cfg := s.config

	snapshot, err := prepareSnapshot(ctx, strategy, tenant.Remote, cfg, s.now())
	if err != nil {
		return errors.Join(err, s.apply(ctx, domain.SnapshotFailed{
			TenantID:      tenant.TenantID,
			CredentialsID: tenant.CredentialsID,
			Reason:        err.Error(),
		}))
	}

	req := domain.LoadRequest{
		RunID:            s.newRunID(),
		Configuration:    tenant.Remote,
		TenantID:         tenant.TenantID,
		CredentialsID:    tenant.CredentialsID,
		TotalRecordCount: snapshot.TotalRecordCount,
		TotalPages:       domain.PageCount(snapshot.TotalRecordCount, cfg.SnapshotPageSize),
	}
	if err := s.beginRun(ctx, req); err != nil {
		return err
	}

	result, err := strategy.loadHoldings(ctx, req, cfg, func(ctx context.Context, msg domain.SinkMessage) error {
		return s.apply(ctx, msg)
	})
	if err != nil {
		return errors.Join(err, s.apply(ctx, domain.LoadingFailed{
			RunID:            req.RunID,
			TenantID:         tenant.TenantID,
			CredentialsID:    tenant.CredentialsID,
			TotalRecordCount: req.TotalRecordCount,
			TotalPages:       result.TotalPages,
			PagesLoaded:      result.PagesLoaded,
			Reason:           err.Error(),
		}))
	}
	return nil
}

// beginRun records a new run without forwarding it to the loader.
func (s *HoldingsSink) beginRun(ctx context.Context, req domain.LoadRequest) error {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	status, err := s.progress(ctx, req.Tenant())
	if err != nil {
		return err
	}
	if s.activeRun(status) {
		return fmt.Errorf("%w: tenant %s", domain.ErrLoadInProgress, req.TenantID)
	}
	s.startRun(status, req.RunID, req.CurrentTransactionID, req.TotalRecordCount, req.TotalPages)
	return s.statuses.Save(ctx, status)
}

// startRun resets a progress record for a new snapshot/load cycle.
func (s *HoldingsSink) startRun(
	status *domain.HoldingsLoadStatus,
	runID, transactionID string,
	totalRecords, totalPages int,
) {
	now := s.now()
	status.RunID = runID
	status.Status = domain.LoadStatusInProgress
	status.Mode = ""
	status.TransactionID = transactionID
	status.TotalRecords = totalRecords
	status.TotalPages = totalPages
	status.ImportedRecords = 0
	status.ImportedPages = 0
	status.Error = ""
	status.StartedAt = now
	status.UpdatedAt = now
	status.FinishedAt = time.Time{}
}
