package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/holdings-sync/internal/core/domain"
	"github.com/custodia-labs/holdings-sync/internal/core/ports/driving"
	"github.com/custodia-labs/holdings-sync/internal/logger"
)

// Ensure LoadOrchestrator implements the interface.
var _ driving.HoldingsLoader = (*LoadOrchestrator)(nil)

// LoadOrchestrator drives one Strategy through the snapshot and load steps
// and reports every outcome to the holdings sink.
type LoadOrchestrator struct {
	strategy Strategy
	sink     driving.HoldingsSink
	config   domain.SyncConfig
	now      func() time.Time

	// Runs may start while Wait is blocked: the sink starts a load for
	// every SnapshotCreated it applies.
	mu     sync.Mutex
	idle   *sync.Cond
	active int
}

// NewLoadOrchestrator creates an orchestrator for strategy.
// The configuration is copied; every run uses the values given here.
func NewLoadOrchestrator(
	strategy Strategy,
	sink driving.HoldingsSink,
	config domain.SyncConfig,
) *LoadOrchestrator {
	o := &LoadOrchestrator{
		strategy: strategy,
		sink:     sink,
		config:   config,
		now:      time.Now,
	}
	o.idle = sync.NewCond(&o.mu)
	return o
}

// CreateSnapshot starts a snapshot run in the background and returns.
// The run outlives ctx cancellation. It ends by succeeding, by exhausting
// its retry budget, or when the sink stops accepting messages.
func (o *LoadOrchestrator) CreateSnapshot(ctx context.Context, req domain.SnapshotRequest) {
	runCtx := context.WithoutCancel(ctx)
	o.start(func() {
		if err := o.createSnapshot(runCtx, req); err != nil {
			logger.Error("Snapshot for tenant %s failed: %v", req.TenantID, err)
		}
	})
}

// LoadHoldings starts a load run in the background and returns.
func (o *LoadOrchestrator) LoadHoldings(ctx context.Context, req domain.LoadRequest) {
	runCtx := context.WithoutCancel(ctx)
	o.start(func() {
		if err := o.loadHoldings(runCtx, req); err != nil {
			logger.Error("Load for tenant %s failed: %v", req.TenantID, err)
		}
	})
}

// Wait blocks until no run is active.
func (o *LoadOrchestrator) Wait() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for o.active > 0 {
		o.idle.Wait()
	}
}

func (o *LoadOrchestrator) start(run func()) {
	o.mu.Lock()
	o.active++
	o.mu.Unlock()

	go func() {
		defer func() {
			o.mu.Lock()
			o.active--
			if o.active == 0 {
				o.idle.Broadcast()
			}
			o.mu.Unlock()
		}()
		run()
	}()
}

// createSnapshot makes a completed snapshot available and reports it.
// Failure is terminal for the run and reported as SnapshotFailed.
func (o *LoadOrchestrator) createSnapshot(ctx context.Context, req domain.SnapshotRequest) error {
	cfg := o.config
	logger.Section("Create Snapshot")
	logger.Info("Tenant %s, strategy %s", req.TenantID, o.strategy.Kind())

	status, err := prepareSnapshot(ctx, o.strategy, req.Configuration, cfg, o.now())
	if err != nil {
		notifyErr := o.sink.Send(ctx, domain.SnapshotFailed{
			TenantID:      req.TenantID,
			CredentialsID: req.CredentialsID,
			Reason:        err.Error(),
		})
		return errors.Join(err, notifyErr)
	}

	pages := domain.PageCount(status.TotalRecordCount, o.strategy.pageSize(cfg))
	logger.Info("Snapshot %q ready: %d records, %d pages", status.TransactionID, status.TotalRecordCount, pages)

	return o.sink.Send(ctx, domain.SnapshotCreated{
		Configuration:    req.Configuration,
		TenantID:         req.TenantID,
		CredentialsID:    req.CredentialsID,
		TransactionID:    status.TransactionID,
		TotalRecordCount: status.TotalRecordCount,
		TotalPages:       pages,
	})
}

// loadHoldings streams the pages of a snapshot to the sink.
// Failure is reported as LoadingFailed with the request context.
func (o *LoadOrchestrator) loadHoldings(ctx context.Context, req domain.LoadRequest) error {
	cfg := o.config
	logger.Section("Load Holdings")

	pages := domain.PageCount(req.TotalRecordCount, o.strategy.pageSize(cfg))
	if pages != req.TotalPages {
		logger.Debug("Recomputed page count %d (request carried %d)", pages, req.TotalPages)
	}
	req.TotalPages = pages

	result, err := o.strategy.loadHoldings(ctx, req, cfg, o.sink.Send)
	if err != nil {
		logger.Warn("Load stopped after %d of %d pages", result.PagesLoaded, result.TotalPages)
		notifyErr := o.sink.Send(ctx, domain.LoadingFailed{
			RunID:                 req.RunID,
			TenantID:              req.TenantID,
			CredentialsID:         req.CredentialsID,
			CurrentTransactionID:  req.CurrentTransactionID,
			PreviousTransactionID: req.PreviousTransactionID,
			TotalRecordCount:      req.TotalRecordCount,
			TotalPages:            result.TotalPages,
			PagesLoaded:           result.PagesLoaded,
			Reason:                err.Error(),
		})
		return errors.Join(fmt.Errorf("load holdings: %w", err), notifyErr)
	}

	logger.Info("Loaded %d pages for tenant %s", result.PagesLoaded, req.TenantID)
	return nil
}
