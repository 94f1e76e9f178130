package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/holdings-sync/internal/core/domain"
	"github.com/custodia-labs/holdings-sync/internal/core/ports/driven"
	"github.com/custodia-labs/holdings-sync/internal/core/ports/driving"
	"github.com/custodia-labs/holdings-sync/internal/logger"
)

var _ driving.Scheduler = (*Scheduler)(nil)

// Scheduler periodically asks the loader for a fresh snapshot of every
// configured tenant. Task state and run history are kept in the store so
// the interval survives restarts.
type Scheduler struct {
	config  domain.SchedulerConfig
	store   driven.SchedulerStore
	tenants driven.TenantConfigStore
	loader  driving.HoldingsLoader

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool

	// runs tracks task executions so Stop can wait for their bookkeeping.
	runs sync.WaitGroup
}

// NewScheduler creates a scheduler. Zero check interval and history
// retention fall back to one minute and 100 results.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	tenants driven.TenantConfigStore,
	loader driving.HoldingsLoader,
) *Scheduler {
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	if config.HistoryRetention <= 0 {
		config.HistoryRetention = 100
	}
	return &Scheduler{
		config:  config,
		store:   store,
		tenants: tenants,
		loader:  loader,
	}
}

// Start registers the holdings-sync task and checks for due work every
// CheckInterval. It blocks until Stop is called, returning nil, or until
// ctx ends, returning its error. A second concurrent Start returns nil.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return nil
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.stopped = false
	s.mu.Unlock()

	if err := s.registerSyncTask(ctx); err != nil {
		logger.Warn("scheduler: registering %s: %v", domain.TaskIDHoldingsSync, err)
	}

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()
	for {
		s.runDue(ctx)

		select {
		case <-loopCtx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Stop ends the loop and waits for task runs in flight.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.stopped = true
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.runs.Wait()
	return nil
}

// registerSyncTask reconciles the stored holdings-sync task with the
// configuration. A changed interval reschedules the next run from now.
func (s *Scheduler) registerSyncTask(ctx context.Context) error {
	cfg := s.config.GetTaskConfig(domain.TaskIDHoldingsSync)

	task, err := s.store.GetTask(ctx, domain.TaskIDHoldingsSync)
	if err != nil {
		return err
	}
	switch {
	case task == nil && !cfg.Enabled:
		return nil
	case task == nil:
		task = &domain.ScheduledTask{
			ID:       domain.TaskIDHoldingsSync,
			Name:     "Holdings Sync",
			Interval: cfg.Interval,
		}
	case task.Interval != cfg.Interval:
		task.Interval = cfg.Interval
		task.NextRun = time.Now().Add(cfg.Interval)
	}
	task.Enabled = cfg.Enabled
	return s.store.SaveTask(ctx, task)
}

// runDue starts every enabled task whose next run has passed.
func (s *Scheduler) runDue(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("scheduler: listing tasks: %v", err)
		return
	}

	now := time.Now()
	for i := range tasks {
		if !tasks[i].Due(now) {
			continue
		}
		if tasks[i].ID != domain.TaskIDHoldingsSync {
			logger.Warn("scheduler: ignoring unknown task %s", tasks[i].ID)
			continue
		}
		if !s.track() {
			return
		}
		task := tasks[i]
		go func() {
			defer s.runs.Done()
			s.execute(ctx, &task)
		}()
	}
}

// track registers a task run unless Stop has been called.
func (s *Scheduler) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.runs.Add(1)
	return true
}

// execute performs one holdings-sync run and records its outcome.
func (s *Scheduler) execute(ctx context.Context, task *domain.ScheduledTask) {
	result := domain.TaskResult{TaskID: task.ID, StartedAt: time.Now()}
	requested, err := s.requestSnapshots(ctx)
	result.EndedAt = time.Now()
	result.ItemsProcessed = requested

	task.LastRun = result.StartedAt
	task.NextRun = result.EndedAt.Add(task.Interval)
	task.LastError = ""
	if err != nil {
		result.Error = err.Error()
		task.LastError = result.Error
	} else {
		result.Success = true
		task.LastSuccess = result.EndedAt
	}

	if err := s.store.SaveTask(ctx, task); err != nil {
		logger.Warn("scheduler: saving %s: %v", task.ID, err)
	}
	if err := s.store.RecordResult(ctx, &result); err != nil {
		logger.Warn("scheduler: recording run of %s: %v", task.ID, err)
	}
	if err := s.store.PruneHistory(ctx, s.config.HistoryRetention); err != nil {
		logger.Warn("scheduler: pruning history: %v", err)
	}
}

// requestSnapshots sends a snapshot request for every configured tenant.
// Completion is reported asynchronously through the holdings sink.
func (s *Scheduler) requestSnapshots(ctx context.Context) (int, error) {
	if s.loader == nil {
		return 0, nil
	}

	tenants, err := s.tenants.ListTenants(ctx)
	if err != nil {
		return 0, fmt.Errorf("list tenants: %w", err)
	}

	for _, t := range tenants {
		logger.Info("scheduler: requesting snapshot for tenant %s", t.TenantID)
		s.loader.CreateSnapshot(ctx, domain.SnapshotRequest{
			Configuration: t.Remote,
			TenantID:      t.TenantID,
			CredentialsID: t.CredentialsID,
		})
	}
	return len(tenants), nil
}
