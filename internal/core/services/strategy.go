package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/holdings-sync/internal/core/domain"
	"github.com/custodia-labs/holdings-sync/internal/core/ports/driven"
	"github.com/custodia-labs/holdings-sync/internal/logger"
)

// sendFunc delivers a message to the holdings sink.
type sendFunc func(ctx context.Context, msg domain.SinkMessage) error

// loadResult describes how far a page stream got.
type loadResult struct {
	TotalPages  int
	PagesLoaded int
}

// Strategy is one way of synchronising holdings. The set is closed:
// FullSnapshotStrategy and TransactionalStrategy are the only implementations.
type Strategy interface {
	// Kind identifies the strategy.
	Kind() domain.StrategyKind

	pageSize(cfg domain.SyncConfig) int
	latestStatus(ctx context.Context, remote domain.RemoteConfiguration) (domain.SnapshotStatus, error)
	statusByID(ctx context.Context, remote domain.RemoteConfiguration, id string) (domain.SnapshotStatus, error)
	populate(ctx context.Context, remote domain.RemoteConfiguration) (string, error)
	loadHoldings(ctx context.Context, req domain.LoadRequest, cfg domain.SyncConfig, send sendFunc) (loadResult, error)
}

// NewStrategy builds the strategy named by kind.
func NewStrategy(
	kind domain.StrategyKind,
	full driven.LoadGateway,
	transactional driven.TransactionalGateway,
) (Strategy, error) {
	switch kind {
	case domain.StrategyFullSnapshot:
		if full == nil {
			return nil, fmt.Errorf("%w: full snapshot gateway not configured", domain.ErrInvalidInput)
		}
		return NewFullSnapshotStrategy(full), nil
	case domain.StrategyTransactional:
		if transactional == nil {
			return nil, fmt.Errorf("%w: transactional gateway not configured", domain.ErrInvalidInput)
		}
		return NewTransactionalStrategy(transactional), nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedStrategy, kind)
	}
}

// prepareSnapshot decides whether the latest remote snapshot can be reused,
// must be waited for, or has to be started, and returns it once COMPLETED.
func prepareSnapshot(
	ctx context.Context,
	strategy Strategy,
	remote domain.RemoteConfiguration,
	cfg domain.SyncConfig,
	now time.Time,
) (domain.SnapshotStatus, error) {
	latest, err := strategy.latestStatus(ctx, remote)
	if err != nil {
		return domain.SnapshotStatus{}, fmt.Errorf("get latest status: %w", err)
	}

	switch {
	case latest.Status == domain.LoadStatusInProgress:
		logger.Info("Snapshot %q already in progress, waiting for it", latest.TransactionID)
		return pollSnapshot(ctx, strategy, remote, latest.TransactionID, cfg)

	case latest.Status == domain.LoadStatusCompleted && domain.IsFresh(latest.CreatedAt, now, cfg.RefreshPeriod):
		logger.Info("Reusing snapshot %q created at %s", latest.TransactionID, latest.CreatedAt.Format(time.RFC3339))
		return latest, nil
	}

	id, err := strategy.populate(ctx, remote)
	if err != nil {
		return domain.SnapshotStatus{}, fmt.Errorf("populate snapshot: %w", err)
	}
	logger.Info("Started snapshot %q", id)
	return pollSnapshot(ctx, strategy, remote, id, cfg)
}

func pollSnapshot(
	ctx context.Context,
	strategy Strategy,
	remote domain.RemoteConfiguration,
	id string,
	cfg domain.SyncConfig,
) (domain.SnapshotStatus, error) {
	status, err := waitForCompleteStatus(ctx, cfg.StatusPollAttempts, cfg.StatusPollDelay,
		func(ctx context.Context) (domain.SnapshotStatus, error) {
			return strategy.statusByID(ctx, remote, id)
		})
	if err != nil {
		return status, fmt.Errorf("wait for snapshot %q: %w", id, err)
	}
	return status, nil
}
