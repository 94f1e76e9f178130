package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/holdings-sync/internal/core/domain"
	"github.com/custodia-labs/holdings-sync/internal/core/ports/driven"
	"github.com/custodia-labs/holdings-sync/internal/logger"
)

// TransactionalStrategy loads the diff between the current remote transaction
// and the last one loaded locally. When that previous transaction is unknown
// remotely, the current transaction is loaded in full.
type TransactionalStrategy struct {
	gateway driven.TransactionalGateway
}

// NewTransactionalStrategy creates a transactional delta strategy.
func NewTransactionalStrategy(gateway driven.TransactionalGateway) *TransactionalStrategy {
	return &TransactionalStrategy{gateway: gateway}
}

// Kind returns domain.StrategyTransactional.
func (s *TransactionalStrategy) Kind() domain.StrategyKind {
	return domain.StrategyTransactional
}

func (s *TransactionalStrategy) pageSize(cfg domain.SyncConfig) int {
	return cfg.TransactionPageSize
}

// latestStatus returns the status of the newest known transaction, or
// LoadStatusNone when the backend has none.
func (s *TransactionalStrategy) latestStatus(
	ctx context.Context,
	remote domain.RemoteConfiguration,
) (domain.SnapshotStatus, error) {
	transactions, err := s.gateway.ListTransactions(ctx, remote)
	if err != nil {
		return domain.SnapshotStatus{}, fmt.Errorf("list transactions: %w", err)
	}
	if len(transactions) == 0 {
		return domain.SnapshotStatus{Status: domain.LoadStatusNone}, nil
	}

	newest := transactions[0]
	for _, t := range transactions[1:] {
		if t.CreatedAt.After(newest.CreatedAt) {
			newest = t
		}
	}

	status, err := s.statusByID(ctx, remote, newest.ID)
	if err != nil {
		return domain.SnapshotStatus{}, err
	}
	if status.CreatedAt.IsZero() {
		status.CreatedAt = newest.CreatedAt
	}
	return status, nil
}

func (s *TransactionalStrategy) statusByID(
	ctx context.Context,
	remote domain.RemoteConfiguration,
	id string,
) (domain.SnapshotStatus, error) {
	summary, err := s.gateway.GetTransactionStatus(ctx, remote, id)
	if err != nil {
		return domain.SnapshotStatus{}, fmt.Errorf("get transaction %s status: %w", id, err)
	}
	status, err := domain.MapTransactionStatus(summary.Status)
	if err != nil {
		return domain.SnapshotStatus{}, err
	}
	return domain.SnapshotStatus{
		TransactionID:    id,
		Status:           status,
		CreatedAt:        summary.CreatedAt,
		TotalRecordCount: summary.TotalCount,
	}, nil
}

func (s *TransactionalStrategy) populate(ctx context.Context, remote domain.RemoteConfiguration) (string, error) {
	return s.gateway.PopulateTransaction(ctx, remote)
}

func (s *TransactionalStrategy) loadHoldings(
	ctx context.Context,
	req domain.LoadRequest,
	cfg domain.SyncConfig,
	send sendFunc,
) (loadResult, error) {
	known, err := s.transactionExists(ctx, req.Configuration, req.PreviousTransactionID, cfg)
	if err != nil {
		return loadResult{TotalPages: req.TotalPages}, err
	}
	if !known {
		if req.PreviousTransactionID != "" {
			logger.Info("Previous transaction %s no longer available remotely", req.PreviousTransactionID)
		}
		logger.Info("Loading transaction %s in full (%d pages)", req.CurrentTransactionID, req.TotalPages)
		return s.loadTransaction(ctx, req, cfg, send)
	}

	logger.Info("Loading delta %s -> %s", req.PreviousTransactionID, req.CurrentTransactionID)
	return s.loadDelta(ctx, req, cfg, send)
}

// transactionExists confirms id is still in the remote transaction registry.
func (s *TransactionalStrategy) transactionExists(
	ctx context.Context,
	remote domain.RemoteConfiguration,
	id string,
	cfg domain.SyncConfig,
) (bool, error) {
	if id == "" {
		return false, nil
	}

	transactions, err := retryOnFailure(ctx, cfg.PageLoadAttempts, cfg.PageRetryDelay,
		func(ctx context.Context) ([]domain.TransactionSummary, error) {
			return s.gateway.ListTransactions(ctx, remote)
		})
	if err != nil {
		return false, fmt.Errorf("list transactions: %w", err)
	}

	for _, t := range transactions {
		if t.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (s *TransactionalStrategy) loadTransaction(
	ctx context.Context,
	req domain.LoadRequest,
	cfg domain.SyncConfig,
	send sendFunc,
) (loadResult, error) {
	result := loadResult{TotalPages: req.TotalPages}

	if err := send(ctx, domain.LoadStarted{
		RunID:            req.RunID,
		TenantID:         req.TenantID,
		CredentialsID:    req.CredentialsID,
		TransactionID:    req.CurrentTransactionID,
		Mode:             domain.LoadModeFull,
		TotalRecordCount: req.TotalRecordCount,
		TotalPages:       req.TotalPages,
	}); err != nil {
		return result, err
	}

	loaded, err := loadWithPagination(ctx, req.TotalPages, cfg.PageLoadAttempts, cfg.PageRetryDelay,
		func(ctx context.Context, page int) error {
			records, err := s.gateway.LoadTransactionPage(ctx, req.Configuration, req.CurrentTransactionID,
				page, cfg.TransactionPageSize)
			if err != nil {
				return err
			}
			return send(ctx, domain.RecordPage{
				RunID:         req.RunID,
				TenantID:      req.TenantID,
				CredentialsID: req.CredentialsID,
				TransactionID: req.CurrentTransactionID,
				Page:          page,
				Records:       records,
			})
		})
	result.PagesLoaded = loaded
	return result, err
}

func (s *TransactionalStrategy) loadDelta(
	ctx context.Context,
	req domain.LoadRequest,
	cfg domain.SyncConfig,
	send sendFunc,
) (loadResult, error) {
	var result loadResult

	reportID, err := s.gateway.PopulateDeltaReport(ctx, req.Configuration,
		req.CurrentTransactionID, req.PreviousTransactionID)
	if err != nil {
		return result, fmt.Errorf("populate delta report: %w", err)
	}

	report, err := waitForDeltaReport(ctx, cfg.DeltaReportPollAttempts, cfg.DeltaReportPollDelay,
		func(ctx context.Context) (domain.DeltaReportStatus, error) {
			return s.deltaReportStatus(ctx, req.Configuration, reportID)
		})
	if err != nil {
		return result, fmt.Errorf("wait for delta report %s: %w", reportID, err)
	}

	result.TotalPages = domain.PageCount(report.TotalRecordCount, cfg.DeltaPageSize)
	if err := send(ctx, domain.LoadStarted{
		RunID:            req.RunID,
		TenantID:         req.TenantID,
		CredentialsID:    req.CredentialsID,
		TransactionID:    req.CurrentTransactionID,
		Mode:             domain.LoadModeDelta,
		TotalRecordCount: report.TotalRecordCount,
		TotalPages:       result.TotalPages,
	}); err != nil {
		return result, err
	}

	loaded, err := loadWithPagination(ctx, result.TotalPages, cfg.PageLoadAttempts, cfg.PageRetryDelay,
		func(ctx context.Context, page int) error {
			changes, err := s.gateway.LoadDeltaPage(ctx, req.Configuration, reportID, page, cfg.DeltaPageSize)
			if err != nil {
				return err
			}
			return send(ctx, domain.ChangesPage{
				RunID:         req.RunID,
				TenantID:      req.TenantID,
				CredentialsID: req.CredentialsID,
				TransactionID: req.CurrentTransactionID,
				Page:          page,
				Changes:       changes,
			})
		})
	result.PagesLoaded = loaded
	return result, err
}

func (s *TransactionalStrategy) deltaReportStatus(
	ctx context.Context,
	remote domain.RemoteConfiguration,
	reportID string,
) (domain.DeltaReportStatus, error) {
	summary, err := s.gateway.GetDeltaReportStatus(ctx, remote, reportID)
	if err != nil {
		return domain.DeltaReportStatus{}, err
	}
	status, err := domain.MapReportStatus(summary.Status)
	if err != nil {
		return domain.DeltaReportStatus{}, err
	}
	return domain.DeltaReportStatus{Status: status, TotalRecordCount: summary.TotalCount}, nil
}
