package driven

import (
	"context"

	"github.com/custodia-labs/holdings-sync/internal/core/domain"
)

// LoadGateway is the vendor API for the full-snapshot strategy.
// The vendor keeps a single global snapshot per customer.
type LoadGateway interface {
	// PopulateSnapshot starts a new remote snapshot job.
	PopulateSnapshot(ctx context.Context, cfg domain.RemoteConfiguration) error

	// GetSnapshotStatus returns the status of the global snapshot.
	// TransactionID is always empty.
	GetSnapshotStatus(ctx context.Context, cfg domain.RemoteConfiguration) (domain.SnapshotStatus, error)

	// LoadPage fetches one 1-based page of the snapshot.
	LoadPage(ctx context.Context, cfg domain.RemoteConfiguration, page, pageSize int) ([]domain.HoldingRecord, error)
}

// TransactionalGateway is the vendor API for the transactional strategy.
// Each snapshot is a named transaction that can later be diffed.
type TransactionalGateway interface {
	// PopulateTransaction starts a new remote transaction and returns its id.
	PopulateTransaction(ctx context.Context, cfg domain.RemoteConfiguration) (string, error)

	// GetTransactionStatus returns the status of a named transaction.
	// The status string is returned as reported by the backend.
	GetTransactionStatus(ctx context.Context, cfg domain.RemoteConfiguration, transactionID string) (domain.TransactionSummary, error)

	// ListTransactions returns every transaction the backend still knows.
	ListTransactions(ctx context.Context, cfg domain.RemoteConfiguration) ([]domain.TransactionSummary, error)

	// LoadTransactionPage fetches one 1-based page of a transaction.
	LoadTransactionPage(ctx context.Context, cfg domain.RemoteConfiguration, transactionID string, page, pageSize int) ([]domain.HoldingRecord, error)

	// PopulateDeltaReport starts a diff between two transactions and returns the report id.
	PopulateDeltaReport(ctx context.Context, cfg domain.RemoteConfiguration, currentID, previousID string) (string, error)

	// GetDeltaReportStatus returns the status of a delta report, status string unmapped.
	GetDeltaReportStatus(ctx context.Context, cfg domain.RemoteConfiguration, reportID string) (domain.ReportSummary, error)

	// LoadDeltaPage fetches one 1-based page of a delta report.
	LoadDeltaPage(ctx context.Context, cfg domain.RemoteConfiguration, reportID string, page, pageSize int) ([]domain.HoldingChange, error)
}
