package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/holdings-sync/internal/core/domain"
	"github.com/custodia-labs/holdings-sync/internal/core/ports/driven"
)

// loadStatusStore implements driven.LoadStatusStore.
type loadStatusStore struct {
	store *Store
}

var _ driven.LoadStatusStore = (*loadStatusStore)(nil)

const loadStatusColumns = `tenant_id, credentials_id, run_id, status, mode, transaction_id,
	last_loaded_transaction_id, total_records, total_pages, imported_records, imported_pages,
	error, started_at, updated_at, finished_at`

// Get returns the progress record for a tenant.
func (s *loadStatusStore) Get(ctx context.Context, tenant domain.TenantKey) (*domain.HoldingsLoadStatus, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+loadStatusColumns+`
		FROM load_status WHERE tenant_id = ? AND credentials_id = ?
	`, tenant.TenantID, tenant.CredentialsID)

	status, err := scanLoadStatus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return status, nil
}

// Save creates or replaces the progress record.
func (s *loadStatusStore) Save(ctx context.Context, status *domain.HoldingsLoadStatus) error {
	if status == nil {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO load_status (`+loadStatusColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, credentials_id) DO UPDATE SET
			run_id = excluded.run_id,
			status = excluded.status,
			mode = excluded.mode,
			transaction_id = excluded.transaction_id,
			last_loaded_transaction_id = excluded.last_loaded_transaction_id,
			total_records = excluded.total_records,
			total_pages = excluded.total_pages,
			imported_records = excluded.imported_records,
			imported_pages = excluded.imported_pages,
			error = excluded.error,
			started_at = excluded.started_at,
			updated_at = excluded.updated_at,
			finished_at = excluded.finished_at
	`, status.TenantID, status.CredentialsID, nullString(status.RunID), string(status.Status),
		nullString(string(status.Mode)), nullString(status.TransactionID),
		nullString(status.LastLoadedTransactionID),
		status.TotalRecords, status.TotalPages, status.ImportedRecords, status.ImportedPages,
		nullString(status.Error), formatPreciseTime(status.StartedAt),
		formatPreciseTime(status.UpdatedAt), formatPreciseTime(status.FinishedAt))

	if err != nil {
		return fmt.Errorf("saving load status: %w", err)
	}
	return nil
}

// List returns every progress record ordered by tenant.
func (s *loadStatusStore) List(ctx context.Context) ([]domain.HoldingsLoadStatus, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+loadStatusColumns+`
		FROM load_status ORDER BY tenant_id, credentials_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying load status: %w", err)
	}
	defer rows.Close()

	var statuses []domain.HoldingsLoadStatus //nolint:prealloc // size unknown from query
	for rows.Next() {
		status, err := scanLoadStatus(rows)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, *status)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating load status: %w", err)
	}

	return statuses, nil
}

func scanLoadStatus(row rowScanner) (*domain.HoldingsLoadStatus, error) {
	var status domain.HoldingsLoadStatus
	var statusText string
	var runID, mode, transactionID, lastLoaded, errMsg sql.NullString
	var startedAt, updatedAt, finishedAt sql.NullString

	if err := row.Scan(&status.TenantID, &status.CredentialsID, &runID, &statusText, &mode,
		&transactionID, &lastLoaded, &status.TotalRecords, &status.TotalPages,
		&status.ImportedRecords, &status.ImportedPages, &errMsg,
		&startedAt, &updatedAt, &finishedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning load status: %w", err)
	}

	status.RunID = runID.String
	status.Status = domain.LoadStatus(statusText)
	status.Mode = domain.LoadMode(mode.String)
	status.TransactionID = transactionID.String
	status.LastLoadedTransactionID = lastLoaded.String
	status.Error = errMsg.String
	status.StartedAt = parsePreciseTime(startedAt)
	status.UpdatedAt = parsePreciseTime(updatedAt)
	status.FinishedAt = parsePreciseTime(finishedAt)

	return &status, nil
}

// formatPreciseTime keeps sub-second precision, or returns nil for zero time.
func formatPreciseTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parsePreciseTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}
