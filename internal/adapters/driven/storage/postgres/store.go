// Package postgres stores holdings and load progress in PostgreSQL using lib/pq.
// The schema is created on first use.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/lib/pq"

	"github.com/custodia-labs/holdings-sync/internal/core/domain"
	"github.com/custodia-labs/holdings-sync/internal/core/ports/driven"
)

// DSNEnv names the environment variable consulted when no DSN is given.
const DSNEnv = "HOLDINGS_SYNC_DATABASE_URL"

const schema = `
CREATE TABLE IF NOT EXISTS holdings (
  tenant_id text NOT NULL,
  credentials_id text NOT NULL,
  provider_id text NOT NULL,
  package_id text NOT NULL,
  title_id text NOT NULL,
  vendor_name text NOT NULL DEFAULT '',
  package_name text NOT NULL DEFAULT '',
  title_name text NOT NULL DEFAULT '',
  publisher_name text NOT NULL DEFAULT '',
  resource_type text NOT NULL DEFAULT '',
  updated_at timestamptz NOT NULL DEFAULT now(),
  PRIMARY KEY (tenant_id, credentials_id, provider_id, package_id, title_id)
);
CREATE TABLE IF NOT EXISTS holdings_load_status (
  tenant_id text NOT NULL,
  credentials_id text NOT NULL,
  run_id text NOT NULL DEFAULT '',
  status text NOT NULL,
  mode text NOT NULL DEFAULT '',
  transaction_id text NOT NULL DEFAULT '',
  last_loaded_transaction_id text NOT NULL DEFAULT '',
  total_records integer NOT NULL DEFAULT 0,
  total_pages integer NOT NULL DEFAULT 0,
  imported_records integer NOT NULL DEFAULT 0,
  imported_pages integer NOT NULL DEFAULT 0,
  error text NOT NULL DEFAULT '',
  started_at timestamptz,
  updated_at timestamptz,
  finished_at timestamptz,
  PRIMARY KEY (tenant_id, credentials_id)
);
`

// Store gives access to the Postgres-backed store interfaces.
type Store struct {
	db *sql.DB
}

// NewStore connects to dsn, or to $HOLDINGS_SYNC_DATABASE_URL when dsn is
// empty, and ensures the schema exists.
func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = os.Getenv(DSNEnv)
	}
	if dsn == "" {
		return nil, fmt.Errorf("%w: %s not set", domain.ErrInvalidInput, DSNEnv)
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	s, err := NewStoreWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStoreWithDB reuses an existing connection pool.
func NewStoreWithDB(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// HoldingsStore returns a HoldingsStore backed by this database.
func (s *Store) HoldingsStore() driven.HoldingsStore {
	return &holdingsStore{db: s.db}
}

// LoadStatusStore returns a LoadStatusStore backed by this database.
func (s *Store) LoadStatusStore() driven.LoadStatusStore {
	return &loadStatusStore{db: s.db}
}

type holdingsStore struct {
	db *sql.DB
}

var _ driven.HoldingsStore = (*holdingsStore)(nil)

func (s *holdingsStore) Upsert(ctx context.Context, tenant domain.TenantKey, records []domain.HoldingRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO holdings (tenant_id, credentials_id, provider_id, package_id, title_id,
  vendor_name, package_name, title_name, publisher_name, resource_type, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now())
ON CONFLICT (tenant_id, credentials_id, provider_id, package_id, title_id) DO UPDATE SET
  vendor_name = EXCLUDED.vendor_name,
  package_name = EXCLUDED.package_name,
  title_name = EXCLUDED.title_name,
  publisher_name = EXCLUDED.publisher_name,
  resource_type = EXCLUDED.resource_type,
  updated_at = now()`)
	if err != nil {
		return fmt.Errorf("preparing holding upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, tenant.TenantID, tenant.CredentialsID,
			r.ProviderID, r.PackageID, r.TitleID,
			r.VendorName, r.PackageName, r.TitleName, r.PublisherName, r.ResourceType); err != nil {
			return fmt.Errorf("saving holding %s: %w", r.Key(), err)
		}
	}
	return tx.Commit()
}

// Delete removes all keys in one statement by unnesting parallel arrays.
func (s *holdingsStore) Delete(ctx context.Context, tenant domain.TenantKey, keys []domain.HoldingKey) error {
	if len(keys) == 0 {
		return nil
	}

	providers := make([]string, len(keys))
	packages := make([]string, len(keys))
	titles := make([]string, len(keys))
	for i, k := range keys {
		providers[i], packages[i], titles[i] = k.ProviderID, k.PackageID, k.TitleID
	}

	_, err := s.db.ExecContext(ctx, `
DELETE FROM holdings h
USING unnest($3::text[], $4::text[], $5::text[]) AS k(provider_id, package_id, title_id)
WHERE h.tenant_id = $1 AND h.credentials_id = $2
  AND h.provider_id = k.provider_id AND h.package_id = k.package_id AND h.title_id = k.title_id`,
		tenant.TenantID, tenant.CredentialsID,
		pq.Array(providers), pq.Array(packages), pq.Array(titles))
	if err != nil {
		return fmt.Errorf("deleting holdings: %w", err)
	}
	return nil
}

func (s *holdingsStore) DeleteAll(ctx context.Context, tenant domain.TenantKey) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM holdings WHERE tenant_id=$1 AND credentials_id=$2`,
		tenant.TenantID, tenant.CredentialsID)
	if err != nil {
		return fmt.Errorf("deleting holdings: %w", err)
	}
	return nil
}

func (s *holdingsStore) Get(
	ctx context.Context,
	tenant domain.TenantKey,
	key domain.HoldingKey,
) (*domain.HoldingRecord, error) {
	var h domain.HoldingRecord
	err := s.db.QueryRowContext(ctx, `
SELECT provider_id, package_id, title_id, vendor_name, package_name, title_name, publisher_name, resource_type
FROM holdings
WHERE tenant_id=$1 AND credentials_id=$2 AND provider_id=$3 AND package_id=$4 AND title_id=$5`,
		tenant.TenantID, tenant.CredentialsID, key.ProviderID, key.PackageID, key.TitleID).
		Scan(&h.ProviderID, &h.PackageID, &h.TitleID, &h.VendorName, &h.PackageName,
			&h.TitleName, &h.PublisherName, &h.ResourceType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting holding: %w", err)
	}
	return &h, nil
}

func (s *holdingsStore) List(ctx context.Context, tenant domain.TenantKey) ([]domain.HoldingRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT provider_id, package_id, title_id, vendor_name, package_name, title_name, publisher_name, resource_type
FROM holdings
WHERE tenant_id=$1 AND credentials_id=$2
ORDER BY provider_id, package_id, title_id`, tenant.TenantID, tenant.CredentialsID)
	if err != nil {
		return nil, fmt.Errorf("querying holdings: %w", err)
	}
	defer rows.Close()

	var out []domain.HoldingRecord
	for rows.Next() {
		var h domain.HoldingRecord
		if err := rows.Scan(&h.ProviderID, &h.PackageID, &h.TitleID, &h.VendorName, &h.PackageName,
			&h.TitleName, &h.PublisherName, &h.ResourceType); err != nil {
			return nil, fmt.Errorf("scanning holding: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *holdingsStore) Count(ctx context.Context, tenant domain.TenantKey) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM holdings WHERE tenant_id=$1 AND credentials_id=$2`,
		tenant.TenantID, tenant.CredentialsID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting holdings: %w", err)
	}
	return n, nil
}

type loadStatusStore struct {
	db *sql.DB
}

var _ driven.LoadStatusStore = (*loadStatusStore)(nil)

const statusColumns = `tenant_id, credentials_id, run_id, status, mode, transaction_id,
  last_loaded_transaction_id, total_records, total_pages, imported_records, imported_pages,
  error, started_at, updated_at, finished_at`

func (s *loadStatusStore) Get(ctx context.Context, tenant domain.TenantKey) (*domain.HoldingsLoadStatus, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+statusColumns+`
FROM holdings_load_status WHERE tenant_id=$1 AND credentials_id=$2`, tenant.TenantID, tenant.CredentialsID)
	status, err := scanStatus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return status, err
}

func (s *loadStatusStore) Save(ctx context.Context, status *domain.HoldingsLoadStatus) error {
	if status == nil {
		return domain.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO holdings_load_status (`+statusColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT (tenant_id, credentials_id) DO UPDATE SET
  run_id = EXCLUDED.run_id,
  status = EXCLUDED.status,
  mode = EXCLUDED.mode,
  transaction_id = EXCLUDED.transaction_id,
  last_loaded_transaction_id = EXCLUDED.last_loaded_transaction_id,
  total_records = EXCLUDED.total_records,
  total_pages = EXCLUDED.total_pages,
  imported_records = EXCLUDED.imported_records,
  imported_pages = EXCLUDED.imported_pages,
  error = EXCLUDED.error,
  started_at = EXCLUDED.started_at,
  updated_at = EXCLUDED.updated_at,
  finished_at = EXCLUDED.finished_at`,
		status.TenantID, status.CredentialsID, status.RunID, string(status.Status), string(status.Mode),
		status.TransactionID, status.LastLoadedTransactionID,
		status.TotalRecords, status.TotalPages, status.ImportedRecords, status.ImportedPages,
		status.Error, nullTime(status.StartedAt), nullTime(status.UpdatedAt), nullTime(status.FinishedAt))
	if err != nil {
		return fmt.Errorf("saving load status: %w", err)
	}
	return nil
}

func (s *loadStatusStore) List(ctx context.Context) ([]domain.HoldingsLoadStatus, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+statusColumns+`
FROM holdings_load_status ORDER BY tenant_id, credentials_id`)
	if err != nil {
		return nil, fmt.Errorf("querying load status: %w", err)
	}
	defer rows.Close()

	var out []domain.HoldingsLoadStatus
	for rows.Next() {
		status, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *status)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStatus(row scanner) (*domain.HoldingsLoadStatus, error) {
	var status domain.HoldingsLoadStatus
	var statusText, mode string
	var startedAt, updatedAt, finishedAt pq.NullTime
	err := row.Scan(&status.TenantID, &status.CredentialsID, &status.RunID, &statusText, &mode,
		&status.TransactionID, &status.LastLoadedTransactionID,
		&status.TotalRecords, &status.TotalPages, &status.ImportedRecords, &status.ImportedPages,
		&status.Error, &startedAt, &updatedAt, &finishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning load status: %w", err)
	}
	status.Status = domain.LoadStatus(statusText)
	status.Mode = domain.LoadMode(mode)
	status.StartedAt = startedAt.Time
	status.UpdatedAt = updatedAt.Time
	status.FinishedAt = finishedAt.Time
	return &status, nil
}

func nullTime(t time.Time) pq.NullTime {
	return pq.NullTime{Time: t.UTC(), Valid: !t.IsZero()}
}
