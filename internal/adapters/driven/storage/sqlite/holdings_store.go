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

// holdingsStore implements driven.HoldingsStore.
type holdingsStore struct {
	store *Store
}

var _ driven.HoldingsStore = (*holdingsStore)(nil)

const holdingColumns = `provider_id, package_id, title_id, vendor_name, package_name,
	title_name, publisher_name, resource_type`

// Upsert inserts or replaces records by composite key in one transaction.
func (s *holdingsStore) Upsert(ctx context.Context, tenant domain.TenantKey, records []domain.HoldingRecord) error {
	if len(records) == 0 {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	return s.store.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO holdings (tenant_id, credentials_id, `+holdingColumns+`, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(tenant_id, credentials_id, provider_id, package_id, title_id) DO UPDATE SET
				vendor_name = excluded.vendor_name,
				package_name = excluded.package_name,
				title_name = excluded.title_name,
				publisher_name = excluded.publisher_name,
				resource_type = excluded.resource_type,
				updated_at = excluded.updated_at
		`)
		if err != nil {
			return fmt.Errorf("preparing holding upsert: %w", err)
		}
		defer stmt.Close()

		for _, r := range records {
			if _, err := stmt.ExecContext(ctx, tenant.TenantID, tenant.CredentialsID,
				r.ProviderID, r.PackageID, r.TitleID,
				nullString(r.VendorName), nullString(r.PackageName), nullString(r.TitleName),
				nullString(r.PublisherName), nullString(r.ResourceType), now); err != nil {
				return fmt.Errorf("saving holding %s: %w", r.Key(), err)
			}
		}
		return nil
	})
}

// Delete removes the given keys. Missing keys are ignored.
func (s *holdingsStore) Delete(ctx context.Context, tenant domain.TenantKey, keys []domain.HoldingKey) error {
	if len(keys) == 0 {
		return nil
	}

	return s.store.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			DELETE FROM holdings
			WHERE tenant_id = ? AND credentials_id = ? AND provider_id = ? AND package_id = ? AND title_id = ?
		`)
		if err != nil {
			return fmt.Errorf("preparing holding delete: %w", err)
		}
		defer stmt.Close()

		for _, k := range keys {
			if _, err := stmt.ExecContext(ctx, tenant.TenantID, tenant.CredentialsID,
				k.ProviderID, k.PackageID, k.TitleID); err != nil {
				return fmt.Errorf("deleting holding %s: %w", k, err)
			}
		}
		return nil
	})
}

// DeleteAll removes every holding of the tenant.
func (s *holdingsStore) DeleteAll(ctx context.Context, tenant domain.TenantKey) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM holdings WHERE tenant_id = ? AND credentials_id = ?",
		tenant.TenantID, tenant.CredentialsID)
	if err != nil {
		return fmt.Errorf("deleting holdings: %w", err)
	}
	return nil
}

// Get returns a single holding.
func (s *holdingsStore) Get(
	ctx context.Context,
	tenant domain.TenantKey,
	key domain.HoldingKey,
) (*domain.HoldingRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+holdingColumns+`
		FROM holdings
		WHERE tenant_id = ? AND credentials_id = ? AND provider_id = ? AND package_id = ? AND title_id = ?
	`, tenant.TenantID, tenant.CredentialsID, key.ProviderID, key.PackageID, key.TitleID)

	h, err := scanHolding(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

// List returns the tenant's holdings ordered by key.
func (s *holdingsStore) List(ctx context.Context, tenant domain.TenantKey) ([]domain.HoldingRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+holdingColumns+`
		FROM holdings
		WHERE tenant_id = ? AND credentials_id = ?
		ORDER BY provider_id, package_id, title_id
	`, tenant.TenantID, tenant.CredentialsID)
	if err != nil {
		return nil, fmt.Errorf("querying holdings: %w", err)
	}
	defer rows.Close()

	var holdings []domain.HoldingRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, *h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating holdings: %w", err)
	}

	return holdings, nil
}

// Count returns the number of holdings stored for the tenant.
func (s *holdingsStore) Count(ctx context.Context, tenant domain.TenantKey) (int, error) {
	var n int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM holdings WHERE tenant_id = ? AND credentials_id = ?",
		tenant.TenantID, tenant.CredentialsID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting holdings: %w", err)
	}
	return n, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanHolding(row rowScanner) (*domain.HoldingRecord, error) {
	var h domain.HoldingRecord
	var vendor, pkg, title, publisher, resourceType sql.NullString
	if err := row.Scan(&h.ProviderID, &h.PackageID, &h.TitleID,
		&vendor, &pkg, &title, &publisher, &resourceType); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning holding: %w", err)
	}
	h.VendorName = vendor.String
	h.PackageName = pkg.String
	h.TitleName = title.String
	h.PublisherName = publisher.String
	h.ResourceType = resourceType.String
	return &h, nil
}
