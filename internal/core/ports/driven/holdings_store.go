package driven

import (
	"context"

	"github.com/custodia-labs/holdings-sync/internal/core/domain"
)

// HoldingsStore persists holdings per tenant and credentials.
// Writes are keyed by HoldingKey so re-applying a page is harmless.
type HoldingsStore interface {
	// Upsert inserts or replaces records by composite key.
	Upsert(ctx context.Context, tenant domain.TenantKey, records []domain.HoldingRecord) error

	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, tenant domain.TenantKey, keys []domain.HoldingKey) error

	// DeleteAll removes every holding of the tenant.
	DeleteAll(ctx context.Context, tenant domain.TenantKey) error

	// Get returns a single holding.
	// Returns domain.ErrNotFound if it does not exist.
	Get(ctx context.Context, tenant domain.TenantKey, key domain.HoldingKey) (*domain.HoldingRecord, error)

	// List returns the tenant's holdings ordered by key.
	List(ctx context.Context, tenant domain.TenantKey) ([]domain.HoldingRecord, error)

	// Count returns the number of holdings stored for the tenant.
	Count(ctx context.Context, tenant domain.TenantKey) (int, error)
}

// LoadStatusStore persists load progress records.
type LoadStatusStore interface {
	// Get returns the progress record for a tenant.
	// Returns domain.ErrNotFound if none was ever written.
	Get(ctx context.Context, tenant domain.TenantKey) (*domain.HoldingsLoadStatus, error)

	// Save creates or replaces the progress record.
	Save(ctx context.Context, status *domain.HoldingsLoadStatus) error

	// List returns every progress record.
	List(ctx context.Context) ([]domain.HoldingsLoadStatus, error)
}

// TenantConfigStore supplies the remote configuration of each tenant.
type TenantConfigStore interface {
	// ListTenants returns every configured tenant.
	ListTenants(ctx context.Context) ([]domain.TenantConfiguration, error)

	// GetTenant returns the configuration of one tenant.
	// Returns domain.ErrNotFound if the tenant is not configured.
	GetTenant(ctx context.Context, tenantID string) (*domain.TenantConfiguration, error)
}
