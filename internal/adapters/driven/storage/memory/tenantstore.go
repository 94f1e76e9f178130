package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/holdings-sync/internal/core/domain"
	"github.com/custodia-labs/holdings-sync/internal/core/ports/driven"
)

// Ensure TenantConfigStore implements the interface.
var _ driven.TenantConfigStore = (*TenantConfigStore)(nil)

// TenantConfigStore is an in-memory implementation of driven.TenantConfigStore.
type TenantConfigStore struct {
	mu      sync.RWMutex
	tenants []domain.TenantConfiguration
}

// NewTenantConfigStore creates a store holding the given tenants.
func NewTenantConfigStore(tenants ...domain.TenantConfiguration) *TenantConfigStore {
	return &TenantConfigStore{tenants: append([]domain.TenantConfiguration(nil), tenants...)}
}

// Set replaces the configured tenants.
func (s *TenantConfigStore) Set(tenants []domain.TenantConfiguration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants = append([]domain.TenantConfiguration(nil), tenants...)
}

// ListTenants returns every configured tenant.
func (s *TenantConfigStore) ListTenants(_ context.Context) ([]domain.TenantConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.TenantConfiguration(nil), s.tenants...), nil
}

// GetTenant returns the configuration of one tenant.
func (s *TenantConfigStore) GetTenant(_ context.Context, tenantID string) (*domain.TenantConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tenants {
		if t.TenantID == tenantID {
			found := t
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}
