package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/holdings-sync/internal/core/domain"
	"github.com/custodia-labs/holdings-sync/internal/core/ports/driven"
)

// Ensure HoldingsStore implements the interface.
var _ driven.HoldingsStore = (*HoldingsStore)(nil)

// HoldingsStore is an in-memory implementation of driven.HoldingsStore.
type HoldingsStore struct {
	mu      sync.RWMutex
	tenants map[domain.TenantKey]map[domain.HoldingKey]domain.HoldingRecord
}

// NewHoldingsStore creates a new in-memory holdings store.
func NewHoldingsStore() *HoldingsStore {
	return &HoldingsStore{
		tenants: make(map[domain.TenantKey]map[domain.HoldingKey]domain.HoldingRecord),
	}
}

// Upsert inserts or replaces records by composite key.
func (s *HoldingsStore) Upsert(_ context.Context, tenant domain.TenantKey, records []domain.HoldingRecord) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	holdings, ok := s.tenants[tenant]
	if !ok {
		holdings = make(map[domain.HoldingKey]domain.HoldingRecord)
		s.tenants[tenant] = holdings
	}
	for _, r := range records {
		holdings[r.Key()] = r
	}
	return nil
}

// Delete removes the given keys.
func (s *HoldingsStore) Delete(_ context.Context, tenant domain.TenantKey, keys []domain.HoldingKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.tenants[tenant], k)
	}
	return nil
}

// DeleteAll removes every holding of the tenant.
func (s *HoldingsStore) DeleteAll(_ context.Context, tenant domain.TenantKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tenants, tenant)
	return nil
}

// Get returns a single holding.
func (s *HoldingsStore) Get(
	_ context.Context,
	tenant domain.TenantKey,
	key domain.HoldingKey,
) (*domain.HoldingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.tenants[tenant][key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &h, nil
}

// List returns the tenant's holdings ordered by key.
func (s *HoldingsStore) List(_ context.Context, tenant domain.TenantKey) ([]domain.HoldingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.HoldingRecord, 0, len(s.tenants[tenant]))
	for _, h := range s.tenants[tenant] {
		result = append(result, h)
	}
	sort.Slice(result, func(i, j int) bool {
		return lessKey(result[i].Key(), result[j].Key())
	})
	return result, nil
}

// Count returns the number of holdings stored for the tenant.
func (s *HoldingsStore) Count(_ context.Context, tenant domain.TenantKey) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tenants[tenant]), nil
}

func lessKey(a, b domain.HoldingKey) bool {
	if a.ProviderID != b.ProviderID {
		return a.ProviderID < b.ProviderID
	}
	if a.PackageID != b.PackageID {
		return a.PackageID < b.PackageID
	}
	return a.TitleID < b.TitleID
}
