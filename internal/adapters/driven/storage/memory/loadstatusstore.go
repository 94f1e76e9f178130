package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/holdings-sync/internal/core/domain"
	"github.com/custodia-labs/holdings-sync/internal/core/ports/driven"
)

// Ensure LoadStatusStore implements the interface.
var _ driven.LoadStatusStore = (*LoadStatusStore)(nil)

// LoadStatusStore is an in-memory implementation of driven.LoadStatusStore.
type LoadStatusStore struct {
	mu       sync.RWMutex
	statuses map[domain.TenantKey]domain.HoldingsLoadStatus
}

// NewLoadStatusStore creates a new in-memory load status store.
func NewLoadStatusStore() *LoadStatusStore {
	return &LoadStatusStore{
		statuses: make(map[domain.TenantKey]domain.HoldingsLoadStatus),
	}
}

// Get returns a copy of the progress record for a tenant.
func (s *LoadStatusStore) Get(_ context.Context, tenant domain.TenantKey) (*domain.HoldingsLoadStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.statuses[tenant]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &status, nil
}

// Save creates or replaces the progress record.
func (s *LoadStatusStore) Save(_ context.Context, status *domain.HoldingsLoadStatus) error {
	if status == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[status.Key()] = *status
	return nil
}

// List returns every progress record.
func (s *LoadStatusStore) List(_ context.Context) ([]domain.HoldingsLoadStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.HoldingsLoadStatus, 0, len(s.statuses))
	for _, status := range s.statuses {
		result = append(result, status)
	}
	return result, nil
}
