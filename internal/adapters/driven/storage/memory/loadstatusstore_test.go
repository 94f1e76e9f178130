package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/holdings-sync/internal/core/domain"
)

func TestLoadStatusStore_GetMissing(t *testing.T) {
	store := NewLoadStatusStore()
	_, err := store.Get(context.Background(), tenantA)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLoadStatusStore_SaveAndGet(t *testing.T) {
	store := NewLoadStatusStore()
	ctx := context.Background()
	now := time.Now()

	status := &domain.HoldingsLoadStatus{
		TenantID:      "a",
		CredentialsID: "cred",
		Status:        domain.LoadStatusInProgress,
		TotalPages:    3,
		StartedAt:     now,
	}
	require.NoError(t, store.Save(ctx, status))

	// Mutating the saved pointer must not change the stored record.
	status.TotalPages = 9

	got, err := store.Get(ctx, tenantA)
	require.NoError(t, err)
	assert.Equal(t, domain.LoadStatusInProgress, got.Status)
	assert.Equal(t, 3, got.TotalPages)
	assert.Equal(t, now, got.StartedAt)
}

func TestLoadStatusStore_SaveNil(t *testing.T) {
	store := NewLoadStatusStore()
	assert.ErrorIs(t, store.Save(context.Background(), nil), domain.ErrInvalidInput)
}

func TestLoadStatusStore_List(t *testing.T) {
	store := NewLoadStatusStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &domain.HoldingsLoadStatus{TenantID: "a", CredentialsID: "cred"}))
	require.NoError(t, store.Save(ctx, &domain.HoldingsLoadStatus{TenantID: "b", CredentialsID: "cred"}))
	require.NoError(t, store.Save(ctx, &domain.HoldingsLoadStatus{TenantID: "a", CredentialsID: "cred"}))

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
