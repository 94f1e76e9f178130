package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/holdings-sync/internal/core/domain"
)

var tenantA = domain.TenantKey{TenantID: "a", CredentialsID: "cred"}

func record(pkg, title string) domain.HoldingRecord {
	return domain.HoldingRecord{ProviderID: "p1", PackageID: pkg, TitleID: title, TitleName: "Title " + title}
}

func TestNewHoldingsStore(t *testing.T) {
	store := NewHoldingsStore()
	require.NotNil(t, store)
	assert.NotNil(t, store.tenants)
}

func TestHoldingsStore_UpsertAndList(t *testing.T) {
	store := NewHoldingsStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, tenantA, []domain.HoldingRecord{
		record("k2", "t1"), record("k1", "t2"), record("k1", "t1"),
	}))

	list, err := store.List(ctx, tenantA)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, domain.HoldingKey{ProviderID: "p1", PackageID: "k1", TitleID: "t1"}, list[0].Key())
	assert.Equal(t, domain.HoldingKey{ProviderID: "p1", PackageID: "k1", TitleID: "t2"}, list[1].Key())
	assert.Equal(t, domain.HoldingKey{ProviderID: "p1", PackageID: "k2", TitleID: "t1"}, list[2].Key())
}

func TestHoldingsStore_UpsertReplacesByKey(t *testing.T) {
	store := NewHoldingsStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, tenantA, []domain.HoldingRecord{record("k1", "t1")}))
	updated := record("k1", "t1")
	updated.TitleName = "Renamed"
	require.NoError(t, store.Upsert(ctx, tenantA, []domain.HoldingRecord{updated}))

	count, err := store.Count(ctx, tenantA)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := store.Get(ctx, tenantA, updated.Key())
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.TitleName)
}

func TestHoldingsStore_TenantsAreIsolated(t *testing.T) {
	store := NewHoldingsStore()
	ctx := context.Background()
	tenantB := domain.TenantKey{TenantID: "b", CredentialsID: "cred"}

	require.NoError(t, store.Upsert(ctx, tenantA, []domain.HoldingRecord{record("k1", "t1")}))
	require.NoError(t, store.Upsert(ctx, tenantB, []domain.HoldingRecord{record("k1", "t1"), record("k1", "t2")}))
	require.NoError(t, store.DeleteAll(ctx, tenantB))

	countA, err := store.Count(ctx, tenantA)
	require.NoError(t, err)
	countB, err := store.Count(ctx, tenantB)
	require.NoError(t, err)
	assert.Equal(t, 1, countA)
	assert.Zero(t, countB)
}

func TestHoldingsStore_Delete(t *testing.T) {
	store := NewHoldingsStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, tenantA, []domain.HoldingRecord{record("k1", "t1"), record("k1", "t2")}))
	require.NoError(t, store.Delete(ctx, tenantA, []domain.HoldingKey{record("k1", "t1").Key(), record("zz", "zz").Key()}))

	_, err := store.Get(ctx, tenantA, record("k1", "t1").Key())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	count, err := store.Count(ctx, tenantA)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestHoldingsStore_DeleteUnknownTenant(t *testing.T) {
	store := NewHoldingsStore()
	err := store.Delete(context.Background(), tenantA, []domain.HoldingKey{record("k1", "t1").Key()})
	assert.NoError(t, err)
}
