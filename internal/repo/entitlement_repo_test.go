package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-storefront/internal/domain"
)

func TestEnsureUser_Idempotent(t *testing.T) {
	db := newTestDB(t, &domain.User{})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, EnsureUser(ctx, db, 42), "EnsureUser #%d", i)
	}
	ok, err := UserExists(ctx, db, 42)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = UserExists(ctx, db, 7)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEntitlementRepo_CreateHasList(t *testing.T) {
	db := newTestDB(t, &domain.User{}, &domain.Product{}, &domain.Entitlement{})
	ctx := context.Background()

	require.NoError(t, EnsureUser(ctx, db, 1))
	a := seedProduct(t, db, "A", 10)
	b := seedProduct(t, db, "B", 20)
	seedProduct(t, db, "C", 30)

	has, err := HasEntitlement(ctx, db, 1, a.ID)
	require.NoError(t, err)
	assert.False(t, has, "expected no entitlement yet")

	created, err := CreateEntitlement(ctx, db, 1, a.ID)
	require.NoError(t, err)
	assert.True(t, created, "first CreateEntitlement")
	created, err = CreateEntitlement(ctx, db, 1, a.ID)
	require.NoError(t, err)
	assert.False(t, created, "second CreateEntitlement must be a no-op")
	_, err = CreateEntitlement(ctx, db, 1, b.ID)
	require.NoError(t, err)

	has, err = HasEntitlement(ctx, db, 1, a.ID)
	require.NoError(t, err)
	assert.True(t, has)

	owned, err := ListOwnedProducts(ctx, db, 1)
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.Equal(t, "A", owned[0].Name)
	assert.Equal(t, "B", owned[1].Name)

	require.NoError(t, DeleteEntitlementsForProduct(ctx, db, a.ID))
	owned, _ = ListOwnedProducts(ctx, db, 1)
	require.Len(t, owned, 1)
	assert.Equal(t, "B", owned[0].Name)
}

func TestCreateEntitlement_UnknownProduct_FKError(t *testing.T) {
	db := newTestDB(t, &domain.User{}, &domain.Product{}, &domain.Entitlement{})
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1) // keep the foreign_keys pragma on the only connection
	db.Exec("PRAGMA foreign_keys=ON;")

	ctx := context.Background()
	require.NoError(t, EnsureUser(ctx, db, 1))
	_, err := CreateEntitlement(ctx, db, 1, 999)
	assert.Error(t, err, "expected FK violation for unknown product")
}
