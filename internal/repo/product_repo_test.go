package repo

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-storefront/internal/domain"
)

func TestProductRepo_CreateGetList(t *testing.T) {
	db := newTestDB(t, &domain.Product{})
	ctx := context.Background()

	p := &domain.Product{Name: "Widget", Price: 100, DescriptionPath: "d", FilePath: "f"}
	require.NoError(t, CreateProduct(ctx, db, p))
	require.NotZero(t, p.ID, "expected generated ID")

	got, err := GetProduct(ctx, db, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Widget", got.Name)
	assert.Equal(t, int64(100), got.Price)

	byName, err := GetProductByName(ctx, db, "Widget")
	require.NoError(t, err)
	assert.Equal(t, p.ID, byName.ID)

	_, err = GetProduct(ctx, db, p.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = GetProductByName(ctx, db, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	// Duplicate name is rejected by the unique index.
	assert.Error(t, CreateProduct(ctx, db, &domain.Product{Name: "Widget", Price: 1, DescriptionPath: "d", FilePath: "f"}))

	all, err := ListProducts(ctx, db)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestProductRepo_PagingAndCount(t *testing.T) {
	db := newTestDB(t, &domain.Product{})
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		seedProduct(t, db, fmt.Sprintf("p%d", i), int64(i+1))
	}

	n, err := CountProducts(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	page, err := ListProductsPage(ctx, db, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "p2", page[0].Name)
	assert.Equal(t, "p3", page[1].Name)
}

func TestProductRepo_Delete(t *testing.T) {
	db := newTestDB(t, &domain.Product{})
	ctx := context.Background()
	p := seedProduct(t, db, "gone", 3)

	require.NoError(t, DeleteProduct(ctx, db, p.ID))
	assert.ErrorIs(t, DeleteProduct(ctx, db, p.ID), ErrNotFound)
}
