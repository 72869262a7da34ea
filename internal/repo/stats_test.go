package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-storefront/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "open sqlite")
	db.Exec("PRAGMA foreign_keys=ON;")
	if len(migrate) > 0 {
		require.NoError(t, db.AutoMigrate(migrate...))
	}
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, name string, price int64) *domain.Product {
	t.Helper()
	p := &domain.Product{
		Name:            name,
		Price:           price,
		DescriptionPath: "products/" + name + "/description.txt",
		FilePath:        "products/" + name + "/prog.zip",
	}
	require.NoError(t, db.Create(p).Error, "seed product %q", name)
	return p
}

func TestProductsStats_CountError_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	_, _, err := ProductsStats(context.Background(), db)
	assert.Error(t, err, "missing products table")
}

func TestProductsStats_ZeroRows(t *testing.T) {
	db := newTestDB(t, &domain.Product{})
	count, maxAt, err := ProductsStats(context.Background(), db)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Nil(t, maxAt)
}

func TestProductsStats_Success_Max(t *testing.T) {
	db := newTestDB(t, &domain.Product{})

	t1 := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC) // max
	for i, ts := range []time.Time{t1, t2} {
		p := &domain.Product{Name: fmt.Sprintf("p%d", i), Price: 10, DescriptionPath: "d", FilePath: "f", CreatedAt: ts, UpdatedAt: ts}
		require.NoError(t, db.Create(p).Error)
	}

	count, maxAt, err := ProductsStats(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	require.NotNil(t, maxAt)
	assert.True(t, maxAt.Equal(t2), "maxUpdatedAt = %v; want %v", maxAt, t2)
}

// Force the second query (SELECT updated_at ...) to fail by renaming the column.
func TestProductsStats_SelectLatest_ErrorPath(t *testing.T) {
	db := newTestDB(t, &domain.Product{})
	seedProduct(t, db, "x", 1)

	require.NoError(t, db.Exec(`ALTER TABLE products RENAME COLUMN updated_at TO updated_at_old`).Error)
	_, _, err := ProductsStats(context.Background(), db)
	assert.Error(t, err, "latest-updated select after column rename")
}
