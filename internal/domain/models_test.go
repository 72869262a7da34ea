package domain

import (
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:domain_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "open sqlite")
	// One connection so the foreign_keys pragma applies to every statement.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	// Enforce FKs so cascades actually execute.
	db.Exec("PRAGMA foreign_keys=ON;")
	return db
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "users", (User{}).TableName())
	assert.Equal(t, "products", (Product{}).TableName())
	assert.Equal(t, "user_products", (Entitlement{}).TableName())
}

func TestMigrations_Constraints_AndCascades(t *testing.T) {
	db := newDomainDB(t)

	require.NoError(t, db.AutoMigrate(&User{}, &Product{}, &Entitlement{}))
	m := db.Migrator()
	for _, tbl := range []any{&User{}, &Product{}, &Entitlement{}} {
		assert.True(t, m.HasTable(tbl), "expected table for %T to exist", tbl)
	}
	assert.True(t, m.HasIndex(&Product{}, "ux_products_name"), "expected unique index ux_products_name on products")

	require.NoError(t, db.Create(&User{ID: 42}).Error)
	p := &Product{Name: "Widget", Price: 100, DescriptionPath: "d", FilePath: "f"}
	require.NoError(t, db.Create(p).Error)
	require.NotZero(t, p.ID, "expected auto-assigned product id")

	// Unique name.
	assert.Error(t, db.Create(&Product{Name: "Widget", Price: 5, DescriptionPath: "d", FilePath: "f"}).Error,
		"duplicate product name")
	// Positive price.
	assert.Error(t, db.Create(&Product{Name: "Free", Price: 0, DescriptionPath: "d", FilePath: "f"}).Error,
		"zero price")

	require.NoError(t, db.Create(&Entitlement{UserID: 42, ProductID: p.ID}).Error)
	// Composite PK rejects a duplicate pair.
	assert.Error(t, db.Create(&Entitlement{UserID: 42, ProductID: p.ID}).Error, "duplicate entitlement")

	// CASCADE: deleting the product removes ownership rows.
	require.NoError(t, db.Delete(&Product{}, p.ID).Error)
	var cnt int64
	require.NoError(t, db.Model(&Entitlement{}).Where("product_id = ?", p.ID).Count(&cnt).Error)
	assert.Zero(t, cnt, "expected entitlements to cascade-delete")
}

func TestProduct_Validate(t *testing.T) {
	ok := &Product{Name: "Widget", Price: 100}
	assert.NoError(t, ok.Validate())
	bad := []*Product{
		{Name: "", Price: 100},
		{Name: "Widget", Price: 0},
		{Name: "a/b", Price: 1},
		{Name: "..", Price: 1},
	}
	for _, p := range bad {
		assert.Error(t, p.Validate(), "%+v", p)
	}
}
