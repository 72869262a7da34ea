package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-storefront/internal/domain"
)

// HasEntitlement reports whether userID owns productID.
func HasEntitlement(ctx context.Context, db *gorm.DB, userID int64, productID uint) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Entitlement{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Count(&n).Error
	return n > 0, err
}

// CreateEntitlement inserts the ownership pair. An existing pair is left
// untouched; created reports whether a new row was written.
func CreateEntitlement(ctx context.Context, db *gorm.DB, userID int64, productID uint) (created bool, err error) {
	res := db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.Entitlement{UserID: userID, ProductID: productID})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListOwnedProducts returns the products owned by userID ordered by ID.
func ListOwnedProducts(ctx context.Context, db *gorm.DB, userID int64) ([]domain.Product, error) {
	var out []domain.Product
	err := db.WithContext(ctx).
		Joins("JOIN user_products up ON up.product_id = products.id").
		Where("up.user_id = ?", userID).
		Order("products.id ASC").
		Find(&out).Error
	return out, err
}

// DeleteEntitlementsForProduct removes every ownership row of productID.
func DeleteEntitlementsForProduct(ctx context.Context, db *gorm.DB, productID uint) error {
	return db.WithContext(ctx).
		Where("product_id = ?", productID).
		Delete(&domain.Entitlement{}).Error
}
