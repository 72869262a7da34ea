package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-storefront/internal/domain"
)

// EnsureUser inserts the user row if it does not exist yet. It is safe to
// call on every contact.
func EnsureUser(ctx context.Context, db *gorm.DB, userID int64) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.User{ID: userID}).Error
}

// UserExists reports whether the user has been seen before.
func UserExists(ctx context.Context, db *gorm.DB, userID int64) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", userID).Count(&n).Error
	return n > 0, err
}
