// Package domain defines the persistence models for users, products, and
// the ownership records linking them. These types are mapped with GORM and
// form the core data layer of the storefront.
package domain

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// User is a chat participant. The primary key is the chat identity supplied
// by the transport, so it is never auto-incremented. Users are created
// lazily on first contact and never deleted.
type User struct {
	ID        int64     `json:"id"         gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Product is a downloadable digital good.
//
// Fields:
//   - ID: auto-assigned primary key.
//   - Name: unique display name; also the blob directory name.
//   - Price: whole units of the settlement currency.
//   - DescriptionPath / FilePath: blob keys of the description text and archive.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Product struct {
	ID              uint      `json:"id"         gorm:"primaryKey"`
	Name            string    `json:"name"       gorm:"type:varchar(255);not null;uniqueIndex:ux_products_name" validate:"required,min=1,max=255,excludesall=/\\,ne=.,ne=.."`
	Price           int64     `json:"price"      gorm:"not null;check:price > 0" validate:"gt=0"`
	DescriptionPath string    `json:"-"          gorm:"type:text;not null"`
	FilePath        string    `json:"-"          gorm:"type:text;not null"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName returns the database table name for Product.
func (Product) TableName() string { return "products" }

// Validate checks the admin-supplied fields of a product.
func (p *Product) Validate() error {
	v := validator.New()
	return v.Struct(p)
}

// Entitlement records that a user owns a product. The composite primary key
// makes a second grant of the same pair a no-op.
type Entitlement struct {
	UserID    int64     `json:"user_id"    gorm:"primaryKey;autoIncrement:false"`
	ProductID uint      `json:"product_id" gorm:"primaryKey;autoIncrement:false;index:idx_user_products_product"`
	CreatedAt time.Time `json:"created_at"`

	// Both sides cascade so deleting a user or a product never leaves
	// dangling ownership rows.
	User    User    `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Product Product `json:"-" gorm:"foreignKey:ProductID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Entitlement.
func (Entitlement) TableName() string { return "user_products" }
