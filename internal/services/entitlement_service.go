// Package services – EntitlementService
//
// This file implements the EntitlementService, the single owner of the
// user/product ownership relation. Grants are idempotent and run inside a
// transaction that first confirms the product still exists; product removal
// strips every ownership row in the same transaction as the product row.
package services

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-storefront/internal/domain"
	"github.com/tbourn/go-storefront/internal/repo"
)

// EntitlementService answers "does this user own this product" and is the
// only component that writes the answer.
type EntitlementService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// EnsureUser records the user on first contact.
func (s *EntitlementService) EnsureUser(ctx context.Context, userID int64) error {
	return repo.EnsureUser(ctx, s.DB, userID)
}

// Has reports whether userID owns productID.
func (s *EntitlementService) Has(ctx context.Context, userID int64, productID uint) (bool, error) {
	return repo.HasEntitlement(ctx, s.DB, userID, productID)
}

// Grant gives productID to userID. Granting an owned product is a no-op;
// granted reports whether a new ownership row was written. If the product
// was removed in the meantime, ErrProductNotFound is returned.
func (s *EntitlementService) Grant(ctx context.Context, userID int64, productID uint) (granted bool, err error) {
	ctx, span := otel.Tracer("services/EntitlementService").Start(ctx, "Grant",
		trace.WithAttributes(
			attribute.Int64("user.id", userID),
			attribute.Int("product.id", int(productID)),
		),
	)
	defer span.End()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.GetProduct(ctx, tx, productID); err != nil {
			if isNotFound(err) {
				return ErrProductNotFound
			}
			return err
		}
		if err := repo.EnsureUser(ctx, tx, userID); err != nil {
			return err
		}
		granted, err = repo.CreateEntitlement(ctx, tx, userID, productID)
		return err
	})
	span.SetAttributes(attribute.Bool("entitlement.created", granted))
	return granted, err
}

// ListOwned returns the products owned by userID.
func (s *EntitlementService) ListOwned(ctx context.Context, userID int64) ([]domain.Product, error) {
	return repo.ListOwnedProducts(ctx, s.DB, userID)
}

// ListAll returns every product of the catalog.
func (s *EntitlementService) ListAll(ctx context.Context) ([]domain.Product, error) {
	return repo.ListProducts(ctx, s.DB)
}

// RemoveProduct deletes the product and every ownership row referencing it
// atomically. The removed product is returned so its blobs can be cleaned up.
func (s *EntitlementService) RemoveProduct(ctx context.Context, productID uint) (*domain.Product, error) {
	var removed *domain.Product
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := repo.GetProduct(ctx, tx, productID)
		if err != nil {
			if isNotFound(err) {
				return ErrProductNotFound
			}
			return err
		}
		if err := repo.DeleteEntitlementsForProduct(ctx, tx, productID); err != nil {
			return err
		}
		if err := repo.DeleteProduct(ctx, tx, productID); err != nil {
			return err
		}
		removed = p
		return nil
	})
	return removed, err
}
