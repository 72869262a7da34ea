// Package services – ProductService
//
// This file implements product administration and read access: creating a
// product writes its description and archive blobs before the row (blobs are
// removed again if the insert fails), deleting removes the row and ownership
// rows in one transaction and then the blob directory. Catalog writes are
// serialized so a losing create never touches another product's blobs.
// Downloads are gated by ownership.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-storefront/internal/domain"
	"github.com/tbourn/go-storefront/internal/repo"
	"github.com/tbourn/go-storefront/internal/storage"
)

// ProductService manages the product catalog and its blobs.
type ProductService struct {
	DB           *gorm.DB
	Blobs        storage.BlobStore
	Entitlements *EntitlementService

	// writeMu is held from the duplicate-name check through the row insert
	// (or removal) and the matching blob cleanup.
	writeMu sync.Mutex
}

// CreateProductInput is the admin payload for a new product.
type CreateProductInput struct {
	Name        string
	Price       int64
	Description string
	Archive     io.Reader
}

// Create stores the blobs and inserts the product.
func (s *ProductService) Create(ctx context.Context, in CreateProductInput) (*domain.Product, error) {
	ctx, span := otel.Tracer("services/ProductService").Start(ctx, "Create",
		trace.WithAttributes(attribute.String("product.name", in.Name)),
	)
	defer span.End()

	descKey, archiveKey := storage.ProductPaths(strings.TrimSpace(in.Name))
	p := &domain.Product{
		Name:            strings.TrimSpace(in.Name),
		Price:           in.Price,
		DescriptionPath: descKey,
		FilePath:        archiveKey,
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProduct, err)
	}
	if in.Archive == nil {
		return nil, fmt.Errorf("%w: archive is required", ErrInvalidProduct)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	// Refuse before touching blobs so an existing product's files are never
	// overwritten.
	if _, err := repo.GetProductByName(ctx, s.DB, p.Name); err == nil {
		return nil, ErrDuplicateProduct
	} else if !isNotFound(err) {
		return nil, err
	}

	if err := s.Blobs.Put(ctx, descKey, strings.NewReader(in.Description)); err != nil {
		return nil, fmt.Errorf("store description: %w", err)
	}
	if err := s.Blobs.Put(ctx, archiveKey, in.Archive); err != nil {
		s.cleanupBlobs(ctx, p.Name)
		return nil, fmt.Errorf("store archive: %w", err)
	}

	if err := repo.CreateProduct(ctx, s.DB, p); err != nil {
		s.cleanupBlobs(ctx, p.Name)
		if isDuplicate(err) {
			return nil, ErrDuplicateProduct
		}
		return nil, err
	}
	log.Info().Uint("product_id", p.ID).Str("name", p.Name).Int64("price", p.Price).Msg("product created")
	return p, nil
}

// Delete removes the product, its ownership rows and its blobs.
func (s *ProductService) Delete(ctx context.Context, id uint) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	p, err := s.Entitlements.RemoveProduct(ctx, id)
	if err != nil {
		return err
	}
	s.cleanupBlobs(ctx, p.Name)
	log.Info().Uint("product_id", p.ID).Str("name", p.Name).Msg("product deleted")
	return nil
}

func (s *ProductService) cleanupBlobs(ctx context.Context, name string) {
	if err := s.Blobs.DeletePrefix(ctx, storage.ProductDir(name)); err != nil {
		log.Warn().Err(err).Str("name", name).Msg("product blob cleanup failed")
	}
}

// Get returns a product by ID.
func (s *ProductService) Get(ctx context.Context, id uint) (*domain.Product, error) {
	p, err := repo.GetProduct(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

// ListPage returns a page of products and the total count.
// It applies defaults for invalid page/pageSize.
func (s *ProductService) ListPage(ctx context.Context, page, pageSize int) ([]domain.Product, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountProducts(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Product{}, 0, nil
	}
	items, err := repo.ListProductsPage(ctx, s.DB, offset, pageSize)
	return items, total, err
}

// Stats returns the catalog size and last modification, for ETags.
func (s *ProductService) Stats(ctx context.Context) (int64, *time.Time, error) {
	return repo.ProductsStats(ctx, s.DB)
}

// Description reads the description text of p. A missing blob yields an
// empty description.
func (s *ProductService) Description(ctx context.Context, p *domain.Product) (string, error) {
	rc, err := s.Blobs.Open(ctx, p.DescriptionPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	defer rc.Close()
	b, err := io.ReadAll(io.LimitReader(rc, 64<<10))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// OpenArchive opens the downloadable archive if userID owns the product.
// The caller must close the reader.
func (s *ProductService) OpenArchive(ctx context.Context, userID int64, productID uint) (*domain.Product, io.ReadCloser, error) {
	p, err := s.Get(ctx, productID)
	if err != nil {
		return nil, nil, err
	}
	owned, err := s.Entitlements.Has(ctx, userID, productID)
	if err != nil {
		return nil, nil, err
	}
	if !owned {
		return nil, nil, ErrNotOwned
	}
	rc, err := s.Blobs.Open(ctx, p.FilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open archive: %w", err)
	}
	return p, rc, nil
}
