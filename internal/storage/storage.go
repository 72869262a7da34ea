// Package storage keeps product blobs (description text and downloadable
// archive). Blobs are addressed by slash-separated keys derived from the
// product name; contents are never interpreted.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/tbourn/go-storefront/internal/config"
)

// ErrNotFound is returned when a key has no blob.
var ErrNotFound = errors.New("blob not found")

// BlobStore is the minimal contract the product service needs.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete is idempotent: deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every blob under prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

const (
	descriptionFile = "description.txt"
	archiveFile     = "prog.zip"
)

// ProductDir is the key prefix holding a product's blobs.
func ProductDir(name string) string { return path.Join("products", name) }

// ProductPaths returns the description and archive keys of a product.
func ProductPaths(name string) (description, archive string) {
	dir := ProductDir(name)
	return path.Join(dir, descriptionFile), path.Join(dir, archiveFile)
}

// ArchiveFileName is the name offered to the user on download.
func ArchiveFileName(productName string) string { return productName + ".zip" }

// New returns the store selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig) (BlobStore, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalStore(cfg.ProductsDir), nil
	case "s3":
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
}
