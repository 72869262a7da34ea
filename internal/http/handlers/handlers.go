// Package handlers provides HTTP handler implementations for the storefront
// API consumed by the chat bridge and admin tooling.
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results (and service sentinels) into HTTP responses.
package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-storefront/internal/domain"
	"github.com/tbourn/go-storefront/internal/http/middleware"
	"github.com/tbourn/go-storefront/internal/payment"
	"github.com/tbourn/go-storefront/internal/services"
	"github.com/tbourn/go-storefront/internal/utils"
)

//
// Service contracts (context-aware)
//

// ProductService covers catalog reads, downloads and admin writes.
type ProductService interface {
	ListPage(ctx context.Context, page, pageSize int) ([]domain.Product, int64, error)
	Stats(ctx context.Context) (int64, *time.Time, error)
	Get(ctx context.Context, id uint) (*domain.Product, error)
	Description(ctx context.Context, p *domain.Product) (string, error)
	OpenArchive(ctx context.Context, userID int64, productID uint) (*domain.Product, io.ReadCloser, error)
	Create(ctx context.Context, in services.CreateProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id uint) error
}

// EntitlementService answers ownership questions.
type EntitlementService interface {
	Has(ctx context.Context, userID int64, productID uint) (bool, error)
	ListOwned(ctx context.Context, userID int64) ([]domain.Product, error)
}

// PurchaseService drives method selection and payment sessions.
type PurchaseService interface {
	Options(group string) ([]*payment.Descriptor, error)
	Select(ctx context.Context, userID int64, productID uint, group, method string) (*services.Selection, error)
	Restart(ctx context.Context, userID int64) (bool, error)
	Cancel(userID int64) error
	Status(userID int64) (*services.SessionStatus, error)
}

//
// Handler wiring
//

// Options tunes handler behaviour.
type Options struct {
	// SettlementCurrency labels prices, e.g. "RUB".
	SettlementCurrency string
	// MaxUploadBytes caps admin multipart uploads.
	MaxUploadBytes int64
}

// Handlers groups the storefront endpoints.
type Handlers struct {
	products  ProductService
	owned     EntitlementService
	purchases PurchaseService
	opts      Options
}

// New constructs and returns a Handlers instance bound to the given services.
func New(products ProductService, owned EntitlementService, purchases PurchaseService, opts Options) *Handlers {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 50 << 20
	}
	return &Handlers{products: products, owned: owned, purchases: purchases, opts: opts}
}

// userID returns the identity stored by middleware.UserIdentity. Routes
// that call it are always mounted behind that middleware.
func userID(c *gin.Context) int64 {
	uid, _ := middleware.UserIDFrom(c)
	return uid
}

// productID parses the :id path parameter, writing a 400 on failure.
func productID(c *gin.Context) (uint, bool) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "product id must be a positive integer")
		return 0, false
	}
	return id, true
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ProductView is a product as shown to a chat user.
type ProductView struct {
	ID          uint   `json:"id"          example:"1"`
	Name        string `json:"name"        example:"Widget"`
	Price       int64  `json:"price"       example:"1500"`
	PriceText   string `json:"price_text"  example:"1,500 RUB"`
	Description string `json:"description,omitempty" example:"A small widget."`
	Owned       *bool  `json:"owned,omitempty"`
}

func (h *Handlers) view(p domain.Product) ProductView {
	return ProductView{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price,
		PriceText: payment.FormatPrice(p.Price, h.opts.SettlementCurrency),
	}
}

func (h *Handlers) views(items []domain.Product) []ProductView {
	out := make([]ProductView, 0, len(items))
	for _, p := range items {
		out = append(out, h.view(p))
	}
	return out
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.PositiveOr(c.Query("page"), defaultPage)
	pageSize = utils.PositiveOr(c.Query("page_size"), defaultPageSize)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}
