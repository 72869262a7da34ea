// Product HTTP handlers.
//
// This file exposes catalog endpoints for chat users:
//   - GET    /products                 (list, paginated, ETag support)
//   - GET    /products/{id}            (details with description and owned flag)
//   - GET    /me/products              (owned products)
//   - GET    /products/{id}/download   (archive, owners only)
//
// and admin endpoints:
//   - POST   /admin/products           (multipart create)
//   - DELETE /admin/products/{id}
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-storefront/internal/services"
	"github.com/tbourn/go-storefront/internal/storage"
)

// ListProductsResponse wraps a page of products and pagination information.
type ListProductsResponse struct {
	Products   []ProductView `json:"products"`
	Pagination Pagination    `json:"pagination"`
}

// OwnedProductsResponse lists the caller's products.
type OwnedProductsResponse struct {
	Products []ProductView `json:"products"`
}

// ListProducts godoc
// @ID          listProducts
// @Summary     List products (paginated)
// @Description Returns a page of the catalog. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Products
// @Produce     json
//
// @Param       X-User-ID      header  int     true  "Chat user id"                 example(4242)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"products:3:1717236000\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListProductsResponse
// @Header      200  {string} ETag "Weak ETag for current catalog"
// @Success     304  {string} string "Not Modified"
// @Failure     401  {object} handlers.ErrorResponse "Missing user id"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /products [get]
func (h *Handlers) ListProducts(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if count, maxTS, err := h.products.Stats(ctx); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.Unix()
		}
		etag := fmt.Sprintf(`W/"products:%d:%d"`, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.products.ListPage(ctx, page, pageSize)
	if err != nil {
		failCause(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list products", err)
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListProductsResponse{
		Products: h.views(items),
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetProduct godoc
// @ID          getProduct
// @Summary     Product details
// @Description Returns the product with its description and whether the caller owns it.
// @Tags        Products
// @Produce     json
// @Param       X-User-ID  header  int  true  "Chat user id"  example(4242)
// @Param       id         path    int  true  "Product ID"    example(1)
// @Success     200  {object} handlers.ProductView
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Product not found"
// @Router      /products/{id} [get]
func (h *Handlers) GetProduct(c *gin.Context) {
	id, valid := productID(c)
	if !valid {
		return
	}
	ctx := c.Request.Context()

	p, err := h.products.Get(ctx, id)
	if err != nil {
		failErr(c, err)
		return
	}
	desc, err := h.products.Description(ctx, p)
	if err != nil {
		failErr(c, err)
		return
	}
	owned, err := h.owned.Has(ctx, userID(c), id)
	if err != nil {
		failErr(c, err)
		return
	}

	v := h.view(*p)
	v.Description = desc
	v.Owned = &owned
	ok(c, http.StatusOK, v)
}

// ListOwned godoc
// @ID          listOwnedProducts
// @Summary     My products
// @Description Lists the products the caller has bought.
// @Tags        Products
// @Produce     json
// @Param       X-User-ID  header  int  true  "Chat user id"  example(4242)
// @Success     200  {object} handlers.OwnedProductsResponse
// @Failure     401  {object} handlers.ErrorResponse "Missing user id"
// @Router      /me/products [get]
func (h *Handlers) ListOwned(c *gin.Context) {
	items, err := h.owned.ListOwned(c.Request.Context(), userID(c))
	if err != nil {
		failCause(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list products", err)
		return
	}
	ok(c, http.StatusOK, OwnedProductsResponse{Products: h.views(items)})
}

// Download godoc
// @ID          downloadProduct
// @Summary     Download a purchased product
// @Description Streams the product archive. Only owners may download.
// @Tags        Products
// @Produce     application/zip
// @Param       X-User-ID  header  int  true  "Chat user id"  example(4242)
// @Param       id         path    int  true  "Product ID"    example(1)
// @Success     200  {file}   file
// @Failure     403  {object} handlers.ErrorResponse "Not owned"
// @Failure     404  {object} handlers.ErrorResponse "Product not found"
// @Router      /products/{id}/download [get]
func (h *Handlers) Download(c *gin.Context) {
	id, valid := productID(c)
	if !valid {
		return
	}
	p, rc, err := h.products.OpenArchive(c.Request.Context(), userID(c), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "archive missing")
			return
		}
		failErr(c, err)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, -1, "application/zip", rc, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename=%q`, storage.ArchiveFileName(p.Name)),
	})
}

// CreateProduct godoc
// @ID          createProduct
// @Summary     Add a product
// @Description Uploads the description and archive, then registers the product.
// @Tags        Admin
// @Accept      multipart/form-data
// @Produce     json
// @Param       X-Admin-Token  header    string  true   "Admin token"
// @Param       name           formData  string  true   "Unique product name"
// @Param       price          formData  int     true   "Price in whole settlement units"
// @Param       description    formData  string  false  "Description text"
// @Param       file           formData  file    true   "Archive (zip)"
// @Success     201  {object} handlers.ProductView
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Forbidden"
// @Failure     409  {object} handlers.ErrorResponse "Duplicate name"
// @Failure     413  {object} handlers.ErrorResponse "Upload too large"
// @Router      /admin/products [post]
func (h *Handlers) CreateProduct(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxUploadBytes)
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			fail(c, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "upload exceeds size limit")
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "multipart form required")
		return
	}

	price, err := strconv.ParseInt(strings.TrimSpace(c.PostForm("price")), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "price must be an integer")
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "file is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "file unreadable")
		return
	}
	defer f.Close()

	p, err := h.products.Create(c.Request.Context(), services.CreateProductInput{
		Name:        c.PostForm("name"),
		Price:       price,
		Description: c.PostForm("description"),
		Archive:     f,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, h.view(*p))
}

// DeleteProduct godoc
// @ID          deleteProduct
// @Summary     Remove a product
// @Description Deletes the product, every ownership record of it and its files.
// @Tags        Admin
// @Param       X-Admin-Token  header  string  true  "Admin token"
// @Param       id             path    int     true  "Product ID"  example(1)
// @Success     204  {string} string "No Content"
// @Failure     403  {object} handlers.ErrorResponse "Forbidden"
// @Failure     404  {object} handlers.ErrorResponse "Product not found"
// @Router      /admin/products/{id} [delete]
func (h *Handlers) DeleteProduct(c *gin.Context) {
	id, valid := productID(c)
	if !valid {
		return
	}
	if err := h.products.Delete(c.Request.Context(), id); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}
