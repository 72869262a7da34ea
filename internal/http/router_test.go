package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-storefront/internal/chat"
	"github.com/tbourn/go-storefront/internal/config"
	"github.com/tbourn/go-storefront/internal/fulfillment"
	"github.com/tbourn/go-storefront/internal/http/middleware"
	"github.com/tbourn/go-storefront/internal/payment"
	"github.com/tbourn/go-storefront/internal/repo"
	"github.com/tbourn/go-storefront/internal/services"
	"github.com/tbourn/go-storefront/internal/storage"
)

func testConfig() config.Config {
	return config.Config{
		APIBasePath:    "/api/v1",
		MaxUploadBytes: 1 << 20,
		RateRPS:        1000,
		RateBurst:      1000,
		Quote:          config.QuoteConfig{SettlementCurrency: "RUB"},
		Chat:           config.ChatConfig{AdminToken: "admin-tok"},
		OTEL:           config.OTELConfig{ServiceName: "test-svc"},
	}
}

// newStack wires real services over a temp SQLite file and blob directory,
// with a debug TestPayment method that confirms on its first check.
func newStack(t *testing.T, cfg config.Config) (*gin.Engine, *fulfillment.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()

	db, err := repo.OpenSQLite(filepath.Join(dir, "store.db"))
	require.NoError(t, err)
	require.NoError(t, repo.AutoMigrate(db))
	sqlDB, _ := db.DB()

	catalog, err := payment.Build(config.PaymentConfig{DebugMode: true, Attempts: 1, Delay: 0}, payment.Deps{SettlementCurrency: "RUB"})
	require.NoError(t, err)

	registry := fulfillment.NewRegistry(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = registry.Shutdown(ctx)
		_ = sqlDB.Close()
	})

	ents := &services.EntitlementService{DB: db}
	products := &services.ProductService{DB: db, Blobs: storage.NewLocalStore(dir), Entitlements: ents}
	purchases := &services.PurchaseService{
		Catalog:      catalog,
		Products:     products,
		Entitlements: ents,
		Registry:     registry,
		Notifier:     chat.LogNotifier{},
	}

	r := gin.New()
	RegisterRoutes(r, Services{Products: products, Entitlements: ents, Purchases: purchases}, cfg)
	return r, registry
}

func serve(r *gin.Engine, method, target string, body io.Reader, hdr map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, body)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_Health_Metrics_Fallbacks(t *testing.T) {
	r, _ := newStack(t, testConfig())

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health", nil, nil).Code)
	w := serve(r, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "storefront_http_requests_total")
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/nope", nil, nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(r, http.MethodPut, "/health", nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/swagger/index.html", nil, nil).Code, "swagger disabled but served")
}

func TestRegisterRoutes_SwaggerEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.SwaggerEnabled = true
	r, _ := newStack(t, cfg)

	w := serve(r, http.MethodGet, "/swagger/doc.json", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var doc struct {
		BasePath string                     `json:"basePath"`
		Paths    map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "/api/v1", doc.BasePath)
	for _, p := range []string{"/products/{id}/purchase", "/session", "/admin/products"} {
		assert.Contains(t, doc.Paths, p)
	}
}

func TestRegisterRoutes_CORS(t *testing.T) {
	r, _ := newStack(t, testConfig())
	w := serve(r, http.MethodGet, "/health", nil, map[string]string{"Origin": "https://any.example"})
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	cfg := testConfig()
	cfg.CORS.AllowedOrigins = []string{"https://admin.example"}
	r, _ = newStack(t, cfg)
	w = serve(r, http.MethodGet, "/health", nil, map[string]string{"Origin": "https://admin.example"})
	assert.Equal(t, "https://admin.example", w.Header().Get("Access-Control-Allow-Origin"))
	w = serve(r, http.MethodGet, "/health", nil, map[string]string{"Origin": "https://evil.example"})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRegisterRoutes_UserAndAdminGates(t *testing.T) {
	r, _ := newStack(t, testConfig())

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/v1/products", nil, nil).Code)
	w := serve(r, http.MethodGet, "/api/v1/products", nil, map[string]string{middleware.HeaderUserID: "5"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"), "user routes must be no-store")
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodDelete, "/api/v1/admin/products/1", nil, nil).Code)
}

func TestPipeline_BuyAndDownload(t *testing.T) {
	r, registry := newStack(t, testConfig())
	user := map[string]string{middleware.HeaderUserID: "4242"}
	jsonUser := map[string]string{middleware.HeaderUserID: "4242", "Content-Type": "application/json"}

	// Admin uploads a product.
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("name", "Widget")
	_ = mw.WriteField("price", "100")
	_ = mw.WriteField("description", "A small widget.")
	fw, _ := mw.CreateFormFile("file", "prog.zip")
	_, _ = fw.Write([]byte("PK\x03\x04widget"))
	_ = mw.Close()
	w := serve(r, http.MethodPost, "/api/v1/admin/products", &buf, map[string]string{
		"Content-Type":              mw.FormDataContentType(),
		middleware.HeaderAdminToken: "admin-tok",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	base := "/api/v1/products/" + itoa(created.ID)

	// Not owned yet.
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, base+"/download", nil, user).Code)

	// Main menu, then buy with TestPayment.
	require.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/api/v1/session/start", nil, user).Code)
	w = serve(r, http.MethodPost, base+"/purchase", strings.NewReader(`{"method":"TestPayment"}`), jsonUser)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	// The session confirms in the background; wait for the registry to drain.
	require.Eventually(t, func() bool { return registry.Len() == 0 }, 5*time.Second, 10*time.Millisecond,
		"session did not finish")

	var view struct {
		Owned *bool `json:"owned"`
	}
	require.NoError(t, json.Unmarshal(serve(r, http.MethodGet, base, nil, user).Body.Bytes(), &view))
	require.NotNil(t, view.Owned)
	assert.True(t, *view.Owned, "product not owned after payment")

	w = serve(r, http.MethodGet, base+"/download", nil, map[string]string{middleware.HeaderUserID: "4242", "Accept-Encoding": "gzip"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "PK\x03\x04widget", w.Body.String())
	assert.NotEqual(t, "gzip", w.Header().Get("Content-Encoding"), "archive download must not be gzip-encoded")

	// Buying again is refused.
	w = serve(r, http.MethodPost, base+"/purchase", strings.NewReader(`{"method":"TestPayment"}`), jsonUser)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Deleting the product removes it from the user's list.
	w = serve(r, http.MethodDelete, "/api/v1/admin/products/"+itoa(created.ID), nil,
		map[string]string{middleware.HeaderAdminToken: "admin-tok"})
	require.Equal(t, http.StatusNoContent, w.Code)
	var owned struct {
		Products []json.RawMessage `json:"products"`
	}
	require.NoError(t, json.Unmarshal(serve(r, http.MethodGet, "/api/v1/me/products", nil, user).Body.Bytes(), &owned))
	assert.Empty(t, owned.Products)
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, prefix := range []string{"", "/", "/api/v2"} {
		r := gin.New()
		groupWithPrefix(r, prefix).GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
		target := strings.TrimSuffix(prefix, "/") + "/ping"
		assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, target, nil, nil).Code, "prefix %q", prefix)
	}
}

func itoa(n uint) string { return strconv.FormatUint(uint64(n), 10) }
