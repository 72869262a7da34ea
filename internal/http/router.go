// Package httpapi wires the HTTP transport (Gin) to the storefront services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, compression,
// CORS, security headers, and per-user rate limiting.
//
// Route layout (API routes under cfg.APIBasePath):
//
//	/health, /metrics, /swagger/*any (when enabled)
//	/session/start, /session                    chat user (X-User-ID)
//	/products, /products/:id, /me/products      chat user
//	/products/:id/payment-methods, /purchase    chat user
//	/products/:id/download                      chat user, owners only
//	/admin/products, /admin/products/:id        X-Admin-Token
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "github.com/tbourn/go-storefront/docs" // swagger spec
	"github.com/tbourn/go-storefront/internal/config"
	"github.com/tbourn/go-storefront/internal/http/handlers"
	"github.com/tbourn/go-storefront/internal/http/middleware"
)

// Services are the application services the routes delegate to.
type Services struct {
	Products     handlers.ProductService
	Entitlements handlers.EntitlementService
	Purchases    handlers.PurchaseService
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access log + request-scoped logger
//  4. Recovery: capture panics after logger
//  5. Metrics
//  6. Rate limiter (per chat user, else per IP)
//  7. CORS and security headers
//  8. Gzip for JSON (archive downloads are streamed as-is)
func RegisterRoutes(r *gin.Engine, svc Services, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	r.Use(cors.New(corsConfig(cfg.CORS)))
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{}))
	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPathsRegexs([]string{`/download$`, `^/metrics$`}),
	))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(svc.Products, svc.Entitlements, svc.Purchases, handlers.Options{
		SettlementCurrency: cfg.Quote.SettlementCurrency,
		MaxUploadBytes:     cfg.MaxUploadBytes,
	})

	api := groupWithPrefix(r, cfg.APIBasePath)

	// Chat users. Answers are per user, so they must never be cached.
	user := api.Group("",
		middleware.UserIdentity(),
		middleware.SecurityHeaders(middleware.SecurityOptions{NoStore: true}),
	)
	{
		user.POST("/session/start", h.StartSession)
		user.GET("/session", h.GetSession)
		user.DELETE("/session", h.CancelSession)

		user.GET("/products", h.ListProducts)
		user.GET("/products/:id", h.GetProduct)
		user.GET("/me/products", h.ListOwned)
		user.GET("/products/:id/payment-methods", h.PaymentMethods)
		user.POST("/products/:id/purchase", h.Purchase)
		user.GET("/products/:id/download", h.Download)
	}

	admin := api.Group("/admin", middleware.AdminOnly(cfg.Chat.AdminToken))
	{
		admin.POST("/products", h.CreateProduct)
		admin.DELETE("/products/:id", h.DeleteProduct)
	}
}

// corsConfig allows every origin when none are configured; admin tooling
// served from a browser should list its origin in CORS_ALLOWED_ORIGINS.
func corsConfig(c config.CORSConfig) cors.Config {
	cc := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "If-None-Match", middleware.HeaderUserID, middleware.HeaderAdminToken},
		ExposeHeaders:    []string{"X-Request-ID", "ETag", "Content-Length", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(c.AllowedOrigins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = c.AllowedOrigins
	}
	return cc
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
