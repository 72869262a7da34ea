package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-storefront/internal/config"
	"github.com/tbourn/go-storefront/internal/payment"
	"github.com/tbourn/go-storefront/internal/quote"
	"github.com/tbourn/go-storefront/internal/repo"
	"github.com/tbourn/go-storefront/internal/services"
	"github.com/tbourn/go-storefront/internal/storage"
)

// app is the assembled storage and catalog layer. serve adds the session
// registry and the HTTP bridge on top of it.
type app struct {
	db           *gorm.DB
	catalog      *payment.Catalog
	products     *services.ProductService
	entitlements *services.EntitlementService

	closers []func() error
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	a.db = db
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}
	if err := repo.AutoMigrate(db); err != nil {
		a.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	blobs, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("storage: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.Payment.GatewayTimeout}
	quoter := &quote.Service{
		HTTP:       httpClient,
		BaseURL:    cfg.Quote.RateBaseURL,
		Settlement: cfg.Quote.SettlementCurrency,
		TTL:        cfg.Quote.CacheTTL,
	}
	if cfg.Quote.RedisAddr != "" {
		cache := quote.NewRedisCache(cfg.Quote.RedisAddr, cfg.Quote.RedisPassword, cfg.Quote.RedisDB)
		quoter.Cache = cache
		a.closers = append(a.closers, cache.Close)
	}

	catalog, err := payment.Build(cfg.Payment, payment.Deps{
		HTTP:               httpClient,
		Quoter:             quoter,
		SettlementCurrency: cfg.Quote.SettlementCurrency,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("payment catalog: %w", err)
	}
	a.catalog = catalog

	a.entitlements = &services.EntitlementService{DB: db}
	a.products = &services.ProductService{DB: db, Blobs: blobs, Entitlements: a.entitlements}
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("close")
		}
	}
	a.closers = nil
}
