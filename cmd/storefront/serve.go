package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-storefront/internal/chat"
	"github.com/tbourn/go-storefront/internal/config"
	"github.com/tbourn/go-storefront/internal/fulfillment"
	httpapi "github.com/tbourn/go-storefront/internal/http"
	"github.com/tbourn/go-storefront/internal/observability"
	"github.com/tbourn/go-storefront/internal/services"
)

const shutdownGrace = 15 * time.Second

func serveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP bridge and the payment sessions",
		Long: `Run the HTTP API used by the chat bridge and admin tools.

Payment sessions live in this process only. On SIGINT or SIGTERM the server
stops accepting requests, every session in flight is cancelled, and nothing
is granted for them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, c.cfg)
		},
	}
}

func runServe(ctx context.Context, cfg config.Config) error {
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, Version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// Sessions outlive the request that started them, so they are not
	// bound to the signal context; Shutdown cancels them explicitly.
	registry := fulfillment.NewRegistry(context.Background())
	purchases := &services.PurchaseService{
		Catalog:      a.catalog,
		Products:     a.products,
		Entitlements: a.entitlements,
		Registry:     registry,
		Notifier:     chat.New(cfg.Chat.WebhookURL, cfg.Chat.WebhookTimeout),
		FailureLimit: cfg.Payment.CheckFailureLimit,
		CallTimeout:  cfg.Payment.GatewayTimeout,
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Services{
		Products:     a.products,
		Entitlements: a.entitlements,
		Purchases:    purchases,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Int("payment_methods", len(a.catalog.Leaves())).
			Msg("storefront listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			_ = registry.Shutdown(context.Background())
			return err
		}
	}

	log.Info().Int("active_sessions", registry.Len()).Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := registry.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("session shutdown")
		return err
	}
	return nil
}
