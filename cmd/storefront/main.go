package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aldomata/storefront-checkout/internal/cart"
	"github.com/aldomata/storefront-checkout/internal/cart/redisstore"
	"github.com/aldomata/storefront-checkout/internal/catalog"
	"github.com/aldomata/storefront-checkout/internal/checkout"
	"github.com/aldomata/storefront-checkout/internal/checkout/sqlite"
	"github.com/aldomata/storefront-checkout/internal/customer"
	"github.com/aldomata/storefront-checkout/internal/outbox"
	"github.com/aldomata/storefront-checkout/internal/payment"
	"github.com/aldomata/storefront-checkout/internal/payment/gatewayhttp"
	"github.com/aldomata/storefront-checkout/internal/pkg/cache"
	"github.com/aldomata/storefront-checkout/internal/pkg/config"
	"github.com/aldomata/storefront-checkout/internal/pkg/telemetry"
	"github.com/aldomata/storefront-checkout/internal/reconciler"
	"github.com/aldomata/storefront-checkout/internal/storefront/httpx"
)

func main() {
	telemetry.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()

	shutdown, err := telemetry.SetupTracer(ctx, getEnv("OTEL_SERVICE_NAME", "storefront"))
	if err != nil {
		slog.Error("failed to initialise tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	repo, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		slog.Error("failed to open order store", "path", cfg.SQLitePath, "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	idemCache := cache.NewRedisCache(redisClient, "storefront")
	carts := cart.NewStore(redisstore.New(redisClient))

	catalogClient := catalog.NewClient(cfg.CatalogBaseURL, cfg.GatewayTimeout)
	customerClient := customer.NewClient(cfg.CustomerBaseURL, cfg.GatewayTimeout)
	gateway := gatewayhttp.NewClient(cfg.GatewayBaseURL, cfg.GatewayAPIKey, cfg.GatewayTimeout)

	checkoutSrv := checkout.NewService(repo, catalogClient, customerClient, idemCache)
	intentSrv := payment.NewIntentService(gateway, repo, cfg.Currency)
	confirmSrv := payment.NewConfirmationService(gateway, repo)

	sweeper := reconciler.New(repo, confirmSrv, cfg.ReconcileInterval, cfg.ReconcileMinAge)
	go sweeper.Run(ctx)

	// The relay also ships in-process; cmd/relay exists for deployments that
	// want it isolated from the request path.
	writer := outbox.NewWriter(cfg.OrdersTopic, cfg.KafkaBrokers...)
	defer writer.Close()
	relay := outbox.NewRelay(repo, writer, cfg.OutboxTick)
	go relay.Run(ctx)

	handler := httpx.NewHandler(checkoutSrv, intentSrv, confirmSrv)
	cartHandler := httpx.NewCartHandler(carts)
	webhook := httpx.NewWebhookHandler(cfg.GatewayWebhookSecret, gateway, confirmSrv)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpx.NewRouter(handler, cartHandler, webhook),
	}

	go func() {
		slog.Info("storefront HTTP running", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
