// The relay publishes committed outbox events to Kafka. It runs as its own
// binary so a broker outage never slows down the storefront request path.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aldomata/storefront-checkout/internal/checkout/sqlite"
	"github.com/aldomata/storefront-checkout/internal/outbox"
	"github.com/aldomata/storefront-checkout/internal/pkg/config"
	"github.com/aldomata/storefront-checkout/internal/pkg/telemetry"
)

func main() {
	telemetry.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()

	shutdown, err := telemetry.SetupTracer(ctx, getEnv("OTEL_SERVICE_NAME", "storefront-relay"))
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

	writer := outbox.NewWriter(cfg.OrdersTopic, cfg.KafkaBrokers...)
	defer writer.Close()

	relay := outbox.NewRelay(repo, writer, cfg.OutboxTick)

	slog.Info("outbox relay running", "topic", cfg.OrdersTopic, "brokers", cfg.KafkaBrokers)
	relay.Run(ctx)

	// One last pass so events committed just before the signal still go out.
	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	relay.Drain(drainCtx)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
