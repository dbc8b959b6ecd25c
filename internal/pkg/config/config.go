// Package config collects every environment knob the storefront binaries read,
// so the list lives in one place instead of scattered getEnv calls.
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr string

	SQLitePath string
	RedisAddr  string

	KafkaBrokers []string
	OrdersTopic  string

	CatalogBaseURL  string
	CustomerBaseURL string

	GatewayBaseURL string
	GatewayAPIKey  string
	// GatewayWebhookSecret signs webhook payloads pushed by the processor.
	GatewayWebhookSecret string
	GatewayTimeout       time.Duration

	Currency string

	// ReconcileInterval is how often pending orders are re-checked against
	// the gateway; ReconcileMinAge keeps the sweep from racing a checkout
	// that is still in flight.
	ReconcileInterval time.Duration
	ReconcileMinAge   time.Duration

	OutboxTick time.Duration
}

// FromEnv builds a Config from environment variables with local-dev defaults.
func FromEnv() Config {
	return Config{
		HTTPAddr:             ":" + getEnv("PORT", "8080"),
		SQLitePath:           getEnv("SQLITE_PATH", "./data/storefront.db"),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers:         []string{getEnv("KAFKA_BROKER", "localhost:9092")},
		OrdersTopic:          getEnv("ORDERS_TOPIC", "storefront.orders"),
		CatalogBaseURL:       getEnv("CATALOG_SERVICE_URL", "http://localhost:9093"),
		CustomerBaseURL:      getEnv("CUSTOMER_SERVICE_URL", "http://localhost:9094"),
		GatewayBaseURL:       getEnv("PAYMENT_GATEWAY_URL", "http://localhost:9095"),
		GatewayAPIKey:        getEnv("PAYMENT_GATEWAY_API_KEY", ""),
		GatewayWebhookSecret: getEnv("PAYMENT_WEBHOOK_SECRET", ""),
		GatewayTimeout:       getDuration("PAYMENT_GATEWAY_TIMEOUT", 10*time.Second),
		Currency:             getEnv("CURRENCY", "usd"),
		ReconcileInterval:    getDuration("RECONCILE_INTERVAL", time.Minute),
		ReconcileMinAge:      getDuration("RECONCILE_MIN_AGE", 5*time.Minute),
		OutboxTick:           getDuration("OUTBOX_TICK", time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
