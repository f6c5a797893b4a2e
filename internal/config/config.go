package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the payment tracking service.
type Config struct {
	BindAddr         string
	BaseURL          string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool
	LogLevel       string

	StripeSecretKey        string
	StripeWebhookSecret    string
	StripeWebhookTolerance time.Duration

	// SessionRetention bounds how long a session status record is kept after
	// its last accepted event; SweepInterval is how often eviction runs.
	SessionRetention time.Duration
	SweepInterval    time.Duration

	// LookupTimeout bounds the live provider lookup performed when a status
	// query misses the store.
	LookupTimeout time.Duration

	StatusRateLimit  int
	StatusRateWindow time.Duration

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:               envOrDefault("APP_BIND_ADDR", ":8080"),
		BaseURL:                envOrDefault("APP_BASE_URL", "http://localhost:8080"),
		MetricsNamespace:       envOrDefault("APP_METRICS_NAMESPACE", "paytrack"),
		AllowAnyOrigin:         false,
		LogLevel:               envOrDefault("LOG_LEVEL", "info"),
		StripeSecretKey:        stringsTrimSpace("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:    stringsTrimSpace("STRIPE_WEBHOOK_SECRET"),
		StripeWebhookTolerance: 5 * time.Minute,
		SessionRetention:       time.Hour,
		SweepInterval:          5 * time.Minute,
		LookupTimeout:          10 * time.Second,
		StatusRateLimit:        60,
		StatusRateWindow:       time.Minute,
		DatabaseURL:            stringsTrimSpace("DATABASE_URL"),
		ShutdownTimeout:        15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.StripeWebhookTolerance, err = durationFromEnv("STRIPE_WEBHOOK_TOLERANCE", cfg.StripeWebhookTolerance)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionRetention, err = durationFromEnv("APP_SESSION_RETENTION", cfg.SessionRetention)
	if err != nil {
		return Config{}, err
	}
	cfg.SweepInterval, err = durationFromEnv("APP_SWEEP_INTERVAL", cfg.SweepInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.LookupTimeout, err = durationFromEnv("APP_LOOKUP_TIMEOUT", cfg.LookupTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.StatusRateLimit, err = intFromEnv("APP_STATUS_RATE_LIMIT", cfg.StatusRateLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.StatusRateWindow, err = durationFromEnv("APP_STATUS_RATE_WINDOW", cfg.StatusRateWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionRetention < time.Minute {
		return Config{}, fmt.Errorf("APP_SESSION_RETENTION must be at least 1m")
	}
	if cfg.SweepInterval < time.Second {
		return Config{}, fmt.Errorf("APP_SWEEP_INTERVAL must be at least 1s")
	}
	if cfg.LookupTimeout <= 0 {
		return Config{}, fmt.Errorf("APP_LOOKUP_TIMEOUT must be positive")
	}
	if cfg.StatusRateLimit <= 0 {
		return Config{}, fmt.Errorf("APP_STATUS_RATE_LIMIT must be positive")
	}
	if cfg.StripeWebhookTolerance <= 0 {
		return Config{}, fmt.Errorf("STRIPE_WEBHOOK_TOLERANCE must be positive")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
