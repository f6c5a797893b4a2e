package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lcollia/paytrack/internal/config"
	"github.com/lcollia/paytrack/internal/httpapi"
	"github.com/lcollia/paytrack/internal/observability"
	"github.com/lcollia/paytrack/internal/orders"
	"github.com/lcollia/paytrack/internal/payment"
	"github.com/lcollia/paytrack/internal/provider"
)

// paymentProvider is the full provider surface the service wires: webhook
// verification, live session lookup, and checkout management.
type paymentProvider interface {
	httpapi.EventVerifier
	payment.ProviderLookup
	provider.Checkout
}

type BuildResult struct {
	Config  config.Config
	API     *httpapi.Server
	Store   *payment.Store
	Sweeper *payment.Sweeper
	Metrics *observability.Metrics

	// ProviderName records which backend handles payments ("stripe" or
	// "mock"), for startup logging.
	ProviderName string

	// Cleanup should be called on shutdown to release external resources.
	Cleanup func() error
}

// Build wires the full service graph from configuration. Components are
// connected through hooks here rather than importing each other, so each
// package stays testable in isolation.
func Build(ctx context.Context, cfg config.Config, log zerolog.Logger) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	archive, err := orders.NewArchive(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("order archive init failed: %w", err)
	}

	prov, providerName := resolveProvider(cfg, log)

	store := payment.NewStore()

	reconciler := payment.NewReconciler(store, log.With().Str("component", "reconciler").Logger())
	reconciler.SetCompleteHook(func(rec payment.Record) {
		saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := archive.SaveOrder(saveCtx, orders.Order{
			SessionID:     rec.SessionID,
			CustomerEmail: rec.CustomerEmail,
			AmountTotal:   rec.AmountTotal,
			Currency:      rec.Currency,
			CompletedAt:   rec.LastEventAt,
		})
		if err != nil {
			// Best effort: the hook fires once per session, so a failed
			// write is logged rather than turned into a webhook retry.
			log.Warn().Err(err).Str("session_id", rec.SessionID).Msg("order archive write failed")
			return
		}
		metrics.OrdersArchived.Inc()
	})

	reader := payment.NewStatusReader(store, prov, cfg.LookupTimeout,
		log.With().Str("component", "reader").Logger())
	reader.SetFallbackHook(func(result string) {
		metrics.LookupFallbacks.WithLabelValues(result).Inc()
	})

	sweeper := payment.NewSweeper(store, cfg.SessionRetention, cfg.SweepInterval,
		log.With().Str("component", "sweeper").Logger())
	sweeper.SetEvictHook(func(count int) {
		if count > 0 {
			metrics.SweeperEvictions.Add(float64(count))
		}
		metrics.TrackedSessions.Set(float64(store.Len()))
	})

	api := httpapi.New(cfg, httpapi.Deps{
		Store:      store,
		Reconciler: reconciler,
		Reader:     reader,
		Verifier:   prov,
		Checkout:   prov,
		Archive:    archive,
		Metrics:    metrics,
	}, log.With().Str("component", "httpapi").Logger())

	return &BuildResult{
		Config:       cfg,
		API:          api,
		Store:        store,
		Sweeper:      sweeper,
		Metrics:      metrics,
		ProviderName: providerName,
		Cleanup:      archive.Close,
	}, nil
}

// resolveProvider picks Stripe when credentials are present and falls back
// to the in-process mock otherwise, so the service always starts in local
// development.
func resolveProvider(cfg config.Config, log zerolog.Logger) (paymentProvider, string) {
	if strings.TrimSpace(cfg.StripeSecretKey) != "" && strings.TrimSpace(cfg.StripeWebhookSecret) != "" {
		return provider.NewStripe(provider.StripeConfig{
			SecretKey:        cfg.StripeSecretKey,
			WebhookSecret:    cfg.StripeWebhookSecret,
			WebhookTolerance: cfg.StripeWebhookTolerance,
			BaseURL:          cfg.BaseURL,
		}), "stripe"
	}
	log.Warn().Msg("stripe credentials not set, using mock payment provider (webhook signatures are NOT checked)")
	return provider.NewMock(), "mock"
}
