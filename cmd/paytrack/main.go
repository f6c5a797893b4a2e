package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/lcollia/paytrack/internal/app"
	"github.com/lcollia/paytrack/internal/config"
	"github.com/lcollia/paytrack/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		base := logging.Base()
		base.Fatal().Err(err).Msg("config error")
	}
	logging.Configure(logging.Config{Level: cfg.LogLevel})
	log := logging.Base()

	ctx := context.Background()
	result, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("service init failed")
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			log.Warn().Err(err).Msg("cleanup failed")
		}
	}()

	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: result.API.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	result.Sweeper.Start(runCtx)

	go func() {
		log.Info().
			Str("addr", cfg.BindAddr).
			Str("provider", result.ProviderName).
			Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown failed")
		_ = httpServer.Close()
	}

	log.Info().Msg("shutdown complete")
}
