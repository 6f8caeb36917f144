package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/uweb3bank/cardadmin/internal/config"
	"github.com/uweb3bank/cardadmin/internal/infra"
	"github.com/uweb3bank/cardadmin/internal/logging"
	"github.com/uweb3bank/cardadmin/internal/notification"
	"github.com/uweb3bank/cardadmin/internal/reconcile"
	"github.com/uweb3bank/cardadmin/internal/server"
	"github.com/uweb3bank/cardadmin/internal/upstream"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.AppName)

	ctx := context.Background()

	db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		if !cfg.IsDev() {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		logger.Warn("postgres unavailable, using in-memory store", "error", err)
	}
	if db != nil {
		defer db.Close()
	}

	cache, err := infra.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		if !cfg.IsDev() {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		logger.Warn("redis unavailable, idempotency disabled", "error", err)
	}
	if cache != nil {
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	}

	var client upstream.Client
	if cfg.UpstreamBaseURL != "" {
		httpClient, err := upstream.NewHTTPClient(upstream.Options{
			BaseURL:   cfg.UpstreamBaseURL,
			APIKey:    cfg.UpstreamAPIKey,
			APISecret: cfg.UpstreamSecret,
			Timeout:   cfg.UpstreamTimeout,
			Logger:    logger,
		})
		if err != nil {
			logger.Error("build upstream client", "error", err)
			os.Exit(1)
		}
		client = httpClient
	} else {
		logger.Warn("CARD_API_BASE_URL unset, using simulated issuing platform")
		client = upstream.NewStatic()
	}

	srv, err := server.New(cfg, db, cache, client, logger)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	sweeper := reconcile.NewSweeper(srv.Services().Reconcile, notification.NewLoggerNotifier(logger), logger)
	if err := sweeper.Start(cfg.SyncSchedule); err != nil {
		logger.Error("start reconciliation sweep", "error", err)
		os.Exit(1)
	}
	defer sweeper.Stop()

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}
