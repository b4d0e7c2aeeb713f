// Package main is the entrypoint for the ARITANA API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ALEXSANDER2002/aritana/internal/api"
	"github.com/ALEXSANDER2002/aritana/internal/api/handler"
	mw "github.com/ALEXSANDER2002/aritana/internal/api/middleware"
	"github.com/ALEXSANDER2002/aritana/internal/cache"
	"github.com/ALEXSANDER2002/aritana/internal/config"
	"github.com/ALEXSANDER2002/aritana/internal/gateway"
	"github.com/ALEXSANDER2002/aritana/internal/logging"
	"github.com/ALEXSANDER2002/aritana/internal/reconcile"
	"github.com/ALEXSANDER2002/aritana/internal/store"
	"github.com/ALEXSANDER2002/aritana/internal/submission"
	"github.com/ALEXSANDER2002/aritana/internal/telemetry"
	"github.com/ALEXSANDER2002/aritana/internal/timeline"
)

const shutdownTimeout = 30 * time.Second

const migrationsDir = "migrations"

func main() {
	logging.Setup(os.Stdout, logging.Options{})

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Setup(os.Stdout, logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	slog.Info("config loaded", "env", cfg.Server.Env, "gateway", cfg.Gateway.BaseURL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, migrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Metrics and gateway client
	metrics := telemetry.NewProvider()
	gw := gateway.NewHTTPClient(gatewayOptions(cfg.Gateway), gateway.WithMetrics(metrics))

	// 6. Create store
	pgStore := store.NewPostgresStore(pool)

	// 7. Build router with dependencies
	router := newRouter(cfg, pgStore, redisCache, gw, metrics)

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 60 * time.Second,
		// Uploads wait up to the gateway's submit timeout.
		WriteTimeout: cfg.Gateway.SubmitTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

func gatewayOptions(cfg config.GatewayConfig) gateway.Options {
	return gateway.Options{
		BaseURL:         cfg.BaseURL,
		APIKey:          cfg.APIKey,
		SubmitTimeout:   cfg.SubmitTimeout,
		PollTimeout:     cfg.PollTimeout,
		FetchTimeout:    cfg.FetchTimeout,
		HealthTimeout:   cfg.HealthTimeout,
		CatalogTimeout:  cfg.CatalogTimeout,
		MaxRetries:      cfg.MaxRetries,
		RetryInterval:   cfg.RetryInterval,
		CatalogPageSize: cfg.CatalogPageSize,
		CatalogMaxPages: cfg.CatalogMaxPages,
	}
}

// newRouter wires the services on top of the store, cache and gateway.
func newRouter(cfg *config.Config, st store.Store, ca cache.Cache, gw gateway.Client, metrics *telemetry.Provider) http.Handler {
	engine := reconcile.NewEngine(gw, st, ca,
		reconcile.WithMaxAttempts(cfg.Tracking.MaxPollAttempts),
		reconcile.WithMetrics(metrics))
	history := timeline.NewService(gw, st, ca, timeline.Options{
		DefaultPageSize: cfg.Timeline.PageSize,
		MaxPageSize:     cfg.Timeline.MaxPageSize,
		CatalogTTL:      cfg.Cache.CatalogTTL,
		ListingTTL:      cfg.Cache.ListingTTL,
		StatsTTL:        cfg.Cache.StatsTTL,
		RemoteZone:      cfg.Timeline.Location(),
	}, timeline.WithMetrics(metrics))
	uploads := submission.NewService(gw, st, ca, submission.WithMetrics(metrics))

	return api.NewRouter(api.Dependencies{
		RateLimit:  mw.NewRateLimit(ca, cfg.RateLimit.PerMinute),
		Metrics:    metrics,
		TrustProxy: cfg.RateLimit.TrustProxy,

		HealthHandler:        handler.NewHealthHandler(st, ca),
		GatewayHealthHandler: handler.NewGatewayHealthHandler(gw),
		UploadHandler:        handler.NewUploadHandler(uploads),
		ListJobsHandler:      handler.NewListJobsHandler(st),
		JobStatusHandler:     handler.NewJobStatusHandler(engine),
		HistoryHandler:       handler.NewHistoryHandler(history),
		StatsHandler:         handler.NewStatsHandler(history),
		RegionsHandler:       handler.NewRegionsHandler(history),
	})
}
