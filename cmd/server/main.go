// Package main is the entrypoint for the VidScout API server.
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

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"vidscout/internal/api"
	"vidscout/internal/api/handler"
	mw "vidscout/internal/api/middleware"
	"vidscout/internal/api/response"
	"vidscout/internal/cache"
	"vidscout/internal/config"
	"vidscout/internal/orchestrator"
	"vidscout/internal/queue"
	"vidscout/internal/scrape"
	"vidscout/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — a .env file is optional, real env vars win
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded environment from .env")
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env,
		"batch_size", cfg.Scrape.BatchSize, "group_size", cfg.Scrape.GroupSize)

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
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

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

	// 5. Create store, queue client, and scrape client
	pgStore := store.NewPostgresStore(pool)
	queueClient := queue.NewClient(cfg.Queue)
	verifier := queue.NewVerifier(cfg.Queue.SigningKeyCurrent, cfg.Queue.SigningKeyNext)
	if !verifier.Enabled() {
		slog.Warn("no queue signing keys configured, webhook signatures will NOT be verified")
	}
	scrapeClient := scrape.NewClient(cfg.Source, cfg.Scrape.MaxCollectionSize)

	// 6. Create orchestrator
	orch := orchestrator.New(pgStore, queueClient, scrapeClient, scrapeClient, cfg.Scrape)

	// 7. Build router with dependencies
	deps := api.Dependencies{
		Auth:      mw.NewAuth(pgStore),
		RateLimit: mw.NewRateLimit(redisCache, 60),
		Signature: mw.NewSignature(verifier),

		HealthHandler: healthHandler(pgStore, redisCache),

		ItemHookHandler:       handler.NewItemHookHandler(orch),
		CollectionHookHandler: handler.NewCollectionHookHandler(orch),

		EnqueueHandler:       handler.NewEnqueueHandler(orch),
		GetSubmissionHandler: handler.NewGetSubmissionHandler(pgStore),
		ListVideosHandler:    handler.NewListVideosHandler(pgStore),
		GetVideoHandler:      handler.NewGetVideoHandler(pgStore, redisCache),

		RecoverHandler:   handler.NewRecoverHandler(orch),
		CreateKeyHandler: handler.NewCreateKeyHandler(pgStore),
		ListKeysHandler:  handler.NewListKeysHandler(pgStore),
		RevokeKeyHandler: handler.NewRevokeKeyHandler(pgStore),
	}

	router := api.NewRouter(deps)

	// 8. Schedule the recovery sweep
	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.Scrape.RecoverySchedule, func() {
		if _, err := orch.Recover(context.Background()); err != nil {
			slog.Error("scheduled recovery sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule recovery sweep: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("recovery sweep scheduled", "schedule", cfg.Scrape.RecoverySchedule)

	// 9. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks database and cache connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
