// Package main is the entrypoint for the GenomeHub analysis server.
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
	"github.com/prairiebio/genomehub/internal/api"
	"github.com/prairiebio/genomehub/internal/api/handler"
	mw "github.com/prairiebio/genomehub/internal/api/middleware"
	"github.com/prairiebio/genomehub/internal/api/response"
	"github.com/prairiebio/genomehub/internal/cache"
	"github.com/prairiebio/genomehub/internal/catalog"
	"github.com/prairiebio/genomehub/internal/config"
	"github.com/prairiebio/genomehub/internal/estimate"
	"github.com/prairiebio/genomehub/internal/events"
	"github.com/prairiebio/genomehub/internal/executor"
	"github.com/prairiebio/genomehub/internal/orchestrator"
	"github.com/prairiebio/genomehub/internal/recommend"
	"github.com/prairiebio/genomehub/internal/store"
)

const (
	shutdownTimeout = 30 * time.Second

	// simulatedStepDuration paces the built-in step executor so progress
	// events are observable during local development.
	simulatedStepDuration = 2 * time.Second
)

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
	// .env is a local development convenience; absence is not an error.
	_ = godotenv.Load()

	// 1. Load config, failing fast on invalid values
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "workers", cfg.Worker.PoolSize)

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

	// 5. Create store and domain engines
	pgStore := store.NewPostgresStore(pool)

	cat := catalog.New(pgStore)
	est := estimate.NewEngine(cfg.Estimate)
	rec := recommend.New(cat, est, cfg.Recommend)

	// 6. Event fanout: in-process bus for SSE subscribers plus a Redis
	// relay so other instances can observe job progress.
	bus := events.NewBus()
	fanout := events.Fanout{bus, events.NewRedisRelay(redisCache)}

	// 7. Job lifecycle manager with the simulated step executor
	registry := executor.NewRegistry(executor.NewSimulated(simulatedStepDuration))
	svc := orchestrator.NewService(pgStore, cat, est, fanout, registry, redisCache, cfg.Worker.QueueCapacity)

	workerErr := make(chan error, 1)
	go func() {
		workerErr <- svc.Run(ctx, cfg.Worker.PoolSize)
	}()

	// 8. Build router with dependencies
	auth := mw.NewAuth(pgStore)
	rateLimit := mw.NewRateLimit(redisCache, 60)

	deps := api.Dependencies{
		Auth:      auth,
		RateLimit: rateLimit,

		HealthHandler: healthHandler(pgStore, redisCache),

		SubmitJob: handler.NewSubmitJobHandler(svc),
		GetJob:    handler.NewGetJobHandler(svc),
		ListJobs:  handler.NewListJobsHandler(svc),
		CancelJob: handler.NewCancelJobHandler(svc),
		CloneJob:  handler.NewCloneJobHandler(svc),
		DeleteJob: handler.NewDeleteJobHandler(svc),
		JobEvents: handler.NewJobEventsHandler(svc, bus),

		RegisterPipeline: handler.NewRegisterPipelineHandler(cat),
		GetPipeline:      handler.NewGetPipelineHandler(cat),
		ListPipelines:    handler.NewListPipelinesHandler(cat),
		UpdatePipeline:   handler.NewUpdatePipelineHandler(cat),
		PublishPipeline:  handler.NewPublishPipelineHandler(cat),
		DeletePipeline:   handler.NewDeletePipelineHandler(cat),

		Recommendations: handler.NewRecommendationsHandler(rec, pgStore),
	}

	router := api.NewRouter(deps)

	// 9. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE connections stay open indefinitely
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
	case err := <-workerErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("worker pool: %w", err)
		}
		slog.Info("worker pool stopped")
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
