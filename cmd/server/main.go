// Package main is the entrypoint for the DocMark API server.
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

	"github.com/docmark/docmark/internal/api"
	"github.com/docmark/docmark/internal/api/handler"
	mw "github.com/docmark/docmark/internal/api/middleware"
	"github.com/docmark/docmark/internal/audit"
	"github.com/docmark/docmark/internal/auth"
	"github.com/docmark/docmark/internal/cache"
	"github.com/docmark/docmark/internal/config"
	"github.com/docmark/docmark/internal/convert"
	"github.com/docmark/docmark/internal/ratelimit"
	"github.com/docmark/docmark/internal/store"
	"github.com/docmark/docmark/pkg/models"
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
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"env", cfg.Server.Env,
		"auth_enabled", cfg.Auth.Enabled,
		"rate_limit", cfg.RateLimit.Requests,
		"rate_period", cfg.RateLimit.Period,
	)

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

	// 5. Create converter backend
	converter, err := convert.NewConverter(cfg.Converter)
	if err != nil {
		return fmt.Errorf("create converter: %w", err)
	}
	slog.Info("converter initialized", "provider", converter.Name())

	// 6. Governance services
	pgStore := store.NewPostgresStore(pool)
	validator := auth.NewValidator(pgStore, redisCache, cfg.Auth.Enabled, cfg.Auth.CacheTTL)
	limiter := ratelimit.NewLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Period)
	recorder := audit.NewStoreRecorder(pgStore, cfg.Audit.QueueSize)

	go limiter.Janitor(ctx, time.Minute, 10*cfg.RateLimit.Period)

	recorder.Record(models.AuditEvent{
		Actor:  "system",
		Action: models.ActionServiceStart,
		Status: models.AuditSuccess,
		Metadata: map[string]any{
			"version": cfg.Server.Version,
			"env":     cfg.Server.Env,
		},
	})

	// 7. Build router with dependencies
	authMW := mw.NewAuth(validator, cfg.Auth.HeaderName)
	rateLimitMW := mw.NewRateLimit(limiter, recorder)
	convertH := handler.NewConvert(converter, recorder, cfg.Converter.Timeout, cfg.Converter.MaxFileSize)
	adminH := handler.NewAdmin(pgStore, validator, recorder)

	deps := api.Dependencies{
		Auth:      authMW,
		RateLimit: rateLimitMW,

		HealthHandler: handler.NewHealth(pgStore, redisCache, recorder, handler.HealthConfig{
			Version:         cfg.Server.Version,
			AuthEnabled:     cfg.Auth.Enabled,
			RateLimitHits:   cfg.RateLimit.Requests,
			RateLimitPeriod: cfg.RateLimit.Period,
		}),

		ConvertFileHandler: convertH.File,
		ConvertTextHandler: convertH.Text,
		ConvertURLHandler:  convertH.URL,

		CreateUserHandler:    adminH.CreateUser,
		ListUsersHandler:     adminH.ListUsers,
		SetUserStatusHandler: adminH.SetUserStatus,
		CreateKeyHandler:     adminH.CreateKey,
		ListKeysHandler:      adminH.ListKeys,
		DeactivateKeyHandler: adminH.DeactivateKey,
	}

	router := api.NewRouter(deps)

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Converter.Timeout + 30*time.Second,
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

	recorder.Record(models.AuditEvent{
		Actor:  "system",
		Action: models.ActionServiceStop,
		Status: models.AuditSuccess,
	})
	if err := recorder.Close(shutdownCtx); err != nil {
		slog.Warn("audit queue not fully drained", "error", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
