// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Gatekeeper HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Open the persistence adapter (PostgreSQL + migrations, or memory).
//  4. Open the rate limit store (memory or Redis).
//  5. Wire the auth service, dispatcher and HTTP handlers.
//  6. Start background sweepers.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/taibuivan/gatekeeper/data"
	"github.com/taibuivan/gatekeeper/internal/api"
	"github.com/taibuivan/gatekeeper/internal/platform/config"
	"github.com/taibuivan/gatekeeper/internal/platform/constants"
	"github.com/taibuivan/gatekeeper/internal/platform/middleware"
	"github.com/taibuivan/gatekeeper/internal/platform/migration"
	pgstore "github.com/taibuivan/gatekeeper/internal/platform/postgres"
	"github.com/taibuivan/gatekeeper/internal/platform/ratelimit"
	redisstore "github.com/taibuivan/gatekeeper/internal/platform/redis"
	"github.com/taibuivan/gatekeeper/internal/platform/sec"
	"github.com/taibuivan/gatekeeper/internal/users/auth"
	"github.com/taibuivan/gatekeeper/pkg/ids"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("storage_driver", cfg.StorageDriver),
		slog.String("rate_limit_store", cfg.RateLimitStore),
		slog.String("rate_limits", cfg.RateLimits.String()),
	)

	// Root context for background workers, cancelled on shutdown.
	rootCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	// Startup deadline so misconfiguration is caught quickly.
	startupCtx, startupCancel := context.WithTimeout(rootCtx, 30*time.Second)
	defer startupCancel()

	var checks []api.Check

	// ── 3. Persistence Adapter ────────────────────────────────────────────
	var adapter auth.Adapter
	switch cfg.StorageDriver {
	case config.StorageDriverPostgres:
		pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
		must(log, err, "connect to postgres")
		defer func() {
			log.Info("closing_postgres_pool")
			pool.Close()
		}()

		if cfg.MigrationPath != "" {
			err = migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log)
		} else {
			err = migration.RunEmbedded(cfg.DatabaseURL, data.Migrations, data.MigrationsDir, log)
		}
		must(log, err, "run migrations")

		adapter = auth.NewPostgresAdapter(pool)
	default:
		log.Warn("memory_storage_enabled", slog.String("reason", "users and sessions are lost on restart"))
		adapter = auth.NewMemoryAdapter(nil)
	}
	must(log, adapter.Connect(startupCtx), "connect adapter")
	checks = append(checks, api.Check{Name: cfg.StorageDriver, Probe: adapter.Connect})

	// ── 4. Rate Limit Store ───────────────────────────────────────────────
	var store ratelimit.Store
	switch cfg.RateLimitStore {
	case config.RateLimitStoreRedis:
		rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
		must(log, err, "connect to redis")
		defer func() {
			log.Info("closing_redis_client")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis_close_error", slog.Any("error", cerr))
			}
		}()

		redisStore := ratelimit.NewRedisStore(rdb)
		must(log, redisStore.Preload(startupCtx), "load rate limit script")
		store = redisStore
		checks = append(checks, api.Check{Name: "redis", Probe: pingRedis(rdb)})
	default:
		memoryStore := ratelimit.NewMemoryStore(nil)
		go memoryStore.Run(rootCtx, cfg.RateLimitSweepInterval)
		store = memoryStore
	}

	// ── 5. Domain Wiring ──────────────────────────────────────────────────
	generator := ids.NewULID(ids.KindToken)
	service := auth.NewService(auth.ServiceOptions{
		Adapter:      adapter,
		Hasher:       sec.NewHasher(cfg.PasswordKeyLength),
		Issuer:       auth.NewIssuer(generator, cfg.SessionTTL, nil),
		IDs:          generator,
		Requirements: cfg.PasswordRequirements(),
		Debug:        cfg.Debug,
	})
	limiter := ratelimit.New(cfg.RateLimits, store)
	dispatcher := auth.NewDispatcher(service, limiter)

	// ── 6. Background Workers ─────────────────────────────────────────────
	if purger, ok := adapter.(auth.SessionPurger); ok {
		janitor := auth.NewJanitor(purger, cfg.SessionSweepInterval, log)
		go janitor.Run(rootCtx)
	}

	shield := middleware.NewShield(cfg.ShieldRPS, cfg.ShieldBurst)
	go shield.Run(rootCtx, constants.RateLimitCleanupInterval)

	// ── 7. HTTP Server ────────────────────────────────────────────────────
	liveness, readiness := api.NewHealthHandlers(checks, log)
	server := api.NewServer(cfg, log, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Metrics:   api.MetricsHandler(api.NewMetricsRegistry()),
		Auth:      auth.NewHandler(dispatcher),
		Shield:    shield,
	})

	// ── 8. Graceful Shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting_down_server", slog.Duration("timeout", shutdownTimeout))

	stopWorkers()
	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown_error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server_stopped_cleanly")
}

func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("app", constants.AppName))
}

func pingRedis(client goredis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		return redisstore.Ping(ctx, client)
	}
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned
// and handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
