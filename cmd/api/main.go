// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

// Command api is the entry point for the SindicApp authentication API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Build the token codec and the auth stores.
//  7. Start the expired-session janitor.
//  8. Start HTTP server with graceful shutdown.
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

	"github.com/EduNauta/sindicapp/internal/api"
	"github.com/EduNauta/sindicapp/internal/platform/config"
	"github.com/EduNauta/sindicapp/internal/platform/constants"
	"github.com/EduNauta/sindicapp/internal/platform/metrics"
	"github.com/EduNauta/sindicapp/internal/platform/migration"
	pgstore "github.com/EduNauta/sindicapp/internal/platform/postgres"
	redisstore "github.com/EduNauta/sindicapp/internal/platform/redis"
	"github.com/EduNauta/sindicapp/internal/platform/sec"
	"github.com/EduNauta/sindicapp/internal/users/auth"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Token settings are checked before any connection is opened, so a
	// missing secret fails fast.
	codecConfig, err := cfg.CodecConfig()
	must(log, err, "read token settings")
	codec, err := sec.NewTokenCodec(codecConfig)
	must(log, err, "initialize token codec")

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	db := pgstore.OpenDB(pool)
	defer func() {
		log.Info("closing postgres pool")
		_ = db.Close()
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Auth Core ──────────────────────────────────────────────────────
	registry := metrics.New()

	authService := auth.NewService(auth.Dependencies{
		Identities:         auth.NewIdentityStore(db),
		Sessions:           auth.NewSessionLedger(db, codec.RefreshTTL()),
		ResetTokens:        auth.NewResetTokenVault(rdb),
		VerificationTokens: auth.NewVerificationTokenVault(rdb),
		Codec:              codec,
		Hasher:             sec.NewPasswordHasher(cfg.PasswordHashCost),
		Metrics:            registry,
		Logger:             log,
		ExposeActionTokens: cfg.ExposeActionTokens,
	})

	// Root context for background workers and per-IP limiters.
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// ── 7. Session Janitor ────────────────────────────────────────────────
	janitor := auth.NewJanitor(authService, cfg.SessionCleanupInterval, log)
	go janitor.Run(appCtx)

	// ── 8. HTTP Server ────────────────────────────────────────────────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func(ctx context.Context) error {
			return pgstore.Ping(ctx, pool)
		},
		CheckCache: func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		},
	}, log)

	server := api.NewServer(appCtx, cfg, log, registry, authService, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      auth.NewHandler(authService),
	})

	// ── 9. Graceful Shutdown ──────────────────────────────────────────────
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
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	appCancel()

	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned
// and handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
