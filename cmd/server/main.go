package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"crowdboard/internal/app"
	"crowdboard/internal/config"
	"crowdboard/internal/database"
	"crowdboard/internal/journal"
	"crowdboard/internal/live"
	"crowdboard/internal/logging"
	"crowdboard/internal/metrics"
	"crowdboard/internal/retry"
	"crowdboard/internal/server"
	"crowdboard/internal/version"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	p := retry.Policy{
		MaxAttempts:    5,
		InitialBackoff: time.Second,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			slog.Warn("Database not ready, retrying", "attempt", attempt, "backoff_seconds", backoff.Seconds(), "error", err)
		},
	}
	// At boot the database container may still be coming up, so every
	// connect error counts as transient.
	classify := func(error) retry.Action { return retry.Retry }

	pool, err := retry.Do(ctx, p, classify, func() (*pgxpool.Pool, error) {
		return database.Connect(ctx, cfg.DatabaseURL)
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupJournal(cfg *config.Config) *journal.Client {
	client, err := journal.NewClient(cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to create Redis client", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	return client
}

func runGracefulShutdown(srv *server.Server, registry *live.Registry, journalClient *journal.Client) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		registry.Stop()

		if journalClient != nil {
			if err := journalClient.Close(); err != nil {
				slog.Error("Failed to close Redis client", "error", err)
			}
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	info := version.Get()
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", info.String())
	metrics.BuildInfo.WithLabelValues(info.Version, info.Commit, info.BuildTime, info.GoVersion).Set(1)

	pool := setupDB(cfg)
	defer pool.Close()

	store := database.NewStore(pool)
	appSvc := app.NewService(store)

	// Event journal is optional (pass a nil interface to disable replay,
	// never a typed-nil pointer)
	var journalClient *journal.Client
	var eventJournal live.Journal
	if cfg.JournalEnabled() {
		journalClient = setupJournal(cfg)
		eventJournal = journal.New(journalClient, cfg.JournalSize)
		slog.Info("Event journal enabled", "size", cfg.JournalSize)
	} else {
		slog.Info("Event journal disabled, REDIS_URL not configured")
	}

	registry := live.NewRegistry(clock)
	gateway := live.NewGateway(registry, eventJournal)

	healthChecks := []server.HealthCheck{
		{Name: "postgres", Check: func(ctx context.Context) error { return pool.Ping(ctx) }},
	}
	if journalClient != nil {
		healthChecks = append(healthChecks, server.HealthCheck{Name: "redis", Check: journalClient.Ping})
	}

	srv, err := server.NewServer(cfg, clock, appSvc, gateway, healthChecks)
	if err != nil {
		slog.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	done := runGracefulShutdown(srv, registry, journalClient)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
