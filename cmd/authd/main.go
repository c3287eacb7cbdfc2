// Command authd is the reference passgate server: Postgres-backed
// accounts, Redis-backed login throttling, the httpapi wire surface and a
// Prometheus scrape endpoint, configured entirely from the environment.
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

	"github.com/redis/go-redis/v9"

	"github.com/agit8or1/passgate"
	"github.com/agit8or1/passgate/httpapi"
	"github.com/agit8or1/passgate/metrics/export/prometheus"
	"github.com/agit8or1/passgate/store/postgres"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "authd: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.slogLevel()}))

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error("authd failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *serverConfig, logger *slog.Logger) error {
	store, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	if cfg.MigrateOnStart {
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	builder := passgate.New().
		WithConfig(cfg.engineConfig()).
		WithStore(store).
		WithLogger(logger)

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		builder = builder.WithRedis(rdb)
	} else {
		logger.Warn("REDIS_ADDR not set, login throttling disabled")
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	for _, finding := range engine.SecurityReport().Warnings() {
		logger.Warn("security posture", "finding", finding)
	}

	mux := http.NewServeMux()
	mux.Handle("/", httpapi.NewHandler(engine, logger))
	if cfg.MetricsEnabled {
		mux.Handle("GET /metrics", prometheus.NewCollector(engine).Handler())
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("stopped")
	return nil
}
