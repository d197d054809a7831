package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/payphone/payphone/internal/config"
	"github.com/payphone/payphone/internal/infra"
	"github.com/payphone/payphone/internal/logging"
	"github.com/payphone/payphone/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.AppName)

	ctx := context.Background()

	db, err := openPostgres(ctx, cfg, logger)
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
		if cfg.AutoMigrate {
			if err := infra.Migrate(ctx, db); err != nil {
				logger.Error("migrate schema", "error", err)
				os.Exit(1)
			}
		}
	}

	cache, err := openRedis(ctx, cfg, logger)
	if err != nil {
		logger.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if cache != nil {
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	}

	handle, closeLedger := infra.OpenLedger(ctx, cfg, logger)
	defer closeLedger()

	srv, err := server.New(cfg, db, cache, handle, logger)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

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

// openPostgres returns a nil pool in development when DATABASE_URL is unset.
func openPostgres(ctx context.Context, cfg config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" && cfg.IsDev() {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
		return nil, nil
	}
	return infra.NewPostgresPool(ctx, cfg.DatabaseURL)
}

// openRedis returns a nil client in development when REDIS_URL is unset.
func openRedis(ctx context.Context, cfg config.Config, logger *slog.Logger) (*redis.Client, error) {
	if cfg.RedisURL == "" && cfg.IsDev() {
		logger.Warn("REDIS_URL not set, idempotency and inbox fall back to memory")
		return nil, nil
	}
	return infra.NewRedisClient(ctx, cfg.RedisURL)
}
