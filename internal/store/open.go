// Package store selects and opens the configured jobs.Store backend.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leefowlercu/batch-monitor/internal/config"
	"github.com/leefowlercu/batch-monitor/internal/jobs"
	"github.com/leefowlercu/batch-monitor/internal/store/memory"
	"github.com/leefowlercu/batch-monitor/internal/store/redis"
	"github.com/leefowlercu/batch-monitor/internal/store/sqlite"
)

// Backend names accepted in store.backend.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Open connects to the backend named in cfg.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (jobs.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store", "backend", cfg.Backend)

	switch cfg.Backend {
	case BackendSQLite:
		path := config.ExpandHome(cfg.SQLitePath)
		s, err := sqlite.Open(ctx, path,
			sqlite.WithBusyTimeout(time.Duration(cfg.BusyTimeoutMs)*time.Millisecond))
		if err != nil {
			return nil, err
		}
		logger.Info("opened job store", "path", path)
		return s, nil

	case BackendRedis:
		s, err := redis.Open(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.ResolvePassword(),
			DB:       cfg.Redis.DB,
		}, redis.WithKeyPrefix(cfg.Redis.KeyPrefix), redis.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		logger.Info("opened job store", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
		return s, nil

	case BackendMemory:
		logger.Warn("using in-memory job store; records are lost on exit")
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
