package cmdutil

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leefowlercu/batch-monitor/internal/client"
	"github.com/leefowlercu/batch-monitor/internal/config"
	"github.com/leefowlercu/batch-monitor/internal/jobs"
	"github.com/leefowlercu/batch-monitor/internal/metrics"
	"github.com/leefowlercu/batch-monitor/internal/store"
)

// OpenRegistry opens the configured store and wraps it in a registry.
// The caller must Close the returned store.
func OpenRegistry(ctx context.Context, cfg *config.Config) (*jobs.Registry, jobs.Store, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("config not initialized")
	}

	st, err := store.Open(ctx, cfg.Store, slog.Default())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open job store; %w", err)
	}

	reg := jobs.NewRegistry(st,
		jobs.WithLogger(slog.Default()),
		jobs.WithRecorder(metrics.OperationRecorder{}),
	)
	return reg, st, nil
}

// NewClient returns a client for the server named in the current config.
// A non-empty serverURL overrides client.url.
func NewClient(serverURL string) (*client.Client, error) {
	cfg := config.Current()
	c, err := client.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if serverURL != "" {
		c = client.New(serverURL, client.WithTimeout(cfg.Client.TimeoutDuration()))
	}
	return c, nil
}
