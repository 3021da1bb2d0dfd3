// Package subcommands implements the service subcommands.
package subcommands

import (
	"context"
	"os"

	"github.com/leefowlercu/batch-monitor/internal/cmdutil"
	"github.com/leefowlercu/batch-monitor/internal/config"
	"github.com/leefowlercu/batch-monitor/internal/server"
	"github.com/leefowlercu/batch-monitor/internal/servicemanager"
)

// newManager builds the platform service manager. Tests replace it.
var newManager = func() (servicemanager.Manager, error) {
	return servicemanager.New(managerOptions())
}

func managerOptions() servicemanager.Options {
	return servicemanager.Options{
		ConfigDir: os.Getenv(config.EnvPrefix + "_CONFIG_DIR"),
		Health:    readiness,
	}
}

// readiness asks the configured server for /readyz.
func readiness(ctx context.Context) (*server.ReadyzResponse, error) {
	c, err := cmdutil.NewClient("")
	if err != nil {
		return nil, err
	}
	return c.Ready(ctx)
}
