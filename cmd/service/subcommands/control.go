package subcommands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/batch-monitor/internal/servicemanager"
)

// StartCmd starts the installed service.
var StartCmd = newControlCommand("start", "Start the batchmon service", "started",
	func(ctx context.Context, m servicemanager.Manager) error { return m.Start(ctx) })

// StopCmd stops the running service.
var StopCmd = newControlCommand("stop", "Stop the batchmon service", "stopped",
	func(ctx context.Context, m servicemanager.Manager) error { return m.Stop(ctx) })

// RestartCmd restarts the service.
var RestartCmd = newControlCommand("restart", "Restart the batchmon service", "restarted",
	func(ctx context.Context, m servicemanager.Manager) error { return m.Restart(ctx) })

// ReloadCmd makes the running service re-read its configuration (SIGHUP).
var ReloadCmd = newControlCommand("reload", "Reload the batchmon service configuration", "reloaded",
	func(ctx context.Context, m servicemanager.Manager) error { return m.Reload(ctx) })

func newControlCommand(use, short, done string, action func(context.Context, servicemanager.Manager) error) *cobra.Command {
	return &cobra.Command{
		Use:     use,
		Short:   short,
		Example: fmt.Sprintf("  batchmon service %s", use),
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// All errors after this are runtime errors
			cmd.SilenceUsage = true
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newManager()
			if err != nil {
				return err
			}

			installed, err := mgr.IsInstalled()
			if err != nil {
				return fmt.Errorf("failed to check service installation; %w", err)
			}
			if !installed {
				return fmt.Errorf("service is not installed; run 'batchmon service install' first")
			}

			if err := action(cmd.Context(), mgr); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Service %s.\n", done)
			return nil
		},
	}
}
