package subcommands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// UninstallCmd stops and removes the service.
var UninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Stop, disable and remove the batchmon service",
	Long: "Stop, disable and remove the batchmon service.\n\n" +
		"The job store and configuration are left in place.",
	Example: `  batchmon service uninstall`,
	Args:    cobra.NoArgs,
	PreRunE: validateUninstall,
	RunE:    runUninstall,
}

func validateUninstall(cmd *cobra.Command, args []string) error {
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runUninstall(cmd *cobra.Command, args []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}

	installed, err := mgr.IsInstalled()
	if err != nil {
		return fmt.Errorf("failed to check service installation; %w", err)
	}
	if !installed {
		fmt.Fprintln(cmd.OutOrStdout(), "Service is not installed.")
		return nil
	}

	if err := mgr.Uninstall(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Service uninstalled.")
	return nil
}
