package subcommands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var installStart bool

// InstallCmd writes the service file and enables it.
var InstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install and enable the batchmon service",
	Long: "Install and enable the batchmon service.\n\n" +
		"Writes a systemd user unit (~/.config/systemd/user/batchmon.service) or a launchd " +
		"agent (~/Library/LaunchAgents/com.leefowlercu.batchmon.plist) that runs " +
		"'batchmon serve' with the current binary. BATCHMON_CONFIG_DIR, when set, is " +
		"passed through to the service.",
	Example: `  # Install and enable the service
  batchmon service install

  # Install and start it right away
  batchmon service install --start`,
	Args:    cobra.NoArgs,
	PreRunE: validateInstall,
	RunE:    runInstall,
}

func init() {
	InstallCmd.Flags().BoolVar(&installStart, "start", false, "Start the service after installing")
}

func validateInstall(cmd *cobra.Command, args []string) error {
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runInstall(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	mgr, err := newManager()
	if err != nil {
		return err
	}

	if err := mgr.Install(cmd.Context()); err != nil {
		return err
	}

	path, err := mgr.UnitPath()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Service installed: %s\n", path)

	if installStart {
		if err := mgr.Start(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(out, "Service started.")
	}
	return nil
}
