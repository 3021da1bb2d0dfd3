// Package service provides the service parent command and subcommands.
package service

import (
	"github.com/spf13/cobra"

	"github.com/leefowlercu/batch-monitor/cmd/service/subcommands"
)

// ServiceCmd is the parent command for installing and controlling the background service.
var ServiceCmd = &cobra.Command{
	Use:   "service",
	Short: "Install and control batchmon as a user service",
	Long: "Install and control batchmon as a user service.\n\n" +
		"Runs 'batchmon serve' under the platform service manager: a systemd user unit " +
		"(Type=notify) on Linux or a launchd agent on macOS. The service restarts on " +
		"failure and starts at login once installed.",
}

func init() {
	ServiceCmd.AddCommand(subcommands.InstallCmd)
	ServiceCmd.AddCommand(subcommands.UninstallCmd)
	ServiceCmd.AddCommand(subcommands.StartCmd)
	ServiceCmd.AddCommand(subcommands.StopCmd)
	ServiceCmd.AddCommand(subcommands.RestartCmd)
	ServiceCmd.AddCommand(subcommands.ReloadCmd)
	ServiceCmd.AddCommand(subcommands.StatusCmd)
}
