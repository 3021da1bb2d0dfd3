// Package config provides the config parent command and subcommands.
package config

import (
	"github.com/spf13/cobra"

	"github.com/leefowlercu/batch-monitor/cmd/config/subcommands"
)

// ConfigCmd is the parent command for all config-related subcommands.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage batchmon configuration",
	Long: "Manage batchmon configuration.\n\n" +
		"Configuration is read from config.yaml in $BATCHMON_CONFIG_DIR, " +
		"~/.config/batchmon or the current directory, in that order. Every key can be " +
		"overridden with a BATCHMON_ environment variable, e.g. BATCHMON_SERVER_PORT.",
}

func init() {
	ConfigCmd.AddCommand(subcommands.ShowCmd)
	ConfigCmd.AddCommand(subcommands.InitCmd)
	ConfigCmd.AddCommand(subcommands.EditCmd)
	ConfigCmd.AddCommand(subcommands.ResetCmd)
	ConfigCmd.AddCommand(subcommands.ValidateCmd)
}
