package subcommands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/batch-monitor/internal/config"
)

var (
	resetConfirm  bool
	resetNoBackup bool
)

// ResetCmd overwrites the configuration file with default values.
var ResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset configuration to default values",
	Long: "Reset configuration to default values.\n\n" +
		"Overwrites the active configuration file with every setting at its default. " +
		"The previous file is kept as config.yaml.backup.<unix time> unless --no-backup " +
		"is given. A running service applies reloadable settings on its own; store and " +
		"server settings take effect after a restart.",
	Example: `  # Reset configuration (prompts for confirmation)
  batchmon config reset

  # Reset without prompting or keeping a backup
  batchmon config reset --confirm --no-backup`,
	Args:    cobra.NoArgs,
	PreRunE: validateReset,
	RunE:    runReset,
}

func init() {
	ResetCmd.Flags().BoolVar(&resetConfirm, "confirm", false, "Skip confirmation prompt")
	ResetCmd.Flags().BoolVar(&resetNoBackup, "no-backup", false, "Do not keep a copy of the current file")
}

func validateReset(cmd *cobra.Command, args []string) error {
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configPath := config.GetConfigPath()

	if !config.ConfigExistsAt(configPath) {
		fmt.Fprintf(out, "No configuration file at %s; defaults are already in effect.\n", configPath)
		return nil
	}

	if !resetConfirm && !confirm(cmd, fmt.Sprintf("Overwrite %s with default values?", configPath)) {
		fmt.Fprintln(out, "Reset cancelled.")
		return nil
	}

	if !resetNoBackup {
		backupPath, err := backupFile(configPath, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Backup created: %s\n", backupPath)
	}

	defaults := config.NewDefaultConfig()
	if err := config.Write(&defaults, configPath); err != nil {
		return err
	}

	fmt.Fprintf(out, "Configuration reset to defaults: %s\n", configPath)
	return nil
}

// confirm asks a yes/no question on the command's streams. Only "y" or
// "yes" confirm.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)

	var response string
	fmt.Fscanln(cmd.InOrStdin(), &response)

	switch strings.ToLower(strings.TrimSpace(response)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func backupFile(path string, now time.Time) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read config for backup; %w", err)
	}

	backupPath := fmt.Sprintf("%s.backup.%d", path, now.Unix())
	if err := os.WriteFile(backupPath, data, 0600); err != nil {
		return "", fmt.Errorf("failed to create backup; %w", err)
	}
	return backupPath, nil
}
