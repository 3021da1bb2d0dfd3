package subcommands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/batch-monitor/internal/config"
)

var (
	initPath  string
	initForce bool
)

// InitCmd writes a configuration file populated with defaults.
var InitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with default values",
	Long: "Write a configuration file with default values.\n\n" +
		"Creates config.yaml at the default location (~/.config/batchmon/config.yaml) " +
		"or at --path, listing every setting with its default value. An existing file " +
		"is left untouched unless --force is given.",
	Example: `  # Create the default config file
  batchmon config init

  # Write a config file for a deployment
  batchmon config init --path ./deploy/config.yaml --force`,
	Args:    cobra.NoArgs,
	PreRunE: validateInit,
	RunE:    runInit,
}

func init() {
	InitCmd.Flags().StringVar(&initPath, "path", "", "Where to write the config file (default ~/.config/batchmon/config.yaml)")
	InitCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}

func validateInit(cmd *cobra.Command, args []string) error {
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runInit(cmd *cobra.Command, args []string) error {
	path := initPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	if config.ConfigExistsAt(path) && !initForce {
		return fmt.Errorf("config file already exists at %s; use --force to overwrite", path)
	}

	cfg := config.NewDefaultConfig()
	if err := config.Write(&cfg, path); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", config.ExpandHome(path))
	return nil
}
