package subcommands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/batch-monitor/internal/config"
)

// ValidateCmd validates the configuration file.
var ValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Validate the configuration file",
	Long: "Validate the configuration file.\n\n" +
		"Checks the configuration file for syntax errors and validates that all " +
		"settings have valid values. Validates the active config file unless a path " +
		"is given. Returns exit code 0 if valid, 1 if invalid.",
	Example: `  # Validate the active configuration
  batchmon config validate

  # Validate a file before deploying it
  batchmon config validate ./config.yaml`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: validateValidate,
	RunE:    runValidate,
}

func validateValidate(cmd *cobra.Command, args []string) error {
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	configPath := config.GetConfigPath()
	if len(args) == 1 {
		configPath = args[0]
	}

	if !config.ConfigExistsAt(configPath) {
		if len(args) == 1 {
			return fmt.Errorf("no configuration file at %s", configPath)
		}
		fmt.Fprintf(out, "No configuration file found at %s\n", configPath)
		fmt.Fprintln(out, "Using default configuration values.")
		return nil
	}

	// LoadFromPath also validates.
	if _, err := config.LoadFromPath(configPath); err != nil {
		fmt.Fprintln(out, "Configuration validation failed:")
		var verrs config.ValidationErrors
		if errors.As(err, &verrs) {
			for _, verr := range verrs {
				fmt.Fprintf(out, "  - %v\n", verr)
			}
		} else {
			fmt.Fprintf(out, "  %v\n", err)
		}
		return fmt.Errorf("configuration is invalid")
	}

	fmt.Fprintf(out, "Configuration is valid: %s\n", configPath)
	return nil
}
