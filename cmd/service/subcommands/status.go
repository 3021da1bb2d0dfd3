package subcommands

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/batch-monitor/internal/servicemanager"
)

var statusJSON bool

// StatusCmd shows the service state and health.
var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show service state and health",
	Long: "Show service state and health.\n\n" +
		"Displays whether the service is installed, enabled and running, its PID, and " +
		"the readiness reported by its /readyz endpoint.",
	Example: `  # Check service status
  batchmon service status

  # For scripts
  batchmon service status --json`,
	Args:    cobra.NoArgs,
	PreRunE: validateStatus,
	RunE:    runStatus,
}

func init() {
	StatusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
}

func validateStatus(cmd *cobra.Command, args []string) error {
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}

	status, err := mgr.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get service status; %w", err)
	}

	out := cmd.OutOrStdout()
	if statusJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	fmt.Fprintln(out, formatStatus(status))
	return nil
}

func formatStatus(status servicemanager.Status) string {
	var sb strings.Builder

	if status.State == servicemanager.ServiceStateNotInstalled {
		sb.WriteString("Service: not installed")
		return sb.String()
	}

	fmt.Fprintf(&sb, "Service: %s (%s)", status.State, status.UnitPath)
	if !status.Running {
		sb.WriteString("\nProcess: not running")
		return sb.String()
	}

	fmt.Fprintf(&sb, "\nProcess: running (PID %d)", status.PID)
	switch {
	case status.Health != nil:
		fmt.Fprintf(&sb, "\nHealth:  %s", status.Health.Status)
		fmt.Fprintf(&sb, "\nReady:   %v", status.Health.Ready)
		if status.Health.Backend != "" {
			fmt.Fprintf(&sb, "\nStore:   %s", status.Health.Backend)
		}
		fmt.Fprintf(&sb, "\nUptime:  %s", status.Health.Uptime.Round(time.Second))
		if status.Health.Error != "" {
			fmt.Fprintf(&sb, "\nError:   %s", status.Health.Error)
		}
	case status.HealthError != "":
		fmt.Fprintf(&sb, "\nHealth:  unreachable (%s)", status.HealthError)
	}

	return sb.String()
}
