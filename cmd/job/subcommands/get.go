package subcommands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/batch-monitor/internal/cmdutil"
	"github.com/leefowlercu/batch-monitor/internal/jobs"
)

var getJSON bool

// GetCmd shows a single job run.
var GetCmd = &cobra.Command{
	Use:   "get <job-id>",
	Short: "Show a single job run",
	Long:  "Show a single job run, including its duration once it has ended.",
	Example: `  # Show a run
  batchmon job get "$JOB_ID"`,
	Args:    cobra.ExactArgs(1),
	PreRunE: validateGet,
	RunE:    runGet,
}

func init() {
	GetCmd.Flags().BoolVar(&getJSON, "json", false, "Print the job record as JSON")
}

func validateGet(cmd *cobra.Command, args []string) error {
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	c, err := cmdutil.NewClient(ServerURL)
	if err != nil {
		return err
	}

	rec, err := c.GetJob(cmd.Context(), args[0])
	if errors.Is(err, jobs.ErrUnknownJob) {
		return fmt.Errorf("no job with id %s", args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to get job; %w", err)
	}

	if getJSON {
		return writeRecordJSON(cmd.OutOrStdout(), rec)
	}
	describe(cmd.OutOrStdout(), rec)
	return nil
}
