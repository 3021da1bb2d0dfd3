package subcommands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/batch-monitor/internal/cmdutil"
	"github.com/leefowlercu/batch-monitor/internal/jobs"
)

var startJSON bool

// StartCmd registers the start of a job run.
var StartCmd = &cobra.Command{
	Use:   "start <job-name>",
	Short: "Register the start of a job run",
	Long: "Register the start of a job run and print its id.\n\n" +
		"Every call creates a new run with a fresh id, even when a run with the same " +
		"name is already in progress. Pass the printed id to 'batchmon job end'.",
	Example: `  # Start a run and keep its id
  JOB_ID=$(batchmon job start etl_job)

  # Print the full record as JSON
  batchmon job start etl_job --json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: validateStart,
	RunE:    runStart,
}

func init() {
	StartCmd.Flags().BoolVar(&startJSON, "json", false, "Print the job record as JSON")
}

func validateStart(cmd *cobra.Command, args []string) error {
	if err := jobs.ValidateName(args[0]); err != nil {
		return err
	}

	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runStart(cmd *cobra.Command, args []string) error {
	c, err := cmdutil.NewClient(ServerURL)
	if err != nil {
		return err
	}

	rec, err := c.StartJob(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to start job; %w", err)
	}

	if startJSON {
		return writeRecordJSON(cmd.OutOrStdout(), rec)
	}
	fmt.Fprintln(cmd.OutOrStdout(), rec.ID)
	return nil
}
