package subcommands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/batch-monitor/internal/cmdutil"
	"github.com/leefowlercu/batch-monitor/internal/jobs"
)

var (
	endStatus string
	endJSON   bool
)

// EndCmd registers the end of a job run.
var EndCmd = &cobra.Command{
	Use:   "end <job-id>",
	Short: "Register the end of a job run",
	Long: "Register the end of a running job with a terminal status.\n\n" +
		"The status must be 'completed' (the default) or 'failed'. A run can be ended " +
		"only once; ending it again fails without changing the stored record.",
	Example: `  # Mark a run completed
  batchmon job end "$JOB_ID"

  # Mark a run failed
  batchmon job end "$JOB_ID" --status failed`,
	Args:    cobra.ExactArgs(1),
	PreRunE: validateEnd,
	RunE:    runEnd,
}

func init() {
	EndCmd.Flags().StringVarP(&endStatus, "status", "s", string(jobs.StatusCompleted),
		"Terminal status (completed or failed)")
	EndCmd.Flags().BoolVar(&endJSON, "json", false, "Print the job record as JSON")
}

func validateEnd(cmd *cobra.Command, args []string) error {
	status, err := jobs.ParseStatus(endStatus)
	if err != nil {
		return err
	}
	if !status.Terminal() {
		return fmt.Errorf("%w: --status must be completed or failed", jobs.ErrInvalidStatus)
	}

	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runEnd(cmd *cobra.Command, args []string) error {
	c, err := cmdutil.NewClient(ServerURL)
	if err != nil {
		return err
	}

	status, _ := jobs.ParseStatus(endStatus)
	rec, err := c.EndJob(cmd.Context(), args[0], status)
	switch {
	case errors.Is(err, jobs.ErrUnknownJob):
		return fmt.Errorf("no job with id %s", args[0])
	case errors.Is(err, jobs.ErrAlreadyFinished):
		return fmt.Errorf("job %s has already ended", args[0])
	case err != nil:
		return fmt.Errorf("failed to end job; %w", err)
	}

	if endJSON {
		return writeRecordJSON(cmd.OutOrStdout(), rec)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Job %s (%s) %s after %.3fs\n",
		rec.ID, rec.Name, rec.Status, rec.Duration().Seconds())
	return nil
}
