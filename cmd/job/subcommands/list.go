package subcommands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/batch-monitor/internal/cmdutil"
	"github.com/leefowlercu/batch-monitor/internal/jobs"
	"github.com/leefowlercu/batch-monitor/internal/server"
)

var (
	listName   string
	listStatus string
	listLimit  int
	listSince  time.Duration
	listJSON   bool
)

// ListCmd lists recent job runs.
var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent job runs",
	Long: "List recent job runs, newest first.\n\n" +
		"Filter by job name, status, or how long ago the run started.",
	Example: `  # Show the 20 most recent runs
  batchmon job list

  # Show failed runs of one job in the last day
  batchmon job list --name etl_job --status failed --since 24h

  # JSON output for scripting
  batchmon job list --json`,
	Args:    cobra.NoArgs,
	PreRunE: validateList,
	RunE:    runList,
}

func init() {
	ListCmd.Flags().StringVarP(&listName, "name", "n", "", "Only runs of this job name")
	ListCmd.Flags().StringVarP(&listStatus, "status", "s", "", "Only runs with this status (running, completed, failed)")
	ListCmd.Flags().IntVarP(&listLimit, "limit", "l", 20, "Maximum number of runs to show (0 for all)")
	ListCmd.Flags().DurationVar(&listSince, "since", 0, "Only runs started within this duration (e.g. 1h, 24h)")
	ListCmd.Flags().BoolVar(&listJSON, "json", false, "Print runs as JSON")
}

func validateList(cmd *cobra.Command, args []string) error {
	if listStatus != "" {
		if _, err := jobs.ParseStatus(listStatus); err != nil {
			return err
		}
	}
	if listLimit < 0 {
		return fmt.Errorf("--limit must not be negative")
	}
	if listSince < 0 {
		return fmt.Errorf("--since must not be negative")
	}

	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	c, err := cmdutil.NewClient(ServerURL)
	if err != nil {
		return err
	}

	opts := jobs.ListOptions{
		Name:       listName,
		Limit:      listLimit,
		Descending: true,
	}
	if listStatus != "" {
		opts.Status, _ = jobs.ParseStatus(listStatus)
	}
	if listSince > 0 {
		opts.Since = time.Now().Add(-listSince)
	}

	recs, err := c.ListJobs(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("failed to list jobs; %w", err)
	}

	if listJSON {
		resp := server.ListJobsResponse{Jobs: make([]server.JobResponse, 0, len(recs)), Count: len(recs)}
		for _, rec := range recs {
			resp.Jobs = append(resp.Jobs, server.NewJobResponse(rec))
		}
		return writeJSON(cmd.OutOrStdout(), resp)
	}

	cmdutil.PrintJobs(cmd.OutOrStdout(), recs)
	return nil
}
