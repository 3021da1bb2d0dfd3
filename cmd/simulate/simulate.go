// Package simulate provides the simulate command that runs demo batch jobs.
package simulate

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/batch-monitor/internal/cmdutil"
	"github.com/leefowlercu/batch-monitor/internal/config"
	"github.com/leefowlercu/batch-monitor/internal/export"
	"github.com/leefowlercu/batch-monitor/internal/simulate"
)

var (
	simRounds   int
	simSpeed    float64
	simParallel bool
	simJobs     []string
	simOutput   string
)

// SimulateCmd runs demo batch jobs against the configured store.
var SimulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run demo batch jobs to populate metrics",
	Long: "Run demo batch jobs against the configured store to populate metrics.\n\n" +
		"Each job sleeps for a fixed time between 2 and 9 seconds derived from its name; " +
		"runs planned to take 8 seconds or more are recorded as failed. --speed divides the " +
		"sleep time. Runs are written to the configured store, so a 'batchmon serve' using " +
		"the same SQLite database or Redis instance reports them on its next scrape. " +
		"When the simulation finishes, finished runs are exported as JSON to --output.",
	Example: `  # Three rounds of the default jobs, in real time
  batchmon simulate

  # Ten rounds, 20x faster, jobs of a round in parallel
  batchmon simulate --rounds 10 --speed 20 --parallel

  # Custom job names, no export file
  batchmon simulate --jobs backup,vacuum --output ""`,
	Args:    cobra.NoArgs,
	PreRunE: validateSimulate,
	RunE:    runSimulate,
}

func init() {
	SimulateCmd.Flags().IntVarP(&simRounds, "rounds", "r", simulate.DefaultRounds, "Number of times each job runs")
	SimulateCmd.Flags().Float64Var(&simSpeed, "speed", 1, "Speed-up factor applied to job durations")
	SimulateCmd.Flags().BoolVar(&simParallel, "parallel", false, "Run the jobs of a round concurrently")
	SimulateCmd.Flags().StringSliceVar(&simJobs, "jobs", nil, "Job names to run (default: the demo jobs)")
	SimulateCmd.Flags().StringVarP(&simOutput, "output", "o", "job_metrics.json", "JSON export written after the simulation (empty to skip)")
}

func validateSimulate(cmd *cobra.Command, args []string) error {
	if simRounds < 1 {
		return fmt.Errorf("--rounds must be at least 1")
	}
	if simSpeed <= 0 {
		return fmt.Errorf("--speed must be positive")
	}

	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, st, err := cmdutil.OpenRegistry(ctx, config.Current())
	if err != nil {
		return err
	}
	defer st.Close()

	sim := simulate.New(registry)
	res, err := sim.Run(ctx, simulate.Options{
		Jobs:     simJobs,
		Rounds:   simRounds,
		Speed:    simSpeed,
		Parallel: simParallel,
	})
	if err != nil {
		return fmt.Errorf("simulation stopped; %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Simulated %d run(s): %d completed, %d failed in %s\n",
		len(res.Runs), res.Completed, res.Failed, res.Elapsed.Round(time.Millisecond))

	if simOutput == "" {
		return nil
	}

	path, err := cmdutil.ResolvePath(simOutput)
	if err != nil {
		return fmt.Errorf("failed to resolve output path; %w", err)
	}

	opts := export.DefaultExportOptions()
	stats, err := export.NewExporter(registry).ExportToFile(context.WithoutCancel(ctx), path, opts)
	if err != nil {
		return fmt.Errorf("failed to export jobs; %w", err)
	}
	fmt.Fprintf(out, "Exported %d job(s) to %s\n", stats.JobCount, path)
	return nil
}
