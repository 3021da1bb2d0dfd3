// Package prune provides the prune command for deleting old job records.
package prune

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/batch-monitor/internal/cmdutil"
	"github.com/leefowlercu/batch-monitor/internal/config"
	"github.com/leefowlercu/batch-monitor/internal/store"
)

var pruneOlderThan time.Duration

// PruneCmd deletes finished job records older than a retention period.
var PruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete finished job runs older than a retention period",
	Long: "Delete finished job runs that ended longer ago than --older-than.\n\n" +
		"Running jobs are never deleted. Pruning lowers batch_job_count_total for the " +
		"affected series, which Prometheus treats as a counter reset. The configured " +
		"store is opened directly, so pruning works whether or not the service is running.",
	Example: `  # Keep 30 days of history
  batchmon prune --older-than 720h`,
	Args:    cobra.NoArgs,
	PreRunE: validatePrune,
	RunE:    runPrune,
}

func init() {
	PruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 30*24*time.Hour, "Retention period; finished runs that ended earlier are deleted")
}

func validatePrune(cmd *cobra.Command, args []string) error {
	if pruneOlderThan <= 0 {
		return fmt.Errorf("--older-than must be positive")
	}
	if config.Current().Store.Backend == store.BackendMemory {
		return fmt.Errorf("cannot prune the memory store of another process")
	}

	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runPrune(cmd *cobra.Command, args []string) error {
	registry, st, err := cmdutil.OpenRegistry(cmd.Context(), config.Current())
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := registry.Prune(cmd.Context(), pruneOlderThan)
	if err != nil {
		return fmt.Errorf("failed to prune jobs; %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d job run(s) that ended more than %s ago\n", n, pruneOlderThan)
	return nil
}
