// Package job provides the job parent command and subcommands.
package job

import (
	"github.com/spf13/cobra"

	"github.com/leefowlercu/batch-monitor/cmd/job/subcommands"
)

// JobCmd is the parent command for reporting and inspecting job runs.
var JobCmd = &cobra.Command{
	Use:   "job",
	Short: "Report and inspect batch job runs",
	Long: "Report and inspect batch job runs on a running batchmon service.\n\n" +
		"Use 'start' and 'end' from scripts that manage their own lifecycle, or 'run' to " +
		"wrap a command so its start, end and exit status are reported automatically. " +
		"The service address comes from client.url unless --server is given.",
}

func init() {
	JobCmd.PersistentFlags().StringVar(&subcommands.ServerURL, "server", "",
		"Base URL of the batchmon service (overrides client.url)")

	JobCmd.AddCommand(subcommands.StartCmd)
	JobCmd.AddCommand(subcommands.EndCmd)
	JobCmd.AddCommand(subcommands.GetCmd)
	JobCmd.AddCommand(subcommands.ListCmd)
	JobCmd.AddCommand(subcommands.RunCmd)
}
