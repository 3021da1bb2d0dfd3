package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	configcmd "github.com/leefowlercu/batch-monitor/cmd/config"
	exportcmd "github.com/leefowlercu/batch-monitor/cmd/export"
	"github.com/leefowlercu/batch-monitor/cmd/job"
	"github.com/leefowlercu/batch-monitor/cmd/prune"
	"github.com/leefowlercu/batch-monitor/cmd/serve"
	"github.com/leefowlercu/batch-monitor/cmd/service"
	"github.com/leefowlercu/batch-monitor/cmd/simulate"
	versioncmd "github.com/leefowlercu/batch-monitor/cmd/version"
	"github.com/leefowlercu/batch-monitor/internal/config"
	"github.com/leefowlercu/batch-monitor/internal/logging"
)

// logManager is the global logging manager, created in init() and upgraded after config loads
var logManager *logging.Manager

var batchmonCmd = &cobra.Command{
	Use:   "batchmon",
	Short: "Track batch job runs and expose them as Prometheus metrics",
	Long: "Batchmon records the start and end of batch job runs and exposes their durations " +
		"and outcomes as Prometheus metrics for dashboards and alerting.\n\n" +
		"Run 'batchmon serve' to start the service, then report job runs with " +
		"'batchmon job start' and 'batchmon job end', or wrap a command with 'batchmon job run'. " +
		"Job records are persisted in SQLite by default, or in Redis.",
	PersistentPreRunE: runInitialize,
}

func init() {
	logManager = logging.NewManager()

	batchmonCmd.AddCommand(serve.ServeCmd)
	batchmonCmd.AddCommand(service.ServiceCmd)
	batchmonCmd.AddCommand(job.JobCmd)
	batchmonCmd.AddCommand(exportcmd.ExportCmd)
	batchmonCmd.AddCommand(prune.PruneCmd)
	batchmonCmd.AddCommand(simulate.SimulateCmd)
	batchmonCmd.AddCommand(configcmd.ConfigCmd)
	batchmonCmd.AddCommand(versioncmd.VersionCmd)
}

func runInitialize(cmd *cobra.Command, args []string) error {
	logger := logManager.Logger()
	slog.SetDefault(logger)

	if err := config.Init(); err != nil {
		return err
	}

	cfg := config.Current()
	level, ok := logging.ParseLevel(cfg.LogLevel)
	if !ok && cfg.LogLevel != "" {
		logger.Warn("invalid log level configured, using default", "configured", cfg.LogLevel, "default", "info")
	}

	fo := logging.FileOptions{
		Path:       config.ExpandHome(cfg.LogFile),
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	}
	if err := logManager.Upgrade(fo, level); err != nil {
		// Continue in bootstrap mode.
		logger.Warn("failed to enable file logging, continuing with stderr only", "error", err)
	}
	slog.SetDefault(logManager.Logger())

	config.OnReload(func(_, next *config.Config, changed []string) {
		if !slices.Contains(changed, "log_level") {
			return
		}
		lvl := logging.ParseLevelOrDefault(next.LogLevel)
		logManager.SetLevel(lvl)
		slog.Info("log level changed", "level", lvl.String())
	})

	return nil
}

func Execute() error {
	batchmonCmd.SilenceErrors = true
	batchmonCmd.SilenceUsage = true

	defer func() { _ = logManager.Close() }()

	err := batchmonCmd.Execute()

	if err != nil {
		cmd, _, _ := batchmonCmd.Find(os.Args[1:])
		if cmd == nil {
			cmd = batchmonCmd
		}

		fmt.Printf("Error: %v\n", err)
		if !cmd.SilenceUsage {
			fmt.Printf("\n")
			cmd.SetOut(os.Stdout)
			_ = cmd.Usage()
		}

		return err
	}

	return nil
}
