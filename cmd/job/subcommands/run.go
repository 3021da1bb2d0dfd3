package subcommands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/batch-monitor/internal/cmdutil"
	"github.com/leefowlercu/batch-monitor/internal/jobs"
)

var runStrict bool

// RunCmd wraps a command in a reported job run.
var RunCmd = &cobra.Command{
	Use:   "run <job-name> -- <command> [args...]",
	Short: "Run a command as a reported job",
	Long: "Run a command as a reported job.\n\n" +
		"The run is registered before the command starts and ended when it exits: " +
		"'completed' on exit status 0, 'failed' otherwise, including when the command " +
		"is interrupted. The command's output is passed through unchanged and a non-zero " +
		"exit is returned as an error.\n\n" +
		"If the service cannot be reached the command still runs and a warning is logged. " +
		"Use --strict to fail instead.",
	Example: `  # Report a nightly ETL run
  batchmon job run etl_job -- python etl.py --date today

  # Refuse to run unreported
  batchmon job run report_generation --strict -- ./generate-report.sh`,
	Args:    cobra.MinimumNArgs(2),
	PreRunE: validateRun,
	RunE:    runRun,
}

func init() {
	RunCmd.Flags().BoolVar(&runStrict, "strict", false, "Fail when the run cannot be reported")
}

func validateRun(cmd *cobra.Command, args []string) error {
	if dash := cmd.ArgsLenAtDash(); dash != -1 && dash != 1 {
		return fmt.Errorf("expected exactly one job name before --")
	}
	if err := jobs.ValidateName(args[0]); err != nil {
		return err
	}

	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runRun(cmd *cobra.Command, args []string) error {
	name, command := args[0], args[1:]

	c, err := cmdutil.NewClient(ServerURL)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reported := true
	rec, err := c.StartJob(ctx, name)
	if err != nil {
		if runStrict {
			return fmt.Errorf("failed to start job; %w", err)
		}
		slog.Warn("failed to report job start; running unreported", "job_name", name, "error", err)
		reported = false
	}

	proc := exec.CommandContext(ctx, command[0], command[1:]...)
	proc.Stdin = cmd.InOrStdin()
	proc.Stdout = cmd.OutOrStdout()
	proc.Stderr = cmd.ErrOrStderr()
	if reported {
		proc.Env = append(os.Environ(), "BATCHMON_JOB_ID="+rec.ID)
	}

	runErr := proc.Run()

	if !reported {
		return commandError(runErr)
	}

	status := jobs.StatusCompleted
	if runErr != nil {
		status = jobs.StatusFailed
	}

	// The end must be reported even when the command was interrupted.
	ended, endErr := c.EndJob(context.WithoutCancel(ctx), rec.ID, status)
	if endErr != nil {
		slog.Error("failed to report job end", "job_id", rec.ID, "status", status, "error", endErr)
		if runStrict {
			return errors.Join(commandError(runErr), fmt.Errorf("failed to end job; %w", endErr))
		}
	} else {
		slog.Info("job run reported",
			"job_name", name,
			"job_id", ended.ID,
			"status", ended.Status,
			"duration", ended.Duration(),
		)
	}

	return commandError(runErr)
}

func commandError(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("command exited with status %d", exitErr.ExitCode())
	}
	return fmt.Errorf("failed to run command; %w", err)
}
