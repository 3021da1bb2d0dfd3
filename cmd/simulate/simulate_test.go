package simulate

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leefowlercu/batch-monitor/internal/simulate"
	"github.com/leefowlercu/batch-monitor/internal/testutil"
)

func createTestCommand() *cobra.Command {
	simRounds, simSpeed, simParallel, simJobs, simOutput = simulate.DefaultRounds, 1, false, nil, "job_metrics.json"
	cmd := &cobra.Command{
		Use:     SimulateCmd.Use,
		Args:    SimulateCmd.Args,
		PreRunE: SimulateCmd.PreRunE,
		RunE:    SimulateCmd.RunE,
	}
	cmd.Flags().IntVarP(&simRounds, "rounds", "r", simulate.DefaultRounds, "")
	cmd.Flags().Float64Var(&simSpeed, "speed", 1, "")
	cmd.Flags().BoolVar(&simParallel, "parallel", false, "")
	cmd.Flags().StringSliceVar(&simJobs, "jobs", nil, "")
	cmd.Flags().StringVarP(&simOutput, "output", "o", "job_metrics.json", "")
	return cmd
}

func TestSimulate_WritesExport(t *testing.T) {
	env := testutil.NewTestEnv(t)
	path := env.TempFile("job_metrics.json")

	cmd := createTestCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"--rounds", "2", "--speed", "1000", "--parallel", "--output", path})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, stdout.String(), "Simulated 10 run(s)")
	assert.Contains(t, stdout.String(), "Exported 10 job(s)")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		Jobs []struct {
			Name   string `json:"job_name"`
			Status string `json:"status"`
		} `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Jobs, 10)
	for _, j := range doc.Jobs {
		assert.Equal(t, string(simulate.PlannedStatus(j.Name)), j.Status, j.Name)
	}
}

func TestSimulate_CustomJobsNoOutput(t *testing.T) {
	env := testutil.NewTestEnv(t)

	cmd := createTestCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"--rounds", "1", "--speed", "1000", "--jobs", "backup,vacuum", "--output", ""})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, stdout.String(), "Simulated 2 run(s)")
	assert.NotContains(t, stdout.String(), "Exported")

	_, err := os.Stat(filepath.Join(env.ConfigDir, "job_metrics.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestSimulate_Validation(t *testing.T) {
	testutil.NewTestEnv(t)

	for _, args := range [][]string{{"--rounds", "0"}, {"--speed", "0"}, {"--speed", "-2"}} {
		cmd := createTestCommand()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs(args)
		assert.Error(t, cmd.Execute(), args)
	}
}
