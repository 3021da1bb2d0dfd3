package cmdutil

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leefowlercu/batch-monitor/internal/config"
	"github.com/leefowlercu/batch-monitor/internal/jobs"
)

func TestResolvePath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	got, err := ResolvePath("")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = ResolvePath("~/exports/../jobs.json")
	require.NoError(t, err)
	assert.Equal(t, "/home/tester/jobs.json", got)

	got, err = ResolvePath("relative.json")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}

func TestRenderJobs(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(5 * time.Second)
	recs := []jobs.Record{
		{ID: "j1", Name: "etl_job", StartTime: start, EndTime: &end, Status: jobs.StatusCompleted},
		{ID: "j2", Name: "ml_training", StartTime: start, Status: jobs.StatusRunning},
	}

	out := RenderJobs(recs)

	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "etl_job")
	assert.Contains(t, out, "5.000s")
	assert.Contains(t, out, "running")
}

func TestJobRow_Running(t *testing.T) {
	rec := jobs.Record{ID: "j", Name: "n", StartTime: time.Now(), Status: jobs.StatusRunning}

	row := JobRow(rec)

	require.Len(t, row, 6)
	assert.Equal(t, "-", row[4])
	assert.Equal(t, "-", row[5])
}

func TestPrintJobs_Empty(t *testing.T) {
	var buf bytes.Buffer

	PrintJobs(&buf, nil)

	assert.Equal(t, "No jobs found.\n", buf.String())
}

func TestOpenRegistry_Memory(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Store.Backend = "memory"

	reg, st, err := OpenRegistry(context.Background(), &cfg)
	require.NoError(t, err)
	defer st.Close()

	rec, err := reg.Start(context.Background(), "etl_job")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusRunning, rec.Status)
}

func TestOpenRegistry_Errors(t *testing.T) {
	_, _, err := OpenRegistry(context.Background(), nil)
	assert.Error(t, err)

	cfg := config.NewDefaultConfig()
	cfg.Store.Backend = "etcd"
	_, _, err = OpenRegistry(context.Background(), &cfg)
	assert.ErrorContains(t, err, "failed to open job store")
}
