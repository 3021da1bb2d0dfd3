package export

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leefowlercu/batch-monitor/internal/jobs"
	"github.com/leefowlercu/batch-monitor/internal/store/memory"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func finished(id, name string, start time.Time, d time.Duration, status jobs.Status) jobs.Record {
	end := start.Add(d)
	return jobs.Record{ID: id, Name: name, StartTime: start, EndTime: &end, Status: status}
}

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.New()
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, finished("j1", "etl", base, 5*time.Second, jobs.StatusCompleted)))
	require.NoError(t, s.Insert(ctx, finished("j2", "etl", base.Add(time.Minute), 3*time.Second, jobs.StatusFailed)))
	require.NoError(t, s.Insert(ctx, finished("j3", "report", base.Add(2*time.Minute), time.Second, jobs.StatusCompleted)))
	require.NoError(t, s.Insert(ctx, jobs.Record{ID: "j4", Name: "etl", StartTime: base.Add(3 * time.Minute), Status: jobs.StatusRunning}))
	return s
}

func newTestExporter(t *testing.T) *Exporter {
	t.Helper()
	e := NewExporter(seededStore(t))
	e.now = func() time.Time { return base.Add(time.Hour) }
	return e
}

func TestDefaultExportOptions(t *testing.T) {
	opts := DefaultExportOptions()

	assert.Equal(t, "json", opts.Format)
	assert.False(t, opts.IncludeRunning)
	assert.Equal(t, DefaultLimit, opts.Limit)
}

func TestExporter_ListFormats(t *testing.T) {
	e := NewExporter(memory.New())
	assert.Equal(t, []string{"json", "toml", "xml", "yaml"}, e.ListFormats())
}

func TestExporter_UnknownFormat(t *testing.T) {
	e := newTestExporter(t)
	_, _, err := e.Export(context.Background(), ExportOptions{Format: "csv"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestExporter_Document_FinishedOnlyNewestFirst(t *testing.T) {
	e := newTestExporter(t)

	doc, err := e.Document(context.Background(), DefaultExportOptions())
	require.NoError(t, err)

	assert.Equal(t, DocumentVersion, doc.Version)
	assert.Equal(t, base.Add(time.Hour), doc.ExportedAt)

	ids := make([]string, 0, len(doc.Jobs))
	for _, j := range doc.Jobs {
		ids = append(ids, j.ID)
	}
	assert.Equal(t, []string{"j3", "j2", "j1"}, ids)
}

func TestExporter_Document_IncludeRunning(t *testing.T) {
	e := newTestExporter(t)

	opts := DefaultExportOptions()
	opts.IncludeRunning = true
	doc, err := e.Document(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, doc.Jobs, 4)
	assert.Equal(t, "j4", doc.Jobs[0].ID)
	assert.Nil(t, doc.Jobs[0].EndTime)
}

func TestExporter_Document_LimitAndName(t *testing.T) {
	e := newTestExporter(t)

	doc, err := e.Document(context.Background(), ExportOptions{Format: "json", Limit: 2, IncludeRunning: true})
	require.NoError(t, err)
	require.Len(t, doc.Jobs, 2)
	assert.Equal(t, "j4", doc.Jobs[0].ID)
	assert.Equal(t, "j3", doc.Jobs[1].ID)

	doc, err = e.Document(context.Background(), ExportOptions{Format: "json", Name: "etl"})
	require.NoError(t, err)
	require.Len(t, doc.Jobs, 2)
	for _, j := range doc.Jobs {
		assert.Equal(t, "etl", j.Name)
	}
}

func TestExporter_Export_JSON(t *testing.T) {
	e := newTestExporter(t)

	out, stats, err := e.Export(context.Background(), DefaultExportOptions())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.JobCount)
	assert.Equal(t, "json", stats.Format)
	assert.Equal(t, len(out), stats.OutputSize)

	var decoded struct {
		Jobs []struct {
			ID              string  `json:"id"`
			JobName         string  `json:"job_name"`
			DurationSeconds float64 `json:"duration_seconds"`
			Status          string  `json:"status"`
		} `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.Len(t, decoded.Jobs, 3)
	assert.Equal(t, "etl", decoded.Jobs[2].JobName)
	assert.InDelta(t, 5.0, decoded.Jobs[2].DurationSeconds, 1e-9)
}

type failingLister struct{}

func (failingLister) List(context.Context, jobs.ListOptions) ([]jobs.Record, error) {
	return nil, &jobs.StoreError{Op: jobs.OpList, Err: errors.New("disk on fire")}
}

func TestExporter_Export_StoreError(t *testing.T) {
	e := NewExporter(failingLister{})

	_, _, err := e.Export(context.Background(), DefaultExportOptions())
	require.Error(t, err)
	assert.True(t, jobs.IsStoreError(err))
}

func TestExporter_ExportToFile(t *testing.T) {
	e := newTestExporter(t)
	path := filepath.Join(t.TempDir(), "nested", "jobs.yaml")

	opts := DefaultExportOptions()
	opts.Format = "yaml"
	stats, err := e.ExportToFile(context.Background(), path, opts)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.JobCount)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "job_name: report")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should not be left behind")
}

func TestWriteFile_ReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0600))

	require.NoError(t, WriteFile(path, []byte("new")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}
