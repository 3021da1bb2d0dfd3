// Package export serializes the job table into structured interchange documents.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/leefowlercu/batch-monitor/internal/export/formatters"
	"github.com/leefowlercu/batch-monitor/internal/jobs"
)

// DocumentVersion is the schema version written into every export.
const DocumentVersion = 1

// DefaultLimit is the number of most recent jobs exported when no limit is set.
const DefaultLimit = 1000

// ExportStats contains statistics about an export operation.
type ExportStats struct {
	JobCount   int           `json:"job_count"`
	ExportedAt time.Time     `json:"exported_at"`
	Duration   time.Duration `json:"duration"`
	Format     string        `json:"format"`
	OutputSize int           `json:"output_size"`
}

// ExportOptions configures an export operation.
type ExportOptions struct {
	// Format specifies the output format (json, yaml, toml, xml).
	Format string

	// IncludeRunning exports jobs that have not ended yet.
	IncludeRunning bool

	// Limit caps the number of most recent jobs exported (0 = DefaultLimit, <0 = unlimited).
	Limit int

	// Name limits export to a single job name.
	Name string

	// Since limits export to jobs started at or after this time.
	Since time.Time
}

// DefaultExportOptions returns sensible defaults.
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		Format:         "json",
		IncludeRunning: false,
		Limit:          DefaultLimit,
	}
}

// Lister is the read side of the job registry used by the exporter.
type Lister interface {
	List(ctx context.Context, opts jobs.ListOptions) ([]jobs.Record, error)
}

// Exporter exports the job table in various formats.
type Exporter struct {
	source     Lister
	formatters map[string]formatters.Formatter
	now        func() time.Time
}

// NewExporter creates a new exporter reading from source.
func NewExporter(source Lister) *Exporter {
	e := &Exporter{
		source:     source,
		formatters: make(map[string]formatters.Formatter),
		now:        time.Now,
	}

	e.RegisterFormatter("json", formatters.NewJSONFormatter())
	e.RegisterFormatter("yaml", formatters.NewYAMLFormatter())
	e.RegisterFormatter("toml", formatters.NewTOMLFormatter())
	e.RegisterFormatter("xml", formatters.NewXMLFormatter())

	return e
}

// RegisterFormatter registers a formatter for a format name.
func (e *Exporter) RegisterFormatter(name string, f formatters.Formatter) {
	e.formatters[name] = f
}

// Formatter returns the formatter registered for name.
func (e *Exporter) Formatter(name string) (formatters.Formatter, bool) {
	f, ok := e.formatters[name]
	return f, ok
}

// Export exports the job table with the given options.
func (e *Exporter) Export(ctx context.Context, opts ExportOptions) ([]byte, *ExportStats, error) {
	startTime := time.Now()

	formatter, ok := e.formatters[opts.Format]
	if !ok {
		return nil, nil, fmt.Errorf("unknown format: %s", opts.Format)
	}

	doc, err := e.Document(ctx, opts)
	if err != nil {
		return nil, nil, err
	}

	output, err := formatter.Format(doc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to format document; %w", err)
	}

	stats := &ExportStats{
		JobCount:   len(doc.Jobs),
		ExportedAt: doc.ExportedAt,
		Duration:   time.Since(startTime),
		Format:     opts.Format,
		OutputSize: len(output),
	}

	return output, stats, nil
}

// Document builds the format-neutral document for opts: the most recent jobs,
// newest first, limited and filtered as requested.
func (e *Exporter) Document(ctx context.Context, opts ExportOptions) (*formatters.Document, error) {
	listOpts := jobs.ListOptions{
		Name:       opts.Name,
		Since:      opts.Since,
		Descending: true,
	}

	recs, err := e.source.List(ctx, listOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs; %w", err)
	}

	limit := opts.Limit
	if limit == 0 {
		limit = DefaultLimit
	}

	// The limit applies to the most recent records before dropping running
	// ones, matching the "last N runs" view of a timeline.
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}

	doc := &formatters.Document{
		Version:    DocumentVersion,
		ExportedAt: e.now().UTC(),
		Jobs:       make([]formatters.Job, 0, len(recs)),
	}

	for _, rec := range recs {
		if !opts.IncludeRunning && !rec.Finished() {
			continue
		}
		doc.Jobs = append(doc.Jobs, formatters.Job{
			ID:        rec.ID,
			Name:      rec.Name,
			StartTime: rec.StartTime,
			EndTime:   rec.EndTime,
			Status:    string(rec.Status),
		})
	}

	return doc, nil
}

// ExportToFile writes an export to path, replacing any existing file atomically.
func (e *Exporter) ExportToFile(ctx context.Context, path string, opts ExportOptions) (*ExportStats, error) {
	output, stats, err := e.Export(ctx, opts)
	if err != nil {
		return nil, err
	}

	if err := WriteFile(path, output); err != nil {
		return nil, err
	}

	return stats, nil
}

// WriteFile writes data to path through a temp file in the same directory
// and a rename, so readers never see a partial export.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s; %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file; %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write export; %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close export; %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to set export permissions; %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move export into place; %w", err)
	}

	return nil
}

// ListFormats returns available format names in sorted order.
func (e *Exporter) ListFormats() []string {
	formats := make([]string, 0, len(e.formatters))
	for name := range e.formatters {
		formats = append(formats, name)
	}
	sort.Strings(formats)
	return formats
}
