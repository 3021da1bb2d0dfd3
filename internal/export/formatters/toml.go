package formatters

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

// TOMLFormatter formats documents as TOML, one [[jobs]] table per run.
type TOMLFormatter struct{}

// NewTOMLFormatter creates a new TOML formatter.
func NewTOMLFormatter() *TOMLFormatter {
	return &TOMLFormatter{}
}

// Name returns the formatter name.
func (f *TOMLFormatter) Name() string {
	return "toml"
}

// ContentType returns the MIME content type.
func (f *TOMLFormatter) ContentType() string {
	return "application/toml"
}

// FileExtension returns the typical file extension.
func (f *TOMLFormatter) FileExtension() string {
	return ".toml"
}

type tomlDocument struct {
	Version    int       `toml:"version"`
	ExportedAt string    `toml:"exported_at"`
	Jobs       []tomlJob `toml:"jobs"`
}

type tomlJob struct {
	ID              string   `toml:"id"`
	JobName         string   `toml:"job_name"`
	StartTime       string   `toml:"start_time"`
	EndTime         string   `toml:"end_time,omitempty"`
	DurationSeconds *float64 `toml:"duration_seconds,omitempty"`
	Status          string   `toml:"status"`
}

// Format converts the document to TOML.
func (f *TOMLFormatter) Format(doc *Document) ([]byte, error) {
	td := tomlDocument{
		Version:    doc.Version,
		ExportedAt: formatTime(doc.ExportedAt),
		Jobs:       make([]tomlJob, 0, len(doc.Jobs)),
	}

	for _, j := range doc.Jobs {
		td.Jobs = append(td.Jobs, tomlJob{
			ID:              j.ID,
			JobName:         j.Name,
			StartTime:       formatTime(j.StartTime),
			EndTime:         formatOptionalTime(j.EndTime),
			DurationSeconds: j.DurationSeconds(),
			Status:          j.Status,
		})
	}

	data, err := toml.Marshal(td)
	if err != nil {
		return nil, fmt.Errorf("failed to encode TOML; %w", err)
	}
	return data, nil
}
