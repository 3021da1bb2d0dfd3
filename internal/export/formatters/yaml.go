package formatters

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats documents as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Name returns the formatter name.
func (f *YAMLFormatter) Name() string {
	return "yaml"
}

// ContentType returns the MIME content type.
func (f *YAMLFormatter) ContentType() string {
	return "application/yaml"
}

// FileExtension returns the typical file extension.
func (f *YAMLFormatter) FileExtension() string {
	return ".yaml"
}

type yamlDocument struct {
	Version    int       `yaml:"version"`
	ExportedAt string    `yaml:"exported_at"`
	Jobs       []yamlJob `yaml:"jobs"`
}

type yamlJob struct {
	ID              string   `yaml:"id"`
	JobName         string   `yaml:"job_name"`
	StartTime       string   `yaml:"start_time"`
	EndTime         string   `yaml:"end_time,omitempty"`
	DurationSeconds *float64 `yaml:"duration_seconds,omitempty"`
	Status          string   `yaml:"status"`
}

// Format converts the document to YAML.
func (f *YAMLFormatter) Format(doc *Document) ([]byte, error) {
	yd := yamlDocument{
		Version:    doc.Version,
		ExportedAt: formatTime(doc.ExportedAt),
		Jobs:       make([]yamlJob, 0, len(doc.Jobs)),
	}

	for _, j := range doc.Jobs {
		yd.Jobs = append(yd.Jobs, yamlJob{
			ID:              j.ID,
			JobName:         j.Name,
			StartTime:       formatTime(j.StartTime),
			EndTime:         formatOptionalTime(j.EndTime),
			DurationSeconds: j.DurationSeconds(),
			Status:          j.Status,
		})
	}

	data, err := yaml.Marshal(yd)
	if err != nil {
		return nil, fmt.Errorf("failed to encode YAML; %w", err)
	}
	return data, nil
}
