package formatters

import (
	"encoding/json"
	"fmt"
)

// JSONFormatter formats documents as JSON.
type JSONFormatter struct {
	pretty bool
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{pretty: true}
}

// NewCompactJSONFormatter creates a JSON formatter without indentation.
func NewCompactJSONFormatter() *JSONFormatter {
	return &JSONFormatter{pretty: false}
}

// Name returns the formatter name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// ContentType returns the MIME content type.
func (f *JSONFormatter) ContentType() string {
	return "application/json"
}

// FileExtension returns the typical file extension.
func (f *JSONFormatter) FileExtension() string {
	return ".json"
}

// jsonDocument is the JSON representation of a job document.
type jsonDocument struct {
	Version    int       `json:"version"`
	ExportedAt string    `json:"exported_at"`
	Jobs       []jsonJob `json:"jobs"`
}

type jsonJob struct {
	ID              string   `json:"id"`
	JobName         string   `json:"job_name"`
	StartTime       string   `json:"start_time"`
	EndTime         string   `json:"end_time,omitempty"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
	Status          string   `json:"status"`
}

// Format converts the document to JSON.
func (f *JSONFormatter) Format(doc *Document) ([]byte, error) {
	jd := jsonDocument{
		Version:    doc.Version,
		ExportedAt: formatTime(doc.ExportedAt),
		Jobs:       make([]jsonJob, 0, len(doc.Jobs)),
	}

	for _, j := range doc.Jobs {
		jd.Jobs = append(jd.Jobs, jsonJob{
			ID:              j.ID,
			JobName:         j.Name,
			StartTime:       formatTime(j.StartTime),
			EndTime:         formatOptionalTime(j.EndTime),
			DurationSeconds: j.DurationSeconds(),
			Status:          j.Status,
		})
	}

	var data []byte
	var err error

	if f.pretty {
		data, err = json.MarshalIndent(jd, "", "  ")
	} else {
		data, err = json.Marshal(jd)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON; %w", err)
	}

	return data, nil
}
