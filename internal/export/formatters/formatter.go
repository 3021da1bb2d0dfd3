package formatters

import "time"

// TimeLayout is the timestamp layout used in every export format.
const TimeLayout = time.RFC3339Nano

// Formatter formats a job document into a specific output format.
type Formatter interface {
	// Format converts the document to the output format.
	Format(doc *Document) ([]byte, error)

	// Name returns the formatter name.
	Name() string

	// ContentType returns the MIME content type.
	ContentType() string

	// FileExtension returns the typical file extension.
	FileExtension() string
}

// Document is the format-neutral view of an exported job table.
type Document struct {
	Version    int
	ExportedAt time.Time
	Jobs       []Job
}

// Job is a single exported job run.
type Job struct {
	ID        string
	Name      string
	StartTime time.Time
	EndTime   *time.Time
	Status    string
}

// DurationSeconds returns the run duration, or nil for running jobs.
func (j Job) DurationSeconds() *float64 {
	if j.EndTime == nil {
		return nil
	}
	d := j.EndTime.Sub(j.StartTime).Seconds()
	return &d
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}
