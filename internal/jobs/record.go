package jobs

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Status is the lifecycle state of a job run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// MaxNameLength is the longest job name accepted by the registry, in bytes.
const MaxNameLength = 255

// ParseStatus converts a string to a Status.
// Returns ErrInvalidStatus for anything outside running, completed and failed.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusRunning:
		return StatusRunning, nil
	case StatusCompleted:
		return StatusCompleted, nil
	case StatusFailed:
		return StatusFailed, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusRunning || s == StatusCompleted || s == StatusFailed
}

// Terminal reports whether s ends a job's lifecycle.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s Status) String() string {
	return string(s)
}

// Record is a single job run as persisted by a Store.
type Record struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Status    Status     `json:"status"`
}

// Finished reports whether the record has reached a terminal status.
func (r Record) Finished() bool {
	return r.EndTime != nil && r.Status.Terminal()
}

// Duration returns the elapsed time between start and end.
// Returns zero for running jobs.
func (r Record) Duration() time.Duration {
	if r.EndTime == nil {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// Validate checks the record invariants.
// Records read back from a store that fail validation are treated as malformed.
func (r Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("record has empty id")
	}
	if err := ValidateName(r.Name); err != nil {
		return err
	}
	if r.StartTime.IsZero() {
		return fmt.Errorf("record %s has no start time", r.ID)
	}
	if !r.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, string(r.Status))
	}
	if r.Status == StatusRunning && r.EndTime != nil {
		return fmt.Errorf("running record %s has an end time", r.ID)
	}
	if r.Status.Terminal() && r.EndTime == nil {
		return fmt.Errorf("%s record %s has no end time", r.Status, r.ID)
	}
	if r.EndTime != nil && r.EndTime.Before(r.StartTime) {
		return fmt.Errorf("record %s ends before it starts", r.ID)
	}
	return nil
}

// ValidateName checks that a job name is usable as a metric label value.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: must not be empty", ErrInvalidName)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidName, MaxNameLength)
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidName)
	}
	return nil
}

// ListOptions filters and orders a Store listing.
// Zero values mean "no filter".
type ListOptions struct {
	Name   string
	Status Status
	Since  time.Time
	Until  time.Time
	// Limit caps the number of records returned; 0 returns all.
	Limit int
	// Descending orders by start time newest first.
	Descending bool
}

// Match reports whether r satisfies the filters in o.
// Stores that cannot push filters down to their backend use it directly.
func (o ListOptions) Match(r Record) bool {
	if o.Name != "" && r.Name != o.Name {
		return false
	}
	if o.Status != "" && r.Status != o.Status {
		return false
	}
	if !o.Since.IsZero() && r.StartTime.Before(o.Since) {
		return false
	}
	if !o.Until.IsZero() && !r.StartTime.Before(o.Until) {
		return false
	}
	return true
}
