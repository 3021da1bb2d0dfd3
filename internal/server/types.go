package server

import (
	"time"

	"github.com/leefowlercu/batch-monitor/internal/jobs"
)

// StartJobRequest is the body of POST /jobs.
type StartJobRequest struct {
	Name string `json:"name"`
}

// EndJobRequest is the body of POST /jobs/{id}/end.
type EndJobRequest struct {
	Status string `json:"status"`
}

// JobResponse is the JSON view of a job record.
type JobResponse struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationSeconds *float64   `json:"duration_seconds,omitempty"`
	Status          string     `json:"status"`
}

// NewJobResponse converts a record for the wire.
func NewJobResponse(rec jobs.Record) JobResponse {
	resp := JobResponse{
		ID:        rec.ID,
		Name:      rec.Name,
		StartTime: rec.StartTime,
		EndTime:   rec.EndTime,
		Status:    string(rec.Status),
	}
	if rec.EndTime != nil {
		d := rec.Duration().Seconds()
		resp.DurationSeconds = &d
	}
	return resp
}

// Record converts the response back into a job record.
func (j JobResponse) Record() jobs.Record {
	return jobs.Record{
		ID:        j.ID,
		Name:      j.Name,
		StartTime: j.StartTime,
		EndTime:   j.EndTime,
		Status:    jobs.Status(j.Status),
	}
}

// ListJobsResponse is the body returned by GET /jobs.
type ListJobsResponse struct {
	Jobs  []JobResponse `json:"jobs"`
	Count int           `json:"count"`
}

// LivezResponse is the response format for /healthz.
type LivezResponse struct {
	Status string `json:"status"`
}

// ReadyzResponse is the response format for /readyz.
type ReadyzResponse struct {
	Status  string        `json:"status"`
	Ready   bool          `json:"ready"`
	Backend string        `json:"backend,omitempty"`
	Uptime  time.Duration `json:"uptime"`
	Error   string        `json:"error,omitempty"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}
