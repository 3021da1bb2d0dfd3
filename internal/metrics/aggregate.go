package metrics

import (
	"time"

	"github.com/leefowlercu/batch-monitor/internal/jobs"
)

// SeriesKey identifies a (job_name, status) series.
type SeriesKey struct {
	Name   string
	Status jobs.Status
}

// MalformedRecord is a stored record that failed validation.
type MalformedRecord struct {
	ID  string
	Err error
}

// Snapshot is the aggregate view of the job table at one scrape.
type Snapshot struct {
	// Counts holds the number of finished records per series.
	Counts map[SeriesKey]int
	// LatestDuration holds the duration of the most recently ended record per series.
	LatestDuration map[SeriesKey]time.Duration
	// LatestStart holds the latest start time per job name, running or not.
	LatestStart map[string]time.Time
	// Running holds the number of running records per job name.
	// Every valid job name appears, with zero when nothing is running.
	Running map[string]int
	// LastSuccess holds the latest completed end time per job name.
	LastSuccess map[string]time.Time
	// Malformed lists records skipped during aggregation.
	Malformed []MalformedRecord
}

// Aggregate groups records into a Snapshot, skipping malformed ones.
func Aggregate(recs []jobs.Record) Snapshot {
	snap := Snapshot{
		Counts:         make(map[SeriesKey]int),
		LatestDuration: make(map[SeriesKey]time.Duration),
		LatestStart:    make(map[string]time.Time),
		Running:        make(map[string]int),
		LastSuccess:    make(map[string]time.Time),
	}
	latestEnd := make(map[SeriesKey]time.Time)

	for _, rec := range recs {
		if err := rec.Validate(); err != nil {
			snap.Malformed = append(snap.Malformed, MalformedRecord{ID: rec.ID, Err: err})
			continue
		}

		if t, ok := snap.LatestStart[rec.Name]; !ok || rec.StartTime.After(t) {
			snap.LatestStart[rec.Name] = rec.StartTime
		}
		if _, ok := snap.Running[rec.Name]; !ok {
			snap.Running[rec.Name] = 0
		}

		if rec.Status == jobs.StatusRunning {
			snap.Running[rec.Name]++
			continue
		}

		k := SeriesKey{Name: rec.Name, Status: rec.Status}
		snap.Counts[k]++
		if t, ok := latestEnd[k]; !ok || rec.EndTime.After(t) {
			latestEnd[k] = *rec.EndTime
			snap.LatestDuration[k] = rec.Duration()
		}

		if rec.Status == jobs.StatusCompleted {
			if t, ok := snap.LastSuccess[rec.Name]; !ok || rec.EndTime.After(t) {
				snap.LastSuccess[rec.Name] = *rec.EndTime
			}
		}
	}

	return snap
}
