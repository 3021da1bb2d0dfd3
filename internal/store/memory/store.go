// Package memory implements jobs.Store in process memory.
// Safe for concurrent access. Intended for unit testing and development;
// records do not survive a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/leefowlercu/batch-monitor/internal/jobs"
)

var _ jobs.Store = (*Store)(nil)

// Store is an in-memory jobs.Store.
type Store struct {
	mu     sync.RWMutex
	jobs   map[string]jobs.Record
	closed bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{jobs: make(map[string]jobs.Record)}
}

// Insert stores a new record.
func (s *Store) Insert(_ context.Context, rec jobs.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errClosed
	}
	if _, exists := s.jobs[rec.ID]; exists {
		return errDuplicateID
	}
	s.jobs[rec.ID] = copyRecord(rec)
	return nil
}

// Get returns a record by id.
func (s *Store) Get(_ context.Context, id string) (jobs.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return jobs.Record{}, errClosed
	}
	rec, ok := s.jobs[id]
	if !ok {
		return jobs.Record{}, jobs.ErrUnknownJob
	}
	return copyRecord(rec), nil
}

// Finish ends a running record.
func (s *Store) Finish(_ context.Context, id string, end time.Time, status jobs.Status) (jobs.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return jobs.Record{}, errClosed
	}
	rec, ok := s.jobs[id]
	if !ok {
		return jobs.Record{}, jobs.ErrUnknownJob
	}
	if rec.Status != jobs.StatusRunning {
		return jobs.Record{}, jobs.ErrAlreadyFinished
	}

	end = end.UTC()
	if end.Before(rec.StartTime) {
		end = rec.StartTime
	}
	rec.EndTime = &end
	rec.Status = status
	s.jobs[id] = rec
	return copyRecord(rec), nil
}

// List returns matching records ordered by start time.
func (s *Store) List(_ context.Context, opts jobs.ListOptions) ([]jobs.Record, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, errClosed
	}
	out := make([]jobs.Record, 0, len(s.jobs))
	for _, rec := range s.jobs {
		if opts.Match(rec) {
			out = append(out, copyRecord(rec))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			if opts.Descending {
				return out[i].ID > out[j].ID
			}
			return out[i].ID < out[j].ID
		}
		if opts.Descending {
			return out[i].StartTime.After(out[j].StartTime)
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// Prune deletes finished records that ended before the cutoff.
func (s *Store) Prune(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, errClosed
	}
	var n int64
	for id, rec := range s.jobs {
		if rec.EndTime != nil && rec.EndTime.Before(before) {
			delete(s.jobs, id)
			n++
		}
	}
	return n, nil
}

// Ping reports whether the store is open.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errClosed
	}
	return nil
}

// Close marks the store closed. Later calls fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Put stores rec verbatim, bypassing lifecycle checks.
// Used by tests to seed malformed rows.
func (s *Store) Put(rec jobs.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[rec.ID] = copyRecord(rec)
}

func copyRecord(rec jobs.Record) jobs.Record {
	if rec.EndTime != nil {
		end := *rec.EndTime
		rec.EndTime = &end
	}
	return rec
}
