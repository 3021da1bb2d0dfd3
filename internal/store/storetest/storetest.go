// Package storetest holds the behavioral suite every jobs.Store backend must pass.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leefowlercu/batch-monitor/internal/jobs"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) jobs.Store

var base = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func running(id, name string, start time.Time) jobs.Record {
	return jobs.Record{ID: id, Name: name, StartTime: start, Status: jobs.StatusRunning}
}

// Run executes the conformance suite against stores created by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s jobs.Store)
	}{
		{"InsertGet", testInsertGet},
		{"GetUnknown", testGetUnknown},
		{"InsertDuplicate", testInsertDuplicate},
		{"Finish", testFinish},
		{"FinishUnknown", testFinishUnknown},
		{"FinishTwice", testFinishTwice},
		{"FinishClampsEnd", testFinishClampsEnd},
		{"FinishConcurrent", testFinishConcurrent},
		{"ListOrderAndFilters", testListOrderAndFilters},
		{"ListTimeRange", testListTimeRange},
		{"Prune", testPrune},
		{"SubMicrosecondBounds", testSubMicrosecondBounds},
		{"Ping", testPing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func testInsertGet(t *testing.T, s jobs.Store) {
	ctx := context.Background()
	rec := running("id-1", "etl_job", base)
	require.NoError(t, s.Insert(ctx, rec))

	got, err := s.Get(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "etl_job", got.Name)
	assert.Equal(t, jobs.StatusRunning, got.Status)
	assert.True(t, got.StartTime.Equal(base))
	assert.Nil(t, got.EndTime)
}

func testGetUnknown(t *testing.T, s jobs.Store) {
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, jobs.ErrUnknownJob)
}

func testInsertDuplicate(t *testing.T, s jobs.Store) {
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, running("dup", "a", base)))
	assert.Error(t, s.Insert(ctx, running("dup", "b", base)))

	got, err := s.Get(ctx, "dup")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Name)
}

func testFinish(t *testing.T, s jobs.Store) {
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, running("f1", "etl_job", base)))

	end := base.Add(5 * time.Second)
	rec, err := s.Finish(ctx, "f1", end, jobs.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCompleted, rec.Status)
	require.NotNil(t, rec.EndTime)
	assert.True(t, rec.EndTime.Equal(end))
	assert.Equal(t, 5*time.Second, rec.Duration())

	got, err := s.Get(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCompleted, got.Status)
	require.NotNil(t, got.EndTime)
	assert.True(t, got.EndTime.Equal(end))
}

func testFinishUnknown(t *testing.T, s jobs.Store) {
	_, err := s.Finish(context.Background(), "ghost", base, jobs.StatusFailed)
	assert.ErrorIs(t, err, jobs.ErrUnknownJob)
}

func testFinishTwice(t *testing.T, s jobs.Store) {
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, running("f2", "etl_job", base)))

	_, err := s.Finish(ctx, "f2", base.Add(time.Second), jobs.StatusFailed)
	require.NoError(t, err)

	_, err = s.Finish(ctx, "f2", base.Add(2*time.Second), jobs.StatusCompleted)
	assert.ErrorIs(t, err, jobs.ErrAlreadyFinished)

	got, err := s.Get(ctx, "f2")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusFailed, got.Status)
	assert.True(t, got.EndTime.Equal(base.Add(time.Second)))
}

func testFinishClampsEnd(t *testing.T, s jobs.Store) {
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, running("f3", "etl_job", base)))

	rec, err := s.Finish(ctx, "f3", base.Add(-time.Minute), jobs.StatusCompleted)
	require.NoError(t, err)
	require.NotNil(t, rec.EndTime)
	assert.False(t, rec.EndTime.Before(rec.StartTime))
	assert.NoError(t, rec.Validate())
}

func testFinishConcurrent(t *testing.T, s jobs.Store) {
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, running("race", "etl_job", base)))

	const callers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		finished  int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Finish(ctx, "race", base.Add(time.Duration(i+1)*time.Second), jobs.StatusCompleted)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, jobs.ErrAlreadyFinished):
				finished++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, finished)
}

func testListOrderAndFilters(t *testing.T, s jobs.Store) {
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		name := "etl_job"
		if i%2 == 1 {
			name = "report"
		}
		require.NoError(t, s.Insert(ctx, running(fmt.Sprintf("l%d", i), name, base.Add(time.Duration(i)*time.Minute))))
	}
	_, err := s.Finish(ctx, "l0", base.Add(time.Second), jobs.StatusCompleted)
	require.NoError(t, err)
	_, err = s.Finish(ctx, "l2", base.Add(3*time.Minute), jobs.StatusFailed)
	require.NoError(t, err)

	all, err := s.List(ctx, jobs.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"l0", "l1", "l2", "l3", "l4"}, ids(all))

	desc, err := s.List(ctx, jobs.ListOptions{Descending: true, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"l4", "l3"}, ids(desc))

	byName, err := s.List(ctx, jobs.ListOptions{Name: "etl_job"})
	require.NoError(t, err)
	assert.Equal(t, []string{"l0", "l2", "l4"}, ids(byName))

	byStatus, err := s.List(ctx, jobs.ListOptions{Status: jobs.StatusRunning})
	require.NoError(t, err)
	assert.Equal(t, []string{"l1", "l3", "l4"}, ids(byStatus))

	both, err := s.List(ctx, jobs.ListOptions{Name: "etl_job", Status: jobs.StatusFailed})
	require.NoError(t, err)
	assert.Equal(t, []string{"l2"}, ids(both))

	limited, err := s.List(ctx, jobs.ListOptions{Name: "etl_job", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"l0"}, ids(limited))
}

func testListTimeRange(t *testing.T, s jobs.Store) {
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		require.NoError(t, s.Insert(ctx, running(fmt.Sprintf("r%d", i), "etl_job", base.Add(time.Duration(i)*time.Hour))))
	}

	recs, err := s.List(ctx, jobs.ListOptions{Since: base.Add(time.Hour), Until: base.Add(3 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, ids(recs))
}

func testPrune(t *testing.T, s jobs.Store) {
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, running("old", "etl_job", base)))
	require.NoError(t, s.Insert(ctx, running("new", "etl_job", base.Add(time.Hour))))
	require.NoError(t, s.Insert(ctx, running("live", "etl_job", base.Add(-time.Hour))))

	_, err := s.Finish(ctx, "old", base.Add(time.Minute), jobs.StatusCompleted)
	require.NoError(t, err)
	_, err = s.Finish(ctx, "new", base.Add(2*time.Hour), jobs.StatusCompleted)
	require.NoError(t, err)

	n, err := s.Prune(ctx, base.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.Get(ctx, "old")
	assert.ErrorIs(t, err, jobs.ErrUnknownJob)

	remaining, err := s.List(ctx, jobs.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"live", "new"}, ids(remaining))
}

func testSubMicrosecondBounds(t *testing.T, s jobs.Store) {
	ctx := context.Background()
	cutoff := base.Add(time.Microsecond + 700*time.Nanosecond)

	require.NoError(t, s.Insert(ctx, running("edge", "etl_job", cutoff.Add(-500*time.Nanosecond))))
	require.NoError(t, s.Insert(ctx, running("at", "etl_job", cutoff)))

	recs, err := s.List(ctx, jobs.ListOptions{Until: cutoff})
	require.NoError(t, err)
	assert.Equal(t, []string{"edge"}, ids(recs))

	recs, err = s.List(ctx, jobs.ListOptions{Since: cutoff})
	require.NoError(t, err)
	assert.Equal(t, []string{"at"}, ids(recs))

	_, err = s.Finish(ctx, "edge", cutoff.Add(-100*time.Nanosecond), jobs.StatusCompleted)
	require.NoError(t, err)

	n, err := s.Prune(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.Get(ctx, "edge")
	assert.ErrorIs(t, err, jobs.ErrUnknownJob)
}

func testPing(t *testing.T, s jobs.Store) {
	assert.NoError(t, s.Ping(context.Background()))
}

func ids(recs []jobs.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}
