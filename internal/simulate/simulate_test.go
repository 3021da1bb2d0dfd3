package simulate

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leefowlercu/batch-monitor/internal/jobs"
	"github.com/leefowlercu/batch-monitor/internal/store/memory"
)

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func TestPlannedDuration(t *testing.T) {
	for _, name := range append(DefaultJobs, "", "x", "a-much-longer-job-name") {
		d := PlannedDuration(name)
		assert.GreaterOrEqual(t, d, 2*time.Second, name)
		assert.LessOrEqual(t, d, 9*time.Second, name)
		assert.Equal(t, time.Duration(0), d%time.Second, name)
		assert.Equal(t, d, PlannedDuration(name), "deterministic")
	}
}

func TestPlannedDuration_Spread(t *testing.T) {
	seen := make(map[time.Duration]bool)
	for i := 0; i < 2000; i++ {
		seen[PlannedDuration(fmt.Sprintf("job_%d", i))] = true
	}

	assert.Len(t, seen, 8)
	assert.True(t, seen[2*time.Second])
	assert.True(t, seen[9*time.Second])
	assert.False(t, seen[10*time.Second])
}

func TestPlannedStatus(t *testing.T) {
	for _, name := range DefaultJobs {
		want := jobs.StatusCompleted
		if PlannedDuration(name) >= FailureThreshold {
			want = jobs.StatusFailed
		}
		assert.Equal(t, want, PlannedStatus(name), name)
	}
}

func TestSimulator_Run_Sequential(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	store := memory.New()
	reg := jobs.NewRegistry(store, jobs.WithClock(clock))
	sim := New(reg, WithClock(clock))

	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := sim.Run(context.Background(), Options{Rounds: 2})
		done <- outcome{res, err}
	}()

	for round := 0; round < 2; round++ {
		for _, name := range DefaultJobs {
			clock.BlockUntil(1)
			clock.Advance(PlannedDuration(name))
		}
	}

	var out outcome
	select {
	case out = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("simulation did not finish")
	}
	require.NoError(t, out.err)

	res := out.res
	require.Len(t, res.Runs, 2*len(DefaultJobs))
	assert.Equal(t, len(res.Runs), res.Completed+res.Failed)

	var total time.Duration
	for _, name := range DefaultJobs {
		total += PlannedDuration(name)
	}
	assert.Equal(t, 2*total, res.Elapsed)

	recs, err := reg.List(context.Background(), jobs.ListOptions{})
	require.NoError(t, err)
	require.Len(t, recs, 2*len(DefaultJobs))

	for i, rec := range recs {
		assert.True(t, rec.Finished(), rec.ID)
		assert.Equal(t, PlannedDuration(rec.Name), rec.Duration(), rec.Name)
		assert.Equal(t, PlannedStatus(rec.Name), rec.Status, rec.Name)
		assert.Equal(t, res.Runs[i].JobID, rec.ID)
	}
}

func TestSimulator_Run_ParallelScaled(t *testing.T) {
	reg := jobs.NewRegistry(memory.New())
	sim := New(reg)

	res, err := sim.Run(context.Background(), Options{
		Jobs:     []string{"data_ingestion", "ml_training"},
		Rounds:   3,
		Speed:    1000,
		Parallel: true,
	})

	require.NoError(t, err)
	assert.Len(t, res.Runs, 6)

	for _, run := range res.Runs {
		assert.NotEmpty(t, run.JobID)
		assert.Equal(t, PlannedStatus(run.Name), run.Status)
		assert.Equal(t, PlannedDuration(run.Name)/1000, run.Slept)
	}

	running, err := reg.List(context.Background(), jobs.ListOptions{Status: jobs.StatusRunning})
	require.NoError(t, err)
	assert.Empty(t, running)
}

func TestSimulator_Run_Canceled(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	reg := jobs.NewRegistry(memory.New(), jobs.WithClock(clock))
	sim := New(reg, WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := sim.Run(ctx, Options{Jobs: []string{"data_ingestion"}, Rounds: 5})
		errCh <- err
	}()

	clock.BlockUntil(1)
	cancel()

	var err error
	select {
	case err = <-errCh:
	case <-time.After(5 * time.Second):
		t.Fatal("simulation did not stop")
	}
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	recs, listErr := reg.List(context.Background(), jobs.ListOptions{})
	require.NoError(t, listErr)
	require.Len(t, recs, 1)
	assert.Equal(t, jobs.StatusFailed, recs[0].Status)
}

type failingStore struct {
	jobs.Store
}

func (failingStore) Insert(context.Context, jobs.Record) error {
	return errors.New("database is locked")
}

func TestSimulator_Run_StoreError(t *testing.T) {
	reg := jobs.NewRegistry(failingStore{Store: memory.New()})
	sim := New(reg)

	res, err := sim.Run(context.Background(), Options{Speed: 1000})

	require.Error(t, err)
	assert.True(t, jobs.IsStoreError(err))
	assert.Empty(t, res.Runs)
}
