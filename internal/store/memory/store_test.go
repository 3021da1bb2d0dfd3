package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leefowlercu/batch-monitor/internal/jobs"
	"github.com/leefowlercu/batch-monitor/internal/store/storetest"
)

func TestStore_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) jobs.Store { return New() })
}

func TestStore_ClosedRejectsCalls(t *testing.T) {
	s := New()
	require.NoError(t, s.Close())

	ctx := context.Background()
	assert.ErrorIs(t, s.Ping(ctx), errClosed)
	assert.ErrorIs(t, s.Insert(ctx, jobs.Record{ID: "x"}), errClosed)
	_, err := s.List(ctx, jobs.ListOptions{})
	assert.ErrorIs(t, err, errClosed)
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	start := time.Now().UTC()
	require.NoError(t, s.Insert(ctx, jobs.Record{ID: "a", Name: "n", StartTime: start, Status: jobs.StatusRunning}))

	rec, err := s.Finish(ctx, "a", start.Add(time.Second), jobs.StatusCompleted)
	require.NoError(t, err)
	*rec.EndTime = start.Add(time.Hour)

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, time.Second, got.Duration())
}
