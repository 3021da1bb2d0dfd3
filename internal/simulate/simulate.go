// Package simulate drives a job registry with a fixed set of demo batch jobs
// so dashboards and alerts can be exercised without real workloads.
package simulate

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/leefowlercu/batch-monitor/internal/jobs"
)

// DefaultJobs are the demo job names run by the simulator.
var DefaultJobs = []string{
	"data_ingestion",
	"data_transformation",
	"ml_training",
	"report_generation",
	"data_cleanup",
}

const (
	// DefaultRounds is the number of times each job runs.
	DefaultRounds = 3

	minDuration = 2 * time.Second
	maxDuration = 9 * time.Second

	// FailureThreshold is the planned duration at and above which a run fails.
	FailureThreshold = 8 * time.Second
)

// ErrSimulatedFailure is returned by a simulated job that is planned to fail.
var ErrSimulatedFailure = errors.New("simulated job failure")

// PlannedDuration returns the deterministic unscaled run time for name,
// between 2 and 9 seconds inclusive.
func PlannedDuration(name string) time.Duration {
	h := fnv.New32a()
	h.Write([]byte(name))
	span := uint32((maxDuration-minDuration)/time.Second) + 1
	return minDuration + time.Duration(h.Sum32()%span)*time.Second
}

// PlannedStatus returns the terminal status a run of name ends with.
func PlannedStatus(name string) jobs.Status {
	if PlannedDuration(name) >= FailureThreshold {
		return jobs.StatusFailed
	}
	return jobs.StatusCompleted
}

// Options configures a simulation run.
type Options struct {
	// Jobs lists job names to run each round. Empty uses DefaultJobs.
	Jobs []string
	// Rounds is the number of times every job runs. Zero uses DefaultRounds.
	Rounds int
	// Speed divides planned durations; 10 runs ten times faster. Zero means 1.
	Speed float64
	// Parallel runs the jobs of a round concurrently instead of one by one.
	Parallel bool
}

// Run is the outcome of one simulated job run.
type Run struct {
	Round  int
	Name   string
	JobID  string
	Status jobs.Status
	Slept  time.Duration
}

// Result summarizes a simulation.
type Result struct {
	Runs      []Run
	Completed int
	Failed    int
	Elapsed   time.Duration
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithClock sets the clock used for simulated work.
func WithClock(c clockwork.Clock) Option {
	return func(s *Simulator) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.logger = l
		}
	}
}

// Simulator runs demo jobs through a registry.
type Simulator struct {
	registry *jobs.Registry
	clock    clockwork.Clock
	logger   *slog.Logger
}

// New creates a simulator for registry.
func New(registry *jobs.Registry, opts ...Option) *Simulator {
	s := &Simulator{
		registry: registry,
		clock:    clockwork.NewRealClock(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "simulator")
	return s
}

// Run executes opts.Rounds rounds of every job. A job planned to fail is
// recorded as failed and does not stop the simulation; registry errors and
// context cancellation do.
func (s *Simulator) Run(ctx context.Context, opts Options) (*Result, error) {
	names := opts.Jobs
	if len(names) == 0 {
		names = DefaultJobs
	}
	rounds := opts.Rounds
	if rounds <= 0 {
		rounds = DefaultRounds
	}
	speed := opts.Speed
	if speed <= 0 {
		speed = 1
	}

	started := s.clock.Now()
	res := &Result{}
	var mu sync.Mutex
	collect := func(run Run) {
		mu.Lock()
		defer mu.Unlock()
		res.Runs = append(res.Runs, run)
		if run.Status == jobs.StatusFailed {
			res.Failed++
		} else {
			res.Completed++
		}
	}

	for round := 1; round <= rounds; round++ {
		s.logger.Info("starting simulation round", "round", round, "of", rounds, "jobs", len(names))

		if opts.Parallel {
			g, gctx := errgroup.WithContext(ctx)
			for _, name := range names {
				g.Go(func() error {
					run, err := s.runOne(gctx, round, name, speed)
					if err != nil {
						return err
					}
					collect(run)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return res, err
			}
			continue
		}

		for _, name := range names {
			run, err := s.runOne(ctx, round, name, speed)
			if err != nil {
				return res, err
			}
			collect(run)
		}
	}

	res.Elapsed = s.clock.Since(started)
	s.logger.Info("simulation finished",
		"runs", len(res.Runs),
		"completed", res.Completed,
		"failed", res.Failed,
		"elapsed", res.Elapsed,
	)
	return res, nil
}

func (s *Simulator) runOne(ctx context.Context, round int, name string, speed float64) (Run, error) {
	planned := PlannedDuration(name)
	sleep := time.Duration(float64(planned) / speed)
	run := Run{Round: round, Name: name, Slept: sleep}

	err := s.registry.Track(ctx, name, func(ctx context.Context) error {
		run.JobID, _ = jobs.JobIDFromContext(ctx)

		select {
		case <-s.clock.After(sleep):
		case <-ctx.Done():
			return ctx.Err()
		}

		if planned >= FailureThreshold {
			return ErrSimulatedFailure
		}
		return nil
	})

	switch {
	case err == nil:
		run.Status = jobs.StatusCompleted
	case errors.Is(err, ErrSimulatedFailure) && !errors.Is(err, context.Canceled) && !isRegistryError(err):
		run.Status = jobs.StatusFailed
	default:
		return run, fmt.Errorf("failed to run simulated job %s; %w", name, err)
	}

	s.logger.Debug("simulated job finished",
		"job_name", name,
		"job_id", run.JobID,
		"status", run.Status,
		"slept", sleep,
	)
	return run, nil
}

func isRegistryError(err error) bool {
	return jobs.IsStoreError(err) ||
		errors.Is(err, jobs.ErrUnknownJob) ||
		errors.Is(err, jobs.ErrAlreadyFinished) ||
		errors.Is(err, jobs.ErrInvalidName)
}
