// Package jobs implements the batch job registry: starting and ending job
// runs, and reading them back for export.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Operation names reported to a Recorder.
const (
	OpStart = "start"
	OpEnd   = "end"
	OpGet   = "get"
	OpList  = "list"
	OpPrune = "prune"
)

// Recorder receives the outcome of every registry operation.
type Recorder interface {
	RecordOperation(op string, duration time.Duration, err error)
}

// Registry tracks job runs on top of a Store.
// It is safe for concurrent use; construct one per process and share it.
type Registry struct {
	store    Store
	clock    clockwork.Clock
	logger   *slog.Logger
	recorder Recorder
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock sets the clock used for start and end timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(r *Registry) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithLogger sets the registry logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRecorder sets the operation recorder.
func WithRecorder(rec Recorder) Option {
	return func(r *Registry) {
		r.recorder = rec
	}
}

// NewRegistry creates a registry backed by store.
func NewRegistry(store Store, opts ...Option) *Registry {
	r := &Registry{
		store:  store,
		clock:  clockwork.NewRealClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "registry")
	return r
}

// Store returns the underlying store.
func (r *Registry) Store() Store {
	return r.store
}

// Start records the start of a job run and returns the new record.
// Every call allocates a fresh id, even for a name that is already running.
func (r *Registry) Start(ctx context.Context, name string) (rec Record, err error) {
	defer r.observe(OpStart, r.clock.Now(), &err)

	name = strings.TrimSpace(name)
	if err := ValidateName(name); err != nil {
		return Record{}, err
	}

	rec = Record{
		ID:        uuid.NewString(),
		Name:      name,
		StartTime: r.clock.Now().UTC(),
		Status:    StatusRunning,
	}

	if err := r.store.Insert(ctx, rec); err != nil {
		r.logger.Error("failed to register job start", "job_name", name, "error", err)
		return Record{}, wrapStoreError("insert", err)
	}

	r.logger.Info("registered job start", "job_name", name, "job_id", rec.ID)
	return rec, nil
}

// End records the end of a running job with a terminal status.
//
// Returns ErrInvalidStatus for a non-terminal status, ErrUnknownJob for an id
// that was never issued and ErrAlreadyFinished when the job has already ended.
func (r *Registry) End(ctx context.Context, id string, status Status) (rec Record, err error) {
	defer r.observe(OpEnd, r.clock.Now(), &err)

	if !status.Terminal() {
		return Record{}, fmt.Errorf("%w: end status must be completed or failed, got %q", ErrInvalidStatus, string(status))
	}

	current, err := r.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUnknownJob) {
			r.logger.Warn("job end for unknown id", "job_id", id)
		}
		return Record{}, wrapStoreError("get", err)
	}
	if current.Status.Terminal() {
		r.logger.Warn("job already finished", "job_id", id, "job_name", current.Name, "status", current.Status)
		return Record{}, ErrAlreadyFinished
	}

	end := r.clock.Now().UTC()
	if end.Before(current.StartTime) {
		end = current.StartTime
	}

	rec, err = r.store.Finish(ctx, id, end, status)
	if err != nil {
		if !errors.Is(err, ErrAlreadyFinished) {
			r.logger.Error("failed to register job end", "job_id", id, "error", err)
		}
		return Record{}, wrapStoreError("finish", err)
	}

	r.logger.Info("registered job end",
		"job_name", rec.Name,
		"job_id", rec.ID,
		"status", rec.Status,
		"duration_seconds", rec.Duration().Seconds(),
	)
	return rec, nil
}

// Get returns a single job record.
func (r *Registry) Get(ctx context.Context, id string) (rec Record, err error) {
	defer r.observe(OpGet, r.clock.Now(), &err)

	rec, err = r.store.Get(ctx, id)
	if err != nil {
		return Record{}, wrapStoreError("get", err)
	}
	return rec, nil
}

// List returns job records matching opts.
func (r *Registry) List(ctx context.Context, opts ListOptions) (recs []Record, err error) {
	defer r.observe(OpList, r.clock.Now(), &err)

	recs, err = r.store.List(ctx, opts)
	if err != nil {
		return nil, wrapStoreError("list", err)
	}
	return recs, nil
}

// Prune deletes finished jobs that ended more than olderThan ago.
func (r *Registry) Prune(ctx context.Context, olderThan time.Duration) (n int64, err error) {
	defer r.observe(OpPrune, r.clock.Now(), &err)

	if olderThan <= 0 {
		return 0, fmt.Errorf("retention must be positive, got %s", olderThan)
	}

	cutoff := r.clock.Now().UTC().Add(-olderThan)
	n, err = r.store.Prune(ctx, cutoff)
	if err != nil {
		return 0, wrapStoreError("prune", err)
	}

	r.logger.Info("pruned finished jobs", "removed", n, "cutoff", cutoff)
	return n, nil
}

// Track runs fn as a monitored job named name.
//
// The job ends as completed when fn returns nil and as failed otherwise; fn's
// error is returned joined with any registry error. If fn panics the job is
// ended as failed and the panic is propagated.
func (r *Registry) Track(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	rec, err := r.Start(ctx, name)
	if err != nil {
		return err
	}

	// Ending must survive cancellation of the job's own context.
	endCtx := context.WithoutCancel(ctx)

	defer func() {
		if p := recover(); p != nil {
			if _, endErr := r.End(endCtx, rec.ID, StatusFailed); endErr != nil {
				r.logger.Error("failed to end panicked job", "job_id", rec.ID, "error", endErr)
			}
			panic(p)
		}
	}()

	runErr := fn(ContextWithJobID(ctx, rec.ID))

	status := StatusCompleted
	if runErr != nil {
		status = StatusFailed
	}

	_, endErr := r.End(endCtx, rec.ID, status)
	return errors.Join(runErr, endErr)
}

func (r *Registry) observe(op string, started time.Time, err *error) {
	if r.recorder == nil {
		return
	}
	r.recorder.RecordOperation(op, r.clock.Since(started), *err)
}

type jobIDKey struct{}

// ContextWithJobID returns a copy of ctx carrying a job id.
func ContextWithJobID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, jobIDKey{}, id)
}

// JobIDFromContext returns the job id stored by Track, if any.
func JobIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(jobIDKey{}).(string)
	return id, ok
}
