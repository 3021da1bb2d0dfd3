package jobs

import (
	"context"
	"time"
)

// Store persists job records.
//
// Implementations must make Finish atomic per record: of two concurrent
// Finish calls for the same running id, exactly one succeeds and the other
// returns ErrAlreadyFinished. Lookups of ids that were never inserted return
// ErrUnknownJob. Any other error is treated as a persistence failure.
type Store interface {
	// Insert persists a new running record.
	Insert(ctx context.Context, rec Record) error

	// Get returns the record with the given id.
	Get(ctx context.Context, id string) (Record, error)

	// Finish sets the end time and terminal status of a running record
	// and returns the updated record.
	Finish(ctx context.Context, id string, end time.Time, status Status) (Record, error)

	// List returns records ordered by start time.
	List(ctx context.Context, opts ListOptions) ([]Record, error)

	// Prune deletes terminal records that ended before the cutoff.
	// Running records are never deleted.
	Prune(ctx context.Context, before time.Time) (int64, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend resources.
	Close() error
}
