package jobs

import (
	"errors"
	"fmt"
)

// ErrUnknownJob is returned when a job id was never issued by the store.
var ErrUnknownJob = errors.New("unknown job")

// ErrAlreadyFinished is returned when ending a job that already has a terminal status.
var ErrAlreadyFinished = errors.New("job already finished")

// ErrInvalidStatus is returned for status values outside the closed set,
// or for a non-terminal status passed to End.
var ErrInvalidStatus = errors.New("invalid job status")

// ErrInvalidName is returned for empty or oversized job names.
var ErrInvalidName = errors.New("invalid job name")

// StoreError reports a persistence failure underneath a registry operation.
// The registry never retries; callers decide whether to.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed; %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsStoreError reports whether err carries a StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// wrapStoreError passes registry sentinels through and wraps everything else.
func wrapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnknownJob) || errors.Is(err, ErrAlreadyFinished) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
