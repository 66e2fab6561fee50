package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrRunNotFound indicates no run exists for the given identifier.
	ErrRunNotFound = errors.New("run not found")

	// ErrInvalidMessage indicates a memory message is missing its user or role.
	ErrInvalidMessage = errors.New("invalid memory message")
)

// RunError wraps run related errors with the operation and run identifier.
type RunError struct {
	Op    string
	RunID string
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s operation failed for run %s: %v", e.Op, e.RunID, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// NewRunNotFoundError creates a RunError for a missing run.
func NewRunNotFoundError(op, runID string) error {
	return &RunError{Op: op, RunID: runID, Err: ErrRunNotFound}
}

// IsRunNotFound reports whether err indicates a missing run.
func IsRunNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound)
}
