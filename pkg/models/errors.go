package models

import (
	"errors"
	"fmt"
)

// Error kinds raised inside stages.
var (
	// ErrConfiguration indicates missing connection or credential settings.
	ErrConfiguration = errors.New("configuration error")

	// ErrTranslation indicates the generative translation step is unusable.
	ErrTranslation = errors.New("translation error")

	// ErrExecution indicates a query failed against the data source.
	ErrExecution = errors.New("execution error")

	// ErrValidation indicates a supervisor postcondition or input validation failed.
	ErrValidation = errors.New("validation error")

	// ErrArtifact indicates an artifact writer or renderer failed.
	ErrArtifact = errors.New("artifact error")
)

// StageError wraps an error raised by a stage with its kind.
type StageError struct {
	Stage StageName
	Kind  error
	Err   error
}

// NewStageError wraps err with the given kind.
func NewStageError(stage StageName, kind, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	}

	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func (e *StageError) Is(target error) bool {
	return e.Kind == target
}

// IsConfigurationError reports whether err is a configuration error.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsTranslationError reports whether err is a translation error.
func IsTranslationError(err error) bool {
	return errors.Is(err, ErrTranslation)
}

// IsExecutionError reports whether err is an execution error.
func IsExecutionError(err error) bool {
	return errors.Is(err, ErrExecution)
}

// IsValidationError reports whether err is a validation error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsArtifactError reports whether err is an artifact error.
func IsArtifactError(err error) bool {
	return errors.Is(err, ErrArtifact)
}
