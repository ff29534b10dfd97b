package agent

import (
	"errors"
	"fmt"
)

// Validation failures. All map to HTTP 400 at the transport boundary.
var (
	ErrMissingGoal     = errors.New("goal is required")
	ErrGoalTooShort    = errors.New("goal must be at least 3 characters")
	ErrGoalTooLong     = errors.New("goal must be at most 2500 characters")
	ErrInvalidEncoding = errors.New("goal must be valid UTF-8")
)

// IsValidationError reports whether err belongs to the request-validation
// taxonomy.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMissingGoal) ||
		errors.Is(err, ErrGoalTooShort) ||
		errors.Is(err, ErrGoalTooLong) ||
		errors.Is(err, ErrInvalidEncoding)
}

// PipelineError is a fatal stage failure. Only the drafting stage produces
// one; every other stage degrades instead.
type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline stage %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
