package census

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package matches exactly one of
// these with errors.Is.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrTransport         = errors.New("transport error")
	ErrAPI               = errors.New("census api error")
	ErrMalformedResponse = errors.New("malformed response")
	ErrInvalidData       = errors.New("invalid data")
)

// Pipeline stages reported by StageError
const (
	StagePredicates = "predicates"
	StageFetch      = "fetch"
	StageAggregate  = "aggregate"
	StageGeoid      = "geoid"
	StageProject    = "project"
)

// APIError is a non-success HTTP status returned by the Census API
type APIError struct {
	StatusCode int
	Body       string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("census api returned status %d: %s", e.StatusCode, e.Body)
}

// Unwrap lets errors.Is(err, ErrAPI) match.
func (e *APIError) Unwrap() error {
	return ErrAPI
}

// StageError represents a pipeline error with a specific stage
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("census pipeline error at %s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError creates a new StageError
func NewStageError(stage string, err error) *StageError {
	return &StageError{
		Stage: stage,
		Err:   err,
	}
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}
