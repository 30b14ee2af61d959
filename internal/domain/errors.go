package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrMissingAPIKey  = errors.New("provider api key is not configured")
	ErrSubmission     = errors.New("submission rejected")
	ErrProvider       = errors.New("provider reported failure")
	ErrEmptyResult    = errors.New("provider returned no artifact")
	ErrTimeout        = errors.New("timed out waiting for job")
	ErrNetwork        = errors.New("network failure")
)

// JobError classifies a failure of a provider call. It unwraps to both its
// Kind sentinel and the underlying cause, so errors.Is works against either.
type JobError struct {
	Kind    error
	Op      string
	Message string
	Err     error
}

func (e *JobError) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *JobError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewJobError builds a JobError of the given kind.
func NewJobError(kind error, op, message string, cause error) *JobError {
	return &JobError{Kind: kind, Op: op, Message: message, Err: cause}
}

// InvalidRequestf reports a locally rejected request.
func InvalidRequestf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
