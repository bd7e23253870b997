// Package errs defines the error kinds shared by the triage pipeline.
//
// Callers classify failures with errors.Is against the sentinel values; the
// HTTP layer maps each kind to a status code.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrValidation              = errors.New("validation failed")
	ErrNotFound                = errors.New("not found")
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	ErrCapacityConflict        = errors.New("insufficient resource capacity")
	ErrMalformedOutput         = errors.New("malformed collaborator output")
	ErrInvalidTransition       = errors.New("invalid status transition")
)

// StageError records which pipeline stage failed for a request.
type StageError struct {
	RequestID string
	Stage     string
	Err       error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("request %s: %s: %v", e.RequestID, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Stage wraps err with the request and stage it occurred in. A nil err
// returns nil.
func Stage(requestID, stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{RequestID: requestID, Stage: stage, Err: err}
}

// Validationf returns an ErrValidation with a formatted detail message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf returns an ErrNotFound with a formatted detail message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
