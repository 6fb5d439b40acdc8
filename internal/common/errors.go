// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")
)

// StatusError is an error carrying an HTTP-like status code for the caller
// (the IPC layer, out of scope here) to marshal into a transport response.
type StatusError struct {
	Err        error
	Message    string
	Status     int
	ExistingID int64 // set for conflicts on duplicate pairings
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a 400 error for a missing or invalid input.
func NewValidationError(message string) error {
	return &StatusError{Status: 400, Message: message}
}

// NewNotFoundError creates a 404 error wrapping the underlying cause.
func NewNotFoundError(message string, err error) error {
	return &StatusError{Status: 404, Message: message, Err: err}
}

// NewConflictError creates a 409 error referencing the conflicting entity.
func NewConflictError(message string, existingID int64) error {
	return &StatusError{Status: 409, Message: message, ExistingID: existingID, Err: ErrDuplicateEntry}
}

// StatusOf returns the status code carried by err, or 0 when err carries none
// (infrastructure errors propagate without a status).
func StatusOf(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status
	}
	return 0
}
