package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced activity type, event, venue
	// or interest does not exist
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a uniqueness guard rejected a write because
	// a concurrent caller already made it
	ErrConflict = errors.New("conflict")
)

// ValidationError rejects malformed input before any write happens
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// NewValidationError builds a ValidationError for a field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ExternalServiceError wraps failures of the language model or other
// collaborators. Callers log these and fall back; they are never fatal
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is (or wraps) a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
