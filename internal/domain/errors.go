// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain value fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidFormat is returned when data is not in the expected format.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrUnknownContentKind is returned when a content kind selector is not recognized.
	ErrUnknownContentKind = fmt.Errorf("%w: unknown content kind", ErrValidation)

	// ErrUnknownCollection is returned when a collection code is not registered.
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrEmptyArticleNumber is returned when a source key has no article number.
	ErrEmptyArticleNumber = fmt.Errorf("%w: article number cannot be empty", ErrValidation)

	// ErrInvalidTableName is returned when a collection maps to a table name
	// that is not a plain SQL identifier.
	ErrInvalidTableName = errors.New("invalid collection table name")

	// ErrEmptyPayload is returned when a payload carries no content.
	ErrEmptyPayload = errors.New("payload is empty")

	// ErrInvalidPayload is returned when a payload element fails validation.
	ErrInvalidPayload = errors.New("invalid payload")
)

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Unwrap returns the wrapped sentinel so errors.Is keeps working.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a ValidationError for the given field. When err is
// nil the error wraps ErrValidation.
func NewValidationError(field, message string, err error) *ValidationError {
	if err == nil {
		err = ErrValidation
	}
	return &ValidationError{Field: field, Message: message, Err: err}
}
