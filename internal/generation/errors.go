package generation

import (
	"errors"
	"fmt"
)

// Common errors returned by the generation package
var (
	// ErrProviderUnavailable is returned when the completion endpoint fails or
	// answers with a non-2xx status.
	ErrProviderUnavailable = errors.New("generation provider unavailable")

	// ErrRateLimited is the HTTP 429 case of ErrProviderUnavailable. Callers can
	// show a "try again later" message.
	ErrRateLimited = fmt.Errorf("%w: rate limited", ErrProviderUnavailable)

	// ErrQuotaExceeded is returned when the provider account has no credits left.
	ErrQuotaExceeded = errors.New("generation provider quota exceeded")

	// ErrInvalidResponse is returned when the provider output cannot be parsed
	// into the expected structured shape.
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrContentBlocked is returned when the provider refuses the content due to
	// safety filters.
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrEmptySourceText is returned when there is no source text to generate from.
	ErrEmptySourceText = errors.New("source text cannot be empty")

	// ErrUnsupportedKind is returned when a content kind has no prompt template.
	ErrUnsupportedKind = errors.New("unsupported content kind")

	// ErrInvalidConfig is returned when the generator configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")
)

// ParseError reports provider output that did not match the expected shape.
// It keeps the raw text for logging; it is never returned to callers.
type ParseError struct {
	Raw string
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%v: %v", ErrInvalidResponse, e.Err)
}

// Unwrap lets errors.Is match both ErrInvalidResponse and the underlying cause.
func (e *ParseError) Unwrap() []error {
	return []error{ErrInvalidResponse, e.Err}
}
