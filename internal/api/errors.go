package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/vademecum-api/internal/api/shared"
	"github.com/phrazzld/vademecum-api/internal/domain"
	"github.com/phrazzld/vademecum-api/internal/generation"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Provider errors. Rate limiting wraps ErrProviderUnavailable, so it
	// must be checked first.
	case errors.Is(err, generation.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, generation.ErrQuotaExceeded):
		return http.StatusPaymentRequired
	case errors.Is(err, generation.ErrProviderUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, generation.ErrContentBlocked):
		return http.StatusUnprocessableEntity
	case errors.Is(err, generation.ErrInvalidResponse):
		return http.StatusInternalServerError

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, generation.ErrEmptySourceText),
		errors.Is(err, generation.ErrUnsupportedKind),
		errors.As(err, new(validator.ValidationErrors)),
		isDecodeError(err):
		return http.StatusBadRequest

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, generation.ErrRateLimited):
		return "The content provider is rate limiting requests, please try again shortly"
	case errors.Is(err, generation.ErrQuotaExceeded):
		return "The content provider quota has been exhausted"
	case errors.Is(err, generation.ErrProviderUnavailable):
		return "The content provider is unavailable"
	case errors.Is(err, generation.ErrContentBlocked):
		return "The content provider refused to generate this content"
	case errors.Is(err, generation.ErrInvalidResponse):
		return "The content provider returned an invalid response"

	case errors.Is(err, generation.ErrEmptySourceText):
		return "Article text is required"
	case errors.Is(err, generation.ErrUnsupportedKind),
		errors.Is(err, domain.ErrUnknownContentKind):
		return "Unsupported content type"
	case isDecodeError(err):
		return "Invalid request format"
	case errors.As(err, new(validator.ValidationErrors)):
		return SanitizeValidationError(err)
	case errors.Is(err, domain.ErrValidation):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			return fmt.Sprintf("Invalid %s: %s", ve.Field, ve.Message)
		}
		return "Validation error"

	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError maps err to a status and safe message, logs the redacted
// error and writes the response. A non-empty fallback replaces the generic
// message of unmapped internal errors.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if fallback != "" && message == "An unexpected error occurred" {
		message = fallback
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

// requestDecodeError marks a malformed request body.
type requestDecodeError struct {
	err error
}

func (e *requestDecodeError) Error() string {
	return "invalid request body: " + e.err.Error()
}

func (e *requestDecodeError) Unwrap() error {
	return e.err
}

// isDecodeError reports whether err came from decoding the request body.
func isDecodeError(err error) bool {
	var de *requestDecodeError
	return errors.As(err, &de)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	if strings.Contains(errMsg, "Field validation") {
		// Example format: "Key: 'ContentRequest.Tipo' Error:Field validation for 'Tipo' failed on the 'required' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
