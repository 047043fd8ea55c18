package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/vademecum-api/internal/store"
)

// ArtifactServiceError wraps errors from the artifact service with context.
type ArtifactServiceError struct {
	// Operation is the operation that failed (e.g., "get_or_generate", "explain")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ArtifactServiceError.
func (e *ArtifactServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("artifact service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("artifact service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ArtifactServiceError) Unwrap() error {
	return e.Err
}

// storeFailure names the class of a store error for log lines.
func storeFailure(err error) string {
	switch {
	case store.IsNotFoundError(err):
		return "not_found"
	case errors.Is(err, store.ErrSchemaMismatch):
		return "schema_mismatch"
	case errors.Is(err, store.ErrCorruptArtifact):
		return "corrupt_artifact"
	case errors.Is(err, store.ErrUpdateFailed):
		return "update_failed"
	default:
		return "unavailable"
	}
}
