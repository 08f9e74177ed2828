package queryir

import (
	"errors"
	"fmt"
)

// ValidationError reports a malformed condition or request.
//
// Validation errors are caller mistakes: unknown comparators, missing
// fields, unparsable patterns, or merge updates without a condition.
// They are surfaced as-is and never retried.
type ValidationError struct {
	// Field names the offending input (e.g. "compare", "key", "filter").
	Field string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError returns true if err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
