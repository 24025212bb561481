package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks bad input: negative amounts, empty required fields, bad counts
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a referenced colony, room, rental or company with no matching rows
	ErrNotFound = errors.New("not found")
	// ErrConflict marks an operation that would break a room/rental invariant
	ErrConflict = errors.New("conflict")
	// ErrStore marks a failed persistence call; the collaborator's error stays in the chain
	ErrStore = errors.New("store error")
)

// Validation returns an error wrapping ErrValidation
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound returns an error wrapping ErrNotFound
func NotFound(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Conflict returns an error wrapping ErrConflict
func Conflict(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// Store wraps a persistence failure for the named operation
func Store(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}

// Kind returns a short label for the error class, used in logs and metrics
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrStore):
		return "store"
	default:
		return "internal"
	}
}
