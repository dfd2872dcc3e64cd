package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDriverExists is returned when creating a driver whose id is taken.
	ErrDriverExists = errors.New("driver already exists")
	// ErrDriverNotFound is returned when a referenced profile is absent.
	ErrDriverNotFound = errors.New("driver not found")
	// ErrLocationNotFound is returned when a driver has no live location,
	// either because it is offline or unknown to the index.
	ErrLocationNotFound = errors.New("driver location not found")
)

// ValidationError reports malformed or missing caller input. No store is
// mutated when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// UnavailableError reports a downstream dependency failure. The dependency
// name identifies which store or service failed.
type UnavailableError struct {
	Dependency string
	Err        error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Dependency, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Unavailable wraps err as an UnavailableError for the named dependency.
func Unavailable(dependency string, err error) error {
	return &UnavailableError{Dependency: dependency, Err: err}
}
