package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for the recoverable failure modes of the store. Callers
// branch with errors.Is and surface them to the operator; none are retried
// internally.
var (
	ErrNotFound          = errors.New("visitor record not found")
	ErrAlreadyCheckedOut = errors.New("visitor already checked out")
	ErrInvalidRange      = errors.New("check-out time precedes check-in time")
	ErrBlacklisted       = errors.New("hp number is blacklisted")
	ErrActiveVisit       = errors.New("visitor already has an active visit")
)

// ValidationError names the request field that was missing or malformed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("field %q is required", e.Field)
	}
	return fmt.Sprintf("field %q is invalid: %s", e.Field, e.Reason)
}

func missingField(field string) error {
	return &ValidationError{Field: field}
}

func invalidField(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// SchemaError marks the store as unusable. It is fatal: raised from
// EnsureSchema at startup and never retried.
type SchemaError struct {
	Step string
	Err  error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema step %s: %v", e.Step, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}
