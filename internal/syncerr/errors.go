// Package syncerr is the error taxonomy shared by the sync layer, the HTTP
// client and the editing helpers.
package syncerr

import (
	"errors"
	"fmt"
)

var (
	ErrConflict   = errors.New("version conflict")
	ErrNotFound   = errors.New("not found")
	ErrTransport  = errors.New("transport failure")
	ErrValidation = errors.New("validation failed")
)

// ConflictError reports that the remote version token no longer matches the
// one a write was based on.
type ConflictError struct {
	// Resource is the document kind or asset path that was written.
	Resource        string
	ExpectedVersion string
	// Attempts is how many saves were tried before giving up.
	Attempts int
	// Message is the remote's explanation, when it sent one.
	Message string
}

func (e *ConflictError) Error() string {
	msg := fmt.Sprintf("version conflict on %s (expected version %q)", e.Resource, e.ExpectedVersion)
	if e.Attempts > 1 {
		msg += fmt.Sprintf(" after %d attempts", e.Attempts)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// TransportError is a network or HTTP failure unrelated to versioning.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: transport failure (status %d): %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// ValidationError is a local check that failed before any network call.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFound wraps ErrNotFound with the operation and resource that were missing.
func NotFound(op, resource string) error {
	return fmt.Errorf("%s %s: %w", op, resource, ErrNotFound)
}

func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsTransport(err error) bool { return errors.Is(err, ErrTransport) }

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// AsConflict extracts the ConflictError from err's chain.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
