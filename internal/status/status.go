// Package status implements the closed error-kind taxonomy every fallible
// fluent operation returns through: a typed error struct with a Kind
// field and errors.As-based classification, wrapping causes with
// github.com/pkg/errors rather than bare fmt.Errorf so a stack trace is
// retained at the point of failure.
package status

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is one of the six closed error categories a fluent operation can
// fail with.
type Kind string

const (
	// ConfigError covers bad connection config or a bad bus endpoint.
	ConfigError Kind = "ConfigError"
	// SchemaError covers a duplicate collection name or a rule whose
	// output columns don't match its target collection.
	SchemaError Kind = "SchemaError"
	// NetworkError covers message-bus send/receive failure.
	NetworkError Kind = "NetworkError"
	// SerializationError covers pickling/unpickling failure.
	SerializationError Kind = "SerializationError"
	// LineageError covers a lineage SQL client failure.
	LineageError Kind = "LineageError"
	// FixpointError covers exceeding the per-tick iteration bound.
	FixpointError Kind = "FixpointError"
)

// Error is the concrete error type returned for every Kind above. It
// carries the failing Kind plus a human-readable message and, when
// wrapping a lower-level cause, that cause via pkg/errors (which attaches
// a stack trace at the point of Wrap, unlike fmt.Errorf).
type Error struct {
	kind    Kind
	message string
	cause   error
}

// New creates a status.Error of the given Kind with no wrapped cause.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, message: fmt.Sprintf(format, args...)}
}

// Wrap creates a status.Error of the given Kind, wrapping cause via
// pkg/errors.Wrap so the original stack is retained.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	if cause == nil {
		return New(kind, format, args...)
	}
	return &Error{
		kind:    kind,
		message: fmt.Sprintf(format, args...),
		cause:   errors.Wrap(cause, fmt.Sprintf(format, args...)),
	}
}

// Kind returns the error's category.
func (e *Error) Kind() Kind { return e.kind }

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s", e.kind, e.cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.kind, e.message)
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	if e.cause != nil {
		return errors.Cause(e.cause)
	}
	return nil
}

// Is reports whether err is a *status.Error of the given Kind.
func Is(err error, kind Kind) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.kind == kind
	}
	return false
}

// OK is the zero-value success status used where a caller talks
// about an operation "returning Status::OK" — in Go this is simply a nil
// error, but OK documents the convention at call sites that want to be
// explicit (e.g. in tests asserting success).
var OK error
