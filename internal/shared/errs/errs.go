// Package errs defines the typed error kinds shared across the purchase
// flow. Handlers translate kinds into HTTP status codes in exactly one
// place, so services never build responses themselves.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for transport mapping and retry semantics.
type Kind int

const (
	// KindInternal is the fallback for unexpected failures.
	KindInternal Kind = iota
	// KindNotFound: session or event absent. Non-retryable.
	KindNotFound
	// KindConflict: seat already locked/sold, or a lock was lost at
	// confirm time. The caller should re-fetch the seat matrix.
	KindConflict
	// KindValidation: bad input (invalid name, too many seats, empty
	// selection). No state was mutated.
	KindValidation
	// KindSessionNotActive: mutation attempted on a terminal session.
	KindSessionNotActive
	// KindUnauthorized: missing/invalid caller identity.
	KindUnauthorized
	// KindConsistency: partial finalization detected. Fatal, requires
	// operator reconciliation; must never be presented as retryable.
	KindConsistency
)

// Error carries a kind plus a human-readable detail.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Detail, e.Err)
	}
	return e.Detail
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a typed error with a formatted detail message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error.
func Wrap(kind Kind, err error, detail string) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// KindOf extracts the kind from err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Code returns the wire-level error code for a kind.
func (k Kind) Code() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation_error"
	case KindSessionNotActive:
		return "session_not_active"
	case KindUnauthorized:
		return "unauthorized"
	case KindConsistency:
		return "consistency_error"
	default:
		return "internal_error"
	}
}
