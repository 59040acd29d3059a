// Package apperr defines the error taxonomy shared by all internal
// components. Components return these structured errors instead of raw
// strings; the route layer maps kinds onto HTTP error responses and decides
// retry vs. abort.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how the caller should react to it.
type Kind int

const (
	// KindNotFound - missing snapshot, user or course. Recoverable by
	// falling back to an empty/default state.
	KindNotFound Kind = iota
	// KindPersistence - blob or record store I/O failure. Retryable.
	KindPersistence
	// KindEmbedding - embedding service failure. Retryable with backoff.
	KindEmbedding
	// KindCompletion - completion service failure. Retryable with backoff.
	KindCompletion
	// KindConfiguration - dimension mismatch or missing required setting.
	// Fatal, never retried.
	KindConfiguration
	// KindValidation - rejected request (oversized query, token ceiling).
	// Surfaced to the caller, not retried.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindPersistence:
		return "persistence_error"
	case KindEmbedding:
		return "embedding_error"
	case KindCompletion:
		return "completion_error"
	case KindConfiguration:
		return "configuration_error"
	case KindValidation:
		return "validation_error"
	default:
		return "unknown_error"
	}
}

// Error carries a kind, a human-readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error without a cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error wrapping an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// NotFoundf builds a formatted not-found error.
func NotFoundf(format string, args ...any) *Error {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}

// KindOf returns the kind of err, or KindPersistence when err carries no
// taxonomy information (an unclassified failure is treated as retryable I/O).
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindPersistence
}

// Is reports whether err has the given kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}
