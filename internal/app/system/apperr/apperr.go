// Package apperr classifies application errors so the HTTP layer can map
// them to status codes without inspecting error strings.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the error category.
type Kind int

const (
	// Internal is the fallback for unclassified errors. Clients see a
	// generic message; the real error is only logged.
	Internal Kind = iota
	NotFound
	PermissionDenied
	InvalidState
	Validation
	LimitExceeded
	Unauthenticated
)

// Error carries a kind plus a client-safe message. Wrap keeps the cause
// for logging.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the kind from an error chain, defaulting to Internal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

// Message returns the client-safe message for an error chain. Internal
// errors get a generic message so details never leak.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Kind != Internal {
		return ae.Message
	}
	return "internal server error"
}

func newf(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a NotFound error.
func NotFoundf(format string, args ...any) *Error { return newf(NotFound, format, args...) }

// Deniedf builds a PermissionDenied error. Keep the message to the action
// refused; never include details about other organizations.
func Deniedf(format string, args ...any) *Error { return newf(PermissionDenied, format, args...) }

// Invalidf builds an InvalidState error (legal request, wrong entity state).
func Invalidf(format string, args ...any) *Error { return newf(InvalidState, format, args...) }

// Validationf builds a Validation error (malformed or missing input).
func Validationf(format string, args ...any) *Error { return newf(Validation, format, args...) }

// Limitf builds a LimitExceeded error (plan ceiling reached).
func Limitf(format string, args ...any) *Error { return newf(LimitExceeded, format, args...) }

// Unauthf builds an Unauthenticated error.
func Unauthf(format string, args ...any) *Error { return newf(Unauthenticated, format, args...) }

// Wrap attaches a cause to a classified error.
func Wrap(err error, k Kind, message string) *Error {
	return &Error{Kind: k, Message: message, Err: err}
}
