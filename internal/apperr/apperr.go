// Package apperr defines the client-facing error variant returned by the
// service layer. Each Error carries a Kind, the HTTP status derived from it,
// a public message and optional details; the underlying cause is wrapped
// with oops so that a stack trace is available for non-production envelopes.
package apperr

import (
	"errors"
	"net/http"

	"github.com/samber/oops"
)

// Kind classifies an Error.
type Kind string

const (
	KindValidation Kind = "VALIDATION"
	KindConflict   Kind = "CONFLICT"
	KindAuth       Kind = "AUTH"
	KindNotFound   Kind = "NOT_FOUND"
	KindServer     Kind = "SERVER"
)

// Status maps a Kind to its HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// DefaultMessage is used for errors that carry no public message.
const DefaultMessage = "Something went wrong"

// Error is the tagged error variant.
type Error struct {
	Kind    Kind
	Message string
	Details []string
	cause   error
}

func newError(kind Kind, cause error, message string, details []string) *Error {
	if message == "" {
		message = DefaultMessage
	}
	if details == nil {
		details = []string{}
	}

	builder := oops.Code(string(kind)).With("status", kind.Status())
	var wrapped error
	if cause != nil {
		wrapped = builder.Wrap(cause)
	} else {
		wrapped = builder.New(message)
	}

	return &Error{Kind: kind, Message: message, Details: details, cause: wrapped}
}

func Validation(message string, details ...string) *Error {
	return newError(KindValidation, nil, message, details)
}

func Conflict(message string, details ...string) *Error {
	return newError(KindConflict, nil, message, details)
}

func Unauthorized(message string, details ...string) *Error {
	return newError(KindAuth, nil, message, details)
}

func NotFound(message string, details ...string) *Error {
	return newError(KindNotFound, nil, message, details)
}

// Internal wraps an unexpected failure. The cause stays out of Message.
func Internal(cause error, message string) *Error {
	return newError(KindServer, cause, message, nil)
}

// Wrap attaches cause to an error of the given kind, e.g. an Auth error
// carrying the JWT verification failure behind it.
func Wrap(kind Kind, cause error, message string, details ...string) *Error {
	return newError(kind, cause, message, details)
}

func (e *Error) Error() string {
	if e.cause != nil && e.Kind == KindServer {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Status returns the HTTP status code for e.
func (e *Error) Status() int { return e.Kind.Status() }

// Stack returns the captured stack trace, or "" when none is available.
func (e *Error) Stack() string {
	if oopsErr, ok := oops.AsOops(e.cause); ok {
		return oopsErr.Stacktrace()
	}
	return ""
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err carries an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}
