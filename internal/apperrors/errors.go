// Package apperrors defines the error taxonomy shared by services and
// controllers. Services return *Error values; controllers translate them to
// HTTP status codes with HTTPStatus.
package apperrors

import (
	"errors"
	"net/http"
)

// Kind classifies an application error.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindUnauthorized
	KindNotFound
	KindConflict
	KindDependency
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindDependency:
		return "dependency"
	default:
		return "unknown"
	}
}

// Error is an application error carrying a client-safe message and an
// optional wrapped cause that is only used for logging and errors.Is.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an error of the given kind with a client-safe message.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// Validation reports malformed or missing input.
func Validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Unauthorized reports an authentication failure. The message shown to
// clients is always the generic one; cause keeps the precise reason.
func Unauthorized(cause error) error {
	return &Error{Kind: KindUnauthorized, Message: "Unauthorized", Err: cause}
}

// NotFound reports a missing resource or one the caller does not own.
func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Conflict reports a uniqueness violation.
func Conflict(msg string) error {
	return &Error{Kind: KindConflict, Message: msg}
}

// Dependency reports a failure of the store, cache or notifier. msg is sent
// to clients, so it must not include details of cause.
func Dependency(msg string, cause error) error {
	return &Error{Kind: KindDependency, Message: msg, Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps err to the status code returned to clients.
// Conflicts are reported as 400 to match the public API contract.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message that is safe to send to clients.
// Wrapped causes are never included.
func PublicMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindUnknown && appErr.Message != "" {
		return appErr.Message
	}
	return "Internal server error"
}
