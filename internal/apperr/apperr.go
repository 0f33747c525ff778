// Package apperr defines the closed set of error kinds that services hand back
// to the HTTP layer.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindDependency Kind = iota
	KindValidation
	KindAuthorization
	KindConflict
	KindNotFound
)

const (
	MsgInvalidCredentials = "Invalid credentials"
	MsgInvalidToken       = "Invalid or expired token"
	MsgUnexpected         = "An unexpected error occurred"
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	default:
		return "dependency"
	}
}

// Status maps a kind to the HTTP status the API answers with.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusUnauthorized
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func Authorization() *Error {
	return &Error{Kind: KindAuthorization, Message: MsgInvalidCredentials}
}

func InvalidToken() *Error {
	return &Error{Kind: KindAuthorization, Message: MsgInvalidToken}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Dependency hides err behind the generic message; the cause is kept for logs.
func Dependency(err error) *Error {
	return &Error{Kind: KindDependency, Message: MsgUnexpected, Err: err}
}

// KindOf reports the kind of err. Anything that is not an *Error is treated
// as a dependency failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindDependency
}

// Public returns the message that may be shown to a caller.
func Public(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindDependency {
		return e.Message
	}
	return MsgUnexpected
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
