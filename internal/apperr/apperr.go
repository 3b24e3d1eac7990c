// Package apperr defines the error kinds shared by the storage, auth and
// catalog layers and how each kind surfaces over HTTP.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	Internal Kind = iota
	Unauthenticated
	Forbidden
	NotFound
	Conflict
	InvalidInput
	CorruptData
)

func (k Kind) String() string {
	switch k {
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not found"
	case Conflict:
		return "conflict"
	case InvalidInput:
		return "invalid input"
	case CorruptData:
		return "corrupt data"
	default:
		return "internal"
	}
}

// Error carries a Kind plus an optional message and cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

var (
	ErrUnauthenticated = &Error{Kind: Unauthenticated}
	ErrForbidden       = &Error{Kind: Forbidden}
	ErrNotFound        = &Error{Kind: NotFound}
	ErrConflict        = &Error{Kind: Conflict}
	ErrInvalidInput    = &Error{Kind: InvalidInput}
	ErrCorruptData     = &Error{Kind: CorruptData}
)

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Kind.String() + ": " + e.Err.Error()
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the bare sentinels above by kind, so errors.Is(err, ErrNotFound)
// holds for any NotFound error regardless of its message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Msg != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, err error, msg string) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Message returns the client-facing message for err. Internal and corrupt
// data errors never leak their cause.
func Message(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusText(http.StatusInternalServerError)
	}
	switch e.Kind {
	case Internal, CorruptData:
		return http.StatusText(http.StatusInternalServerError)
	}
	if e.Msg != "" {
		return e.Msg
	}
	return e.Kind.String()
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case InvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
