// Package apperr defines the error kinds surfaced by the workflow services.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation error")
)

// Error carries a caller-facing message and one of the kinds above.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func New(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) error {
	return New(ErrNotFound, format, args...)
}

func Forbidden(format string, args ...interface{}) error {
	return New(ErrForbidden, format, args...)
}

func Conflict(format string, args ...interface{}) error {
	return New(ErrConflict, format, args...)
}

func InvalidState(format string, args ...interface{}) error {
	return New(ErrInvalidState, format, args...)
}

func Validation(format string, args ...interface{}) error {
	return New(ErrValidation, format, args...)
}

// Message returns the caller-facing text for err, or "" if err carries none.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return ""
}
