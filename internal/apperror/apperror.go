// Package apperror defines the recoverable failure kinds returned by services.
// Any other error reaching a handler is an infrastructure failure.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a recoverable failure.
type Kind string

const (
	KindValidation Kind = "VALIDATION" // malformed or missing input
	KindNotFound   Kind = "NOT_FOUND"  // referenced entity does not exist
	KindConflict   Kind = "CONFLICT"   // state invariant would be violated
	KindIneligible Kind = "INELIGIBLE" // business rule rejects the action
)

// Error carries a Kind and a reason meant for the end user.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) error {
	return newf(KindValidation, format, args...)
}

func NotFound(format string, args ...interface{}) error {
	return newf(KindNotFound, format, args...)
}

func Conflict(format string, args ...interface{}) error {
	return newf(KindConflict, format, args...)
}

func Ineligible(format string, args ...interface{}) error {
	return newf(KindIneligible, format, args...)
}

// Wrap attaches a kind and reason to an underlying error.
func Wrap(kind Kind, err error, reason string) error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Reason returns the user-facing reason of err, falling back to err.Error().
func Reason(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Reason
	}
	return err.Error()
}
