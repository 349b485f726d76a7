// Package domainerrors provides coded errors for the registry's domain
// layer. Stores report infrastructure facts via pkg/platform/sentinel;
// services translate those facts (and their own rule checks) into coded
// errors so callers can branch on the kind without parsing messages.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies the kind of domain failure.
type Code string

const (
	// CodeNotFound: referenced entity absent or already soft-deleted.
	CodeNotFound Code = "not_found"
	// CodeConflict: uniqueness or exclusivity invariant violated.
	CodeConflict Code = "conflict"
	// CodeInvalidState: operation illegal from the entity's current state.
	CodeInvalidState Code = "invalid_state"
	// CodeValidation: value-level precondition failed.
	CodeValidation Code = "validation_failed"
	// CodeInternal: storage failure or transaction abort unrelated to
	// business rules.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. It wraps an optional cause so errors.Is
// and errors.As keep working through the translation layers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is treats two domain errors with the same code as equivalent, so tests
// can assert errors.Is(err, domainerrors.New(CodeConflict, "")).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && (t.Message == "" || t.Message == e.Message)
}

// New builds a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Wrapf attaches a code and formatted message to an underlying error.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code Code) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}

// CodeOf returns the code carried by err, or CodeInternal when err is not a
// domain error. A nil err returns the empty code.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return CodeInternal
	}
	return e.Code
}
