package dispatch

import (
	"errors"
	"fmt"
)

// Error is a run-time dispatch failure.
//
// Construction errors (missing or unknown handlers) refuse to build a
// Dispatcher. Call errors (unknown variant, malformed arguments, unknown
// origin version, mistyped result) are reported per call.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Operation is the affected operation name, when known.
	Operation string

	// Tag is the affected envelope tag, when known.
	Tag string
}

// ErrorCode categorizes dispatch errors.
type ErrorCode string

const (
	// ErrCodeMissingHandler: an operation active at the latest version has no handler.
	ErrCodeMissingHandler ErrorCode = "E301"

	// ErrCodeUnknownHandler: a handler was registered for an operation the
	// envelope does not contain.
	ErrCodeUnknownHandler ErrorCode = "E302"

	// ErrCodeUnknownVariant: the call's tag is not in the shape of its origin version.
	ErrCodeUnknownVariant ErrorCode = "E303"

	// ErrCodeInvalidArgs: the call's fields do not match its variant.
	ErrCodeInvalidArgs ErrorCode = "E304"

	// ErrCodeUnknownVersion: the origin version is not declared by the interface.
	ErrCodeUnknownVersion ErrorCode = "E305"

	// ErrCodeInvalidResult: a handler returned a value of the wrong type.
	ErrCodeInvalidResult ErrorCode = "E306"
)

func (e *Error) Error() string {
	switch {
	case e.Tag != "":
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Tag, e.Message)
	case e.Operation != "":
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Operation, e.Message)
	default:
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
}

// HasCode reports whether err, or any error wrapped or joined anywhere
// beneath it, is an *Error with the given code.
func HasCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*Error); ok && e.Code == code {
		return true
	}
	switch u := err.(type) {
	case interface{ Unwrap() error }:
		return HasCode(u.Unwrap(), code)
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			if HasCode(inner, code) {
				return true
			}
		}
	}
	return false
}

// IsCallError reports whether err was caused by the caller rather than the
// handler: an unknown variant or version, or malformed arguments.
func IsCallError(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Code {
	case ErrCodeUnknownVariant, ErrCodeInvalidArgs, ErrCodeUnknownVersion:
		return true
	}
	return false
}
