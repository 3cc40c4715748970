package rpc

import (
	"errors"
	"fmt"
)

// Kind classifies a run-time failure.
type Kind string

const (
	// KindRejected means the contract refused the request. The dispatcher
	// was not called.
	KindRejected Kind = "rejected"

	// KindDecode means the request body, envelope tag, fields or origin
	// version could not be understood.
	KindDecode Kind = "decode"

	// KindHandler means the operation itself returned an error.
	KindHandler Kind = "handler"

	// KindTransport means the request never produced a response: connection
	// failure, timeout, cancellation or a malformed reply.
	KindTransport Kind = "transport"
)

// ErrRPC is a sentinel matched by every *Error via errors.Is.
var ErrRPC = errors.New("rpc error")

// Error is the run-time error type shared by server and client.
type Error struct {
	Kind    Kind
	Tag     string // envelope tag of the call, if known
	Message string
	Err     error
}

func (e *Error) Error() string {
	var msg string
	if e.Tag != "" {
		msg = fmt.Sprintf("%s error in %s: %s", e.Kind, e.Tag, e.Message)
	} else {
		msg = fmt.Sprintf("%s error: %s", e.Kind, e.Message)
	}
	if e.Err != nil && e.Err.Error() != e.Message {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrRPC or an *Error of the same kind.
func (e *Error) Is(target error) bool {
	if target == ErrRPC {
		return true
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == "" || t.Kind == e.Kind
}

// Errorf builds an *Error of the given kind.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// wrap builds an *Error carrying cause.
func wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind of err, or KindHandler for errors that did not
// originate in this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindHandler
}
