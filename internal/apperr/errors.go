package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"
)

type Kind string

const (
	KindNotAuthenticated Kind = "not_authenticated"
	KindNotFound         Kind = "not_found"
	KindTransport        Kind = "transport"
	KindUnknown          Kind = "unknown"
	KindInvalidArgument  Kind = "invalid_argument"
	KindConflict         Kind = "conflict"
)

// Error is the classified error every repository hands to the state layer.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Kind sentinels. errors.Is(err, ErrNotFound) holds for any *Error of that kind.
var (
	ErrNotAuthenticated = &Error{Kind: KindNotAuthenticated}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrTransport        = &Error{Kind: KindTransport}
	ErrUnknown          = &Error{Kind: KindUnknown}
	ErrInvalidArgument  = &Error{Kind: KindInvalidArgument}
	ErrConflict         = &Error{Kind: KindConflict}
)

// ErrLoggedOut is published by the profile controller after sign-out.
var ErrLoggedOut = &Error{Kind: KindNotAuthenticated, Message: "user logged out"}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message == "" && t.Err == nil {
		return t.Kind == e.Kind
	}
	return false
}

// KindOf reports the kind of err without allocating a new error.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if isTransport(err) {
		return KindTransport
	}
	return KindUnknown
}

// Classify returns err as an *Error, assigning a kind to foreign errors.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if isTransport(err) {
		return Wrap(KindTransport, err, "transport error")
	}
	return Wrap(KindUnknown, err, "unexpected error")
}

func isTransport(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
