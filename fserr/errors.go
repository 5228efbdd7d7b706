// Package fserr defines the stable error taxonomy shared by every dualfs
// backend and by the dispatcher.
//
// Backends translate provider failures into one of a handful of kinds so that
// callers can branch on the kind with errors.Is instead of inspecting
// platform-specific codes.
package fserr

import (
	"errors"
	"fmt"
	"io"
)

// Kind classifies an error.
type Kind int

const (
	// KindUnknown is reported by KindOf for errors outside the taxonomy.
	KindUnknown Kind = iota
	// KindNotImplemented means the backend does not implement the operation.
	KindNotImplemented
	// KindNoEntry means the target path or one of its ancestors does not exist.
	KindNoEntry
	// KindIO covers every other provider failure.
	KindIO
	// KindCapability means the backend has no branch for the requested mode.
	KindCapability
	// KindInvocation means the caller did not supply a required input.
	KindInvocation
)

// String returns the kind name used in logs, metrics and scripts.
func (k Kind) String() string {
	switch k {
	case KindNotImplemented:
		return "NotImplemented"
	case KindNoEntry:
		return "NoEntry"
	case KindIO:
		return "IOError"
	case KindCapability:
		return "Capability"
	case KindInvocation:
		return "Invocation"
	default:
		return "Unknown"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k := KindNotImplemented; k <= KindInvocation; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return KindUnknown, false
}

// Error is the error record returned by backends and the dispatcher.
type Error struct {
	Kind Kind
	// Op is the operation name, e.g. "readFile".
	Op   string
	Path string
	// Code is the platform or provider code (ENOENT, NoSuchKey, ...), if any.
	Code string
	Msg  string
	// Err is the original cause. Provider causes carry a stack trace.
	Err error
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrNotImplemented = &Error{Kind: KindNotImplemented}
	ErrNoEntry        = &Error{Kind: KindNoEntry}
	ErrIO             = &Error{Kind: KindIO}
	ErrCapability     = &Error{Kind: KindCapability}
	ErrInvocation     = &Error{Kind: KindInvocation}
)

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	switch {
	case e.Op != "" && e.Path != "":
		return fmt.Sprintf("%s %s: %s", e.Op, e.Path, msg)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, msg)
	default:
		return msg
	}
}

// Unwrap returns the original cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Format prints the cause and its stack trace under %+v.
func (e *Error) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') && e.Err != nil {
			_, _ = io.WriteString(s, e.Error())
			_, _ = fmt.Fprintf(s, "\n%+v", e.Err)
			return
		}
		fallthrough
	case 's':
		_, _ = io.WriteString(s, e.Error())
	case 'q':
		_, _ = fmt.Fprintf(s, "%q", e.Error())
	}
}

// KindOf returns the kind of err, or KindUnknown when err is nil or not an *Error.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// IsNoEntry reports whether err is a NoEntry error.
func IsNoEntry(err error) bool {
	return errors.Is(err, ErrNoEntry)
}

// NotImplemented returns the error of an operation a backend does not provide.
func NotImplemented(op string) *Error {
	return &Error{Kind: KindNotImplemented, Op: op, Msg: "not implemented"}
}

// Capability returns the error raised when a backend has no branch for mode.
func Capability(op, mode, backend string) *Error {
	return &Error{
		Kind: KindCapability,
		Op:   op,
		Msg:  fmt.Sprintf("backend %s has no %s implementation", backend, mode),
	}
}

// Invocation returns the error raised for a caller programming mistake.
func Invocation(op, format string, args ...any) *Error {
	return &Error{Kind: KindInvocation, Op: op, Msg: fmt.Sprintf(format, args...)}
}
