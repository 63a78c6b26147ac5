// Package cliexit maps the submitter's error taxonomy onto process exit
// codes: a RunE function returns a typed error value instead of
// hand-coding os.Exit calls at every call site.
package cliexit

import (
	"errors"
	"fmt"
)

// Kind is one of the error kinds in the submitter's error propagation
// table.
type Kind string

const (
	KindInvalidInput Kind = "invalid-input"
	KindNoKey        Kind = "no-key"
	KindSubmitFailed Kind = "submit-failed"
	KindTimeoutLocal Kind = "timeout-local"
	KindIOError      Kind = "ioerror"
)

var exitCodes = map[Kind]int{
	KindInvalidInput: 2,
	KindNoKey:        3,
	KindSubmitFailed: 4,
	KindTimeoutLocal: 124,
	KindIOError:      5,
}

// Error is a CLI-facing error carrying the exit code its Kind maps to.
// Command RunE functions return one of these (via the constructors
// below) instead of a bare fmt.Errorf, so main can translate it into
// the right process exit code without re-deriving it from the message.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// ExitCode returns the process exit code for e's Kind.
func (e *Error) ExitCode() int {
	if code, ok := exitCodes[e.Kind]; ok {
		return code
	}
	return 1
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// InvalidInput reports a command that failed submit()'s input
// validation (empty, oversized, or containing a disallowed byte).
func InvalidInput(format string, args ...any) *Error {
	return newError(KindInvalidInput, format, args...)
}

// NoKey reports a missing guest key or a control-side key absent for
// the submitting domain.
func NoKey(format string, args ...any) *Error {
	return newError(KindNoKey, format, args...)
}

// SubmitFailed reports any failure to enqueue a request (queue
// directory I/O, migration conflict, etc.) that isn't better described
// by one of the other kinds.
func SubmitFailed(format string, args ...any) *Error {
	return newError(KindSubmitFailed, format, args...)
}

// TimeoutLocal reports the submitter's own poll deadline expiring
// before a result bundle appeared.
func TimeoutLocal(format string, args ...any) *Error {
	return newError(KindTimeoutLocal, format, args...)
}

// IOError reports a filesystem or guest-exec failure unrelated to the
// protocol itself.
func IOError(format string, args ...any) *Error {
	return newError(KindIOError, format, args...)
}

// ExitCodeOf returns the exit code for err, treating any error that
// isn't an *Error as a generic failure (exit 1).
func ExitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.ExitCode()
	}
	return 1
}
