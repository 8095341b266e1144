package engine

import (
	"errors"
	"fmt"
)

// ErrorKind classifies engine failures.
type ErrorKind string

const (
	// KindSpawn means the process could not be started (missing or not executable).
	KindSpawn ErrorKind = "spawn"

	// KindHandshakeTimeout means the engine did not finish discovery in time.
	// It is reported but never fails Start.
	KindHandshakeTimeout ErrorKind = "handshake_timeout"

	// KindIO means a command could not be written to the process.
	KindIO ErrorKind = "io"

	// KindInvalidState means the operation does not apply in the current state.
	KindInvalidState ErrorKind = "invalid_state"

	// KindProcessExited means the process went away during an operation.
	KindProcessExited ErrorKind = "process_exited"
)

// Sentinel causes for KindInvalidState errors.
var (
	ErrAlreadyRunning = errors.New("engine already running")
	ErrNotRunning     = errors.New("engine not running")
	ErrNotSearching   = errors.New("engine not searching")
)

// Error is a classified engine error.
type Error struct {
	// Kind is the error classification.
	Kind ErrorKind

	// Engine is the name of the engine involved.
	Engine string

	// Op is the operation being performed.
	Op string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] engine %q", e.Kind, e.Engine)
	if e.Op != "" {
		msg += " " + e.Op
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newError(kind ErrorKind, engine, op string, err error) *Error {
	return &Error{Kind: kind, Engine: engine, Op: op, Err: err}
}

func kindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsSpawn returns true if the process could not be started.
func IsSpawn(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindSpawn
}

// IsInvalidState returns true if the operation was a no-op for the current state.
func IsInvalidState(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindInvalidState
}

// IsIO returns true if writing to the process failed.
func IsIO(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindIO
}
