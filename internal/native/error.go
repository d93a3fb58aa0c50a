package native

import (
	"fmt"
	"runtime"
)

// Status codes reported through the completion callback. Code 0 is
// success; everything else identifies a failure class.
type Status int

const (
	// StatusOK indicates the operation succeeded.
	StatusOK Status = 0

	// StatusErrClient indicates a backend or connection-level failure.
	StatusErrClient Status = 1

	// StatusErrNotFound indicates the record does not exist (or has expired).
	StatusErrNotFound Status = 2

	// StatusErrGeneration indicates a generation-check mismatch on write.
	StatusErrGeneration Status = 3

	// StatusErrParam indicates malformed input detected during parsing,
	// or a value that cannot be represented in either data model.
	StatusErrParam Status = 4

	// StatusErrExists indicates an existence-policy violation
	// (create on an existing record, update/replace on a missing one).
	StatusErrExists Status = 5

	// StatusErrBinType indicates a sub-operation applied to a bin of an
	// incompatible type (e.g. incr on a string bin).
	StatusErrBinType Status = 6

	// StatusErrTimeout indicates the per-call timeout elapsed.
	StatusErrTimeout Status = 9
)

// String returns the canonical name for the status code.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusErrClient:
		return "ERR_CLIENT"
	case StatusErrNotFound:
		return "ERR_NOT_FOUND"
	case StatusErrGeneration:
		return "ERR_GENERATION"
	case StatusErrParam:
		return "ERR_PARAM"
	case StatusErrExists:
		return "ERR_EXISTS"
	case StatusErrBinType:
		return "ERR_BIN_TYPE"
	case StatusErrTimeout:
		return "ERR_TIMEOUT"
	default:
		return fmt.Sprintf("ERR_UNKNOWN(%d)", int(s))
	}
}

// maxMessageLen bounds the error message carried through completions.
const maxMessageLen = 1024

// Error is the native error record carried in every operation envelope
// and surfaced as the first callback argument. File and Line identify
// where the error was raised, for diagnostics only; they are not part
// of the dynamic error shape.
type Error struct {
	Code    Status
	Message string
	File    string
	Line    int
}

// NewError creates an Error with the caller's source location captured.
// The message is truncated to a bounded length.
func NewError(code Status, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	if len(msg) > maxMessageLen {
		msg = msg[:maxMessageLen]
	}
	e := &Error{Code: code, Message: msg}
	if _, file, line, ok := runtime.Caller(1); ok {
		e.File = file
		e.Line = line
	}
	return e
}

// ParamError creates a parameter error. Shorthand for the most common
// failure raised by the conversion layer.
func ParamError(format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	if len(msg) > maxMessageLen {
		msg = msg[:maxMessageLen]
	}
	e := &Error{Code: StatusErrParam, Message: msg}
	if _, file, line, ok := runtime.Caller(1); ok {
		e.File = file
		e.Line = line
	}
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsStatus reports whether err is a *Error with the given code.
// A nil error matches only StatusOK.
func IsStatus(err error, code Status) bool {
	if err == nil {
		return code == StatusOK
	}
	e, ok := err.(*Error)
	return ok && e.Code == code
}
