package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // successful execution
	ExitFailure      = 1 // operation failed (not found, generation mismatch, etc.)
	ExitCommandError = 2 // command error (bad flags, config, backend)
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // exit code (use ExitFailure or ExitCommandError)
	Message string // error message
	Err     error  // underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // separate writer for diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses. Code carries the
// operation status code (2 = not found, 4 = parameter error, ...).
type CLIError struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output: one indented JSON object, since the
	// payload is dynamic anyway.
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// Error outputs an operation failure in the configured format.
func (f *OutputFormatter) Error(code int64, message string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
			},
		})
	}
	_, err := fmt.Fprintf(f.Writer, "Error [%d]: %s\n", code, message)
	return err
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// waiter bridges one async client call back into the command's
// synchronous RunE.
type waiter struct {
	ch chan callResult
}

type callResult struct {
	errObj map[string]any
	data   any
}

func newWaiter() *waiter {
	return &waiter{ch: make(chan callResult, 1)}
}

// done records the callback outcome. Called at most once per command.
func (w *waiter) done(errObj map[string]any, data any) {
	w.ch <- callResult{errObj: errObj, data: data}
}

// wait blocks for the callback and renders the outcome. Operation
// failures map to ExitFailure.
func (w *waiter) wait(f *OutputFormatter) error {
	res := <-w.ch
	code, _ := res.errObj["code"].(int64)
	if code != 0 {
		message, _ := res.errObj["message"].(string)
		if err := f.Error(code, message); err != nil {
			return err
		}
		return NewExitError(ExitFailure, message)
	}
	return f.Success(res.data)
}
