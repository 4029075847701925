package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/persistsql/internal/config"
)

// Exit codes shared by every command.
const (
	ExitSuccess      = 0 // everything accepted
	ExitFailure      = 1 // diagnostics, refused rewrites, failing previews or scenarios
	ExitCommandError = 2 // bad paths, manifest and configuration errors, database errors
)

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError without an underlying cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError attaches an exit code to err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns the exit code carried by err, or ExitFailure for
// errors that carry none.
func GetExitCode(err error) int {
	if exitErr := (*ExitError)(nil); errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as text or as a JSON envelope.
// Verbose lines go to ErrWriter so they never mix with a JSON document.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
	RunID  string    `json:"run_id,omitempty"`
}

// CLIError is a coded error inside a CLIResponse. Codes are the loader's
// E0xx codes or compiler diagnostic codes.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON reports whether output is the JSON envelope.
func (f *OutputFormatter) JSON() bool {
	return f.Format == config.OutputJSON
}

func (f *OutputFormatter) respond(resp CLIResponse, indent bool) error {
	enc := json.NewEncoder(f.Writer)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(resp)
}

// Success writes data. Text output prints data with its default format;
// commands with richer text output print it themselves.
func (f *OutputFormatter) Success(data any) error {
	return f.SuccessRun("", data)
}

// SuccessRun is Success for results that belong to a recorded run.
func (f *OutputFormatter) SuccessRun(runID string, data any) error {
	if f.JSON() {
		return f.respond(CLIResponse{Status: "ok", Data: data, RunID: runID}, false)
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error writes a single coded error. Details are only shown in text
// output when verbose.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.JSON() {
		return f.respond(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		}, false)
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Errors writes several coded errors at once. The JSON envelope carries
// the first as its error and all of them as data.
func (f *OutputFormatter) Errors(headline string, errs []CLIError) error {
	if len(errs) == 0 {
		return nil
	}
	if f.JSON() {
		return f.respond(CLIResponse{Status: "error", Error: &errs[0], Data: errs}, true)
	}
	fmt.Fprintf(f.Writer, "✗ %s\n\n", headline)
	for _, e := range errs {
		fmt.Fprintf(f.Writer, "  %s\n", e.Message)
	}
	return nil
}

// VerboseLog writes one line to the verbose writer when verbose is on.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if f.Verbose {
		fmt.Fprintf(f.verboseWriter(), format+"\n", args...)
	}
}

func (f *OutputFormatter) verboseWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
