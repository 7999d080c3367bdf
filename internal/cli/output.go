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
	ExitFailure      = 1 // validation/compile/deploy failure
	ExitCommandError = 2 // command error (bad paths, unreadable files)
)

// ExitError carries a specific exit code out of a command.
type ExitError struct {
	Code    int
	Message string
	Err     error
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

// GetExitCode extracts the exit code from an error, defaulting to
// ExitFailure for plain errors.
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
	ErrWriter io.Writer
	Verbose   bool
}

// Response is the standard JSON envelope for CLI output.
type Response struct {
	Status string `json:"status"` // "ok" or "error"
	Data   any    `json:"data,omitempty"`
	Errors []any  `json:"errors,omitempty"`
}

// Success emits a successful result in the configured format.
func (f *OutputFormatter) Success(text string, data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, text)
	return err
}

// Failure emits the collected errors in the configured format and
// returns an ExitError with the given code.
func (f *OutputFormatter) Failure(code int, summary string, errs []error) error {
	if f.Format == "json" {
		payload := make([]any, len(errs))
		for i, e := range errs {
			payload[i] = e.Error()
		}
		_ = json.NewEncoder(f.Writer).Encode(Response{Status: "error", Errors: payload})
	} else {
		fmt.Fprintln(f.Writer, summary)
		for _, e := range errs {
			fmt.Fprintf(f.Writer, "  - %v\n", e)
		}
	}
	return &ExitError{Code: code, Message: summary}
}

// VerboseLog writes a diagnostic line to the error writer when
// verbose output is on, keeping stdout clean for JSON consumers.
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

func newFormatter(opts *RootOptions, out, errOut io.Writer) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    out,
		ErrWriter: errOut,
		Verbose:   opts.Verbose,
	}
}
