package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // build, clean or plan succeeded
	ExitFailure      = 1 // a build stage failed
	ExitCommandError = 2 // bad flags, invalid config, unusable journal
)

// ExitError carries the process exit code for an error that has already
// been shown to the user.
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

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// OutputFormatter renders command results as text or as one JSON object
// per invocation.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // verbose output; keeps JSON on Writer parseable
	Verbose   bool
	RunID     string // set once the journal has started a run
}

// CLIResponse is the JSON envelope written by every command.
type CLIResponse struct {
	Status string      `json:"status"` // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`
	Error  *CLIError   `json:"error,omitempty"`
	RunID  string      `json:"run_id,omitempty"`
}

// CLIError is the error half of CLIResponse.
type CLIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ToolFailure describes a spawned tool that failed, could not be launched,
// or wrote nothing.
type ToolFailure struct {
	Command  string `json:"command"`
	ExitCode int    `json:"exit_code"`
	Stderr   string `json:"stderr,omitempty"`
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
			RunID:  f.RunID,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
//
// In text mode a ToolFailure is always rendered in full, since the command
// line and its stderr are what the user needs to fix the build. Other
// details are printed only in verbose mode.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
			RunID: f.RunID,
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	switch d := details.(type) {
	case nil:
	case ToolFailure:
		fmt.Fprintf(f.Writer, "  $ %s\n", d.Command)
		if d.ExitCode >= 0 {
			fmt.Fprintf(f.Writer, "  exit status %d\n", d.ExitCode)
		}
		for _, line := range strings.Split(d.Stderr, "\n") {
			if line != "" {
				fmt.Fprintf(f.Writer, "  | %s\n", line)
			}
		}
	case map[string]any:
		if f.Verbose {
			keys := make([]string, 0, len(d))
			for k := range d {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(f.Writer, "  %s: %v\n", k, d[k])
			}
		}
	default:
		if f.Verbose {
			fmt.Fprintf(f.Writer, "Details: %v\n", details)
		}
	}
	return nil
}

// Fail reports a pipeline or configuration error and returns the ExitError
// that carries its exit code. The error has been shown once Fail returns;
// callers must not print it again.
func (f *OutputFormatter) Fail(err error) error {
	code, details, exit := classify(err)
	_ = f.Error(code, err.Error(), details)
	return WrapExitError(exit, code, err)
}

// Reject reports a problem with the invocation itself (exit code 2).
func (f *OutputFormatter) Reject(code, message string, err error) error {
	text := message
	if err != nil {
		text = fmt.Sprintf("%s: %v", message, err)
	}
	_ = f.Error(code, text, nil)
	return WrapExitError(ExitCommandError, message, err)
}

// VerboseLog writes one line to ErrWriter (or Writer if unset) when
// verbose output is enabled.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
