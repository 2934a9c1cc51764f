package toolchain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/imgforge/internal/model"
)

// Error codes for tool failures.
const (
	ErrCodeToolFailed      = "E201" // Tool exited non-zero
	ErrCodeToolLaunch      = "E202" // Tool could not be started
	ErrCodeToolInterrupted = "E206" // Tool killed by cancellation or timeout
	ErrCodeOutputMissing   = "E207" // Tool exited zero without writing its output
)

// CommandError reports a failed external process.
// It carries everything an operator needs to reproduce the failure.
type CommandError struct {
	Code     string
	Command  model.Command
	ExitCode int    // -1 if the process never exited normally
	Stderr   string // captured standard error, trimmed
	Err      error  // underlying error (launch failure, context error)
}

func (e *CommandError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Command.String())
	switch e.Code {
	case ErrCodeToolFailed:
		fmt.Fprintf(&b, ": exit status %d", e.ExitCode)
	case ErrCodeOutputMissing:
		b.WriteString(": exited 0 but produced no output")
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if line := firstLine(e.Stderr); line != "" {
		fmt.Fprintf(&b, ": %s", line)
	}
	return b.String()
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// IsCommandError reports whether err is (or wraps) a *CommandError.
func IsCommandError(err error) bool {
	var ce *CommandError
	return errors.As(err, &ce)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
