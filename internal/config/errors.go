package config

import (
	"errors"
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Error codes for configuration problems.
const (
	ErrCodeNotFound     = "E101" // Explicit config file missing
	ErrCodeReadFailed   = "E102" // Config file unreadable
	ErrCodeSchema       = "E103" // CUE parse or schema violation
	ErrCodeInvalidValue = "E104" // Value accepted by the schema but unusable
)

// Error describes a configuration problem.
type Error struct {
	Code    string
	Field   string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *Error) Error() string {
	prefix := e.Code
	if e.Pos.IsValid() {
		prefix = fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", prefix, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// IsConfigError reports whether err is (or wraps) a *Error.
func IsConfigError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}

// fromCUEError converts a CUE error into a *Error carrying the position of
// the first underlying error.
func fromCUEError(err error) *Error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Code: ErrCodeSchema, Message: err.Error()}
	}

	first := errs[0]
	out := &Error{Code: ErrCodeSchema, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		out.Pos = positions[0]
	}
	return out
}
