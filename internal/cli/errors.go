package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/imgforge/internal/config"
	"github.com/roach88/imgforge/internal/external"
	"github.com/roach88/imgforge/internal/link"
	"github.com/roach88/imgforge/internal/source"
	"github.com/roach88/imgforge/internal/toolchain"
)

// Error code constants for failures that originate in the CLI itself.
// Pipeline errors carry their own codes (E1xx config, E2xx build).
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeJournal     = "E301" // Journal could not be opened or read
	ErrCodeNoJournal   = "E302" // history requested without a journal
	ErrCodeRunNotFound = "E303" // history --run names an unknown run
)

// classify maps an error to its code, structured details for JSON output,
// and the process exit code.
//
// Configuration problems are command errors (exit 2). Everything that goes
// wrong while building is a build failure (exit 1).
func classify(err error) (code string, details any, exit int) {
	var cfgErr *config.Error
	if errors.As(err, &cfgErr) {
		d := map[string]any{}
		if cfgErr.Field != "" {
			d["field"] = cfgErr.Field
		}
		if cfgErr.Pos.IsValid() {
			d["position"] = fmt.Sprintf("%s:%d:%d", cfgErr.Pos.Filename(), cfgErr.Pos.Line(), cfgErr.Pos.Column())
		}
		return cfgErr.Code, detailsOrNil(d), ExitCommandError
	}

	var cmdErr *toolchain.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code, ToolFailure{
			Command:  cmdErr.Command.String(),
			ExitCode: cmdErr.ExitCode,
			Stderr:   cmdErr.Stderr,
		}, ExitFailure
	}

	var libErr *external.MissingLibraryError
	if errors.As(err, &libErr) {
		return external.ErrCodeMissingLibrary, map[string]any{"path": libErr.Path}, ExitFailure
	}

	if errors.Is(err, link.ErrNoInputs) {
		return link.ErrCodeNoInputs, nil, ExitFailure
	}

	var collision *source.CollisionError
	if errors.As(err, &collision) {
		return source.ErrCodeCollision, map[string]any{
			"first":  collision.First,
			"second": collision.Second,
		}, ExitFailure
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return toolchain.ErrCodeToolInterrupted, nil, ExitFailure
	}

	return ErrCodeGeneric, nil, ExitFailure
}

// detailsOrNil keeps empty details out of JSON output.
func detailsOrNil(d map[string]any) any {
	if len(d) == 0 {
		return nil
	}
	return d
}
