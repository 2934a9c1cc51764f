package toolchain

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/roach88/imgforge/internal/model"
)

const waitDelay = 2 * time.Second

// Result is the observable outcome of one process.
type Result struct {
	Command  model.Command
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// Runner spawns one external process and waits for it.
//
// Implementations return a nil error with a non-zero ExitCode when the
// process ran and failed; they return a *CommandError when the process
// could not be started or was interrupted.
type Runner interface {
	Run(ctx context.Context, cmd model.Command) (Result, error)
}

// ExecRunner runs commands as real processes with os/exec.
type ExecRunner struct {
	// Dir is the working directory of every process (the invocation root).
	Dir string

	// Timeout bounds each process. Zero means no timeout.
	Timeout time.Duration

	// Stdout and Stderr, if set, receive a copy of the tool's output as it
	// is produced. Output is always captured into the Result as well.
	Stdout io.Writer
	Stderr io.Writer
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, cmd model.Command) (Result, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, cmd.Exe, cmd.Args...)
	c.Dir = r.Dir
	c.Stdout = tee(&stdout, r.Stdout)
	c.Stderr = tee(&stderr, r.Stderr)
	// A killed tool may leave children holding the output pipes open.
	c.WaitDelay = waitDelay

	start := time.Now()
	err := c.Run()
	res := Result{
		Command:  cmd,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if err == nil {
		return res, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		return res, &CommandError{
			Code:     ErrCodeToolInterrupted,
			Command:  cmd,
			ExitCode: -1,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      ctxErr,
		}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}

	res.ExitCode = -1
	return res, &CommandError{
		Code:     ErrCodeToolLaunch,
		Command:  cmd,
		ExitCode: -1,
		Err:      err,
	}
}

func tee(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}

// Execute runs cmd and converts a non-zero exit into a *CommandError.
// The Result is returned in every case so callers can record it.
func Execute(ctx context.Context, r Runner, cmd model.Command) (Result, error) {
	res, err := r.Run(ctx, cmd)
	if err != nil {
		return res, err
	}
	if res.ExitCode != 0 {
		return res, &CommandError{
			Code:     ErrCodeToolFailed,
			Command:  cmd,
			ExitCode: res.ExitCode,
			Stderr:   strings.TrimSpace(string(res.Stderr)),
		}
	}
	return res, nil
}
