package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/roach88/imgforge/internal/model"
	"github.com/roach88/imgforge/internal/toolchain"
)

// FakeRunner is a scripted toolchain.Runner.
//
// It records every command and, on success, writes deterministic output:
//   - for any command with "-o <path>", the output file contains a header
//     line plus the contents of every existing input argument, so an image
//     "contains" every object and library that was linked into it
//   - for "<external> build", the static library at the configured path
//   - for "<external> clean", removal of the configured target directory
//
// Failures are scripted by substring match on the rendered command line.
type FakeRunner struct {
	root string

	mu        sync.Mutex
	commands  []model.Command
	failures  []failure
	missing   map[string]bool
	noOutput  map[string]bool
	external  string
	library   string
	targetDir string
}

type failure struct {
	match string
	code  int
}

// NewFakeRunner creates a runner whose files are resolved against root.
func NewFakeRunner(root string) *FakeRunner {
	return &FakeRunner{
		root:     root,
		missing:  make(map[string]bool),
		noOutput: make(map[string]bool),
	}
}

// WithExternal makes exe behave like cargo: "build" writes library (a
// root-relative path) and "clean" removes targetDir.
func (f *FakeRunner) WithExternal(exe, library, targetDir string) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.external = exe
	f.library = library
	f.targetDir = targetDir
	return f
}

// FailWhen makes any command whose rendered line contains match exit with code.
func (f *FakeRunner) FailWhen(match string, code int) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, failure{match: match, code: code})
	return f
}

// MissingTool makes exe fail to launch, as if it were not on PATH.
func (f *FakeRunner) MissingTool(exe string) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.missing[exe] = true
	return f
}

// SkipOutput makes exe exit zero without writing its output file.
func (f *FakeRunner) SkipOutput(exe string) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.noOutput[exe] = true
	return f
}

// Commands returns a copy of the recorded commands in execution order.
func (f *FakeRunner) Commands() []model.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Command(nil), f.commands...)
}

// CommandLines returns the recorded commands rendered as strings.
func (f *FakeRunner) CommandLines() []string {
	cmds := f.Commands()
	lines := make([]string, len(cmds))
	for i, c := range cmds {
		lines[i] = c.String()
	}
	return lines
}

// Reset forgets recorded commands. Scripted behaviour is kept.
func (f *FakeRunner) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = nil
}

// Run implements toolchain.Runner.
func (f *FakeRunner) Run(ctx context.Context, cmd model.Command) (toolchain.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.commands = append(f.commands, cmd)
	res := toolchain.Result{Command: cmd}

	if err := ctx.Err(); err != nil {
		res.ExitCode = -1
		return res, &toolchain.CommandError{Code: toolchain.ErrCodeToolInterrupted, Command: cmd, ExitCode: -1, Err: err}
	}
	if f.missing[cmd.Exe] {
		res.ExitCode = -1
		return res, &toolchain.CommandError{
			Code:     toolchain.ErrCodeToolLaunch,
			Command:  cmd,
			ExitCode: -1,
			Err:      fmt.Errorf("exec: %q: executable file not found in $PATH", cmd.Exe),
		}
	}

	line := cmd.String()
	for _, fl := range f.failures {
		if strings.Contains(line, fl.match) {
			res.ExitCode = fl.code
			res.Stderr = []byte(fmt.Sprintf("%s: fake failure\n", cmd.Exe))
			return res, nil
		}
	}

	if f.noOutput[cmd.Exe] {
		return res, nil
	}

	if cmd.Exe == f.external && f.external != "" {
		return res, f.runExternal(cmd)
	}

	if out, inputs := splitOutput(cmd.Args); out != "" {
		if err := f.writeOutput(out, cmd.Exe, inputs); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (f *FakeRunner) runExternal(cmd model.Command) error {
	if len(cmd.Args) == 0 {
		return nil
	}
	switch cmd.Args[0] {
	case "build":
		if f.library == "" {
			return nil
		}
		return f.write(f.library, []byte(fmt.Sprintf("static library %s\nsymbol rust_main\n", filepath.Base(f.library))))
	case "clean":
		if f.targetDir == "" {
			return nil
		}
		return os.RemoveAll(f.path(f.targetDir))
	}
	return nil
}

func (f *FakeRunner) writeOutput(out, exe string, inputs []string) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s output\n", exe)
	for _, in := range inputs {
		data, err := os.ReadFile(f.path(in))
		if err != nil {
			continue
		}
		fmt.Fprintf(&buf, "== %s ==\n", in)
		buf.Write(data)
	}
	return f.write(out, buf.Bytes())
}

func (f *FakeRunner) write(rel string, data []byte) error {
	p := f.path(rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

func (f *FakeRunner) path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(f.root, rel)
}

// splitOutput finds the path following "-o" and returns it together with
// the remaining non-flag arguments.
func splitOutput(args []string) (string, []string) {
	var out string
	var inputs []string
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-o" && i+1 < len(args):
			out = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-"):
		default:
			inputs = append(inputs, args[i])
		}
	}
	return out, inputs
}
