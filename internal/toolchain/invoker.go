package toolchain

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/roach88/imgforge/internal/config"
	"github.com/roach88/imgforge/internal/model"
)

// Invoker compiles source files into object files, one process per file.
type Invoker struct {
	cfg      config.Config
	runner   Runner
	dirReady bool
}

// NewInvoker creates an Invoker for the given configuration.
func NewInvoker(cfg config.Config, runner Runner) *Invoker {
	return &Invoker{cfg: cfg, runner: runner}
}

// EnsureObjectDir creates the object directory if it is missing.
// Calling it again, or on an existing directory, is a no-op.
func (inv *Invoker) EnsureObjectDir() error {
	if inv.dirReady {
		return nil
	}
	if err := os.MkdirAll(inv.cfg.Path(inv.cfg.ObjDir), 0o755); err != nil {
		return fmt.Errorf("creating object directory: %w", err)
	}
	inv.dirReady = true
	return nil
}

// CompileCommand returns the command that builds sf into its object file:
//
//	{exe} {flags...} [{compile flag}] {source} {output flag} {objdir}/{name}.o
func (inv *Invoker) CompileCommand(sf model.SourceFile) model.Command {
	tool := inv.cfg.Toolchain(sf.Kind)

	args := make([]string, 0, len(tool.Flags)+4)
	args = append(args, tool.Flags...)
	if tool.CompileFlag != "" {
		args = append(args, tool.CompileFlag)
	}
	args = append(args, sf.Path, OutputFlag(tool), sf.ObjectPath(inv.cfg.ObjDir))

	return model.Command{Exe: tool.Exe, Args: args}
}

// Compile builds every file in order and returns one object artifact per
// file, in the same order.
//
// The first failing file aborts the remaining compilations and its error is
// returned; artifacts produced before the failure are discarded. Each
// object is removed before its tool runs, so a tool that writes nothing
// fails with ErrCodeOutputMissing even on a previously built tree.
func (inv *Invoker) Compile(ctx context.Context, files []model.SourceFile) ([]model.Artifact, error) {
	if err := inv.EnsureObjectDir(); err != nil {
		return nil, err
	}

	artifacts := make([]model.Artifact, 0, len(files))
	for _, sf := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cmd := inv.CompileCommand(sf)
		obj := sf.ObjectPath(inv.cfg.ObjDir)

		// A tool that exits 0 without writing must not leave last run's object in place.
		if err := os.Remove(inv.cfg.Path(obj)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("removing previous object %s: %w", obj, err)
		}

		if _, err := Execute(ctx, inv.runner, cmd); err != nil {
			return nil, err
		}

		artifact, err := model.NewArtifact(inv.cfg.Root, obj, model.ArtifactObject, sf.Path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &CommandError{Code: ErrCodeOutputMissing, Command: cmd, Err: err}
		}
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, artifact)
	}

	return artifacts, nil
}

// OutputFlag returns the flag that introduces a tool's output path.
func OutputFlag(tool config.ToolchainDescriptor) string {
	if tool.OutputFlag == "" {
		return "-o"
	}
	return tool.OutputFlag
}
