// Package link runs the final link that turns objects and the external
// static library into the bootable image.
package link

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/roach88/imgforge/internal/config"
	"github.com/roach88/imgforge/internal/external"
	"github.com/roach88/imgforge/internal/model"
	"github.com/roach88/imgforge/internal/toolchain"
)

// ErrCodeNoInputs identifies a degenerate build with nothing to link.
const ErrCodeNoInputs = "E204"

// ErrNoInputs is returned when there are no objects and no static library.
// The linker is never invoked in that case.
var ErrNoInputs = errors.New(ErrCodeNoInputs + ": no inputs: no sources were discovered and no static library exists")

// Stage links the image.
type Stage struct {
	cfg    config.Config
	runner toolchain.Runner
}

// NewStage creates a linker stage.
func NewStage(cfg config.Config, runner toolchain.Runner) *Stage {
	return &Stage{cfg: cfg, runner: runner}
}

// Inputs returns the ordered link inputs: objects in the order given (the
// caller passes assembly objects before native objects, each in discovery
// order), followed by the static library if present.
func Inputs(objects []model.Artifact, library *model.Artifact) []model.Artifact {
	inputs := make([]model.Artifact, 0, len(objects)+1)
	inputs = append(inputs, objects...)
	if library != nil {
		inputs = append(inputs, *library)
	}
	return inputs
}

// Command returns the linker invocation for the given inputs:
//
//	{ld} {flags...} -T{script} {inputs...} -o {output}
func (s *Stage) Command(inputs []model.Artifact) model.Command {
	tool := s.cfg.Linker

	args := make([]string, 0, len(tool.Flags)+len(inputs)+3)
	args = append(args, tool.Flags...)
	args = append(args, "-T"+s.cfg.LinkScript)
	for _, in := range inputs {
		args = append(args, in.Path)
	}
	args = append(args, toolchain.OutputFlag(tool), s.cfg.Output)

	return model.Command{Exe: tool.Exe, Args: args}
}

// Library resolves the static library artifact at libPath.
// Returns nil and no error if the file does not exist.
func (s *Stage) Library(libPath string, provenance string) (*model.Artifact, error) {
	if libPath == "" {
		return nil, nil
	}
	lib, err := model.NewArtifact(s.cfg.Root, libPath, model.ArtifactStaticLibrary, provenance)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lib, nil
}

// Link checks its inputs, runs the linker once and returns the image.
//
// libPath is the root-relative static library path reported by the
// external builder. It fails with:
//   - ErrNoInputs when there are no objects and no library on disk
//   - *external.MissingLibraryError when libPath does not exist
//   - *toolchain.CommandError when the linker fails or writes nothing
func (s *Stage) Link(ctx context.Context, objects []model.Artifact, libPath, libProvenance string) (model.Artifact, []model.Artifact, error) {
	library, err := s.Library(libPath, libProvenance)
	if err != nil {
		return model.Artifact{}, nil, err
	}

	if len(objects) == 0 && library == nil {
		return model.Artifact{}, nil, ErrNoInputs
	}
	if library == nil {
		return model.Artifact{}, nil, &external.MissingLibraryError{Path: libPath}
	}

	inputs := Inputs(objects, library)
	cmd := s.Command(inputs)

	if err := os.Remove(s.cfg.Path(s.cfg.Output)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return model.Artifact{}, nil, fmt.Errorf("removing previous image: %w", err)
	}

	if _, err := toolchain.Execute(ctx, s.runner, cmd); err != nil {
		return model.Artifact{}, nil, err
	}

	image, err := model.NewArtifact(s.cfg.Root, s.cfg.Output, model.ArtifactImage, cmd.String())
	if errors.Is(err, fs.ErrNotExist) {
		return model.Artifact{}, nil, &toolchain.CommandError{Code: toolchain.ErrCodeOutputMissing, Command: cmd, Err: err}
	}
	if err != nil {
		return model.Artifact{}, nil, err
	}

	return image, inputs, nil
}
