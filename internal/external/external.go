// Package external drives the independent build system that produces the
// statically linked component of the image.
//
// imgforge treats that build system as an opaque collaborator: it asks for
// a build in a given profile and expects a static library at the path the
// build system documents. It never inspects the build system's own inputs.
package external

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/roach88/imgforge/internal/config"
	"github.com/roach88/imgforge/internal/model"
	"github.com/roach88/imgforge/internal/toolchain"
)

// ErrCodeMissingLibrary identifies a static library that is not where the
// external build system's layout says it should be.
const ErrCodeMissingLibrary = "E203"

// MissingLibraryError reports the expected static library path.
type MissingLibraryError struct {
	Path string
}

func (e *MissingLibraryError) Error() string {
	return fmt.Sprintf("%s: static library not found at %s", ErrCodeMissingLibrary, e.Path)
}

// IsMissingLibrary reports whether err is (or wraps) a *MissingLibraryError.
func IsMissingLibrary(err error) bool {
	var me *MissingLibraryError
	return errors.As(err, &me)
}

// Builder is the contract with the external build system.
type Builder interface {
	// Build produces the static library for profile and returns its
	// root-relative path.
	Build(ctx context.Context, profile config.Profile) (string, error)

	// Clean removes the build system's own outputs.
	// Cleaning an already clean tree is not an error.
	Clean(ctx context.Context) error

	// LibraryPath returns where Build places the library for profile,
	// without building anything.
	LibraryPath(profile config.Profile) string

	// BuildCommand returns the command Build runs for profile.
	BuildCommand(profile config.Profile) model.Command
}

// Cargo builds the component with cargo.
type Cargo struct {
	cfg    config.Config
	runner toolchain.Runner
}

var _ Builder = (*Cargo)(nil)

// NewCargo creates a cargo-backed Builder.
func NewCargo(cfg config.Config, runner toolchain.Runner) *Cargo {
	return &Cargo{cfg: cfg, runner: runner}
}

// BuildCommand returns the cargo invocation for profile.
// cargo builds the debug profile by default and has no --debug flag, so
// only release adds an argument.
func (c *Cargo) BuildCommand(profile config.Profile) model.Command {
	args := []string{"build"}
	if profile == config.ProfileRelease {
		args = append(args, "--release")
	}
	args = append(args, c.cfg.External.Flags...)
	return model.Command{Exe: c.cfg.External.Exe, Args: args}
}

// CleanCommand returns the cargo clean invocation.
func (c *Cargo) CleanCommand() model.Command {
	return model.Command{Exe: c.cfg.External.Exe, Args: []string{"clean"}}
}

// LibraryPath implements Builder.
func (c *Cargo) LibraryPath(profile config.Profile) string {
	cfg := c.cfg
	cfg.Profile = profile
	return cfg.LibraryPath()
}

// Build implements Builder. It runs cargo once and then checks that the
// library exists at the documented location.
func (c *Cargo) Build(ctx context.Context, profile config.Profile) (string, error) {
	if err := profile.Validate(); err != nil {
		return "", err
	}

	if _, err := toolchain.Execute(ctx, c.runner, c.BuildCommand(profile)); err != nil {
		return "", err
	}

	lib := c.LibraryPath(profile)
	if _, err := os.Stat(c.cfg.Path(lib)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &MissingLibraryError{Path: lib}
		}
		return "", fmt.Errorf("checking static library: %w", err)
	}
	return lib, nil
}

// Clean implements Builder. When the target directory does not exist there
// is nothing to clean and cargo is not run.
func (c *Cargo) Clean(ctx context.Context) error {
	_, err := os.Stat(c.cfg.Path(c.cfg.TargetDir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking target directory: %w", err)
	}

	_, err = toolchain.Execute(ctx, c.runner, c.CleanCommand())
	return err
}
