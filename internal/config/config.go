package config

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"time"

	"github.com/roach88/imgforge/internal/model"
)

// Profile is the build profile passed to the external build system.
type Profile string

const (
	ProfileDebug   Profile = "debug"
	ProfileRelease Profile = "release"
)

// Validate reports whether p is a recognised profile.
func (p Profile) Validate() error {
	switch p {
	case ProfileDebug, ProfileRelease:
		return nil
	default:
		return fmt.Errorf("invalid profile %q: must be debug or release", string(p))
	}
}

// ToolchainDescriptor describes how to invoke one external tool.
type ToolchainDescriptor struct {
	// Exe is the executable name, resolved through PATH.
	Exe string `json:"exe"`

	// Flags are fixed arguments placed before the inputs.
	Flags []string `json:"flags,omitempty"`

	// CompileFlag, if set, is placed between Flags and the input file
	// (e.g. "-c" for the C compiler).
	CompileFlag string `json:"compile_flag,omitempty"`

	// OutputFlag introduces the output path. Defaults to "-o".
	OutputFlag string `json:"output_flag,omitempty"`
}

// Config is the BuildConfiguration for one invocation.
type Config struct {
	// Root is the invocation root. Every other path is relative to it.
	Root string `json:"root"`

	// Target is the target triple used by the external build system.
	Target string `json:"target"`

	// Profile selects debug or release builds.
	Profile Profile `json:"profile"`

	// Crate is the external component name; the static library is lib{Crate}.a.
	Crate string `json:"crate"`

	AsmDir     string `json:"asm_dir"`
	NativeDir  string `json:"native_dir"`
	ObjDir     string `json:"obj_dir"`
	LinkScript string `json:"link_script"`
	Output     string `json:"output"`

	// TargetDir is the external build system's output root ("target" for cargo).
	TargetDir string `json:"target_dir"`

	// Journal is an optional SQLite journal path. Empty disables journaling.
	Journal string `json:"journal,omitempty"`

	// StepTimeout bounds each spawned process. Zero means no timeout.
	StepTimeout time.Duration `json:"step_timeout,omitempty"`

	Assembler ToolchainDescriptor `json:"assembler"`
	Compiler  ToolchainDescriptor `json:"compiler"`
	Linker    ToolchainDescriptor `json:"linker"`
	External  ToolchainDescriptor `json:"external"`
}

// Default returns the configuration of the reference riscv64 kernel build.
func Default() Config {
	return Config{
		Root:       ".",
		Target:     "riscv64gc-unknown-none-elf",
		Profile:    ProfileRelease,
		Crate:      "marrakech",
		AsmDir:     filepath.Join("src", "asm"),
		NativeDir:  filepath.Join("src", "c"),
		ObjDir:     "objects",
		LinkScript: filepath.Join("src", "link_scripts", "link.ld"),
		Output:     "marrakech.elf",
		TargetDir:  "target",
		Assembler: ToolchainDescriptor{
			Exe:        "riscv64-elf-as",
			OutputFlag: "-o",
		},
		Compiler: ToolchainDescriptor{
			Exe:         "riscv64-elf-gcc",
			Flags:       []string{"-ffreestanding", "-nostdlib"},
			CompileFlag: "-c",
			OutputFlag:  "-o",
		},
		Linker: ToolchainDescriptor{
			Exe:        "riscv64-elf-ld",
			OutputFlag: "-o",
		},
		External: ToolchainDescriptor{
			Exe: "cargo",
		},
	}
}

// Path resolves a root-relative path to a filesystem path.
// Absolute paths are returned unchanged.
func (c Config) Path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(c.Root, rel)
}

// SourceDir returns the configured source directory for a kind.
func (c Config) SourceDir(kind model.SourceKind) string {
	switch kind {
	case model.SourceAsm:
		return c.AsmDir
	case model.SourceNative:
		return c.NativeDir
	default:
		return ""
	}
}

// Toolchain returns the descriptor used to compile sources of a kind.
func (c Config) Toolchain(kind model.SourceKind) ToolchainDescriptor {
	if kind == model.SourceAsm {
		return c.Assembler
	}
	return c.Compiler
}

// LibraryPath returns the root-relative path at which the external build
// system places the static library: {TargetDir}/{Target}/{Profile}/lib{Crate}.a
//
// This follows cargo's output layout and must not be re-derived elsewhere.
func (c Config) LibraryPath() string {
	return filepath.Join(c.TargetDir, c.Target, string(c.Profile), "lib"+c.Crate+".a")
}

// Validate checks that the configuration is usable.
// Returns a *Error with code ErrCodeInvalidValue on the first problem found.
func (c Config) Validate() error {
	if err := c.Profile.Validate(); err != nil {
		return &Error{Code: ErrCodeInvalidValue, Field: "profile", Message: err.Error()}
	}

	required := []struct {
		field string
		value string
	}{
		{"target", c.Target},
		{"crate", c.Crate},
		{"dirs.objects", c.ObjDir},
		{"link_script", c.LinkScript},
		{"output", c.Output},
		{"target_dir", c.TargetDir},
		{"toolchain.assembler.exe", c.Assembler.Exe},
		{"toolchain.compiler.exe", c.Compiler.Exe},
		{"toolchain.linker.exe", c.Linker.Exe},
		{"toolchain.external.exe", c.External.Exe},
	}
	for _, r := range required {
		if r.value == "" {
			return &Error{Code: ErrCodeInvalidValue, Field: r.field, Message: "must not be empty"}
		}
	}

	for _, d := range []struct {
		field string
		value string
	}{
		{"dirs.asm", c.AsmDir},
		{"dirs.native", c.NativeDir},
	} {
		if d.value != "" && !fs.ValidPath(path.Clean(filepath.ToSlash(d.value))) {
			return &Error{Code: ErrCodeInvalidValue, Field: d.field, Message: "must be a path inside the root"}
		}
	}

	if c.StepTimeout < 0 {
		return &Error{Code: ErrCodeInvalidValue, Field: "step_timeout", Message: "must not be negative"}
	}

	return nil
}
