package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/imgforge/internal/model"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "riscv64gc-unknown-none-elf", cfg.Target)
	assert.Equal(t, ProfileRelease, cfg.Profile)
	assert.Equal(t, "riscv64-elf-as", cfg.Assembler.Exe)
	assert.Equal(t, []string{"-ffreestanding", "-nostdlib"}, cfg.Compiler.Flags)
	assert.Equal(t, "marrakech.elf", cfg.Output)
	assert.Equal(t,
		filepath.Join("target", "riscv64gc-unknown-none-elf", "release", "libmarrakech.a"),
		cfg.LibraryPath())
}

func TestSourceDirAndToolchain(t *testing.T) {
	cfg := Default()
	assert.Equal(t, cfg.AsmDir, cfg.SourceDir(model.SourceAsm))
	assert.Equal(t, cfg.NativeDir, cfg.SourceDir(model.SourceNative))
	assert.Equal(t, "riscv64-elf-as", cfg.Toolchain(model.SourceAsm).Exe)
	assert.Equal(t, "riscv64-elf-gcc", cfg.Toolchain(model.SourceNative).Exe)
}

func TestPath(t *testing.T) {
	cfg := Default()
	cfg.Root = "/work"
	assert.Equal(t, filepath.Join("/work", "objects"), cfg.Path("objects"))
	assert.Equal(t, "/abs/out.elf", cfg.Path("/abs/out.elf"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad profile", func(c *Config) { c.Profile = "fast" }, "profile"},
		{"empty target", func(c *Config) { c.Target = "" }, "target"},
		{"empty objects", func(c *Config) { c.ObjDir = "" }, "dirs.objects"},
		{"empty linker", func(c *Config) { c.Linker.Exe = "" }, "toolchain.linker.exe"},
		{"absolute asm dir", func(c *Config) { c.AsmDir = "/src/asm" }, "dirs.asm"},
		{"escaping native dir", func(c *Config) { c.NativeDir = "../c" }, "dirs.native"},
		{"negative timeout", func(c *Config) { c.StepTimeout = -time.Second }, "step_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var ce *Error
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, ErrCodeInvalidValue, ce.Code)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	root := t.TempDir()

	cfg, err := Load(root, "")
	require.NoError(t, err)

	want := Default()
	want.Root = root
	assert.Equal(t, want, cfg)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(t.TempDir(), "missing.cue")
	require.Error(t, err)

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeNotFound, ce.Code)
	assert.True(t, IsConfigError(err))
}

func TestLoad_OverridesDefaults(t *testing.T) {
	root := t.TempDir()
	src := `
build: {
	profile: "debug"
	crate:   "kernel"
	dirs: {asm: "arch", objects: "build/obj"}
	output:       "kernel.elf"
	step_timeout: "90s"
	journal:      ".imgforge/journal.db"
	toolchain: {
		compiler: {exe: "clang", flags: ["--target=riscv64", "-ffreestanding"]}
	}
}
`
	require.NoError(t, os.WriteFile(filepath.Join(root, DefaultFile), []byte(src), 0o644))

	cfg, err := Load(root, "")
	require.NoError(t, err)

	assert.Equal(t, ProfileDebug, cfg.Profile)
	assert.Equal(t, "kernel", cfg.Crate)
	assert.Equal(t, "arch", cfg.AsmDir)
	assert.Equal(t, filepath.Join("src", "c"), cfg.NativeDir, "unset fields keep defaults")
	assert.Equal(t, filepath.Join("build", "obj"), filepath.Clean(cfg.ObjDir))
	assert.Equal(t, "kernel.elf", cfg.Output)
	assert.Equal(t, 90*time.Second, cfg.StepTimeout)
	assert.Equal(t, ".imgforge/journal.db", cfg.Journal)
	assert.Equal(t, "clang", cfg.Compiler.Exe)
	assert.Equal(t, []string{"--target=riscv64", "-ffreestanding"}, cfg.Compiler.Flags)
	assert.Equal(t, "-c", cfg.Compiler.CompileFlag, "unset tool fields keep defaults")
	assert.Equal(t, "riscv64-elf-as", cfg.Assembler.Exe)
	assert.Equal(t,
		filepath.Join("target", "riscv64gc-unknown-none-elf", "debug", "libkernel.a"),
		cfg.LibraryPath())
}

func TestLoad_EmptyAsmDirAllowed(t *testing.T) {
	cfg, err := Parse(Default(), []byte(`build: dirs: asm: ""`), "imgforge.cue")
	require.NoError(t, err)
	assert.Equal(t, "", cfg.AsmDir)
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"bad profile", `build: profile: "fast"`},
		{"unknown field", `build: optimize: true`},
		{"bad crate name", `build: crate: "my crate"`},
		{"empty exe", `build: toolchain: linker: exe: ""`},
		{"syntax error", `build: {`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(Default(), []byte(tt.src), "imgforge.cue")
			require.Error(t, err)

			var ce *Error
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, ErrCodeSchema, ce.Code)
		})
	}
}

func TestParse_BadTimeout(t *testing.T) {
	_, err := Parse(Default(), []byte(`build: step_timeout: "soon"`), "imgforge.cue")
	require.Error(t, err)

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeInvalidValue, ce.Code)
	assert.Equal(t, "step_timeout", ce.Field)
}

func TestParse_NoBuildBlock(t *testing.T) {
	cfg, err := Parse(Default(), []byte(`// nothing configured`), "imgforge.cue")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
