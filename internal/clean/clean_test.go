package clean_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/imgforge/internal/clean"
	"github.com/roach88/imgforge/internal/config"
	"github.com/roach88/imgforge/internal/external"
	"github.com/roach88/imgforge/internal/testutil"
	"github.com/roach88/imgforge/internal/toolchain"
)

func setup(t *testing.T) (config.Config, *testutil.FakeRunner, *clean.Stage) {
	t.Helper()
	cfg := config.Default()
	cfg.Root = t.TempDir()
	runner := testutil.NewFakeRunner(cfg.Root).WithExternal("cargo", cfg.LibraryPath(), cfg.TargetDir)
	return cfg, runner, clean.NewStage(cfg, external.NewCargo(cfg, runner))
}

func touch(t *testing.T, cfg config.Config, rel string) {
	t.Helper()
	p := cfg.Path(rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
}

func TestClean_PristineTreeIsNoop(t *testing.T) {
	_, runner, stage := setup(t)

	report, err := stage.Clean(context.Background(), clean.Options{})
	require.NoError(t, err)
	assert.Empty(t, report.Removed)
	assert.False(t, report.ExternalCleaned)
	assert.Empty(t, runner.Commands())
}

func TestClean_EmptyObjectDirIsNoop(t *testing.T) {
	cfg, _, stage := setup(t)
	require.NoError(t, os.MkdirAll(cfg.Path(cfg.ObjDir), 0o755))

	report, err := stage.Clean(context.Background(), clean.Options{})
	require.NoError(t, err)
	assert.Empty(t, report.Removed)
	assert.DirExists(t, cfg.Path(cfg.ObjDir))
}

func TestClean_RemovesObjectsAndExternalOutput(t *testing.T) {
	cfg, runner, stage := setup(t)
	touch(t, cfg, filepath.Join("objects", "boot.o"))
	touch(t, cfg, filepath.Join("objects", "entry.o"))
	touch(t, cfg, cfg.LibraryPath())
	touch(t, cfg, cfg.Output)

	report, err := stage.Clean(context.Background(), clean.Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join("objects", "boot.o"), filepath.Join("objects", "entry.o")}, report.Removed)
	assert.True(t, report.ExternalCleaned)
	assert.Equal(t, []string{"cargo clean"}, runner.CommandLines())
	assert.NoDirExists(t, cfg.Path(cfg.TargetDir))
	assert.DirExists(t, cfg.Path(cfg.ObjDir))
	assert.FileExists(t, cfg.Path(cfg.Output), "image is kept by default")

	// Second clean changes nothing and runs nothing
	runner.Reset()
	report, err = stage.Clean(context.Background(), clean.Options{})
	require.NoError(t, err)
	assert.Empty(t, report.Removed)
	assert.Empty(t, runner.Commands())
}

func TestClean_RemoveImage(t *testing.T) {
	cfg, _, stage := setup(t)
	touch(t, cfg, cfg.Output)

	report, err := stage.Clean(context.Background(), clean.Options{RemoveImage: true})
	require.NoError(t, err)
	assert.Equal(t, []string{cfg.Output}, report.Removed)
	assert.NoFileExists(t, cfg.Path(cfg.Output))

	_, err = stage.Clean(context.Background(), clean.Options{RemoveImage: true})
	require.NoError(t, err)
}

func TestClean_KeepsSubdirectories(t *testing.T) {
	cfg, _, stage := setup(t)
	touch(t, cfg, filepath.Join("objects", "keep", "note"))
	touch(t, cfg, filepath.Join("objects", "boot.o"))

	report, err := stage.Clean(context.Background(), clean.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("objects", "boot.o")}, report.Removed)
	assert.FileExists(t, cfg.Path(filepath.Join("objects", "keep", "note")))
}

func TestClean_ExternalFailureStops(t *testing.T) {
	cfg, runner, stage := setup(t)
	touch(t, cfg, cfg.LibraryPath())
	touch(t, cfg, filepath.Join("objects", "boot.o"))
	runner.FailWhen("cargo clean", 1)

	_, err := stage.Clean(context.Background(), clean.Options{})
	assert.True(t, toolchain.IsCommandError(err))
	assert.FileExists(t, cfg.Path(filepath.Join("objects", "boot.o")))
}

func TestClean_WithoutBuilder(t *testing.T) {
	cfg := config.Default()
	cfg.Root = t.TempDir()
	touch(t, cfg, filepath.Join("objects", "boot.o"))

	report, err := clean.NewStage(cfg, nil).Clean(context.Background(), clean.Options{})
	require.NoError(t, err)
	assert.Len(t, report.Removed, 1)
}
