package harness

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/imgforge/internal/external"
	"github.com/roach88/imgforge/internal/link"
	"github.com/roach88/imgforge/internal/model"
	"github.com/roach88/imgforge/internal/source"
	"github.com/roach88/imgforge/internal/toolchain"
)

func TestScenarios_Golden(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			_, err := RunWithGolden(t, s)
			require.NoError(t, err)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/kernel.yaml")
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	assert.True(t, first.Pass, first.Errors)
	assert.Equal(t, first.Transcript(), second.Transcript())
	assert.Equal(t, first.Outcomes, second.Outcomes)
}

func TestRun_Outcomes(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: outcomes
description: "build, fail, clean"
files:
  src/asm/boot.s: "_start:\n"
flow:
  - run: build
  - run: build
    remove: [target/riscv64gc-unknown-none-elf/release/libmarrakech.a]
    write:
      src/c/entry.c: "int x;\n"
  - run: clean-all
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)

	require.Len(t, result.Outcomes, 3)
	assert.Equal(t, RunBuild, result.Outcomes[0].Run)
	assert.Equal(t, "done", result.Outcomes[0].State)
	assert.NotEmpty(t, result.Outcomes[0].ManifestHash)
	assert.NotEqual(t, result.Outcomes[0].ManifestHash, result.Outcomes[1].ManifestHash)
	assert.Equal(t, RunCleanAll, result.Outcomes[2].Run)
	assert.Empty(t, result.Outcomes[2].ManifestHash)

	// Every event is tagged with the flow step that produced it.
	var flows []int
	for _, e := range result.Trace {
		if e.Type == EventRun {
			flows = append(flows, e.Flow)
		}
	}
	assert.Equal(t, []int{0, 1, 2}, flows)
}

func TestRun_ExpectationMismatch(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: mismatch
description: "expects success from a failing compile"
files:
  src/asm/boot.s: "_start:\n"
toolchain:
  fail:
    - match: boot.s
      code: 1
flow:
  - run: build
assertions:
  - type: file_exists
    path: marrakech.elf
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "expected state done, got failed")
	assert.Contains(t, result.Errors[1], `expected error "", got "E201"`)
	assert.Contains(t, result.Errors[2], "marrakech.elf exists")
}

func TestRun_InvalidConfig(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: bad_config
description: "unknown profile"
config: |
  build: profile: "fast"
flow:
  - run: build
`))
	require.NoError(t, err)

	_, err = Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load scenario config")
}

func TestRun_CustomRunID(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: run_id
description: "fixed run id"
run_id: nightly-42
flow:
  - run: clean
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, "run clean nightly-42\nfinish succeeded\n", result.Transcript())
}

func TestRunContext_Cancelled(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: cancelled
description: "a cancelled build spawns nothing"
files:
  src/c/entry.c: "int x;\n"
flow:
  - run: build
    expect:
      state: failed
      error: E206
`))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := RunContext(ctx, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
	assert.Empty(t, result.Commands)
}

func TestErrorCode(t *testing.T) {
	cmd := model.Command{Exe: "riscv64-elf-as"}
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&toolchain.CommandError{Code: toolchain.ErrCodeToolFailed, Command: cmd, ExitCode: 1}, "E201"},
		{&external.MissingLibraryError{Path: "lib.a"}, "E203"},
		{link.ErrNoInputs, "E204"},
		{&source.CollisionError{Name: "boot", First: "a/boot.s", Second: "b/boot.c"}, "E205"},
		{context.Canceled, "E206"},
		{errors.New("boom"), "E001"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorCode(tt.err), "%v", tt.err)
	}
}

func TestTraceEvent_String(t *testing.T) {
	assert.Equal(t, "run build r1", TraceEvent{Type: EventRun, Mode: "build", RunID: "r1"}.String())
	assert.Equal(t, "3 step linking ld a.o -o x => 1", TraceEvent{Type: EventStep, Seq: 3, Stage: "linking", Command: "ld a.o -o x", ExitCode: 1}.String())
	assert.Equal(t, "2 artifact object objects/a.o", TraceEvent{Type: EventArtifact, Seq: 2, Kind: "object", Path: "objects/a.o"}.String())
	assert.Equal(t, "finish succeeded", TraceEvent{Type: EventFinish, Status: "succeeded"}.String())
	assert.Equal(t, "finish failed E204", TraceEvent{Type: EventFinish, Status: "failed", Code: "E204"}.String())
}

func TestGoldenFiles_RoundTrip(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/no_inputs.yaml")
	require.NoError(t, err)
	result, err := Run(s)
	require.NoError(t, err)

	scenarioFile := filepath.Join(t.TempDir(), "no_inputs.yaml")
	path := GoldenPath(scenarioFile)
	assert.Equal(t, filepath.Join(filepath.Dir(scenarioFile), "golden", "no_inputs.golden"), path)

	_, err = MatchGolden(path, result)
	require.Error(t, err)

	require.NoError(t, WriteGolden(path, result))
	match, err := MatchGolden(path, result)
	require.NoError(t, err)
	assert.True(t, match)

	// The checked-in fixture is the same transcript.
	match, err = MatchGolden("testdata/golden/no_inputs.golden", result)
	require.NoError(t, err)
	assert.True(t, match)

	require.NoError(t, os.WriteFile(path, []byte("run build other\n"), 0644))
	match, err = MatchGolden(path, result)
	require.NoError(t, err)
	assert.False(t, match)
}
