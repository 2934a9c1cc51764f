package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	scenarioPath := filepath.Join(dir, "test.yaml")

	content := `
name: test_scenario
description: "Test scenario for validation"
files:
  src/asm/boot.s: "_start:\n"
toolchain:
  fail:
    - match: boot.s
      code: 2
flow:
  - run: build
    expect:
      state: failed
      error: E201
  - run: clean
assertions:
  - type: command_contains
    command: riscv64-elf-as
`
	require.NoError(t, os.WriteFile(scenarioPath, []byte(content), 0644))

	scenario, err := LoadScenario(scenarioPath)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "_start:\n", scenario.Files["src/asm/boot.s"])
	assert.Equal(t, []ToolFailure{{Match: "boot.s", Code: 2}}, scenario.Toolchain.Fail)
	require.Len(t, scenario.Flow, 2)
	assert.Equal(t, RunBuild, scenario.Flow[0].Run)
	assert.Equal(t, &ExpectClause{State: "failed", Error: "E201"}, scenario.Flow[0].Expect)
	assert.Nil(t, scenario.Flow[1].Expect)
	assert.Len(t, scenario.Assertions, 1)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "missing name",
			content: "description: d\nflow:\n  - run: build\n",
			want:    "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\nflow:\n  - run: build\n",
			want:    "description is required",
		},
		{
			name:    "empty flow",
			content: "name: n\ndescription: d\n",
			want:    "flow list is required",
		},
		{
			name:    "unknown field",
			content: "name: n\ndescription: d\nflows:\n  - run: build\n",
			want:    "failed to parse YAML",
		},
		{
			name:    "unknown run",
			content: "name: n\ndescription: d\nflow:\n  - run: deploy\n",
			want:    `flow[0]: unknown run "deploy"`,
		},
		{
			name:    "missing run",
			content: "name: n\ndescription: d\nflow:\n  - write: {a.s: x}\n",
			want:    "flow[0]: run is required",
		},
		{
			name:    "bad expect state",
			content: "name: n\ndescription: d\nflow:\n  - run: build\n    expect: {state: linking}\n",
			want:    "state must be done or failed",
		},
		{
			name:    "error on success",
			content: "name: n\ndescription: d\nflow:\n  - run: build\n    expect: {state: done, error: E201}\n",
			want:    "error requires state failed",
		},
		{
			name:    "escaping file",
			content: "name: n\ndescription: d\nfiles:\n  ../evil.s: x\nflow:\n  - run: build\n",
			want:    "must be relative to the scenario root",
		},
		{
			name:    "zero failure code",
			content: "name: n\ndescription: d\ntoolchain:\n  fail: [{match: as}]\nflow:\n  - run: build\n",
			want:    "code must be non-zero",
		},
		{
			name:    "empty skip_output executable",
			content: "name: n\ndescription: d\nflow:\n  - run: build\n    skip_output: [\"\"]\n",
			want:    "flow[0].skip_output: empty executable",
		},
		{
			name:    "unknown assertion",
			content: "name: n\ndescription: d\nflow:\n  - run: build\nassertions:\n  - type: trace_contains\n",
			want:    `unknown assertion type "trace_contains"`,
		},
		{
			name:    "command_order without commands",
			content: "name: n\ndescription: d\nflow:\n  - run: build\nassertions:\n  - type: command_order\n",
			want:    "commands list is required",
		},
		{
			name:    "file_contains without text",
			content: "name: n\ndescription: d\nflow:\n  - run: build\nassertions:\n  - type: file_contains\n    path: a.elf\n",
			want:    "text is required",
		},
		{
			name:    "manifest run out of range",
			content: "name: n\ndescription: d\nflow:\n  - run: build\nassertions:\n  - type: manifest_equal\n    runs: [0, 1]\n",
			want:    "run 1 out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenarios_Testdata(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	names := make(map[string]bool)
	for _, s := range scenarios {
		assert.False(t, names[s.Name], "duplicate scenario name %s", s.Name)
		names[s.Name] = true
		assert.FileExists(t, filepath.Join("testdata", "golden", s.Name+".golden"))
	}
}
