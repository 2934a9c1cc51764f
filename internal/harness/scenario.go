package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a build scenario.
// It validates pipeline behaviour by running a flow of builds and cleans
// over a scripted toolchain and asserting on the resulting tree and trace.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is written to imgforge.cue in the scenario root.
	// If empty, the default configuration applies.
	Config string `yaml:"config,omitempty"`

	// Files is the initial source tree, keyed by root-relative path.
	Files map[string]string `yaml:"files,omitempty"`

	// Toolchain scripts how spawned tools behave.
	Toolchain ToolchainScript `yaml:"toolchain,omitempty"`

	// Flow is the ordered list of runs.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the tree and commands after the whole flow.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// RunID is the fixed id given to every run. Defaults to "test-run".
	RunID string `yaml:"run_id,omitempty"`
}

// ToolchainScript configures the fake toolchain.
type ToolchainScript struct {
	// Fail makes commands that contain Match exit with Code.
	Fail []ToolFailure `yaml:"fail,omitempty"`

	// Missing lists executables that cannot be launched.
	Missing []string `yaml:"missing,omitempty"`

	// SkipOutput lists executables that exit zero without writing output.
	SkipOutput []string `yaml:"skip_output,omitempty"`

	// NoLibrary makes the external build succeed without producing the
	// static library.
	NoLibrary bool `yaml:"no_library,omitempty"`
}

// ToolFailure is one scripted tool failure.
type ToolFailure struct {
	Match string `yaml:"match"`
	Code  int    `yaml:"code"`
}

// FlowStep is one run of the pipeline.
type FlowStep struct {
	// Run is the operation: build, clean or clean-all.
	Run string `yaml:"run"`

	// Write adds or replaces files before the run.
	Write map[string]string `yaml:"write,omitempty"`

	// Remove deletes files before the run.
	Remove []string `yaml:"remove,omitempty"`

	// SkipOutput lists executables that stop writing their output from
	// this run on.
	SkipOutput []string `yaml:"skip_output,omitempty"`

	// Expect checks the outcome of the run.
	// If nil, the run is expected to finish in state done.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a run.
type ExpectClause struct {
	// State is the expected final pipeline state (done or failed).
	State string `yaml:"state"`

	// Error is the expected error code, e.g. "E201". Empty means no error.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the state left behind by the flow.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Command is a substring of a command line (command_contains, command_count).
	Command string `yaml:"command,omitempty"`

	// Commands are substrings matched in order (command_order).
	Commands []string `yaml:"commands,omitempty"`

	// Count is the expected number of matching commands (command_count).
	Count int `yaml:"count,omitempty"`

	// Path is a root-relative path (file_exists, file_absent, file_contains).
	Path string `yaml:"path,omitempty"`

	// Text is the expected content substring (file_contains).
	Text string `yaml:"text,omitempty"`

	// Runs are two flow indexes (manifest_equal, manifest_differs).
	Runs []int `yaml:"runs,omitempty"`
}

// Run operations.
const (
	RunBuild    = "build"
	RunClean    = "clean"
	RunCleanAll = "clean-all"
)

// Assertion type constants.
const (
	AssertCommandContains = "command_contains"
	AssertCommandOrder    = "command_order"
	AssertCommandCount    = "command_count"
	AssertFileExists      = "file_exists"
	AssertFileAbsent      = "file_absent"
	AssertFileContains    = "file_contains"
	AssertManifestEqual   = "manifest_equal"
	AssertManifestDiffers = "manifest_differs"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for path := range s.Files {
		if err := validatePath(path); err != nil {
			return fmt.Errorf("files: %w", err)
		}
	}

	for i, f := range s.Toolchain.Fail {
		if f.Match == "" {
			return fmt.Errorf("toolchain.fail[%d]: match is required", i)
		}
		if f.Code == 0 {
			return fmt.Errorf("toolchain.fail[%d]: code must be non-zero", i)
		}
	}

	for i, step := range s.Flow {
		switch step.Run {
		case RunBuild, RunClean, RunCleanAll:
		case "":
			return fmt.Errorf("flow[%d]: run is required", i)
		default:
			return fmt.Errorf("flow[%d]: unknown run %q", i, step.Run)
		}
		for path := range step.Write {
			if err := validatePath(path); err != nil {
				return fmt.Errorf("flow[%d].write: %w", i, err)
			}
		}
		for _, path := range step.Remove {
			if err := validatePath(path); err != nil {
				return fmt.Errorf("flow[%d].remove: %w", i, err)
			}
		}
		for _, exe := range step.SkipOutput {
			if exe == "" {
				return fmt.Errorf("flow[%d].skip_output: empty executable", i)
			}
		}
		if step.Expect != nil {
			switch step.Expect.State {
			case "done", "failed":
			default:
				return fmt.Errorf("flow[%d].expect: state must be done or failed", i)
			}
			if step.Expect.State == "done" && step.Expect.Error != "" {
				return fmt.Errorf("flow[%d].expect: error requires state failed", i)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, len(s.Flow)); err != nil {
			return err
		}
	}

	return nil
}

// validatePath rejects paths that would escape the scenario root.
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}
	if filepath.IsAbs(path) || !filepath.IsLocal(path) {
		return fmt.Errorf("path %q must be relative to the scenario root", path)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, flowLen int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCommandContains:
		if a.Command == "" {
			return fmt.Errorf("assertions[%d]: command is required for command_contains", index)
		}
	case AssertCommandOrder:
		if len(a.Commands) == 0 {
			return fmt.Errorf("assertions[%d]: commands list is required for command_order", index)
		}
	case AssertCommandCount:
		if a.Command == "" {
			return fmt.Errorf("assertions[%d]: command is required for command_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for command_count", index)
		}
	case AssertFileExists, AssertFileAbsent:
		if err := validatePath(a.Path); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertFileContains:
		if err := validatePath(a.Path); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for file_contains", index)
		}
	case AssertManifestEqual, AssertManifestDiffers:
		if len(a.Runs) != 2 {
			return fmt.Errorf("assertions[%d]: runs must name exactly two flow steps", index)
		}
		for _, r := range a.Runs {
			if r < 0 || r >= flowLen {
				return fmt.Errorf("assertions[%d]: run %d out of range", index, r)
			}
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
