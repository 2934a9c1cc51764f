package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/imgforge/internal/clean"
	"github.com/roach88/imgforge/internal/config"
	"github.com/roach88/imgforge/internal/external"
	"github.com/roach88/imgforge/internal/link"
	"github.com/roach88/imgforge/internal/model"
	"github.com/roach88/imgforge/internal/pipeline"
	"github.com/roach88/imgforge/internal/source"
	"github.com/roach88/imgforge/internal/testutil"
	"github.com/roach88/imgforge/internal/toolchain"
)

// Harness executes one scenario in its own root directory.
type Harness struct {
	scenario *Scenario
	root     string
	cfg      config.Config
	runner   *testutil.FakeRunner
	clock    *testutil.DeterministicClock
	driver   *pipeline.Driver
	result   *Result
	flow     int
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh temporary root that is removed afterwards.
//
// Execution flow:
//  1. Write imgforge.cue and the initial files
//  2. Load the configuration and script the fake toolchain
//  3. For each flow step, apply its edits, run it, and check Expect
//  4. Evaluate assertions against the final tree
//
// Run returns an error only if the scenario could not be executed at all.
// Failed expectations and assertions are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context for every pipeline run.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	root, err := os.MkdirTemp("", "imgforge-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario root: %w", err)
	}
	defer os.RemoveAll(root)

	h, err := newHarness(scenario, root)
	if err != nil {
		return nil, err
	}

	for i, step := range scenario.Flow {
		h.flow = i
		if err := h.runStep(ctx, step); err != nil {
			return nil, fmt.Errorf("flow[%d]: %w", i, err)
		}
	}

	h.result.Commands = h.runner.CommandLines()
	for i, a := range scenario.Assertions {
		if err := h.evaluate(a); err != nil {
			h.result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}

	return h.result, nil
}

func newHarness(scenario *Scenario, root string) (*Harness, error) {
	if scenario.Config != "" {
		if err := writeFile(root, config.DefaultFile, scenario.Config); err != nil {
			return nil, err
		}
	}
	for path, content := range scenario.Files {
		if err := writeFile(root, path, content); err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(root, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario config: %w", err)
	}

	library := cfg.LibraryPath()
	if scenario.Toolchain.NoLibrary {
		library = ""
	}
	runner := testutil.NewFakeRunner(root).WithExternal(cfg.External.Exe, library, cfg.TargetDir)
	for _, f := range scenario.Toolchain.Fail {
		runner.FailWhen(f.Match, f.Code)
	}
	for _, exe := range scenario.Toolchain.Missing {
		runner.MissingTool(exe)
	}
	for _, exe := range scenario.Toolchain.SkipOutput {
		runner.SkipOutput(exe)
	}

	h := &Harness{
		scenario: scenario,
		root:     root,
		cfg:      cfg,
		runner:   runner,
		clock:    testutil.NewDeterministicClock(),
		result:   NewResult(),
	}
	h.driver = pipeline.New(cfg, runner,
		pipeline.WithClock(h.clock),
		pipeline.WithRunIDGenerator(testutil.NewFixedRunID(scenario.RunID)),
		pipeline.WithRecorder(&traceRecorder{h: h}),
	)
	return h, nil
}

func (h *Harness) runStep(ctx context.Context, step FlowStep) error {
	for path, content := range step.Write {
		if err := writeFile(h.root, path, content); err != nil {
			return err
		}
	}
	for _, path := range step.Remove {
		if err := os.Remove(filepath.Join(h.root, path)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}

	for _, exe := range step.SkipOutput {
		h.runner.SkipOutput(exe)
	}

	h.clock.Reset()

	var report *pipeline.Report
	var err error
	switch step.Run {
	case RunBuild:
		report, err = h.driver.Build(ctx)
	case RunClean:
		report, err = h.driver.Clean(ctx, clean.Options{})
	case RunCleanAll:
		report, err = h.driver.Clean(ctx, clean.Options{RemoveImage: true})
	default:
		return fmt.Errorf("unknown run %q", step.Run)
	}

	outcome := Outcome{
		Run:          step.Run,
		State:        string(report.State),
		Error:        ErrorCode(err),
		ManifestHash: report.ManifestHash,
	}
	h.result.Outcomes = append(h.result.Outcomes, outcome)
	if n := len(h.result.Trace); n > 0 && h.result.Trace[n-1].Type == EventFinish {
		h.result.Trace[n-1].Code = outcome.Error
	}
	slog.Debug("scenario step", "scenario", h.scenario.Name, "flow", h.flow, "run", step.Run, "state", outcome.State, "error", outcome.Error)

	expect := step.Expect
	if expect == nil {
		expect = &ExpectClause{State: string(pipeline.StateDone)}
	}
	if outcome.State != expect.State {
		h.result.AddError(fmt.Sprintf("flow[%d]: expected state %s, got %s (%v)", h.flow, expect.State, outcome.State, err))
	}
	if outcome.Error != expect.Error {
		h.result.AddError(fmt.Sprintf("flow[%d]: expected error %q, got %q (%v)", h.flow, expect.Error, outcome.Error, err))
	}
	return nil
}

// ErrorCode returns the code of a pipeline error, or "" for nil.
// Errors that carry no code map to "E001".
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var cfgErr *config.Error
	if errors.As(err, &cfgErr) {
		return cfgErr.Code
	}
	var cmdErr *toolchain.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code
	}
	if external.IsMissingLibrary(err) {
		return external.ErrCodeMissingLibrary
	}
	if errors.Is(err, link.ErrNoInputs) {
		return link.ErrCodeNoInputs
	}
	var collision *source.CollisionError
	if errors.As(err, &collision) {
		return source.ErrCodeCollision
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return toolchain.ErrCodeToolInterrupted
	}
	return "E001"
}

func writeFile(root, rel, content string) error {
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	return nil
}

// traceRecorder turns journal calls into trace events.
type traceRecorder struct {
	h *Harness
}

func (t *traceRecorder) add(e TraceEvent) {
	e.Flow = t.h.flow
	t.h.result.Trace = append(t.h.result.Trace, e)
}

func (t *traceRecorder) StartRun(_ context.Context, run model.Run) error {
	t.add(TraceEvent{Type: EventRun, Mode: string(run.Mode), RunID: run.ID})
	return nil
}

func (t *traceRecorder) RecordStep(_ context.Context, _ string, step model.Step) error {
	t.add(TraceEvent{
		Type:     EventStep,
		Seq:      step.Seq,
		Stage:    step.Stage,
		Command:  step.Command,
		ExitCode: step.ExitCode,
	})
	return nil
}

func (t *traceRecorder) RecordArtifact(_ context.Context, _ string, seq int64, a model.Artifact) error {
	t.add(TraceEvent{Type: EventArtifact, Seq: seq, Kind: string(a.Kind), Path: a.Path})
	return nil
}

func (t *traceRecorder) FinishRun(_ context.Context, run model.Run) error {
	t.add(TraceEvent{Type: EventFinish, Status: string(run.Status)})
	return nil
}

