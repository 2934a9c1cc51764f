package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/imgforge/internal/clean"
	"github.com/roach88/imgforge/internal/config"
	"github.com/roach88/imgforge/internal/external"
	"github.com/roach88/imgforge/internal/link"
	"github.com/roach88/imgforge/internal/model"
	"github.com/roach88/imgforge/internal/source"
	"github.com/roach88/imgforge/internal/toolchain"
)

// Recorder receives the progress of a run. store.Store implements it.
//
// Recorder errors are logged and otherwise ignored: a journal must never
// change the outcome of a build.
type Recorder interface {
	StartRun(ctx context.Context, run model.Run) error
	RecordStep(ctx context.Context, runID string, step model.Step) error
	RecordArtifact(ctx context.Context, runID string, seq int64, artifact model.Artifact) error
	FinishRun(ctx context.Context, run model.Run) error
}

// Report is the result of one run. It is returned for failed runs as well,
// describing everything that happened up to the failure.
type Report struct {
	Run          model.Run        `json:"run"`
	State        State            `json:"state"`
	Sources      source.Set       `json:"sources"`
	Steps        []model.Step     `json:"steps"`
	Artifacts    []model.Artifact `json:"artifacts"`
	Image        *model.Artifact  `json:"image,omitempty"`
	ManifestHash string           `json:"manifest_hash,omitempty"`
	Clean        *clean.Report    `json:"clean,omitempty"`
}

// Driver composes the stages of a build.
//
// A Driver is not safe for concurrent use; runs execute one at a time and
// every process is waited on before the next starts.
type Driver struct {
	cfg      config.Config
	runner   toolchain.Runner
	clock    Sequencer
	ids      RunIDGenerator
	recorder Recorder
	echo     io.Writer
}

// Option configures a Driver.
type Option func(*Driver)

// WithClock overrides the logical clock (tests use a deterministic clock).
func WithClock(c Sequencer) Option {
	return func(d *Driver) {
		d.clock = c
	}
}

// WithRunIDGenerator overrides the run id generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(d *Driver) {
		d.ids = g
	}
}

// WithRecorder attaches a journal.
func WithRecorder(r Recorder) Option {
	return func(d *Driver) {
		d.recorder = r
	}
}

// WithEcho writes "$ <command>" to w before each process starts.
func WithEcho(w io.Writer) Option {
	return func(d *Driver) {
		d.echo = w
	}
}

// New creates a Driver. runner spawns every process of every stage.
func New(cfg config.Config, runner toolchain.Runner, opts ...Option) *Driver {
	d := &Driver{
		cfg:    cfg,
		runner: runner,
		clock:  NewClock(),
		ids:    UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// run is the mutable state of one invocation.
type run struct {
	d       *Driver
	m       machine
	report  *Report
	runner  *stepRunner
	builder external.Builder
}

// discover scans the configured asm and native source directories.
func (d *Driver) discover() (source.Set, error) {
	return source.DiscoverAll(os.DirFS(d.cfg.Root), d.cfg.SourceDir(model.SourceAsm), d.cfg.SourceDir(model.SourceNative))
}

func (d *Driver) begin(ctx context.Context, mode model.RunMode) *run {
	r := &run{
		d: d,
		m: machine{state: StateIdle},
		report: &Report{
			Run: model.Run{
				ID:      d.ids.Generate(),
				Mode:    mode,
				Target:  d.cfg.Target,
				Profile: string(d.cfg.Profile),
				Status:  model.RunRunning,
			},
			State:     StateIdle,
			Steps:     []model.Step{},
			Artifacts: []model.Artifact{},
		},
	}
	r.runner = &stepRunner{run: r, next: d.runner}
	r.builder = external.NewCargo(d.cfg, r.runner)

	slog.Info("run starting", "run", r.report.Run.ID, "mode", mode, "target", d.cfg.Target, "profile", d.cfg.Profile)
	if d.recorder != nil {
		if err := d.recorder.StartRun(ctx, r.report.Run); err != nil {
			slog.Warn("journal: start run failed", "run", r.report.Run.ID, "error", err)
		}
	}
	return r
}

func (r *run) to(next State) error {
	if err := r.m.to(next); err != nil {
		return err
	}
	r.report.State = next
	slog.Debug("state", "run", r.report.Run.ID, "state", next)
	return nil
}

func (r *run) addArtifact(ctx context.Context, a model.Artifact) {
	seq := r.d.clock.Next()
	r.report.Artifacts = append(r.report.Artifacts, a)
	slog.Debug("artifact", "run", r.report.Run.ID, "seq", seq, "kind", a.Kind, "path", a.Path, "digest", a.Digest)
	if r.d.recorder != nil {
		if err := r.d.recorder.RecordArtifact(ctx, r.report.Run.ID, seq, a); err != nil {
			slog.Warn("journal: record artifact failed", "run", r.report.Run.ID, "error", err)
		}
	}
}

// finish moves the run to its terminal state and closes the journal entry.
func (r *run) finish(ctx context.Context, runErr error) (*Report, error) {
	rep := r.report
	if runErr != nil {
		if !rep.State.Terminal() {
			// Failed is reachable from every working state.
			if err := r.to(StateFailed); err != nil {
				rep.State = StateFailed
			}
		}
		rep.Run.Status = model.RunFailed
		rep.Run.Error = runErr.Error()
		slog.Error("run failed", "run", rep.Run.ID, "error", runErr)
	} else {
		rep.Run.Status = model.RunSucceeded
		slog.Info("run finished", "run", rep.Run.ID, "steps", len(rep.Steps), "artifacts", len(rep.Artifacts))
	}

	if rep.Image != nil {
		rep.Run.ImageDigest = rep.Image.Digest
	}
	rep.Run.ManifestHash = rep.ManifestHash

	if r.d.recorder != nil {
		// Record the outcome even if the caller's context was cancelled.
		if err := r.d.recorder.FinishRun(context.WithoutCancel(ctx), rep.Run); err != nil {
			slog.Warn("journal: finish run failed", "run", rep.Run.ID, "error", err)
		}
	}
	return rep, runErr
}

// Build runs Discover → Compile(asm) → Compile(native) → Build(external) →
// Link, stopping at the first failure.
//
// The returned Report is never nil. On failure it describes the steps that
// ran and the error is one of the typed errors of the stage that failed.
func (d *Driver) Build(ctx context.Context) (*Report, error) {
	r := d.begin(ctx, model.ModeBuild)
	return r.finish(ctx, r.build(ctx))
}

func (r *run) build(ctx context.Context) error {
	cfg := r.d.cfg

	if err := r.to(StateDiscovering); err != nil {
		return err
	}
	set, err := r.d.discover()
	if err != nil {
		return err
	}
	r.report.Sources = set
	slog.Info("sources discovered", "run", r.report.Run.ID, "asm", len(set.Asm), "native", len(set.Native))

	invoker := toolchain.NewInvoker(cfg, r.runner)
	if err := invoker.EnsureObjectDir(); err != nil {
		return err
	}

	if err := r.to(StateCompilingAsm); err != nil {
		return err
	}
	asmObjs, err := invoker.Compile(ctx, set.Asm)
	if err != nil {
		return err
	}
	for _, a := range asmObjs {
		r.addArtifact(ctx, a)
	}

	if err := r.to(StateCompilingNative); err != nil {
		return err
	}
	nativeObjs, err := invoker.Compile(ctx, set.Native)
	if err != nil {
		return err
	}
	for _, a := range nativeObjs {
		r.addArtifact(ctx, a)
	}

	if err := r.to(StateBuildingExternal); err != nil {
		return err
	}
	libPath, err := r.builder.Build(ctx, cfg.Profile)
	if external.IsMissingLibrary(err) {
		// The linker stage decides between "no inputs" and "missing library".
		libPath = r.builder.LibraryPath(cfg.Profile)
	} else if err != nil {
		return err
	}

	if err := r.to(StateLinking); err != nil {
		return err
	}
	objects := make([]model.Artifact, 0, len(asmObjs)+len(nativeObjs))
	objects = append(objects, asmObjs...)
	objects = append(objects, nativeObjs...)

	stage := link.NewStage(cfg, r.runner)
	image, inputs, err := stage.Link(ctx, objects, libPath, r.builder.BuildCommand(cfg.Profile).String())
	if err != nil {
		return err
	}
	if lib := inputs[len(inputs)-1]; lib.Kind == model.ArtifactStaticLibrary {
		r.addArtifact(ctx, lib)
	}
	r.addArtifact(ctx, image)
	r.report.Image = &image

	manifest, err := model.ManifestHash(inputs)
	if err != nil {
		return fmt.Errorf("computing manifest hash: %w", err)
	}
	r.report.ManifestHash = manifest

	return r.to(StateDone)
}

// Clean runs the clean stage: the external build system's clean followed by
// removal of every object file. It never passes through the build states.
func (d *Driver) Clean(ctx context.Context, opts clean.Options) (*Report, error) {
	r := d.begin(ctx, model.ModeClean)
	return r.finish(ctx, r.clean(ctx, opts))
}

func (r *run) clean(ctx context.Context, opts clean.Options) error {
	if err := r.to(StateCleaning); err != nil {
		return err
	}

	report, err := clean.NewStage(r.d.cfg, r.builder).Clean(ctx, opts)
	if err != nil {
		return err
	}
	r.report.Clean = report
	slog.Info("clean finished", "run", r.report.Run.ID, "removed", len(report.Removed), "external", report.ExternalCleaned)

	return r.to(StateDone)
}

// stepRunner stamps, logs and records every process a stage spawns.
type stepRunner struct {
	run  *run
	next toolchain.Runner
}

func (s *stepRunner) Run(ctx context.Context, cmd model.Command) (toolchain.Result, error) {
	r := s.run
	seq := r.d.clock.Next()
	line := cmd.String()

	slog.Info("exec", "run", r.report.Run.ID, "seq", seq, "stage", r.m.state, "cmd", line)
	if r.d.echo != nil {
		fmt.Fprintf(r.d.echo, "$ %s\n", line)
	}

	res, err := s.next.Run(ctx, cmd)

	step := model.Step{
		Seq:        seq,
		Stage:      string(r.m.state),
		Command:    line,
		ExitCode:   res.ExitCode,
		DurationMS: res.Duration.Milliseconds(),
	}
	switch {
	case err != nil:
		step.Error = err.Error()
	case res.ExitCode != 0:
		step.Error = fmt.Sprintf("exit status %d", res.ExitCode)
	}
	r.report.Steps = append(r.report.Steps, step)

	if step.Succeeded() {
		slog.Debug("exec finished", "run", r.report.Run.ID, "seq", seq, "duration_ms", step.DurationMS)
	} else {
		slog.Error("exec failed", "run", r.report.Run.ID, "seq", seq, "exit_code", res.ExitCode, "error", step.Error)
	}

	if r.d.recorder != nil {
		if rerr := r.d.recorder.RecordStep(ctx, r.report.Run.ID, step); rerr != nil {
			slog.Warn("journal: record step failed", "run", r.report.Run.ID, "error", rerr)
		}
	}

	return res, err
}

// Plan is the ordered list of commands a build would run.
type Plan struct {
	Sources  source.Set      `json:"sources"`
	Commands []model.Command `json:"commands"`
}

// Lines renders the planned commands.
func (p *Plan) Lines() []string {
	lines := make([]string, len(p.Commands))
	for i, c := range p.Commands {
		lines[i] = c.String()
	}
	return lines
}

// Plan discovers sources and returns the commands Build would spawn, in
// order. Nothing is executed and nothing is written. The link command
// always names the static library, since Build requires it.
func (d *Driver) Plan(ctx context.Context) (*Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg := d.cfg

	set, err := d.discover()
	if err != nil {
		return nil, err
	}

	invoker := toolchain.NewInvoker(cfg, d.runner)
	cargo := external.NewCargo(cfg, d.runner)

	plan := &Plan{Sources: set}
	objects := make([]model.Artifact, 0, set.Len())
	for _, sf := range set.All() {
		plan.Commands = append(plan.Commands, invoker.CompileCommand(sf))
		objects = append(objects, model.Artifact{Path: sf.ObjectPath(cfg.ObjDir), Kind: model.ArtifactObject})
	}
	plan.Commands = append(plan.Commands, cargo.BuildCommand(cfg.Profile))

	lib := model.Artifact{Path: cargo.LibraryPath(cfg.Profile), Kind: model.ArtifactStaticLibrary}
	plan.Commands = append(plan.Commands, link.NewStage(cfg, d.runner).Command(link.Inputs(objects, &lib)))

	return plan, nil
}
