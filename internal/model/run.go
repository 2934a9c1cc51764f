package model

// RunMode distinguishes the entry points of imgforge.
type RunMode string

const (
	ModeBuild RunMode = "build"
	ModeClean RunMode = "clean"
)

// RunStatus is the lifecycle status of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run summarises one invocation of the build or clean pipeline.
type Run struct {
	ID           string    `json:"id"`
	Mode         RunMode   `json:"mode"`
	Target       string    `json:"target"`
	Profile      string    `json:"profile"`
	Status       RunStatus `json:"status"`
	Error        string    `json:"error,omitempty"`
	ImageDigest  string    `json:"image_digest,omitempty"`
	ManifestHash string    `json:"manifest_hash,omitempty"`
}

// Step is the outcome of one spawned process.
type Step struct {
	// Seq orders steps and artifacts within a run (logical clock).
	Seq int64 `json:"seq"`

	// Stage is the pipeline state the step ran in (e.g. "compiling-asm").
	Stage string `json:"stage"`

	// Command is the rendered command line.
	Command string `json:"command"`

	// ExitCode is the process exit status, -1 if it never exited normally.
	ExitCode int `json:"exit_code"`

	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Succeeded reports whether the step ran and exited zero.
func (s Step) Succeeded() bool {
	return s.ExitCode == 0 && s.Error == ""
}
