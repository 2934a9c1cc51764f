package harness

import (
	"fmt"
	"strings"
)

// Trace event types.
const (
	EventRun      = "run"
	EventStep     = "step"
	EventArtifact = "artifact"
	EventFinish   = "finish"
)

// TraceEvent is one journal record observed during a scenario.
type TraceEvent struct {
	Type string `json:"type"`

	// Flow is the index of the flow step that produced the event.
	Flow int `json:"flow"`

	// Seq is the logical clock value. Zero for run and finish events.
	Seq int64 `json:"seq,omitempty"`

	// Run events.
	Mode  string `json:"mode,omitempty"`
	RunID string `json:"run_id,omitempty"`

	// Step events.
	Stage    string `json:"stage,omitempty"`
	Command  string `json:"command,omitempty"`
	ExitCode int    `json:"exit_code"`

	// Artifact events.
	Kind string `json:"kind,omitempty"`
	Path string `json:"path,omitempty"`

	// Finish events. Code is the error code of a failed run.
	Status string `json:"status,omitempty"`
	Code   string `json:"code,omitempty"`
}

// String renders the event as one transcript line.
func (e TraceEvent) String() string {
	switch e.Type {
	case EventRun:
		return fmt.Sprintf("run %s %s", e.Mode, e.RunID)
	case EventStep:
		return fmt.Sprintf("%d step %s %s => %d", e.Seq, e.Stage, e.Command, e.ExitCode)
	case EventArtifact:
		return fmt.Sprintf("%d artifact %s %s", e.Seq, e.Kind, e.Path)
	case EventFinish:
		if e.Code != "" {
			return fmt.Sprintf("finish %s %s", e.Status, e.Code)
		}
		return "finish " + e.Status
	default:
		return e.Type
	}
}

// Outcome is the result of one flow step.
type Outcome struct {
	Run          string `json:"run"`
	State        string `json:"state"`
	Error        string `json:"error,omitempty"`
	ManifestHash string `json:"manifest_hash,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every run, step, artifact and finish record in order.
	Trace []TraceEvent `json:"trace"`

	// Outcomes has one entry per flow step.
	Outcomes []Outcome `json:"outcomes"`

	// Commands are all command lines spawned during the flow, in order.
	Commands []string `json:"commands"`

	// Errors contains expectation and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Outcomes: []Outcome{},
		Commands: []string{},
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Transcript renders the trace one event per line, with a trailing newline.
func (r *Result) Transcript() string {
	var b strings.Builder
	for _, e := range r.Trace {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}
