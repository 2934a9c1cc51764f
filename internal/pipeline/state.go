package pipeline

import "fmt"

// State is a state of the whole-build state machine.
//
//	Idle → Discovering → CompilingAsm → CompilingNative → BuildingExternal → Linking → Done
//	Idle → Cleaning → Done
//
// Every working state may move to Failed. Nothing is retained between
// runs: each run starts at Idle.
type State string

const (
	StateIdle             State = "idle"
	StateDiscovering      State = "discovering"
	StateCompilingAsm     State = "compiling-asm"
	StateCompilingNative  State = "compiling-native"
	StateBuildingExternal State = "building-external"
	StateLinking          State = "linking"
	StateCleaning         State = "cleaning"
	StateDone             State = "done"
	StateFailed           State = "failed"
)

var transitions = map[State][]State{
	StateIdle:             {StateDiscovering, StateCleaning},
	StateDiscovering:      {StateCompilingAsm, StateFailed},
	StateCompilingAsm:     {StateCompilingNative, StateFailed},
	StateCompilingNative:  {StateBuildingExternal, StateFailed},
	StateBuildingExternal: {StateLinking, StateFailed},
	StateLinking:          {StateDone, StateFailed},
	StateCleaning:         {StateDone, StateFailed},
}

// TransitionError reports an illegal state change. It indicates a bug in
// the driver, not a build failure.
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal pipeline transition %s → %s", e.From, e.To)
}

// CanTransition reports whether from → to is a legal transition.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// machine tracks the current state of one run.
type machine struct {
	state State
}

func (m *machine) to(next State) error {
	if !CanTransition(m.state, next) {
		return &TransitionError{From: m.state, To: next}
	}
	m.state = next
	return nil
}
