package pipeline

import "fmt"

// State is a stage boundary of a pipeline run.
type State string

// Pipeline states. Failed is terminal and reachable from every
// non-terminal state.
const (
	StatePending     State = "pending"
	StateReset       State = "reset"
	StateLoaded      State = "loaded"
	StateTransformed State = "transformed"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// transitions lists the legal successors of each state. Pending moves
// straight to Loaded when a transform-only run finds the staging tables
// in place.
var transitions = map[State][]State{
	StatePending:     {StateReset, StateLoaded},
	StateReset:       {StateLoaded},
	StateLoaded:      {StateTransformed, StateDone},
	StateTransformed: {StateDone},
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// machine tracks the state of a single run.
type machine struct {
	current State
	onEnter func(from, to State)
}

func newMachine(onEnter func(from, to State)) *machine {
	return &machine{current: StatePending, onEnter: onEnter}
}

// advance moves to the next state, rejecting illegal transitions.
func (m *machine) advance(to State) error {
	if m.current.Terminal() {
		return fmt.Errorf("pipeline already %s", m.current)
	}
	if to != StateFailed && !allowed(m.current, to) {
		return fmt.Errorf("illegal transition %s -> %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.onEnter != nil {
		m.onEnter(from, to)
	}
	return nil
}

func allowed(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
