package generation

import "fmt"

// State is a stage of one generation run.
type State string

const (
	StatePrompting     State = "PROMPTING"
	StateAwaitingModel State = "AWAITING_MODEL"
	StateValidating    State = "VALIDATING"
	StateAnalyzing     State = "ANALYZING"
	StatePersisting    State = "PERSISTING"
	StateDone          State = "DONE"
	StateFailed        State = "FAILED"
)

// transitions lists the allowed successors of each state. FAILED is reachable
// from every non-terminal state and is not listed.
var transitions = map[State][]State{
	StatePrompting:     {StateAwaitingModel, StatePersisting},
	StateAwaitingModel: {StateValidating},
	StateValidating:    {StateAwaitingModel, StateAnalyzing, StatePersisting},
	StateAnalyzing:     {StatePersisting},
	StatePersisting:    {StateDone},
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// CanTransition reports whether from → to is allowed.
func CanTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Machine tracks the current state of one run.
type Machine struct {
	state State
	trail []State
}

// NewMachine starts in PROMPTING.
func NewMachine() *Machine {
	return &Machine{state: StatePrompting, trail: []State{StatePrompting}}
}

func (m *Machine) State() State { return m.state }

// Trail returns every state entered, in order.
func (m *Machine) Trail() []State {
	return append([]State(nil), m.trail...)
}

// Transition moves to next or reports why it cannot.
func (m *Machine) Transition(next State) error {
	if !CanTransition(m.state, next) {
		return fmt.Errorf("invalid generation state transition %s -> %s", m.state, next)
	}
	m.state = next
	m.trail = append(m.trail, next)
	return nil
}
