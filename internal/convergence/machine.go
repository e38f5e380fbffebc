package convergence

import (
	"fmt"
	"sync"
)

// State is a phase of the learning loop
type State string

const (
	Collecting State = "collecting"
	Training   State = "training"
	Checking   State = "checking"
	Rejected   State = "rejected"
	Converged  State = "converged"
	Failed     State = "failed"
)

// Terminal reports whether no transition leaves s
func (s State) Terminal() bool {
	return s == Converged || s == Failed
}

var transitions = map[State][]State{
	Collecting: {Training, Failed},
	Training:   {Checking, Collecting, Failed},
	Checking:   {Converged, Rejected, Collecting, Failed},
	Rejected:   {Collecting, Failed},
}

// Machine tracks the loop phase and refuses illegal transitions
type Machine struct {
	mu      sync.Mutex
	state   State
	history []State
}

// NewMachine starts in Collecting
func NewMachine() *Machine {
	return &Machine{state: Collecting, history: []State{Collecting}}
}

// State returns the current phase
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// History returns every phase visited, in order
func (m *Machine) History() []State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]State(nil), m.history...)
}

// CanTransition reports whether from -> to is legal
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves to the next phase
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !CanTransition(m.state, to) {
		return fmt.Errorf("illegal transition %s -> %s", m.state, to)
	}
	m.state = to
	m.history = append(m.history, to)
	return nil
}

// Fail moves to Failed from any non-terminal phase
func (m *Machine) Fail() error {
	return m.Transition(Failed)
}
