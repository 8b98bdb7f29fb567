// Package phase implements spec §4.4's generic per-round phase driver:
// a labeled-state machine with a validated transition table, grounded
// directly on the teacher's internal/state/state.go (mutex + signal
// channel + transition table over a fixed activity enum) — generalized
// here from a fixed array to a map so the label set can be the
// spec-defined phase names (OFFLINE, SHUFFLING, ...) instead of a
// hardcoded enum.
package phase

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

// Label names a state the phase machine can be in.
type Label string

// Change runs when the machine enters a new state. It must operate
// quickly and must never call Update itself — doing so deadlocks the
// machine, exactly as the teacher's state.Change contract requires.
type Change func(from Label) error

// Machine is a generic labeled-state driver: one phase instance each
// for server-flow and client-flow (spec §4.5) construct their own
// Machine with their own label set and transition table.
type Machine struct {
	mu         sync.RWMutex
	current    Label
	changeList map[Label]Change
	stateMap   map[Label]map[Label]bool

	signal chan Label

	// interrupted marks that the current cycle was abandoned before a
	// cycle-complete transition — spec §4.4's "interrupted flag
	// propagation".
	interrupted bool
}

// NewMachine builds a Machine starting at start, with changeList giving
// the entry callback for every label the caller intends to enter.
func NewMachine(start Label, changeList map[Label]Change) *Machine {
	return &Machine{
		current:    start,
		changeList: changeList,
		stateMap:   make(map[Label]map[Label]bool),
		signal:     make(chan Label),
	}
}

// AddTransition marks every label in to as reachable from from.
func (m *Machine) AddTransition(from Label, to ...Label) {
	if m.stateMap[from] == nil {
		m.stateMap[from] = make(map[Label]bool)
	}
	for _, t := range to {
		m.stateMap[from][t] = true
	}
}

// Get returns the current label.
func (m *Machine) Get() Label {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Interrupted reports whether the running cycle was abandoned.
func (m *Machine) Interrupted() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.interrupted
}

// Interrupt marks the current cycle as abandoned; the orchestrator
// checks this before running cycle-complete hooks (spec §4.4).
func (m *Machine) Interrupt() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interrupted = true
}

// Update attempts to move to next. It fails if next is not a valid
// transition from the current label.
func (m *Machine) Update(next Label) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.stateMap[m.current][next] {
		return false, errors.Errorf("phase: not a valid transition from %s to %s", m.current, next)
	}

	jww.INFO.Printf("phase: transitioning to %s", next)

	old := m.current
	m.current = next

	if change, ok := m.changeList[next]; ok {
		if err := change(old); err != nil {
			m.current = old
			return false, err
		}
	}

	for signal := true; signal; {
		select {
		case m.signal <- m.current:
		default:
			signal = false
		}
	}
	return true, nil
}

// WaitFor returns at once if the machine is already at one of expected,
// and errors if none of expected is one transition away. Otherwise it
// blocks until the next transition or until timeout elapses, and errors
// if that transition lands on a label outside expected.
func (m *Machine) WaitFor(timeout time.Duration, expected ...Label) (Label, error) {
	m.mu.RLock()

	expectedSet := make(map[Label]bool, len(expected))
	for _, e := range expected {
		expectedSet[e] = true
	}

	if expectedSet[m.current] {
		m.mu.RUnlock()
		return m.current, nil
	}

	reachable := false
	for _, e := range expected {
		if m.stateMap[m.current][e] {
			reachable = true
			break
		}
	}
	if !reachable {
		cur := m.current
		m.mu.RUnlock()
		return cur, errors.Errorf("phase: cannot wait for %v from %s", expected, cur)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	m.mu.RUnlock()

	select {
	case newState := <-m.signal:
		if !expectedSet[newState] {
			return newState, errors.Errorf("phase: reached %s, not one of %v", newState, expected)
		}
		return newState, nil
	case <-timer.C:
		return m.Get(), errors.Errorf("phase: timed out after %s waiting for %v", timeout, expected)
	}
}

// ResetForCycle clears the interrupted flag ahead of a new cycle — spec
// §4.4's cycle-state marker.
func (m *Machine) ResetForCycle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interrupted = false
}
