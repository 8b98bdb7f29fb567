package orchestrator

import "sync"

// PhaseLog is a lightweight, in-memory accounting structure mirroring
// original_source's BlogDropRound.cpp per-phase logging — purely an
// observability aid (never persisted, consistent with the Non-goal on
// persistence), so it's a counter map rather than a structured log
// sink.
type PhaseLog struct {
	mu             sync.Mutex
	PhasesExecuted int
	SlotsOpened    int
	SlotsClosed    int
	BytesPushed    int64
}

// PhaseLogSnapshot is a point-in-time copy of PhaseLog's counters, safe
// to read without holding the log's own lock.
type PhaseLogSnapshot struct {
	PhasesExecuted int
	SlotsOpened    int
	SlotsClosed    int
	BytesPushed    int64
}

func newPhaseLog() *PhaseLog {
	return &PhaseLog{}
}

func (l *PhaseLog) recordPhase() {
	l.mu.Lock()
	l.PhasesExecuted++
	l.mu.Unlock()
}

func (l *PhaseLog) recordBytes(n int) {
	if n == 0 {
		return
	}
	l.mu.Lock()
	l.BytesPushed += int64(n)
	l.mu.Unlock()
}

// recordTransitions compares a slot-open vector from before and after a
// Tracker.Advance call and tallies how many slots newly opened or
// closed this phase.
func (l *PhaseLog) recordTransitions(before, after []bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range before {
		switch {
		case !before[i] && after[i]:
			l.SlotsOpened++
		case before[i] && !after[i]:
			l.SlotsClosed++
		}
	}
}

// Snapshot returns the current counters without exposing the log's
// internal mutex to callers.
func (l *PhaseLog) Snapshot() PhaseLogSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return PhaseLogSnapshot{
		PhasesExecuted: l.PhasesExecuted,
		SlotsOpened:    l.SlotsOpened,
		SlotsClosed:    l.SlotsClosed,
		BytesPushed:    l.BytesPushed,
	}
}
