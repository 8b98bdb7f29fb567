package phase

import (
	"testing"
	"time"
)

const (
	labelA Label = "A"
	labelB Label = "B"
	labelC Label = "C"
)

func newTestMachine(t *testing.T, entered *[]Label) *Machine {
	t.Helper()
	changes := map[Label]Change{
		labelB: func(from Label) error { *entered = append(*entered, labelB); return nil },
		labelC: func(from Label) error { *entered = append(*entered, labelC); return nil },
	}
	m := NewMachine(labelA, changes)
	m.AddTransition(labelA, labelB)
	m.AddTransition(labelB, labelC)
	return m
}

func TestMachine_ValidTransitionRunsChange(t *testing.T) {
	var entered []Label
	m := newTestMachine(t, &entered)

	ok, err := m.Update(labelB)
	if err != nil || !ok {
		t.Fatalf("Update: ok=%v err=%v", ok, err)
	}
	if m.Get() != labelB {
		t.Fatalf("expected current label B, got %s", m.Get())
	}
	if len(entered) != 1 || entered[0] != labelB {
		t.Fatalf("expected entry callback for B to run once, got %v", entered)
	}
}

func TestMachine_InvalidTransitionRejected(t *testing.T) {
	var entered []Label
	m := newTestMachine(t, &entered)

	ok, err := m.Update(labelC)
	if ok || err == nil {
		t.Fatal("expected A->C to be rejected (no such transition)")
	}
	if m.Get() != labelA {
		t.Fatalf("current label should be unchanged after a rejected transition, got %s", m.Get())
	}
}

func TestMachine_WaitForReturnsImmediatelyIfAlreadyThere(t *testing.T) {
	var entered []Label
	m := newTestMachine(t, &entered)

	got, err := m.WaitFor(time.Second, labelA)
	if err != nil || got != labelA {
		t.Fatalf("WaitFor: got=%s err=%v", got, err)
	}
}

func TestMachine_WaitForUnreachableLabelErrors(t *testing.T) {
	var entered []Label
	m := newTestMachine(t, &entered)

	_, err := m.WaitFor(50*time.Millisecond, labelC)
	if err == nil {
		t.Fatal("expected an error waiting for an unreachable label")
	}
}

func TestMachine_InterruptedFlag(t *testing.T) {
	var entered []Label
	m := newTestMachine(t, &entered)

	if m.Interrupted() {
		t.Fatal("should not start interrupted")
	}
	m.Interrupt()
	if !m.Interrupted() {
		t.Fatal("expected Interrupted() to report true after Interrupt()")
	}
	m.ResetForCycle()
	if m.Interrupted() {
		t.Fatal("ResetForCycle should clear the interrupted flag")
	}
}

func TestResponse_CheckState(t *testing.T) {
	r := Response{ExpectedStates: []Label{labelA, labelB}, PhaseToExecute: labelC}
	if !r.CheckState(labelA) || !r.CheckState(labelB) {
		t.Fatal("expected states should check true")
	}
	if r.CheckState(labelC) {
		t.Fatal("unexpected state should check false")
	}
}
