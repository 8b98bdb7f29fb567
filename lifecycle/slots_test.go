package lifecycle

import "testing"

func TestTracker_AdvanceRotatesToClosedSlot(t *testing.T) {
	tr := NewTracker(4, 8)
	// close slot 2 via its length prefix; always_open starts at 0 and
	// stays there, since every slot was open going into this phase
	lengths := []uint32{8, 8, 0, 8}
	if err := tr.Advance(lengths); err != nil {
		t.Fatal(err)
	}
	// the next phase boundary finds slot 2 closed and rotates onto it
	if err := tr.Advance(lengths); err != nil {
		t.Fatal(err)
	}
	if tr.AlwaysOpen != 2 {
		t.Fatalf("expected always_open to land on closed slot 2, got %d", tr.AlwaysOpen)
	}
	if !tr.Open[2] {
		t.Fatal("always-open slot must be forced open")
	}
	if tr.Open[1] != true || tr.Open[3] != true {
		t.Fatalf("unexpected open state: %+v", tr.Open)
	}
}

func TestTracker_AdvanceStaysPutWhenAllOpen(t *testing.T) {
	tr := NewTracker(3, 8)
	lengths := []uint32{8, 8, 8}
	if err := tr.Advance(lengths); err != nil {
		t.Fatal(err)
	}
	if tr.AlwaysOpen != 0 {
		t.Fatalf("expected always_open to stay at 0, got %d", tr.AlwaysOpen)
	}
	for i, open := range tr.Open {
		if !open {
			t.Fatalf("slot %d unexpectedly closed", i)
		}
	}
}

func TestTracker_AdvanceWrongLengthCount(t *testing.T) {
	tr := NewTracker(3, 8)
	if err := tr.Advance([]uint32{1, 2}); err == nil {
		t.Fatal("expected error for mismatched length count")
	}
}

func TestAuthorSchedule_BuffersOnePhase(t *testing.T) {
	sched := NewAuthorSchedule(16, 65536, 5)

	transmit, nextN := sched.Tick([]byte("hello"))
	if len(transmit) != 0 {
		t.Fatalf("expected nothing buffered yet, got %q", transmit)
	}
	if nextN == 0 {
		t.Fatal("expected a nonzero N for pending data")
	}

	transmit2, _ := sched.Tick(nil)
	if string(transmit2) != "hello" {
		t.Fatalf("expected buffered message from previous tick, got %q", transmit2)
	}
}

func TestAuthorSchedule_ClosesAfterThreshold(t *testing.T) {
	sched := NewAuthorSchedule(16, 65536, 2)
	sched.Tick([]byte("x"))

	_, n1 := sched.Tick(nil)
	if n1 == 0 {
		t.Fatal("should not close before exceeding the threshold")
	}
	_, n2 := sched.Tick(nil)
	if n2 == 0 {
		t.Fatal("should still be within the grace window")
	}
	_, n3 := sched.Tick(nil)
	if n3 != 0 {
		t.Fatal("expected a close advertisement once the streak exceeds the threshold")
	}
}

func TestMinNForLength_RespectsCapacity(t *testing.T) {
	if n := minNForLength(12, 16); n != 1 {
		t.Fatalf("12+4=16 fits exactly in one 16-byte element, got n=%d", n)
	}
	if n := minNForLength(13, 16); n != 2 {
		t.Fatalf("13+4=17 needs a second element, got n=%d", n)
	}
}
