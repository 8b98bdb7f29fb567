// Package lifecycle implements spec §4.6's slot open/close bookkeeping
// and the per-author send-buffering schedule. It has no teacher
// analogue — the teacher's cMix batch slots are static for the whole
// run, while BlogDrop's slots open and close every phase — so this
// package is grounded directly on spec §4.6's three numbered rules.
package lifecycle

import "github.com/pkg/errors"

// Tracker owns the shared view of which of n_clients slots are open,
// each slot's current N, and the always-open rotation index. Every
// server and client holds its own Tracker and calls Advance with the
// same per-slot length prefixes each phase, so their views never
// diverge (spec §8: "Always-open rotation" / "Slot length
// advertisement" invariants).
type Tracker struct {
	NClients   int
	Open       []bool
	N          []int
	AlwaysOpen int
}

// NewTracker starts every slot open at the given initial N, with slot 0
// as the always-open slot.
func NewTracker(nClients, initialN int) *Tracker {
	open := make([]bool, nClients)
	n := make([]int, nClients)
	for i := range open {
		open[i] = true
		n[i] = initialN
	}
	return &Tracker{NClients: nClients, Open: open, N: n, AlwaysOpen: 0}
}

// Advance applies spec §4.6's three phase-boundary rules given the
// per-slot next-phase-N prefixes decoded from this phase's cleartext.
// lengths[i] == 0 means slot i's author advertised a close.
func (t *Tracker) Advance(lengths []uint32) error {
	if len(lengths) != t.NClients {
		return errors.Errorf("lifecycle: expected %d slot lengths, got %d", t.NClients, len(lengths))
	}

	// Rule 1: advance always_open mod n_clients until it lands on a
	// slot currently marked closed; if it wraps without finding one
	// (all slots open), it stays in place.
	start := t.AlwaysOpen
	for i := 1; i <= t.NClients; i++ {
		cand := (start + i) % t.NClients
		if !t.Open[cand] {
			t.AlwaysOpen = cand
			break
		}
	}

	// Rule 2: every slot other than always_open takes its open/N state
	// from this phase's decoded length prefix.
	for i, l := range lengths {
		if i == t.AlwaysOpen {
			continue
		}
		if l > 0 {
			t.Open[i] = true
			t.N[i] = int(l)
		} else {
			t.Open[i] = false
		}
	}

	// The always-open slot is forced open regardless of its own prefix
	// (glossary: "the single slot the rotation guarantees is open").
	t.Open[t.AlwaysOpen] = true
	if lengths[t.AlwaysOpen] > 0 {
		t.N[t.AlwaysOpen] = int(lengths[t.AlwaysOpen])
	}

	return nil
}

// IsClosed reports whether slot i is currently closed — rule 3: a
// closed slot contributes an empty ciphertext placeholder from every
// client and server, and Bin Server skips adding ciphertexts for it.
func (t *Tracker) IsClosed(i int) bool { return !t.Open[i] }

// DefaultCloseThreshold is spec §4.6's default grace window: an author
// may miss this many consecutive phases of get_data before its slot is
// advertised closed.
const DefaultCloseThreshold = 5

// AuthorSchedule implements spec §4.6's per-author buffering and
// N-selection logic, one instance per slot an author actually owns.
// The author always carries one phase of latency: at phase p it
// transmits the message it received at phase p-1, while advertising
// the N it wants for phase p+1.
type AuthorSchedule struct {
	bytesPerElement int
	maxElements     int
	closeThreshold  int

	noDataStreak int
	lastN        uint32
	pending      []byte
}

// NewAuthorSchedule starts a schedule for a slot with the given
// message-group element size and max_elms bound (spec §4.6: 65536).
// closeThreshold <= 0 selects DefaultCloseThreshold.
func NewAuthorSchedule(bytesPerElement, maxElements, closeThreshold int) *AuthorSchedule {
	if closeThreshold <= 0 {
		closeThreshold = DefaultCloseThreshold
	}
	return &AuthorSchedule{
		bytesPerElement: bytesPerElement,
		maxElements:     maxElements,
		closeThreshold:  closeThreshold,
		lastN:           1,
	}
}

// Tick consumes whatever get_data(max_len) yielded this phase and
// returns the payload to transmit THIS phase (buffered from the
// previous Tick call) plus the N to advertise for the NEXT phase.
func (a *AuthorSchedule) Tick(newData []byte) (transmit []byte, nextN uint32) {
	transmit = a.pending
	a.pending = newData

	if len(newData) > 0 {
		a.noDataStreak = 0
		n := minNForLength(len(newData), a.bytesPerElement)
		if n > a.maxElements {
			n = a.maxElements
		}
		a.lastN = uint32(n)
		return transmit, a.lastN
	}

	a.noDataStreak++
	if a.noDataStreak > a.closeThreshold {
		return transmit, 0
	}
	return transmit, a.lastN
}

// minNForLength is the minimum N such that payloadLen+4 <= N*bytesPerElement,
// spec §4.6's "minimum N such that next_message_len + 4 <= max_plaintext_len(N)".
func minNForLength(payloadLen, bytesPerElement int) int {
	total := payloadLen + 4
	n := total / bytesPerElement
	if total%bytesPerElement != 0 {
		n++
	}
	if n < 1 {
		n = 1
	}
	return n
}
