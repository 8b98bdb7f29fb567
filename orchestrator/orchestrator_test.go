package orchestrator

import (
	"bytes"
	"testing"

	"github.com/henrycg/Dissent/group"
	"github.com/henrycg/Dissent/keys"
	"github.com/henrycg/Dissent/lifecycle"
	"github.com/henrycg/Dissent/params"
	"github.com/henrycg/Dissent/phase"
	"github.com/henrycg/Dissent/slotcrypto"
	"github.com/henrycg/Dissent/slotcrypto/elgamal"
)

func TestCiphertextCodec_RoundTrip(t *testing.T) {
	g := group.NewCurveGroup()
	serverKP, err := keys.Generate(g)
	if err != nil {
		t.Fatal(err)
	}
	slotKP, err := keys.Generate(g)
	if err != nil {
		t.Fatal(err)
	}
	p := &params.Parameters{KeyGroup: g, MessageGroup: g, N: 2}
	cfg := slotcrypto.Config{Params: p, ServerKeys: []group.Element{serverKP.Public}, SlotPub: slotKP.Public, Context: []byte("ctx")}

	cover := elgamal.NewCoverClient(cfg)
	ct, err := cover.GenCover()
	if err != nil {
		t.Fatal(err)
	}

	bs, err := marshalCiphertext(ct)
	if err != nil {
		t.Fatal(err)
	}
	out, err := unmarshalCiphertext(g, bs)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Elements) != len(ct.Elements) {
		t.Fatalf("element count mismatch: got %d want %d", len(out.Elements), len(ct.Elements))
	}
	if !out.OneTimePub.Equal(ct.OneTimePub) {
		t.Fatal("one-time public key mismatch after round trip")
	}
}

func TestServerCiphertextCodec_RoundTrip(t *testing.T) {
	g := group.NewCurveGroup()
	serverKP, err := keys.Generate(g)
	if err != nil {
		t.Fatal(err)
	}
	slotKP, err := keys.Generate(g)
	if err != nil {
		t.Fatal(err)
	}
	p := &params.Parameters{KeyGroup: g, MessageGroup: g, N: 3}
	cfg := slotcrypto.Config{Params: p, ServerKeys: []group.Element{serverKP.Public}, SlotPub: slotKP.Public, Context: []byte("ctx")}

	bin := elgamal.NewBinServer(cfg, serverKP.Secret)
	sct, err := bin.GenServerCt()
	if err != nil {
		t.Fatal(err)
	}
	bs, err := marshalServerCiphertext(sct)
	if err != nil {
		t.Fatal(err)
	}
	out, err := unmarshalServerCiphertext(g, bs)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Elements) != len(sct.Elements) {
		t.Fatalf("element count mismatch: got %d want %d", len(out.Elements), len(sct.Elements))
	}
}

func TestRawSlotBytes_DecodeRoundTrip(t *testing.T) {
	raw := rawSlotBytes(42, []byte("payload"))
	nextN, payload, err := decodeRawSlot(raw)
	if err != nil {
		t.Fatal(err)
	}
	if nextN != 42 || string(payload) != "payload" {
		t.Fatalf("got (%d, %q), want (42, \"payload\")", nextN, payload)
	}
}

func TestSplitCleartext_SkipsClosedSlots(t *testing.T) {
	bpe := 8
	chunkA := rawSlotBytes(1, bytes.Repeat([]byte{0xAA}, bpe-4))
	chunkC := rawSlotBytes(1, bytes.Repeat([]byte{0xCC}, bpe-4))
	cleartext := append(append([]byte{}, chunkA...), chunkC...)

	open := []bool{true, false, true}
	n := []int{1, 1, 1}
	chunks, err := SplitCleartext(cleartext, open, n, bpe)
	if err != nil {
		t.Fatal(err)
	}
	if chunks[1] != nil {
		t.Fatal("closed slot should contribute no chunk")
	}
	if !bytes.Equal(chunks[0], chunkA) || !bytes.Equal(chunks[2], chunkC) {
		t.Fatal("open slot chunks did not round trip")
	}
}

func TestSplitCleartext_LengthMismatchErrors(t *testing.T) {
	_, err := SplitCleartext([]byte{1, 2, 3}, []bool{true}, []int{2}, 8)
	if err == nil {
		t.Fatal("expected an error for a short cleartext")
	}
}

func TestRoundError_Categories(t *testing.T) {
	pe := ProtocolError([]byte("p1"), "bad state")
	if pe.Fatal() || pe.Interrupted() {
		t.Fatal("peer protocol errors are neither fatal nor interrupting")
	}
	ce := CryptoError([]byte("p1"), errBoom)
	if !ce.Fatal() || ce.Interrupted() {
		t.Fatal("crypto errors are fatal but do not set interrupted")
	}
	de := DisconnectError([]byte("p1"))
	if !de.Fatal() || !de.Interrupted() {
		t.Fatal("disconnect errors are fatal and set interrupted")
	}
	se := SelfError(errBoom)
	if !se.Fatal() || len(se.PeerID) != 0 {
		t.Fatal("self-assertion errors are fatal and never peer-attributed")
	}
}

var errBoom = &testError{}

type testError struct{}

func (*testError) Error() string { return "boom" }

func TestServerMachine_CyclesBackToClientCiphertext(t *testing.T) {
	m := serverMachine()
	path := []phase.Label{
		StateShuffling, StateProcessDataShuffle, StateServerWaitClientPublicKeys,
		StateWaitServerPublicKeys, StatePrepareForBulk, StateServerWaitClientCiphertext,
		StateServerWaitClientLists, StateServerWaitServerCiphertext, StateServerWaitServerValidation,
		StateServerPushCleartext, StateServerWaitClientCiphertext,
	}
	for _, next := range path {
		if ok, err := m.Update(next); !ok {
			t.Fatalf("transition to %s failed: %v", next, err)
		}
	}
	if m.Get() != StateServerWaitClientCiphertext {
		t.Fatalf("expected to cycle back to %s, got %s", StateServerWaitClientCiphertext, m.Get())
	}
}

func TestServerMachine_RejectsInvalidTransition(t *testing.T) {
	m := serverMachine()
	if ok, err := m.Update(StateServerPushCleartext); ok || err == nil {
		t.Fatal("expected OFFLINE -> SERVER_PUSH_CLEARTEXT to be rejected")
	}
}

func TestClientMachine_CyclesOnWaitCleartext(t *testing.T) {
	m := clientMachine()
	path := []phase.Label{
		StateShuffling, StateProcessDataShuffle, StateWaitServerPublicKeys,
		StatePrepareForBulk, StateClientWaitCleartext, StateClientWaitCleartext,
	}
	for _, next := range path {
		if ok, err := m.Update(next); !ok {
			t.Fatalf("transition to %s failed: %v", next, err)
		}
	}
}

func TestLogRoundError_NonFatalCategoriesDoNotPanic(t *testing.T) {
	defer func() {
		if rec := recover(); rec != nil {
			t.Fatalf("non-fatal category panicked: %v", rec)
		}
	}()
	logRoundError(1, ProtocolError([]byte("p1"), "bad state"))
	logRoundError(1, CryptoError([]byte("p1"), errBoom))
	logRoundError(1, DisconnectError([]byte("p1")))
	logRoundError(1, nil)
}

func TestPhaseLog_RecordsTransitionsAndBytes(t *testing.T) {
	log := newPhaseLog()
	log.recordPhase()
	log.recordBytes(10)
	log.recordBytes(5)
	log.recordTransitions([]bool{true, false, true}, []bool{true, true, false})

	snap := log.Snapshot()
	if snap.PhasesExecuted != 1 {
		t.Fatalf("got %d phases, want 1", snap.PhasesExecuted)
	}
	if snap.BytesPushed != 15 {
		t.Fatalf("got %d bytes, want 15", snap.BytesPushed)
	}
	if snap.SlotsOpened != 1 || snap.SlotsClosed != 1 {
		t.Fatalf("got opened=%d closed=%d, want 1/1", snap.SlotsOpened, snap.SlotsClosed)
	}
}

func TestLifecycleTrackerWiresIntoOrchestrator(t *testing.T) {
	tr := lifecycle.NewTracker(3, 4)
	// the first boundary closes slot 1; the second rotates onto it
	if err := tr.Advance([]uint32{4, 0, 4}); err != nil {
		t.Fatal(err)
	}
	if err := tr.Advance([]uint32{4, 0, 4}); err != nil {
		t.Fatal(err)
	}
	if tr.AlwaysOpen != 1 {
		t.Fatalf("expected always_open to move to closed slot 1, got %d", tr.AlwaysOpen)
	}
}
