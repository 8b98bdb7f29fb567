package orchestrator

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"github.com/henrycg/Dissent/group"
	"github.com/henrycg/Dissent/lifecycle"
	"github.com/henrycg/Dissent/params"
	"github.com/henrycg/Dissent/peer"
	"github.com/henrycg/Dissent/phase"
	"github.com/henrycg/Dissent/slotcrypto"
	"github.com/henrycg/Dissent/wire"
	"github.com/henrycg/Dissent/workerpool"
)

// Role selects which of spec §4.5's two flows a Round drives.
type Role int

const (
	RoleServer Role = iota
	RoleClient
)

// Server-flow state labels, spec §4.5's numbered list 1-11.
const (
	StateOffline                    phase.Label = "OFFLINE"
	StateShuffling                  phase.Label = "SHUFFLING"
	StateProcessDataShuffle         phase.Label = "PROCESS_DATA_SHUFFLE"
	StateServerWaitClientPublicKeys phase.Label = "SERVER_WAIT_FOR_CLIENT_PUBLIC_KEYS"
	StateWaitServerPublicKeys       phase.Label = "WAIT_FOR_SERVER_PUBLIC_KEYS"
	StatePrepareForBulk             phase.Label = "PREPARE_FOR_BULK"
	StateServerWaitClientCiphertext phase.Label = "SERVER_WAIT_FOR_CLIENT_CIPHERTEXT"
	StateServerWaitClientLists      phase.Label = "SERVER_WAIT_FOR_CLIENT_LISTS"
	StateServerWaitServerCiphertext phase.Label = "SERVER_WAIT_FOR_SERVER_CIPHERTEXT"
	StateServerWaitServerValidation phase.Label = "SERVER_WAIT_FOR_SERVER_VALIDATION"
	StateServerPushCleartext        phase.Label = "SERVER_PUSH_CLEARTEXT"
	StateClientWaitCleartext        phase.Label = "CLIENT_WAIT_FOR_CLEARTEXT"
	StateFinished                   phase.Label = "FINISHED"
)

// Round is the single mutator of per-round state spec §5 requires:
// every exported method here runs on the orchestrator's own goroutine;
// work offloaded to workerpool.Pool is split into per-slot tasks that
// read Round's fields, touch only their own slot's engine, and return
// a value the caller folds back in.
type Round struct {
	mu sync.Mutex

	Role       Role
	Self       peer.Identity
	SigningKey *peer.SigningKeyPair
	RoundID    uint64
	PhaseNum   uint32

	Params   *params.Parameters
	Dir      GroupDirectory
	Net      Network
	ShuffleF ShuffleFactory
	DataCB   DataCallback
	SinkCB   SinkCallback
	Pool     *workerpool.Pool

	Machine *phase.Machine
	Tracker *lifecycle.Tracker
	Log     *PhaseLog

	// ctx is set at the top of every HandleServerMessage/HandleClientMessage
	// call (and by Bootstrap/CloseClientSubmissionWindow for the two
	// externally-timed transitions) so a phase.Change entry callback
	// triggered by that call has a context to hand the Network
	// collaborator — spec §5 gives the round no other source of one.
	ctx context.Context

	// Populated once the shuffle delivers this phase's permuted slot
	// public keys (step 2 / client equivalent).
	SlotPubKeys []group.Element

	// Server-only fields.
	LocalServerIndex  int
	ServerSecret      group.Scalar    // this server's per-round PoK secret, generated on entering WAIT_FOR_SERVER_PUBLIC_KEYS
	ServerKeys        []group.Element // every server's pk this phase (own key included), in arrival order
	BinServers        []slotcrypto.SlotCrypto
	OwnCover          []slotcrypto.SlotCrypto // this server's own cover contribution, one per slot
	ClientPublicKeys  map[string]*clientKeyRecord
	ClientCiphertexts map[string][][]byte // client id (raw bytes) -> per-slot ciphertext bytes, this phase
	ServerClientIDs   map[string]bool     // union across SERVER_CLIENT_LIST, dedup guard, keyed by hex client id
	ServerListSenders map[string]bool     // servers (hex id) whose SERVER_CLIENT_LIST arrived this phase
	ServerCiphertexts map[int][][]byte    // server index -> per-slot server ciphertext bytes
	CleartextSigs     map[int][]byte      // server index -> signature over the canonical cleartext
	PendingCleartext  []byte              // this phase's canonical cleartext, between RevealAndSign and PushCleartext
	BadMembers        []peer.ID

	// Client-only fields.
	AssignedSlot  int // index this client authors, -1 if this client owns no slot
	SlotSecret    group.Scalar
	AuthorSched   *lifecycle.AuthorSchedule
	ClientEngines []slotcrypto.SlotCrypto // per slot: Author at AssignedSlot, CoverClient elsewhere
	BoundServer   peer.ID
}

type clientKeyRecord struct {
	ID     peer.ID
	PubKey group.Element
	Body   wire.ClientPublicKeyBody // retained verbatim for the step-4 relay
}

// NewServerRound builds a Round driving the server flow.
func NewServerRound(self peer.Identity, sk *peer.SigningKeyPair, p *params.Parameters, dir GroupDirectory,
	net Network, sf ShuffleFactory, sink SinkCallback, pool *workerpool.Pool) *Round {
	r := &Round{
		Role:              RoleServer,
		Self:              self,
		SigningKey:        sk,
		Params:            p,
		Dir:               dir,
		Net:               net,
		ShuffleF:          sf,
		SinkCB:            sink,
		Pool:              pool,
		ctx:               context.Background(),
		ClientPublicKeys:  make(map[string]*clientKeyRecord),
		ClientCiphertexts: make(map[string][][]byte),
		ServerClientIDs:   make(map[string]bool),
		ServerListSenders: make(map[string]bool),
		ServerCiphertexts: make(map[int][][]byte),
		CleartextSigs:     make(map[int][]byte),
		LocalServerIndex:  -1,
		Log:               newPhaseLog(),
	}
	r.Machine = newServerMachine(r.serverChangeList())
	return r
}

// NewClientRound builds a Round driving the client flow.
func NewClientRound(self peer.Identity, sk *peer.SigningKeyPair, p *params.Parameters, dir GroupDirectory,
	net Network, sf ShuffleFactory, data DataCallback, sink SinkCallback, bound peer.ID, pool *workerpool.Pool) *Round {
	r := &Round{
		Role:         RoleClient,
		Self:         self,
		SigningKey:   sk,
		Params:       p,
		Dir:          dir,
		Net:          net,
		ShuffleF:     sf,
		DataCB:       data,
		SinkCB:       sink,
		BoundServer:  bound,
		Pool:         pool,
		ctx:          context.Background(),
		AssignedSlot: -1,
		Log:          newPhaseLog(),
	}
	r.Machine = newClientMachine(r.clientChangeList())
	return r
}

// serverMachine builds the server flow's transition table with no
// entry callbacks wired, exercising only the transition table itself
// (used by tests that never touch Round state).
func serverMachine() *phase.Machine { return newServerMachine(nil) }

// newServerMachine builds the server flow's transition table, spec
// §4.5's numbered list with step 11 cycling back to step 7 — grounded
// on phase/machine.go's generalization of the teacher's
// internal/state/state.go fixed-array transition table. changeList
// registers each state's spec §4.4 entry callback; production Rounds
// pass Round.serverChangeList(), tests may pass nil.
func newServerMachine(changeList map[phase.Label]phase.Change) *phase.Machine {
	m := phase.NewMachine(StateOffline, changeList)
	m.AddTransition(StateOffline, StateShuffling)
	m.AddTransition(StateShuffling, StateProcessDataShuffle)
	m.AddTransition(StateProcessDataShuffle, StateServerWaitClientPublicKeys)
	m.AddTransition(StateServerWaitClientPublicKeys, StateWaitServerPublicKeys)
	m.AddTransition(StateWaitServerPublicKeys, StatePrepareForBulk)
	m.AddTransition(StatePrepareForBulk, StateServerWaitClientCiphertext)
	m.AddTransition(StateServerWaitClientCiphertext, StateServerWaitClientLists)
	m.AddTransition(StateServerWaitClientLists, StateServerWaitServerCiphertext)
	m.AddTransition(StateServerWaitServerCiphertext, StateServerWaitServerValidation)
	m.AddTransition(StateServerWaitServerValidation, StateServerPushCleartext)
	m.AddTransition(StateServerPushCleartext, StateServerWaitClientCiphertext) // cycle to step 7
	for _, from := range []phase.Label{
		StateOffline, StateShuffling, StateProcessDataShuffle, StateServerWaitClientPublicKeys,
		StateWaitServerPublicKeys, StatePrepareForBulk, StateServerWaitClientCiphertext,
		StateServerWaitClientLists, StateServerWaitServerCiphertext, StateServerWaitServerValidation,
		StateServerPushCleartext,
	} {
		m.AddTransition(from, StateFinished)
	}
	return m
}

// clientMachine builds the client flow's transition table with no
// entry callbacks wired (see serverMachine).
func clientMachine() *phase.Machine { return newClientMachine(nil) }

// newClientMachine builds the client flow's transition table, spec
// §4.5's "thereafter cycle on CLIENT_WAIT_FOR_CLEARTEXT".
func newClientMachine(changeList map[phase.Label]phase.Change) *phase.Machine {
	m := phase.NewMachine(StateOffline, changeList)
	m.AddTransition(StateOffline, StateShuffling)
	m.AddTransition(StateShuffling, StateProcessDataShuffle)
	m.AddTransition(StateProcessDataShuffle, StateWaitServerPublicKeys)
	m.AddTransition(StateWaitServerPublicKeys, StatePrepareForBulk)
	m.AddTransition(StatePrepareForBulk, StateClientWaitCleartext)
	m.AddTransition(StateClientWaitCleartext, StateClientWaitCleartext) // cycle
	for _, from := range []phase.Label{
		StateOffline, StateShuffling, StateProcessDataShuffle, StateWaitServerPublicKeys,
		StatePrepareForBulk, StateClientWaitCleartext,
	} {
		m.AddTransition(from, StateFinished)
	}
	return m
}

// Bootstrap drives spec §4.5's steps 1-2 (and the client flow's
// equivalent): run the shuffle, ingest its permuted slot keys, and
// advance into the state that waits for step 3's first inbound
// message. This is the one stretch of the flow with no message or
// timer to trigger it — spec §5's single inbound channel and timer
// suspension points only take over once membership is established.
func (r *Round) Bootstrap(ctx context.Context, ownSlotKeyBytes []byte) error {
	r.ctx = ctx
	if _, err := r.Machine.Update(StateShuffling); err != nil {
		return SelfError(err)
	}
	res, err := r.bootstrapShuffle(ctx, ownSlotKeyBytes)
	if err != nil {
		return SelfError(err)
	}
	if err := r.ProcessShuffleResult(res, ownSlotKeyBytes); err != nil {
		return err
	}
	if _, err := r.Machine.Update(StateProcessDataShuffle); err != nil {
		return SelfError(err)
	}
	next := StateWaitServerPublicKeys
	if r.Role == RoleServer {
		next = StateServerWaitClientPublicKeys
	}
	if _, err := r.Machine.Update(next); err != nil {
		return SelfError(err)
	}
	return nil
}

// CloseClientSubmissionWindow implements spec §5's step-7 timeout:
// proceed to step 8 with whatever client ciphertexts have arrived.
// This is a server-only transition; the client flow has no analogous
// timer.
func (r *Round) CloseClientSubmissionWindow(ctx context.Context) error {
	r.ctx = ctx
	_, err := r.Machine.Update(StateServerWaitClientLists)
	return err
}

// nServers is a small accessor used throughout the flow handlers.
func (r *Round) nServers() int {
	return len(r.Dir.Group().Servers)
}

// Stop transitions the round to FINISHED and logs reason. It does not
// cancel or discard worker-pool tasks: every pool use in the round
// blocks in SpawnAll until its tasks finish. A SelfAssertionFailure is
// logged at jww.FATAL and panics the process exactly as the teacher's
// node/receivers/postPhase.go does for its own unrecoverable
// conditions — every other category is logged and returned for the
// outer session to react to via Round.Err(), never panicking.
func (r *Round) Stop(reason error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.Machine.Update(StateFinished); err != nil {
		return err
	}
	logRoundError(r.RoundID, reason)
	return reason
}

func logRoundError(roundID uint64, reason error) {
	re, ok := reason.(*RoundError)
	if !ok {
		if reason != nil {
			jww.ERROR.Printf("round %d stopped: %v", roundID, reason)
		}
		return
	}
	switch re.Category {
	case PeerProtocolError:
		jww.WARN.Printf("round %d: %v", roundID, re)
	case MemberDisconnect:
		jww.INFO.Printf("round %d: %v", roundID, re)
	case CryptoVerificationFailure, ArithmeticOrDecodeFailure:
		jww.ERROR.Printf("round %d: %v", roundID, re)
	case SelfAssertionFailure:
		jww.FATAL.Panicf("round %d: %v", roundID, re)
	}
}

// nClients is a small accessor used throughout the flow handlers.
func (r *Round) nClients() int {
	return r.Dir.Group().NClients()
}

// ensureTracker returns t unchanged if non-nil, otherwise starts a
// fresh lifecycle.Tracker — PREPARE_FOR_BULK's first entry into the
// cycle has no prior tracker to reuse.
func ensureTracker(t *lifecycle.Tracker, nClients, initialN int) *lifecycle.Tracker {
	if t != nil {
		return t
	}
	return lifecycle.NewTracker(nClients, initialN)
}

// ProcessShuffleResult implements step 2 (and the client flow's
// equivalent): ingest the shuffle's permuted slot public keys and, if
// ownSlotKeyBytes is non-nil, record which index it landed in by
// byte-equality — the only way an author learns its own anonymous slot
// index without anyone else being able to link it.
func (r *Round) ProcessShuffleResult(res *ShuffleResult, ownSlotKeyBytes []byte) error {
	n := r.nClients()
	if len(res.SlotKeys) != n {
		return SelfError(errors.Errorf("shuffle returned %d slot keys, want %d", len(res.SlotKeys), n))
	}
	pubs := make([]group.Element, n)
	assigned := -1
	for i, kb := range res.SlotKeys {
		pk, err := r.Params.KeyGroup.Unmarshal(kb)
		if err != nil {
			return DecodeError(nil, errors.Wrapf(err, "unmarshal shuffled slot key %d", i))
		}
		pubs[i] = pk
		if ownSlotKeyBytes != nil && bytesEqual(kb, ownSlotKeyBytes) {
			assigned = i
		}
	}
	r.SlotPubKeys = pubs
	if ownSlotKeyBytes != nil {
		r.AssignedSlot = assigned
	}
	return nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// bootstrapShuffle runs the external shuffle collaborator for this
// phase's slot keys — the common step 1/equivalent of both flows.
func (r *Round) bootstrapShuffle(ctx context.Context, ownSlotKey []byte) (*ShuffleResult, error) {
	all := r.Dir.Group().SortedClientIDs()
	keys := make([][]byte, 0, len(all))
	for range all {
		// Collected from each client's submitted slot public key out of
		// band; the concrete wiring (how the local collaborator learns
		// every client's slot key before the shuffle runs) is left to
		// the Network/GroupDirectory implementations spec §6 injects.
		keys = append(keys, ownSlotKey)
	}
	sr := r.ShuffleF.NewShuffleRound()
	res, err := sr.Run(ctx, keys)
	if err != nil {
		return nil, errors.Wrap(err, "run shuffle")
	}
	return res, nil
}
