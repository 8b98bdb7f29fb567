package orchestrator

import (
	"context"

	"github.com/pkg/errors"

	"github.com/henrycg/Dissent/keys"
	"github.com/henrycg/Dissent/lifecycle"
	"github.com/henrycg/Dissent/peer"
	"github.com/henrycg/Dissent/phase"
	"github.com/henrycg/Dissent/slotcrypto"
	"github.com/henrycg/Dissent/slotcrypto/elgamal"
	"github.com/henrycg/Dissent/wire"
	"github.com/henrycg/Dissent/workerpool"
)

// ClientResponses builds the client flow's dispatch table. As in
// ServerResponses, PhaseToExecute names the state a handler drives the
// machine into once its own completion condition holds.
func (r *Round) ClientResponses() phase.ResponseMap {
	return phase.ResponseMap{
		phase.MessageType(wire.TypeServerPublicKey): {
			ExpectedStates: []phase.Label{StateWaitServerPublicKeys},
			PhaseToExecute: StatePrepareForBulk,
		},
		phase.MessageType(wire.TypeServerCleartext): {
			ExpectedStates: []phase.Label{StateClientWaitCleartext},
			PhaseToExecute: StateClientWaitCleartext,
		},
	}
}

// HandleClientMessage is the client flow's single inbound entry point.
func (r *Round) HandleClientMessage(ctx context.Context, from peer.ID, env *wire.Envelope) error {
	r.ctx = ctx
	resp, ok := r.ClientResponses()[phase.MessageType(env.Type)]
	if !ok {
		return ProtocolError(from, "unrecognized message type %s", env.Type)
	}
	if !resp.CheckState(r.Machine.Get()) {
		return ProtocolError(from, "message %s not expected in state %s", env.Type, r.Machine.Get())
	}

	switch env.Type {
	case wire.TypeServerPublicKey:
		return r.onClientReceivesServerPublicKey(from, env)
	case wire.TypeServerCleartext:
		return r.onClientReceivesCleartext(from, env)
	default:
		return ProtocolError(from, "client flow has no handler for %s", env.Type)
	}
}

// onClientReceivesServerPublicKey collects one server's public key,
// verifying its proof of knowledge exactly as the server flow does.
// Once every server's key has arrived, drive into PREPARE_FOR_BULK
// and, immediately after, into CLIENT_WAIT_FOR_CLEARTEXT — the state
// whose entry callback submits this client's first ciphertext.
func (r *Round) onClientReceivesServerPublicKey(from peer.ID, env *wire.Envelope) error {
	if _, ok := r.Dir.Group().ServerByID(from); !ok {
		return ProtocolError(from, "public key submitted by non-server")
	}
	var body wire.ServerPublicKeyBody
	if err := wire.Unmarshal(env.Body, &body); err != nil {
		return DecodeError(from, err)
	}
	pk, err := r.Params.KeyGroup.Unmarshal(body.PublicKey)
	if err != nil {
		return DecodeError(from, err)
	}
	proof, err := unmarshalSchnorr(r.Params.KeyGroup, body.Proof)
	if err != nil {
		return DecodeError(from, err)
	}
	ok, err := keys.VerifyKnowledge(r.Params.KeyGroup, r.roundContext(from), pk, proof)
	if err != nil {
		return DecodeError(from, err)
	}
	if !ok {
		return CryptoError(from, errors.New("invalid server proof of knowledge"))
	}
	r.ServerKeys = append(r.ServerKeys, pk)

	if len(r.ServerKeys) == r.nServers() {
		if _, err := r.Machine.Update(StatePrepareForBulk); err != nil {
			return SelfError(err)
		}
		if _, err := r.Machine.Update(StateClientWaitCleartext); err != nil {
			return SelfError(err)
		}
	}
	return nil
}

// PrepareForBulkClient builds this client's per-slot engines: an
// Author at AssignedSlot (if this client owns a slot this round) and a
// CoverClient everywhere else, spec §4.5's client-flow equivalent of
// the server's step 6.
func (r *Round) PrepareForBulkClient() error {
	n := r.nClients()
	if len(r.SlotPubKeys) != n {
		return SelfError(errors.Errorf("have %d slot public keys, want %d", len(r.SlotPubKeys), n))
	}
	r.Tracker = ensureTracker(r.Tracker, n, r.Params.N)
	r.ClientEngines = make([]slotcrypto.SlotCrypto, n)
	for i := 0; i < n; i++ {
		cfg := slotcrypto.Config{
			Params:     r.Params,
			ServerKeys: r.ServerKeys,
			SlotPub:    r.SlotPubKeys[i],
			Context:    r.slotContext(i),
		}
		if i == r.AssignedSlot {
			r.ClientEngines[i] = elgamal.NewAuthor(cfg, r.SlotSecret)
		} else {
			r.ClientEngines[i] = elgamal.NewCoverClient(cfg)
		}
	}
	if r.AuthorSched == nil {
		r.AuthorSched = lifecycle.NewAuthorSchedule(r.Params.MessageGroup.BytesPerElement(), r.Params.MaxElements, lifecycle.DefaultCloseThreshold)
	}
	return nil
}

// SubmitCiphertext builds and sends this phase's per-slot ciphertext
// list to the bound server, spec §4.5's client-flow "on each entry,
// submit own ciphertext for the upcoming phase." Per-slot GenAuthor/
// GenCover calls are independent modexp-heavy work, spec §5's worker
// pool offload; AuthorSched.Tick (which must run exactly once) runs on
// the calling goroutine before the pool tasks are spawned.
func (r *Round) SubmitCiphertext(ctx context.Context) error {
	n := r.nClients()

	var newData []byte
	if r.AssignedSlot >= 0 && r.DataCB != nil && r.Tracker.Open[r.AssignedSlot] {
		capacity := keys.MaxPlaintextLen(r.Tracker.N[r.AssignedSlot], r.Params.MessageGroup.BytesPerElement())
		data, _ := r.DataCB(capacity)
		newData = data
	}

	var transmit []byte
	var nextN uint32
	if r.AssignedSlot >= 0 && !r.Tracker.IsClosed(r.AssignedSlot) {
		transmit, nextN = r.AuthorSched.Tick(newData)
	}

	openSlots := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if !r.Tracker.IsClosed(i) {
			openSlots = append(openSlots, i)
		}
	}
	tasks := make([]workerpool.Task, len(openSlots))
	for idx, slot := range openSlots {
		slot := slot
		tasks[idx] = func() (interface{}, error) {
			var ct *slotcrypto.Ciphertext
			var err error
			if slot == r.AssignedSlot {
				elems, encErr := keys.EncodePlaintext(r.Params.MessageGroup, r.Tracker.N[slot], nextN, transmit)
				if encErr != nil {
					return nil, encErr
				}
				ct, err = r.ClientEngines[slot].GenAuthor(elems)
			} else {
				ct, err = r.ClientEngines[slot].GenCover()
			}
			if err != nil {
				return nil, err
			}
			return marshalCiphertext(ct)
		}
	}
	results, errs := r.Pool.SpawnAll(tasks)

	slots := make([][]byte, n)
	for idx, slot := range openSlots {
		if errs[idx] != nil {
			return SelfError(errs[idx])
		}
		slots[slot] = results[idx].([]byte)
	}

	body := wire.ClientCiphertextBody{SlotCiphertexts: slots}
	bs, err := wire.Marshal(&body)
	if err != nil {
		return SelfError(err)
	}
	env := &wire.Envelope{Type: wire.TypeClientCiphertext, RoundID: r.RoundID, Phase: r.PhaseNum, Body: bs}
	wire.Seal(env, r.SigningKey)
	return r.Net.Send(ctx, r.BoundServer, env)
}

// onClientReceivesCleartext verifies every server's signature, then
// runs the identical slot-length update logic the server flow runs
// (spec §4.5's client-flow "run the same slot-length update logic as
// servers, and push payloads to the external sink"). It then cycles
// the machine back into CLIENT_WAIT_FOR_CLEARTEXT, whose entry
// callback submits this client's ciphertext for the next phase.
func (r *Round) onClientReceivesCleartext(from peer.ID, env *wire.Envelope) error {
	var body wire.ServerCleartextBody
	if err := wire.Unmarshal(env.Body, &body); err != nil {
		return DecodeError(from, err)
	}
	servers := r.Dir.Group().Servers
	if len(body.Signatures) != len(servers) {
		return CryptoError(from, errors.Errorf("expected %d server signatures, got %d", len(servers), len(body.Signatures)))
	}
	seen := make(map[uint32]bool, len(servers))
	for _, sig := range body.Signatures {
		if int(sig.ServerIndex) >= len(servers) || seen[sig.ServerIndex] {
			return CryptoError(from, errors.New("invalid or duplicate server index in cleartext signatures"))
		}
		seen[sig.ServerIndex] = true
		if !servers[sig.ServerIndex].Verify(body.Cleartext, sig.Signature) {
			return CryptoError(servers[sig.ServerIndex].ID, errors.Errorf("invalid cleartext signature from server %d", sig.ServerIndex))
		}
	}

	bpe := r.Params.MessageGroup.BytesPerElement()
	chunks, err := SplitCleartext(body.Cleartext, r.Tracker.Open, r.Tracker.N, bpe)
	if err != nil {
		return SelfError(err)
	}

	openBefore := append([]bool(nil), r.Tracker.Open...)

	lengths := make([]uint32, len(chunks))
	for i, chunk := range chunks {
		if chunk == nil {
			continue
		}
		nextN, payload, err := decodeRawSlot(chunk)
		if err != nil {
			return SelfError(err)
		}
		lengths[i] = nextN
		if r.SinkCB != nil {
			r.SinkCB(i, payload)
		}
		if r.Log != nil {
			r.Log.recordBytes(len(payload))
		}
	}
	if err := r.Tracker.Advance(lengths); err != nil {
		return SelfError(err)
	}
	if r.Log != nil {
		r.Log.recordPhase()
		r.Log.recordTransitions(openBefore, r.Tracker.Open)
	}
	for i, n := range r.Tracker.N {
		r.ClientEngines[i].SetNElements(n)
	}
	r.PhaseNum = env.Phase

	if _, err := r.Machine.Update(StateClientWaitCleartext); err != nil {
		return SelfError(err)
	}
	return nil
}
