package orchestrator

import (
	"context"

	"github.com/pkg/errors"

	"github.com/henrycg/Dissent/group"
	"github.com/henrycg/Dissent/keys"
	"github.com/henrycg/Dissent/peer"
	"github.com/henrycg/Dissent/phase"
	"github.com/henrycg/Dissent/slotcrypto"
	"github.com/henrycg/Dissent/slotcrypto/elgamal"
	"github.com/henrycg/Dissent/wire"
	"github.com/henrycg/Dissent/workerpool"
)

// ServerResponses builds the dispatch table spec §6's wire messages map
// onto server-flow states, grounded on the teacher's
// internal/phase/response.go ResponseDefinition table. PhaseToExecute
// names the state a handler drives the machine into once its own
// completion condition is met — not necessarily the state the message
// arrived in, since several of these steps collect more than one
// message before the round can advance.
func (r *Round) ServerResponses() phase.ResponseMap {
	return phase.ResponseMap{
		phase.MessageType(wire.TypeClientPublicKey): {
			ExpectedStates: []phase.Label{StateServerWaitClientPublicKeys},
			PhaseToExecute: StateWaitServerPublicKeys,
		},
		phase.MessageType(wire.TypeServerPublicKey): {
			ExpectedStates: []phase.Label{StateWaitServerPublicKeys},
			PhaseToExecute: StatePrepareForBulk,
		},
		phase.MessageType(wire.TypeClientCiphertext): {
			ExpectedStates: []phase.Label{StateServerWaitClientCiphertext},
			PhaseToExecute: StateServerWaitClientCiphertext,
		},
		phase.MessageType(wire.TypeServerClientList): {
			ExpectedStates: []phase.Label{StateServerWaitClientLists},
			PhaseToExecute: StateServerWaitServerCiphertext,
		},
		phase.MessageType(wire.TypeServerCiphertext): {
			ExpectedStates: []phase.Label{StateServerWaitServerCiphertext},
			PhaseToExecute: StateServerWaitServerValidation,
		},
		phase.MessageType(wire.TypeServerValidation): {
			ExpectedStates: []phase.Label{StateServerWaitServerValidation},
			PhaseToExecute: StateServerPushCleartext,
		},
	}
}

// HandleServerMessage is the single entry point spec §5's "single
// inbound channel" model calls with every already-reassembled, already
// signature-verified message. Every handler below applies the message
// to Round state and, once its own step's completion condition holds,
// drives r.Machine.Update into resp.PhaseToExecute — the mechanism
// that actually runs the phase.Change callbacks registered in
// serverChangeList and so triggers the next step's broadcasts.
func (r *Round) HandleServerMessage(ctx context.Context, from peer.ID, env *wire.Envelope) error {
	r.ctx = ctx
	resp, ok := r.ServerResponses()[phase.MessageType(env.Type)]
	if !ok {
		return ProtocolError(from, "unrecognized message type %s", env.Type)
	}
	if !resp.CheckState(r.Machine.Get()) {
		return ProtocolError(from, "message %s not expected in state %s", env.Type, r.Machine.Get())
	}

	switch env.Type {
	case wire.TypeClientPublicKey:
		return r.onClientPublicKey(from, env)
	case wire.TypeServerPublicKey:
		return r.onServerPublicKey(from, env)
	case wire.TypeClientCiphertext:
		return r.onClientCiphertext(from, env)
	case wire.TypeServerClientList:
		return r.onServerClientList(from, env)
	case wire.TypeServerCiphertext:
		return r.onServerCiphertext(from, env)
	case wire.TypeServerValidation:
		return r.onServerValidation(from, env)
	default:
		return ProtocolError(from, "server flow has no handler for %s", env.Type)
	}
}

// onClientPublicKey implements step 3: accept one signed
// (round_id, π(sk), pk) per allowed client. Once every client has
// submitted, this drives the machine into WAIT_FOR_SERVER_PUBLIC_KEYS,
// whose entry callback generates this server's own key and relays the
// collected client packets (step 4).
func (r *Round) onClientPublicKey(from peer.ID, env *wire.Envelope) error {
	var body wire.ClientPublicKeyBody
	if err := wire.Unmarshal(env.Body, &body); err != nil {
		return DecodeError(from, err)
	}
	ident, ok := r.Dir.Group().ClientByID(from)
	if !ok {
		return ProtocolError(from, "public key submitted by non-client %s", from)
	}
	if _, exists := r.ClientPublicKeys[from.String()]; exists {
		return ProtocolError(from, "duplicate client public key submission")
	}

	pk, err := r.Params.KeyGroup.Unmarshal(body.Packet.KeyBody)
	if err != nil {
		return DecodeError(from, errors.Wrap(err, "unmarshal client public key"))
	}
	proof, err := unmarshalSchnorr(r.Params.KeyGroup, body.Packet.Proof)
	if err != nil {
		return DecodeError(from, err)
	}
	ok, err = keys.VerifyKnowledge(r.Params.KeyGroup, r.roundContext(from), pk, proof)
	if err != nil {
		return DecodeError(from, err)
	}
	if !ok {
		return CryptoError(from, errors.New("invalid proof of knowledge of slot secret"))
	}
	if !ident.Verify(signedPacketBytes(body.Packet), body.LongTermSignature) {
		return CryptoError(from, errors.New("invalid long-term signature on client public key"))
	}

	r.ClientPublicKeys[from.String()] = &clientKeyRecord{ID: from, PubKey: pk, Body: body}

	if len(r.ClientPublicKeys) == r.nClients() {
		if _, err := r.Machine.Update(StateWaitServerPublicKeys); err != nil {
			return SelfError(err)
		}
	}
	return nil
}

// onServerPublicKey implements step 4: verify every other server's own
// key plus its collected client-packet map. Once every server
// (including this one, counted on entry into WAIT_FOR_SERVER_PUBLIC_KEYS)
// is accounted for, drive into PREPARE_FOR_BULK and, immediately after,
// into SERVER_WAIT_FOR_CLIENT_CIPHERTEXT — PREPARE_FOR_BULK has no
// message of its own to wait on, so the cascade happens here rather
// than from within PREPARE_FOR_BULK's own entry callback.
func (r *Round) onServerPublicKey(from peer.ID, env *wire.Envelope) error {
	var body wire.ServerPublicKeyBody
	if err := wire.Unmarshal(env.Body, &body); err != nil {
		return DecodeError(from, err)
	}
	ident, ok := r.Dir.Group().ServerByID(from)
	if !ok {
		return ProtocolError(from, "public key submitted by non-server %s", from)
	}

	pk, err := r.Params.KeyGroup.Unmarshal(body.PublicKey)
	if err != nil {
		return DecodeError(from, err)
	}
	proof, err := unmarshalSchnorr(r.Params.KeyGroup, body.Proof)
	if err != nil {
		return DecodeError(from, err)
	}
	valid, err := keys.VerifyKnowledge(r.Params.KeyGroup, r.roundContext(from), pk, proof)
	if err != nil {
		return DecodeError(from, err)
	}
	if !valid {
		return CryptoError(from, errors.New("invalid server proof of knowledge"))
	}

	seen := make(map[string]bool, len(body.Clients))
	for _, entry := range body.Clients {
		key := entry.ClientID.String()
		if seen[key] {
			return CryptoError(from, errors.Errorf("duplicate client entry %s in server public key map", key))
		}
		seen[key] = true

		clientIdent, ok := r.Dir.Group().ClientByID(entry.ClientID)
		if !ok {
			return CryptoError(from, errors.Errorf("unknown client id %s in server public key map", key))
		}
		if !clientIdent.Verify(signedPacketBytes(entry.Packet.Packet), entry.Packet.LongTermSignature) {
			return CryptoError(from, errors.Errorf("invalid client signature relayed by server for %s", key))
		}
	}

	r.ServerKeys = append(r.ServerKeys, pk)
	_ = ident

	if len(r.ServerKeys) == r.nServers() {
		if _, err := r.Machine.Update(StatePrepareForBulk); err != nil {
			return SelfError(err)
		}
		if _, err := r.Machine.Update(StateServerWaitClientCiphertext); err != nil {
			return SelfError(err)
		}
	}
	return nil
}

// PrepareForBulk implements step 6: one Bin Server and one own-cover
// Client per slot.
func (r *Round) PrepareForBulk(serverSecret group.Scalar) error {
	n := r.nClients()
	if len(r.SlotPubKeys) != n {
		return SelfError(errors.Errorf("have %d slot public keys, want %d", len(r.SlotPubKeys), n))
	}
	r.Tracker = ensureTracker(r.Tracker, n, r.Params.N)
	r.BinServers = make([]slotcrypto.SlotCrypto, n)
	r.OwnCover = make([]slotcrypto.SlotCrypto, n)

	for i := 0; i < n; i++ {
		cfg := slotcrypto.Config{
			Params:     r.Params,
			ServerKeys: r.ServerKeys,
			SlotPub:    r.SlotPubKeys[i],
			Context:    r.slotContext(i),
		}
		r.BinServers[i] = elgamal.NewBinServer(cfg, serverSecret)
		r.OwnCover[i] = elgamal.NewCoverClient(cfg)
	}
	return nil
}

// onClientCiphertext implements step 7: collect one ciphertext list per
// currently-connected client. There is no message-count completion
// condition here — spec §5's client-submission window is a timer, not
// a quorum, so advancing out of this state is CloseClientSubmissionWindow's
// job, not this handler's.
func (r *Round) onClientCiphertext(from peer.ID, env *wire.Envelope) error {
	if _, ok := r.Dir.Group().ClientByID(from); !ok {
		return ProtocolError(from, "ciphertext submitted by non-client")
	}
	var body wire.ClientCiphertextBody
	if err := wire.Unmarshal(env.Body, &body); err != nil {
		return DecodeError(from, err)
	}
	if len(body.SlotCiphertexts) != r.nClients() {
		return ProtocolError(from, "expected %d slot ciphertexts, got %d", r.nClients(), len(body.SlotCiphertexts))
	}
	r.ClientCiphertexts[string(from)] = body.SlotCiphertexts
	return nil
}

// onServerClientList implements step 8: union each server's collected
// map, checking pairwise-disjoint client-id sets. Once every other
// server's list has arrived, drive into SERVER_WAIT_FOR_SERVER_CIPHERTEXT,
// whose entry callback runs CloseBins and broadcasts this server's own
// server-ciphertext contribution.
func (r *Round) onServerClientList(from peer.ID, env *wire.Envelope) error {
	var body wire.ServerClientListBody
	if err := wire.Unmarshal(env.Body, &body); err != nil {
		return DecodeError(from, err)
	}
	for _, entry := range body.Clients {
		key := entry.ClientID.String()
		if r.ServerClientIDs[key] {
			return CryptoError(from, errors.Errorf("client %s submitted to more than one server", key))
		}
		r.ServerClientIDs[key] = true
		if _, exists := r.ClientCiphertexts[string(entry.ClientID)]; !exists {
			r.ClientCiphertexts[string(entry.ClientID)] = entry.Ciphertext.SlotCiphertexts
		}
	}

	r.ServerListSenders[from.String()] = true
	if len(r.ServerListSenders) == r.nServers()-1 {
		if _, err := r.Machine.Update(StateServerWaitServerCiphertext); err != nil {
			return SelfError(err)
		}
	}
	return nil
}

// closeBinsResult is one slot's share of CloseBins' second pass: the
// marshaled server ciphertext ready for broadcast.
type closeBinsResult struct {
	bs []byte
}

// CloseBins implements the ingest half of step 9: verify and
// accumulate every collected client ciphertext into its matching slot,
// skipping closed slots (spec §4.6 rule 3), then generate this
// server's own mask-removal share. Per-slot verification and the
// GenServerCt/CloseBin work are the modexp-heavy operations spec §5
// requires offloading to the worker pool; AddClientCt stays on the
// calling goroutine, since BinServer's accumulators are not safe for
// concurrent writes, while each second-pass task folds in its own
// slot's server ciphertext with AddServerCt, touching no other slot.
func (r *Round) CloseBins() ([][]byte, error) {
	n := r.nClients()

	type clientEntry struct {
		id  string
		cts [][]byte
	}
	entries := make([]clientEntry, 0, len(r.ClientCiphertexts))
	for id, cts := range r.ClientCiphertexts {
		entries = append(entries, clientEntry{id: id, cts: cts})
	}

	for i := 0; i < n; i++ {
		if r.Tracker.IsClosed(i) {
			continue
		}
		slot := i
		tasks := make([]workerpool.Task, len(entries))
		for idx, e := range entries {
			e := e
			tasks[idx] = func() (interface{}, error) {
				ct, err := unmarshalCiphertext(r.Params.KeyGroup, e.cts[slot])
				if err != nil {
					return nil, err
				}
				ok, err := r.BinServers[slot].VerifyClient(ct)
				if err != nil {
					return nil, err
				}
				if !ok {
					return nil, errors.Errorf("invalid client ciphertext proof at slot %d", slot)
				}
				return ct, nil
			}
		}
		results, errs := r.Pool.SpawnAll(tasks)
		for idx, err := range errs {
			if err != nil {
				return nil, CryptoError(peer.ID(entries[idx].id), err)
			}
			if err := r.BinServers[slot].AddClientCt(results[idx].(*slotcrypto.Ciphertext)); err != nil {
				return nil, SelfError(err)
			}
		}

		ownCt, err := r.OwnCover[slot].GenCover()
		if err != nil {
			return nil, SelfError(err)
		}
		if err := r.BinServers[slot].AddClientCt(ownCt); err != nil {
			return nil, SelfError(err)
		}
	}

	out := make([][]byte, n)
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
			if err := r.BinServers[slot].CloseBin(); err != nil {
				return nil, err
			}
			sct, err := r.BinServers[slot].GenServerCt()
			if err != nil {
				return nil, err
			}
			// A server's own mask-removal contribution must be folded
			// into its own accumulator exactly like every peer's, or
			// RevealPlaintext's final product is missing a term.
			if err := r.BinServers[slot].AddServerCt(sct); err != nil {
				return nil, err
			}
			bs, err := marshalServerCiphertext(sct)
			if err != nil {
				return nil, err
			}
			return closeBinsResult{bs: bs}, nil
		}
	}
	results, errs := r.Pool.SpawnAll(tasks)
	for idx, slot := range openSlots {
		if errs[idx] != nil {
			return nil, SelfError(errs[idx])
		}
		out[slot] = results[idx].(closeBinsResult).bs
	}
	return out, nil
}

// onServerCiphertext implements the receiving half of step 9: another
// server's own mask-removal contribution. Once every other server has
// contributed, drive into SERVER_WAIT_FOR_SERVER_VALIDATION, whose
// entry callback runs RevealAndSign.
func (r *Round) onServerCiphertext(from peer.ID, env *wire.Envelope) error {
	ident, ok := r.Dir.Group().ServerByID(from)
	if !ok {
		return ProtocolError(from, "server ciphertext submitted by non-server")
	}
	var body wire.ServerCiphertextBody
	if err := wire.Unmarshal(env.Body, &body); err != nil {
		return DecodeError(from, err)
	}
	if len(body.SlotCiphertexts) != r.nClients() {
		return ProtocolError(from, "expected %d slot server ciphertexts, got %d", r.nClients(), len(body.SlotCiphertexts))
	}
	idx := r.serverIndex(ident)
	r.ServerCiphertexts[idx] = body.SlotCiphertexts

	if len(r.ServerCiphertexts) == r.nServers()-1 {
		if _, err := r.Machine.Update(StateServerWaitServerValidation); err != nil {
			return SelfError(err)
		}
	}
	return nil
}

type revealResult struct {
	slot    int
	nextN   uint32
	payload []byte
}

// RevealAndSign implements step 10: accumulate every other server's
// ciphertext, reveal per-slot plaintext, and sign the canonical
// cleartext. The correctness proofs carried in the other servers'
// ServerCiphertext.Proof are not checked here. Per-slot RevealPlaintext calls are independent
// (each touches only its own BinServer) and are the modexp-heavy work
// spec §5 offloads to the worker pool; the sequential AddServerCt
// accumulation and the final concatenation/signature stay on the
// calling goroutine.
func (r *Round) RevealAndSign() ([]byte, []byte, error) {
	n := r.nClients()
	for idx, cts := range r.ServerCiphertexts {
		for i := 0; i < n; i++ {
			if r.Tracker.IsClosed(i) || cts[i] == nil {
				continue
			}
			sct, err := unmarshalServerCiphertext(r.Params.KeyGroup, cts[i])
			if err != nil {
				return nil, nil, DecodeError(nil, err)
			}
			if err := r.BinServers[i].AddServerCt(sct); err != nil {
				return nil, nil, CryptoError(nil, errors.Wrapf(err, "server %d slot %d", idx, i))
			}
		}
	}

	openBefore := append([]bool(nil), r.Tracker.Open...)

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
			nextN, payload, err := r.BinServers[slot].RevealPlaintext()
			if err != nil {
				return nil, err
			}
			return revealResult{slot: slot, nextN: nextN, payload: payload}, nil
		}
	}
	results, errs := r.Pool.SpawnAll(tasks)

	lengths := make([]uint32, n)
	chunks := make([][]byte, n)
	for idx, slot := range openSlots {
		if errs[idx] != nil {
			return nil, nil, SelfError(errs[idx])
		}
		rr := results[idx].(revealResult)
		lengths[slot] = rr.nextN
		// The broadcast cleartext carries the RAW per-slot plaintext
		// (length prefix included) so every client can independently
		// rerun the same rule-2 decode spec §4.6 requires of it; only
		// the local sink push gets the prefix already stripped.
		chunks[slot] = rawSlotBytes(rr.nextN, rr.payload)
		if r.SinkCB != nil {
			r.SinkCB(slot, rr.payload)
		}
		if r.Log != nil {
			r.Log.recordBytes(len(rr.payload))
		}
	}
	var cleartext []byte
	for _, c := range chunks {
		if c != nil {
			cleartext = append(cleartext, c...)
		}
	}

	if err := r.Tracker.Advance(lengths); err != nil {
		return nil, nil, SelfError(err)
	}
	if r.Log != nil {
		r.Log.recordPhase()
		r.Log.recordTransitions(openBefore, r.Tracker.Open)
	}

	sig := r.SigningKey.Sign(cleartext)
	return cleartext, sig, nil
}

// onServerValidation implements step 10's cross-check: collect every
// server's signature over the canonical cleartext. Once every server
// (including this one) has signed, drive into SERVER_PUSH_CLEARTEXT,
// whose entry callback broadcasts the signed cleartext to clients, and
// immediately after, cycle back into SERVER_WAIT_FOR_CLIENT_CIPHERTEXT
// (step 11's "cycle back to step 7") — there is no further message to
// wait on before resuming client-ciphertext collection.
func (r *Round) onServerValidation(from peer.ID, env *wire.Envelope) error {
	ident, ok := r.Dir.Group().ServerByID(from)
	if !ok {
		return ProtocolError(from, "validation submitted by non-server")
	}
	var body wire.ServerValidationBody
	if err := wire.Unmarshal(env.Body, &body); err != nil {
		return DecodeError(from, err)
	}
	r.CleartextSigs[r.serverIndex(ident)] = body.Signature

	if len(r.CleartextSigs) == r.nServers() {
		if _, err := r.Machine.Update(StateServerPushCleartext); err != nil {
			return SelfError(err)
		}
		if _, err := r.Machine.Update(StateServerWaitClientCiphertext); err != nil {
			return SelfError(err)
		}
	}
	return nil
}

// PushCleartext implements step 11: require every server's signature
// to verify, then broadcast and reset per-phase collections ahead of
// the cycle back to step 7.
func (r *Round) PushCleartext(cleartext []byte) (*wire.ServerCleartextBody, error) {
	servers := r.Dir.Group().Servers
	sigs := make([]wire.ServerSignatureEntry, 0, len(servers))
	for idx, s := range servers {
		sig, ok := r.CleartextSigs[idx]
		if !ok {
			return nil, CryptoError(s.ID, errors.Errorf("missing cleartext signature from server %d", idx))
		}
		if !s.Verify(cleartext, sig) {
			return nil, CryptoError(s.ID, errors.Errorf("invalid cleartext signature from server %d", idx))
		}
		sigs = append(sigs, wire.ServerSignatureEntry{ServerIndex: uint32(idx), Signature: sig})
	}
	wire.SortServerSignatures(sigs)

	r.ClientCiphertexts = make(map[string][][]byte)
	r.ServerClientIDs = make(map[string]bool)
	r.ServerListSenders = make(map[string]bool)
	r.ServerCiphertexts = make(map[int][][]byte)
	r.CleartextSigs = make(map[int][]byte)
	for _, bs := range r.BinServers {
		bs.NextPhase()
	}
	for i, n := range r.Tracker.N {
		r.BinServers[i].SetNElements(n)
		r.OwnCover[i].SetNElements(n)
	}
	r.PhaseNum++

	return &wire.ServerCleartextBody{Signatures: sigs, Cleartext: cleartext}, nil
}

func (r *Round) serverIndex(id peer.Identity) int {
	for i, s := range r.Dir.Group().Servers {
		if s.ID.Equal(id.ID) {
			return i
		}
	}
	return -1
}

func (r *Round) roundContext(peerID peer.ID) []byte {
	ctx := append([]byte(nil), r.Params.RoundNonce...)
	return append(ctx, peerID...)
}

func (r *Round) slotContext(slot int) []byte {
	ctx := append([]byte(nil), r.Params.RoundNonce...)
	return append(ctx, byte(slot>>24), byte(slot>>16), byte(slot>>8), byte(slot))
}
