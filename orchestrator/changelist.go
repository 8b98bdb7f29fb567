package orchestrator

import (
	"github.com/pkg/errors"

	"github.com/henrycg/Dissent/keys"
	"github.com/henrycg/Dissent/peer"
	"github.com/henrycg/Dissent/phase"
	"github.com/henrycg/Dissent/wire"
)

// serverChangeList wires spec §4.4's entry-callback mechanism to the
// server flow's driving steps: every label below runs some broadcast
// or state-setup the instant the machine enters it, exactly as
// phase.Change's contract describes. States with nothing to do on
// entry (pure message-collection waits) are simply absent from the
// map — phase.Machine.Update treats a missing entry as a no-op
// callback.
func (r *Round) serverChangeList() map[phase.Label]phase.Change {
	return map[phase.Label]phase.Change{
		StateWaitServerPublicKeys:       r.onEnterWaitServerPublicKeys,
		StatePrepareForBulk:             r.onEnterPrepareForBulkServer,
		StateServerWaitClientLists:      r.onEnterServerWaitClientLists,
		StateServerWaitServerCiphertext: r.onEnterServerWaitServerCiphertext,
		StateServerWaitServerValidation: r.onEnterServerWaitServerValidation,
		StateServerPushCleartext:        r.onEnterServerPushCleartext,
	}
}

// clientChangeList wires the client flow's two driving steps.
func (r *Round) clientChangeList() map[phase.Label]phase.Change {
	return map[phase.Label]phase.Change{
		StatePrepareForBulk:      r.onEnterPrepareForBulkClient,
		StateClientWaitCleartext: r.onEnterClientWaitCleartext,
	}
}

// onEnterWaitServerPublicKeys implements step 4's server side:
// generate this round's per-server keypair and proof of knowledge,
// record this server's own index (comment f's LocalServerIndex), seed
// ServerKeys with the local key, and broadcast it alongside every
// client packet collected in step 3.
func (r *Round) onEnterWaitServerPublicKeys(from phase.Label) error {
	self, ok := r.Dir.Group().ServerByID(r.Self.ID)
	if !ok {
		return SelfError(errors.New("local identity is not a member of the server group"))
	}
	r.LocalServerIndex = r.serverIndex(self)

	kp, err := keys.Generate(r.Params.KeyGroup)
	if err != nil {
		return SelfError(err)
	}
	r.ServerSecret = kp.Secret
	r.ServerKeys = append(r.ServerKeys, kp.Public)

	proof, err := keys.ProveKnowledge(r.Params.KeyGroup, r.roundContext(r.Self.ID), kp)
	if err != nil {
		return SelfError(err)
	}
	pkBytes, err := kp.Public.Marshal()
	if err != nil {
		return SelfError(err)
	}
	proofBytes, err := marshalSchnorr(proof)
	if err != nil {
		return SelfError(err)
	}

	entries := make([]wire.ClientEntry, 0, len(r.ClientPublicKeys))
	for _, rec := range r.ClientPublicKeys {
		entries = append(entries, wire.ClientEntry{ClientID: rec.ID, Packet: rec.Body})
	}
	wire.SortClientEntries(entries)

	body := wire.ServerPublicKeyBody{PublicKey: pkBytes, Proof: proofBytes, Clients: entries}
	bs, err := wire.Marshal(&body)
	if err != nil {
		return SelfError(err)
	}
	env := &wire.Envelope{Type: wire.TypeServerPublicKey, RoundID: r.RoundID, Phase: r.PhaseNum, Body: bs}
	wire.Seal(env, r.SigningKey)
	return r.Net.BroadcastToServers(r.ctx, env)
}

// onEnterPrepareForBulkServer implements step 6.
func (r *Round) onEnterPrepareForBulkServer(from phase.Label) error {
	return r.PrepareForBulk(r.ServerSecret)
}

// onEnterServerWaitClientLists implements step 8's broadcast half:
// relay this server's own view of who submitted ciphertexts directly
// to it.
func (r *Round) onEnterServerWaitClientLists(from phase.Label) error {
	entries := make([]wire.ClientListEntry, 0, len(r.ClientCiphertexts))
	for id, cts := range r.ClientCiphertexts {
		entries = append(entries, wire.ClientListEntry{
			ClientID:   peer.ID(id),
			Ciphertext: wire.ClientCiphertextBody{SlotCiphertexts: cts},
		})
	}
	wire.SortClientListEntries(entries)

	body := wire.ServerClientListBody{Clients: entries}
	bs, err := wire.Marshal(&body)
	if err != nil {
		return SelfError(err)
	}
	env := &wire.Envelope{Type: wire.TypeServerClientList, RoundID: r.RoundID, Phase: r.PhaseNum, Body: bs}
	wire.Seal(env, r.SigningKey)
	return r.Net.BroadcastToServers(r.ctx, env)
}

// onEnterServerWaitServerCiphertext implements step 9's broadcast
// half: close every open bin and relay this server's own mask-removal
// contribution.
func (r *Round) onEnterServerWaitServerCiphertext(from phase.Label) error {
	out, err := r.CloseBins()
	if err != nil {
		return err
	}
	body := wire.ServerCiphertextBody{SlotCiphertexts: out}
	bs, err := wire.Marshal(&body)
	if err != nil {
		return SelfError(err)
	}
	env := &wire.Envelope{Type: wire.TypeServerCiphertext, RoundID: r.RoundID, Phase: r.PhaseNum, Body: bs}
	wire.Seal(env, r.SigningKey)
	return r.Net.BroadcastToServers(r.ctx, env)
}

// onEnterServerWaitServerValidation implements step 10: reveal every
// slot's plaintext, sign the canonical cleartext, record this server's
// own signature (it never sends itself a SERVER_VALIDATION message),
// and broadcast that signature for every other server to cross-check.
func (r *Round) onEnterServerWaitServerValidation(from phase.Label) error {
	cleartext, sig, err := r.RevealAndSign()
	if err != nil {
		return err
	}
	r.PendingCleartext = cleartext
	r.CleartextSigs[r.LocalServerIndex] = sig

	body := wire.ServerValidationBody{Signature: sig}
	bs, err := wire.Marshal(&body)
	if err != nil {
		return SelfError(err)
	}
	env := &wire.Envelope{Type: wire.TypeServerValidation, RoundID: r.RoundID, Phase: r.PhaseNum, Body: bs}
	wire.Seal(env, r.SigningKey)
	return r.Net.BroadcastToServers(r.ctx, env)
}

// onEnterServerPushCleartext implements step 11: broadcast the signed
// cleartext to every client and reset this phase's collections.
func (r *Round) onEnterServerPushCleartext(from phase.Label) error {
	body, err := r.PushCleartext(r.PendingCleartext)
	if err != nil {
		return err
	}
	bs, err := wire.Marshal(body)
	if err != nil {
		return SelfError(err)
	}
	env := &wire.Envelope{Type: wire.TypeServerCleartext, RoundID: r.RoundID, Phase: r.PhaseNum, Body: bs}
	wire.Seal(env, r.SigningKey)
	return r.Net.BroadcastToClients(r.ctx, env)
}

// onEnterPrepareForBulkClient implements the client flow's equivalent
// of step 6.
func (r *Round) onEnterPrepareForBulkClient(from phase.Label) error {
	return r.PrepareForBulkClient()
}

// onEnterClientWaitCleartext submits this client's ciphertext for the
// phase it is about to wait out the cleartext of — run both on first
// entry (from PREPARE_FOR_BULK) and on every cycle back into this same
// state (from itself, once the previous phase's cleartext has been
// processed), since spec §4.5's client flow submits a fresh ciphertext
// every phase.
func (r *Round) onEnterClientWaitCleartext(from phase.Label) error {
	return r.SubmitCiphertext(r.ctx)
}
