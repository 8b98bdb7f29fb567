// Package orchestrator implements spec §4.5: the round driver that
// composes phase/ (the state machine), slotcrypto/ (the per-slot
// engines), lifecycle/ (slot open/close), keys/ (key exchange and
// plaintext codec), and wire/ (message bodies) into the server and
// client flows. Grounded on the teacher's internal/round/round.go
// (phase list + response map driving a single round object) and
// io/*.go (one file per wire handler) — generalized from cMix's fixed
// phase sequence to BlogDrop's two role-parameterized, cyclic flows.
package orchestrator

import (
	"context"

	"github.com/henrycg/Dissent/peer"
	"github.com/henrycg/Dissent/wire"
)

// Network is the outbound-messaging collaborator spec §6 describes.
// Every payload the orchestrator hands it is already a sealed
// wire.Envelope (signed under the local long-term key).
type Network interface {
	Send(ctx context.Context, to peer.ID, env *wire.Envelope) error
	BroadcastToServers(ctx context.Context, env *wire.Envelope) error
	BroadcastToClients(ctx context.Context, env *wire.Envelope) error
}

// GroupDirectory is the immutable, ordered membership collaborator
// spec §6 describes.
type GroupDirectory interface {
	Group() *peer.Group
}

// ShuffleResult is what a ShuffleRound delivers: the n_clients slot
// public keys in permuted order, such that no participant can link
// client to slot.
type ShuffleResult struct {
	SlotKeys   [][]byte // permuted slot public keys, marshaled
	BadMembers []peer.ID
}

// ShuffleRound is produced by a ShuffleFactory for one phase's
// anonymizing shuffle of client slot keys.
type ShuffleRound interface {
	Run(ctx context.Context, clientKeys [][]byte) (*ShuffleResult, error)
}

// ShuffleFactory is spec §6's "Shuffle round factory" collaborator.
type ShuffleFactory interface {
	NewShuffleRound() ShuffleRound
}

// DataCallback is spec §6's get_data(max_len) producer of local
// application messages, used only by a client acting as an author.
type DataCallback func(maxLen int) (data []byte, morePending bool)

// SinkCallback is spec §6's push_data(slot_payload) consumer of
// decoded payloads, invoked once per open slot per phase on every
// honest participant.
type SinkCallback func(slotIndex int, payload []byte)

// StopReason names why a round stopped, surfaced to the outer caller
// alongside any bad-member attribution (spec §7).
type StopReason struct {
	Err        error
	BadMembers []peer.ID
	Interrupted bool
}
