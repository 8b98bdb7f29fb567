// Package peer implements spec §3's peer identity model: a stable byte
// id with a long-term signing key pair, partitioned into the servers
// and clients subgroups every participant agrees on before the round
// starts. Grounded on the teacher's node/ID-plus-permissioning split
// (peer identity and group membership are static, externally supplied
// facts the round consumes, never derives); long-term signing uses
// stdlib crypto/ed25519 since the teacher's own signing primitive lives
// in the dropped xx_network/crypto package (DESIGN.md).
package peer

import (
	"bytes"
	"crypto/ed25519"
	"sort"

	"github.com/pkg/errors"
)

// ID is a peer's stable identifier.
type ID []byte

// Equal reports byte equality.
func (id ID) Equal(o ID) bool { return bytes.Equal(id, o) }

// String renders the id as hex for logging.
func (id ID) String() string { return hexString(id) }

func hexString(bs []byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(bs)*2)
	for i, b := range bs {
		out[i*2] = hexDigits[b>>4]
		out[i*2+1] = hexDigits[b&0xf]
	}
	return string(out)
}

// Identity is one peer's long-term public identity.
type Identity struct {
	ID        ID
	VerifyKey ed25519.PublicKey
}

// SigningKeyPair is a peer's own long-term signing key pair.
type SigningKeyPair struct {
	ID      ID
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// Sign signs msg with the long-term private key.
func (kp *SigningKeyPair) Sign(msg []byte) []byte {
	return ed25519.Sign(kp.Private, msg)
}

// Verify checks sig against id's known verification key.
func (id Identity) Verify(msg, sig []byte) bool {
	return ed25519.Verify(id.VerifyKey, msg, sig)
}

// Group is the static partition of every participant into servers and
// clients, known to everyone before the round begins (spec §3).
type Group struct {
	Servers []Identity
	Clients []Identity

	serverIndex map[string]int
	clientIndex map[string]int
}

// NewGroup builds a Group and its lookup indices.
func NewGroup(servers, clients []Identity) *Group {
	g := &Group{
		Servers:     servers,
		Clients:     clients,
		serverIndex: make(map[string]int, len(servers)),
		clientIndex: make(map[string]int, len(clients)),
	}
	for i, s := range servers {
		g.serverIndex[s.ID.String()] = i
	}
	for i, c := range clients {
		g.clientIndex[c.ID.String()] = i
	}
	return g
}

// IsServer reports whether id names a known server.
func (g *Group) IsServer(id ID) bool {
	_, ok := g.serverIndex[id.String()]
	return ok
}

// IsClient reports whether id names a known client.
func (g *Group) IsClient(id ID) bool {
	_, ok := g.clientIndex[id.String()]
	return ok
}

// IsMember reports whether id is any known participant.
func (g *Group) IsMember(id ID) bool { return g.IsServer(id) || g.IsClient(id) }

// ServerByID looks up a server's Identity.
func (g *Group) ServerByID(id ID) (Identity, bool) {
	i, ok := g.serverIndex[id.String()]
	if !ok {
		return Identity{}, false
	}
	return g.Servers[i], true
}

// ClientByID looks up a client's Identity.
func (g *Group) ClientByID(id ID) (Identity, bool) {
	i, ok := g.clientIndex[id.String()]
	if !ok {
		return Identity{}, false
	}
	return g.Clients[i], true
}

// NClients is the number of clients in the group — also the number of
// anonymity slots per round (spec glossary: "one of n_clients anonymous
// output channels").
func (g *Group) NClients() int { return len(g.Clients) }

// SortedClientIDs returns every client id in the Open Question's
// canonical order (lexicographic on raw id bytes), grounded on spec
// §9's recommendation — the same order wire's Sort* helpers give every
// map-bodied wire message, so the step-8 cross-server check cannot
// spuriously diverge.
func (g *Group) SortedClientIDs() []ID {
	ids := make([]ID, len(g.Clients))
	for i, c := range g.Clients {
		ids[i] = c.ID
	}
	SortIDs(ids)
	return ids
}

// SortIDs sorts ids lexicographically on their raw bytes, in place.
func SortIDs(ids []ID) {
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i], ids[j]) < 0 })
}

// ErrUnknownPeer is returned when a message names an id outside the
// static group.
var ErrUnknownPeer = errors.New("peer: unknown peer id")
