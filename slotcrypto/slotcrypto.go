// Package slotcrypto implements spec §4.3: the three cooperating
// per-slot engines (Author, Cover Client, Bin Server) behind one
// SlotCrypto interface, grounded on
// original_source/src/Crypto/BlogDrop/{ClientCiphertext,ServerCiphertext,PublicKey}.hpp.
package slotcrypto

import (
	"github.com/pkg/errors"
	"github.com/henrycg/Dissent/group"
	"github.com/henrycg/Dissent/params"
)

// Ciphertext is one client's contribution to a slot for one phase: a
// per-phase one-time public key plus one message-group element per
// slot position, and the disjunction proof that it is well-formed.
type Ciphertext struct {
	OneTimePub group.Element
	Elements   []group.Element
	Proof      []byte // opaque, variant-specific proof encoding
}

// ServerCiphertext is one server's per-slot mask-removal contribution.
type ServerCiphertext struct {
	Elements []group.Element
	Proof    []byte
}

// SlotCrypto is the uniform interface spec §4.3 describes: Author,
// CoverClient, and BinServer all implement it so the orchestrator can
// hold them polymorphically, even though each role only exercises the
// subset of methods relevant to it — the others return ErrWrongRole.
type SlotCrypto interface {
	// GenCover produces a cover ciphertext, valid only for CoverClient.
	GenCover() (*Ciphertext, error)
	// GenAuthor produces an author ciphertext for message m (a list of
	// already plaintext-codec-encoded elements), valid only for Author.
	GenAuthor(m []group.Element) (*Ciphertext, error)

	// VerifyClient checks a client ciphertext's disjunction proof,
	// valid for BinServer (servers verify every client's submission).
	VerifyClient(ct *Ciphertext) (bool, error)
	// AddClientCt accumulates a verified client ciphertext, valid for
	// BinServer.
	AddClientCt(ct *Ciphertext) error
	// AddServerCt accumulates another server's ciphertext, valid for
	// BinServer.
	AddServerCt(sct *ServerCiphertext) error
	// GenServerCt produces this server's own mask-removal contribution
	// for the bin, valid for BinServer.
	GenServerCt() (*ServerCiphertext, error)
	// CloseBin finalizes client accumulation; no further AddClientCt
	// calls are valid until ClearBin, while AddServerCt stays valid so
	// server ciphertexts can be folded in, valid for BinServer.
	CloseBin() error
	// RevealPlaintext decodes the accumulated sum, valid for BinServer
	// after CloseBin.
	RevealPlaintext() (nextN uint32, payload []byte, err error)

	// NextPhase advances any per-phase internal counters (all roles).
	NextPhase()
	// ClearBin clears per-phase accumulators (all roles; no-op for
	// Author/CoverClient).
	ClearBin()
	// SetNElements updates N for the next phase (all roles) — routed to
	// every engine instance for a slot per spec §9's design note.
	SetNElements(n int)
}

// ErrWrongRole is returned when a SlotCrypto method is called on a
// concrete role that does not support it.
var ErrWrongRole = errors.New("slotcrypto: method not supported by this role")

// Config bundles the inputs every concrete role's constructor needs.
type Config struct {
	Params     *params.Parameters
	ServerKeys []group.Element // server public keys this phase
	ClientKeys []group.Element // client public keys this phase (BinServer only)
	SlotPub    group.Element   // K_slot, the anonymous slot public key
	Context    []byte          // round nonce || slot id, binds proofs to this round/slot
}
