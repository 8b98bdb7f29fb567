package elgamal

import (
	"github.com/pkg/errors"
	"github.com/henrycg/Dissent/group"
	"github.com/henrycg/Dissent/keys"
	"github.com/henrycg/Dissent/slotcrypto"
)

// BinServer is the SlotCrypto engine every server runs for every slot:
// it verifies and accumulates client ciphertexts, contributes its own
// mask-removal share, and reveals the plaintext once the bin closes.
//
// The mask-removal math is grounded on the observation that, for a
// one-time client public key pub_i = G^r_i, a server knowing its own
// secret s_j can compute pub_i^s_j without learning r_i; multiplying
// this across every server peels off exactly the Y_S^r_i term each
// client's ciphertext was masked with (original_source's
// ServerCiphertext.hpp calls the analogous operation the slot's
// mask-removal share).
type BinServer struct {
	g             group.Group
	serverSecret  group.Scalar  // this server's s_j
	serverPub     group.Element // G^s_j
	serverProduct group.Element // Y_S, used as the proof base for clients
	slotPub       group.Element // K_slot
	context       []byte
	n             int

	clientPubProduct group.Element
	accumClient      []group.Element
	accumServer      []group.Element
	closed           bool
}

// NewBinServer constructs the engine a server uses for one slot.
func NewBinServer(cfg slotcrypto.Config, serverSecret group.Scalar) *BinServer {
	g := cfg.Params.KeyGroup
	n := cfg.Params.N
	accumClient := make([]group.Element, n)
	accumServer := make([]group.Element, n)
	for j := 0; j < n; j++ {
		accumClient[j] = g.Identity()
		accumServer[j] = g.Identity()
	}
	return &BinServer{
		g:                g,
		serverSecret:     serverSecret,
		serverPub:        g.Exp(g.Generator(), serverSecret),
		serverProduct:    keys.AggregatePublicKeys(g, cfg.ServerKeys),
		slotPub:          cfg.SlotPub,
		context:          cfg.Context,
		n:                n,
		clientPubProduct: g.Identity(),
		accumClient:      accumClient,
		accumServer:      accumServer,
	}
}

// VerifyClient implements slotcrypto.SlotCrypto.
func (b *BinServer) VerifyClient(ct *slotcrypto.Ciphertext) (bool, error) {
	if len(ct.Elements) != b.n {
		return false, errors.Errorf("client ciphertext has %d elements, slot wants %d", len(ct.Elements), b.n)
	}
	proof, err := unmarshalProof(b.g, ct.Proof)
	if err != nil {
		return false, errors.Wrap(err, "unmarshal client disjunction proof")
	}
	return verifyDisjunction(b.g, b.context, b.serverProduct, ct.OneTimePub, ct.Elements, b.slotPub, proof)
}

// AddClientCt implements slotcrypto.SlotCrypto. Callers must have
// verified ct with VerifyClient first; AddClientCt does not re-verify.
func (b *BinServer) AddClientCt(ct *slotcrypto.Ciphertext) error {
	if b.closed {
		return errors.New("bin already closed")
	}
	if len(ct.Elements) != b.n {
		return errors.Errorf("client ciphertext has %d elements, slot wants %d", len(ct.Elements), b.n)
	}
	for j, e := range ct.Elements {
		b.accumClient[j] = b.g.Mul(b.accumClient[j], e)
	}
	b.clientPubProduct = b.g.Mul(b.clientPubProduct, ct.OneTimePub)
	return nil
}

// GenServerCt implements slotcrypto.SlotCrypto: every element position
// carries the same peel value, mirroring how a cover ciphertext repeats
// its masked value across positions.
func (b *BinServer) GenServerCt() (*slotcrypto.ServerCiphertext, error) {
	negSecret := b.g.NegScalar(b.serverSecret)
	peel := b.g.Exp(b.clientPubProduct, negSecret)
	peelInv := b.g.Inv(peel) // = clientPubProduct^serverSecret

	proof, err := proveServerCorrectness(b.g, b.context, b.clientPubProduct, b.serverPub, peelInv, b.serverSecret)
	if err != nil {
		return nil, errors.Wrap(err, "prove server correctness")
	}
	proofBytes, err := marshalServerProof(proof)
	if err != nil {
		return nil, err
	}

	elements := make([]group.Element, b.n)
	for j := range elements {
		elements[j] = peel
	}
	return &slotcrypto.ServerCiphertext{Elements: elements, Proof: proofBytes}, nil
}

// AddServerCt implements slotcrypto.SlotCrypto. It is valid after
// CloseBin, which closes the bin to client ciphertexts only.
func (b *BinServer) AddServerCt(sct *slotcrypto.ServerCiphertext) error {
	if len(sct.Elements) != b.n {
		return errors.Errorf("server ciphertext has %d elements, slot wants %d", len(sct.Elements), b.n)
	}
	for j, e := range sct.Elements {
		b.accumServer[j] = b.g.Mul(b.accumServer[j], e)
	}
	return nil
}

// CloseBin implements slotcrypto.SlotCrypto.
func (b *BinServer) CloseBin() error {
	b.closed = true
	return nil
}

// RevealPlaintext implements slotcrypto.SlotCrypto: once every client
// and server contribution has been multiplied in, the combined product
// at each position is exactly the author's encoded plaintext element,
// spec §4.3's "reveal_plaintext".
func (b *BinServer) RevealPlaintext() (uint32, []byte, error) {
	if !b.closed {
		return 0, nil, errors.New("bin not closed")
	}
	final := make([]group.Element, b.n)
	for j := 0; j < b.n; j++ {
		final[j] = b.g.Mul(b.accumClient[j], b.accumServer[j])
	}
	return keys.DecodePlaintext(b.g, final)
}

// GenCover is not supported by the bin-server role.
func (b *BinServer) GenCover() (*slotcrypto.Ciphertext, error) { return nil, slotcrypto.ErrWrongRole }

// GenAuthor is not supported by the bin-server role.
func (b *BinServer) GenAuthor(m []group.Element) (*slotcrypto.Ciphertext, error) {
	return nil, slotcrypto.ErrWrongRole
}

// NextPhase resets per-phase state in place of ClearBin, since a bin
// server always moves on to a fresh phase's accumulation.
func (b *BinServer) NextPhase() { b.ClearBin() }

// ClearBin resets the accumulators so the slot can be reused next phase.
func (b *BinServer) ClearBin() {
	for j := 0; j < b.n; j++ {
		b.accumClient[j] = b.g.Identity()
		b.accumServer[j] = b.g.Identity()
	}
	b.clientPubProduct = b.g.Identity()
	b.closed = false
}

// SetNElements updates N and resizes the accumulators for the next
// phase.
func (b *BinServer) SetNElements(n int) {
	b.n = n
	b.accumClient = make([]group.Element, n)
	b.accumServer = make([]group.Element, n)
	for j := 0; j < n; j++ {
		b.accumClient[j] = b.g.Identity()
		b.accumServer[j] = b.g.Identity()
	}
	b.clientPubProduct = b.g.Identity()
	b.closed = false
}
