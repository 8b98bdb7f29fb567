package elgamal

import (
	"github.com/pkg/errors"
	"github.com/henrycg/Dissent/group"
	"github.com/henrycg/Dissent/keys"
	"github.com/henrycg/Dissent/slotcrypto"
)

// Author is the SlotCrypto engine for the single client that owns a
// slot this round. It holds the slot's anonymous secret key — proof of
// knowledge of that secret is what the disjunction proof uses to
// authenticate the author branch without naming the author.
type Author struct {
	g             group.Group
	serverProduct group.Element // Y_S
	slotPub       group.Element // K_slot
	slotSecret    group.Scalar  // k_slot
	context       []byte
	n             int
}

// NewAuthor constructs the engine for the client that owns this slot;
// slotSecret is the discrete log of cfg.SlotPub.
func NewAuthor(cfg slotcrypto.Config, slotSecret group.Scalar) *Author {
	return &Author{
		g:             cfg.Params.KeyGroup,
		serverProduct: keys.AggregatePublicKeys(cfg.Params.KeyGroup, cfg.ServerKeys),
		slotPub:       cfg.SlotPub,
		slotSecret:    slotSecret,
		context:       cfg.Context,
		n:             cfg.Params.N,
	}
}

// GenAuthor implements slotcrypto.SlotCrypto.
func (a *Author) GenAuthor(m []group.Element) (*slotcrypto.Ciphertext, error) {
	if len(m) != a.n {
		return nil, errors.Errorf("author message has %d elements, slot wants %d", len(m), a.n)
	}
	r, err := a.g.RandomExponent()
	if err != nil {
		return nil, errors.Wrap(err, "sample one-time exponent")
	}
	pub := a.g.Exp(a.g.Generator(), r)
	mask := a.g.Exp(a.serverProduct, r)

	elements := make([]group.Element, a.n)
	for j, mj := range m {
		elements[j] = a.g.Mul(mask, mj)
	}

	proof, err := proveAuthor(a.g, a.context, a.serverProduct, pub, elements, a.slotPub, a.slotSecret)
	if err != nil {
		return nil, errors.Wrap(err, "prove author branch")
	}
	proofBytes, err := marshalProof(proof)
	if err != nil {
		return nil, err
	}
	return &slotcrypto.Ciphertext{OneTimePub: pub, Elements: elements, Proof: proofBytes}, nil
}

// GenCover is not supported by the author role.
func (a *Author) GenCover() (*slotcrypto.Ciphertext, error) { return nil, slotcrypto.ErrWrongRole }

// VerifyClient is not supported by the author role.
func (a *Author) VerifyClient(ct *slotcrypto.Ciphertext) (bool, error) {
	return false, slotcrypto.ErrWrongRole
}

// AddClientCt is not supported by the author role.
func (a *Author) AddClientCt(ct *slotcrypto.Ciphertext) error { return slotcrypto.ErrWrongRole }

// AddServerCt is not supported by the author role.
func (a *Author) AddServerCt(sct *slotcrypto.ServerCiphertext) error { return slotcrypto.ErrWrongRole }

// GenServerCt is not supported by the author role.
func (a *Author) GenServerCt() (*slotcrypto.ServerCiphertext, error) {
	return nil, slotcrypto.ErrWrongRole
}

// CloseBin is not supported by the author role.
func (a *Author) CloseBin() error { return slotcrypto.ErrWrongRole }

// RevealPlaintext is not supported by the author role.
func (a *Author) RevealPlaintext() (uint32, []byte, error) {
	return 0, nil, slotcrypto.ErrWrongRole
}

// NextPhase is a no-op: the author resamples r fresh on every GenAuthor
// call, so there is no per-phase state to advance.
func (a *Author) NextPhase() {}

// ClearBin is a no-op for the author role.
func (a *Author) ClearBin() {}

// SetNElements updates N for the next phase's GenAuthor call.
func (a *Author) SetNElements(n int) { a.n = n }
