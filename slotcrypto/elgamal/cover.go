package elgamal

import (
	"github.com/pkg/errors"
	"github.com/henrycg/Dissent/group"
	"github.com/henrycg/Dissent/keys"
	"github.com/henrycg/Dissent/slotcrypto"
)

// CoverClient is the SlotCrypto engine every client runs for every slot
// it does not own this round: it contributes a ciphertext that, once
// masked with the same one-time exponent used in the disjunction proof,
// is algebraically indistinguishable from an author ciphertext.
type CoverClient struct {
	g             group.Group
	serverProduct group.Element // Y_S
	slotPub       group.Element // K_slot
	context       []byte
	n             int
}

// NewCoverClient constructs the engine a client uses for a slot it does
// not own.
func NewCoverClient(cfg slotcrypto.Config) *CoverClient {
	return &CoverClient{
		g:             cfg.Params.KeyGroup,
		serverProduct: keys.AggregatePublicKeys(cfg.Params.KeyGroup, cfg.ServerKeys),
		slotPub:       cfg.SlotPub,
		context:       cfg.Context,
		n:             cfg.Params.N,
	}
}

// GenCover implements slotcrypto.SlotCrypto.
func (c *CoverClient) GenCover() (*slotcrypto.Ciphertext, error) {
	r, err := c.g.RandomExponent()
	if err != nil {
		return nil, errors.Wrap(err, "sample one-time exponent")
	}
	pub := c.g.Exp(c.g.Generator(), r)
	mask := c.g.Exp(c.serverProduct, r)

	elements := make([]group.Element, c.n)
	for j := range elements {
		elements[j] = mask
	}

	proof, err := proveCover(c.g, c.context, c.serverProduct, pub, elements, c.slotPub, r)
	if err != nil {
		return nil, errors.Wrap(err, "prove cover branch")
	}
	proofBytes, err := marshalProof(proof)
	if err != nil {
		return nil, err
	}
	return &slotcrypto.Ciphertext{OneTimePub: pub, Elements: elements, Proof: proofBytes}, nil
}

// GenAuthor is not supported by the cover-client role.
func (c *CoverClient) GenAuthor(m []group.Element) (*slotcrypto.Ciphertext, error) {
	return nil, slotcrypto.ErrWrongRole
}

// VerifyClient is not supported by the cover-client role.
func (c *CoverClient) VerifyClient(ct *slotcrypto.Ciphertext) (bool, error) {
	return false, slotcrypto.ErrWrongRole
}

// AddClientCt is not supported by the cover-client role.
func (c *CoverClient) AddClientCt(ct *slotcrypto.Ciphertext) error { return slotcrypto.ErrWrongRole }

// AddServerCt is not supported by the cover-client role.
func (c *CoverClient) AddServerCt(sct *slotcrypto.ServerCiphertext) error {
	return slotcrypto.ErrWrongRole
}

// GenServerCt is not supported by the cover-client role.
func (c *CoverClient) GenServerCt() (*slotcrypto.ServerCiphertext, error) {
	return nil, slotcrypto.ErrWrongRole
}

// CloseBin is not supported by the cover-client role.
func (c *CoverClient) CloseBin() error { return slotcrypto.ErrWrongRole }

// RevealPlaintext is not supported by the cover-client role.
func (c *CoverClient) RevealPlaintext() (uint32, []byte, error) {
	return 0, nil, slotcrypto.ErrWrongRole
}

// NextPhase is a no-op: a fresh one-time exponent is sampled on every
// GenCover call.
func (c *CoverClient) NextPhase() {}

// ClearBin is a no-op for the cover-client role.
func (c *CoverClient) ClearBin() {}

// SetNElements updates N for the next phase's GenCover call.
func (c *CoverClient) SetNElements(n int) { c.n = n }
