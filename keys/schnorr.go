package keys

import (
	"math/big"

	"github.com/pkg/errors"
	"github.com/henrycg/Dissent/group"
	"golang.org/x/crypto/blake2b"
)

// SchnorrProof is a non-interactive Schnorr proof of knowledge of a
// secret scalar, spec §4.2, grounded on
// original_source/src/LRS/SchnorrProof.cpp's commit/challenge/response
// shape.
type SchnorrProof struct {
	C group.Scalar // challenge
	R group.Scalar // response
}

// ProveKnowledge proves knowledge of kp.Secret relative to generator g
// in group g1, binding the proof to context (e.g. a round nonce and the
// peer's long-term id) so it cannot be replayed across rounds or peers.
func ProveKnowledge(g1 group.Group, context []byte, kp *KeyPair) (*SchnorrProof, error) {
	v, err := g1.RandomExponent()
	if err != nil {
		return nil, errors.Wrap(err, "sample commitment randomness")
	}
	t := g1.Exp(g1.Generator(), v)

	c, err := schnorrChallenge(g1, context, g1.Generator(), kp.Public, t)
	if err != nil {
		return nil, err
	}

	// r = v - c*sk mod order
	r := g1.SubScalar(v, g1.MulScalar(c, kp.Secret))
	return &SchnorrProof{C: c, R: r}, nil
}

// VerifyKnowledge recomputes t' = G^r * pk^c and checks the challenge
// recomputes to the same value.
func VerifyKnowledge(g1 group.Group, context []byte, pk group.Element, proof *SchnorrProof) (bool, error) {
	tPrime := g1.CascadeExp(g1.Generator(), proof.R, pk, proof.C)
	cPrime, err := schnorrChallenge(g1, context, g1.Generator(), pk, tPrime)
	if err != nil {
		return false, err
	}
	return cPrime.Equal(proof.C), nil
}

// schnorrChallenge computes c = H(context || G || pk || t) mod order.
func schnorrChallenge(g1 group.Group, context []byte, gen, pk, t group.Element) (group.Scalar, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return nil, errors.Wrap(err, "init blake2b")
	}
	h.Write(context)
	for _, e := range []group.Element{gen, pk, t} {
		bs, err := e.Marshal()
		if err != nil {
			return nil, errors.Wrap(err, "marshal challenge input")
		}
		h.Write(bs)
	}
	digest := h.Sum(nil)
	c := new(big.Int).SetBytes(digest)
	return g1.NewScalar(c), nil
}
