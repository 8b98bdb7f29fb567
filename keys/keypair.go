// Package keys implements spec §4.2: key generation, Schnorr proofs of
// knowledge, aggregate public-key products, and the plaintext codec that
// packs a byte string across N group elements with a length prefix.
package keys

import (
	"github.com/pkg/errors"
	"github.com/henrycg/Dissent/group"
)

// KeyPair is a secret scalar and its public group element, spec §3/§4.2:
// (sk, pk = G^sk).
type KeyPair struct {
	Secret group.Scalar
	Public group.Element
}

// Generate samples sk uniformly in [1, order) and computes pk = G^sk.
func Generate(g group.Group) (*KeyPair, error) {
	sk, err := g.RandomExponent()
	if err != nil {
		return nil, errors.Wrap(err, "sample secret key")
	}
	pk := g.Exp(g.Generator(), sk)
	return &KeyPair{Secret: sk, Public: pk}, nil
}

// FromSecret rebuilds the key pair from a known secret, used when
// deriving ephemeral or master key pairs deterministically.
func FromSecret(g group.Group, sk group.Scalar) *KeyPair {
	return &KeyPair{Secret: sk, Public: g.Exp(g.Generator(), sk)}
}

// Valid checks pk == G^sk for the given generator, spec §3's key-pair
// invariant.
func (kp *KeyPair) Valid(g group.Group) bool {
	return kp.Public.Equal(g.Exp(g.Generator(), kp.Secret))
}
