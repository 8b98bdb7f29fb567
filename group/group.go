// Package group provides the algebraic-group abstraction BlogDrop is built
// on: a uniform interface over a prime-order subgroup of integers mod p, an
// elliptic curve over a prime field, and a bilinear-pairing target group.
package group

import "math/big"

// Element is a group member. Implementations must satisfy
// decode(encode(e)) == e for every valid e.
type Element interface {
	// Equal reports whether two elements of the same group are equal.
	Equal(Element) bool
	// Marshal serializes the element to bytes.
	Marshal() ([]byte, error)
	// String returns a short debug representation.
	String() string
}

// Scalar is an integer mod the group order.
type Scalar interface {
	Equal(Scalar) bool
	Marshal() ([]byte, error)
	// BigInt returns the scalar reduced to [0, order).
	BigInt() *big.Int
	String() string
}

// Variant names one of the four proof/group flavors spec.md §4.3 lists.
type Variant uint8

const (
	// ElGamal is the standard DDH-based variant; key-group == message-group.
	ElGamal Variant = iota
	// Pairing lifts the disjunction proof into a bilinear group.
	Pairing
	// HashingGenerator derives a per-(client,server)-pair shared generator.
	HashingGenerator
	// XorTesting is a non-cryptographic variant used only for protocol
	// testing: ciphertexts are XOR-combined instead of group-multiplied.
	XorTesting
)

func (v Variant) String() string {
	switch v {
	case ElGamal:
		return "elgamal"
	case Pairing:
		return "pairing"
	case HashingGenerator:
		return "hashing-generator"
	case XorTesting:
		return "xor-testing"
	default:
		return "unknown"
	}
}

// Group is the uniform arithmetic interface every variant implements.
// encode_bytes/decode_bytes embed an arbitrary payload of at most
// BytesPerElement bytes into an element deterministically; CascadeExp computes
// a1^e1 * a2^e2 in one call, matching the optimized two-exponent form the
// ElGamal and Chaum-Pedersen verification equations both need.
type Group interface {
	Name() string
	Identity() Element
	Generator() Element
	Order() *big.Int

	RandomElement() (Element, error)
	RandomExponent() (Scalar, error)

	Mul(a, b Element) Element
	Inv(a Element) Element
	Exp(a Element, e Scalar) Element
	CascadeExp(a1 Element, e1 Scalar, a2 Element, e2 Scalar) Element

	IsElement(a Element) bool

	// BytesPerElement is the maximum payload EncodeBytes can embed.
	BytesPerElement() int
	EncodeBytes(bs []byte) (Element, error)
	DecodeBytes(a Element) ([]byte, error)

	// HashIntoElement deterministically hashes tag into a group element,
	// used to derive per-(client,server)-pair generators in the
	// hashing-generator variant.
	HashIntoElement(tag []byte) (Element, error)

	Marshal(a Element) ([]byte, error)
	Unmarshal(bs []byte) (Element, error)

	NewScalar(x *big.Int) Scalar
	UnmarshalScalar(bs []byte) (Scalar, error)

	AddScalar(a, b Scalar) Scalar
	SubScalar(a, b Scalar) Scalar
	MulScalar(a, b Scalar) Scalar
	NegScalar(a Scalar) Scalar
}

// PairingCapable is implemented additionally by groups that support a
// bilinear map into a distinct target group, per spec §4.1.
type PairingCapable interface {
	Group
	// G2 is the second source group (scalars are shared with the base
	// group returned by Group itself, treated as G1).
	G2() Group
	// GT is the pairing target group.
	GT() Group
	// ApplyPairing computes e(a, b) for a in G1, b in G2.
	ApplyPairing(a, b Element) Element
}
