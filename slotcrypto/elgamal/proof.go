// Package elgamal is the ElGamal (DDH) SlotCrypto variant: key-group
// equals message-group, and the disjunction proof is a Cramer-Damgård-
// Schoenmakers OR of two Sigma protocols, grounded on
// original_source/src/Crypto/BlogDrop/ClientCiphertext.hpp's
// "either cover or author" proof description and
// original_source/src/LRS/SchnorrProof.cpp's commit/challenge/response
// shape.
package elgamal

import (
	"math/big"

	"github.com/pkg/errors"
	"github.com/henrycg/Dissent/group"
	"golang.org/x/crypto/blake2b"
)

// disjunctionProof proves, without revealing which, that either:
//
//	branch A (cover): pub = G^r and every elements[j] = base^r for the
//	same r, or
//	branch B (author): the prover knows the discrete log of the slot's
//	anonymous public key.
//
// Branch A's N+1 equations (one for pub, one per element position) all
// share a single response RA, so verifying every position costs no extra
// commitment randomness and forces a cover ciphertext to carry the same
// masked value in every slot position. Branch B is a plain Schnorr proof
// of knowledge.
type disjunctionProof struct {
	CA, RA group.Scalar
	CB, RB group.Scalar
}

func challengeHash(g group.Group, ctx []byte, scalarElems []group.Element, elems ...group.Element) (group.Scalar, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return nil, errors.Wrap(err, "init blake2b")
	}
	h.Write(ctx)
	write := func(e group.Element) error {
		bs, err := e.Marshal()
		if err != nil {
			return errors.Wrap(err, "marshal challenge input")
		}
		h.Write(bs)
		return nil
	}
	for _, e := range scalarElems {
		if err := write(e); err != nil {
			return nil, err
		}
	}
	for _, e := range elems {
		if err := write(e); err != nil {
			return nil, err
		}
	}
	digest := h.Sum(nil)
	return g.NewScalar(new(big.Int).SetBytes(digest)), nil
}

// proveCover constructs the disjunction proof with branch A (cover) real:
// the prover knows r such that pub=G^r and every elements[j]=base^r.
func proveCover(g group.Group, ctx []byte, base, pub group.Element, elements []group.Element, slotPub group.Element, r group.Scalar) (*disjunctionProof, error) {
	vA, err := g.RandomExponent()
	if err != nil {
		return nil, errors.Wrap(err, "sample branch A commitment randomness")
	}
	t0A := g.Exp(g.Generator(), vA)
	tElems := make([]group.Element, len(elements))
	for j := range elements {
		tElems[j] = g.Exp(base, vA)
	}

	cB, err := g.RandomExponent()
	if err != nil {
		return nil, errors.Wrap(err, "sample simulated branch B challenge")
	}
	rB, err := g.RandomExponent()
	if err != nil {
		return nil, errors.Wrap(err, "sample simulated branch B response")
	}
	tB := g.CascadeExp(g.Generator(), rB, slotPub, cB)

	c, err := challengeHash(g, ctx, append([]group.Element{pub}, elements...), append([]group.Element{slotPub, t0A}, append(tElems, tB)...)...)
	if err != nil {
		return nil, err
	}
	cA := g.SubScalar(c, cB)
	rA := g.SubScalar(vA, g.MulScalar(cA, r))

	return &disjunctionProof{CA: cA, RA: rA, CB: cB, RB: rB}, nil
}

// proveAuthor constructs the disjunction proof with branch B (author)
// real: the prover knows slotSecret such that slotPub=G^slotSecret.
// Branch A is simulated and places no constraint on elements.
func proveAuthor(g group.Group, ctx []byte, base, pub group.Element, elements []group.Element, slotPub group.Element, slotSecret group.Scalar) (*disjunctionProof, error) {
	cA, err := g.RandomExponent()
	if err != nil {
		return nil, errors.Wrap(err, "sample simulated branch A challenge")
	}
	rA, err := g.RandomExponent()
	if err != nil {
		return nil, errors.Wrap(err, "sample simulated branch A response")
	}
	t0A := g.CascadeExp(g.Generator(), rA, pub, cA)
	tElems := make([]group.Element, len(elements))
	for j, e := range elements {
		tElems[j] = g.CascadeExp(base, rA, e, cA)
	}

	vB, err := g.RandomExponent()
	if err != nil {
		return nil, errors.Wrap(err, "sample branch B commitment randomness")
	}
	tB := g.Exp(g.Generator(), vB)

	c, err := challengeHash(g, ctx, append([]group.Element{pub}, elements...), append([]group.Element{slotPub, t0A}, append(tElems, tB)...)...)
	if err != nil {
		return nil, err
	}
	cB := g.SubScalar(c, cA)
	rB := g.SubScalar(vB, g.MulScalar(cB, slotSecret))

	return &disjunctionProof{CA: cA, RA: rA, CB: cB, RB: rB}, nil
}

// verifyDisjunction recomputes both branches' commitments from the proof
// and checks that the branch challenges sum to the Fiat-Shamir hash.
func verifyDisjunction(g group.Group, ctx []byte, base, pub group.Element, elements []group.Element, slotPub group.Element, proof *disjunctionProof) (bool, error) {
	t0A := g.CascadeExp(g.Generator(), proof.RA, pub, proof.CA)
	tElems := make([]group.Element, len(elements))
	for j, e := range elements {
		tElems[j] = g.CascadeExp(base, proof.RA, e, proof.CA)
	}
	tB := g.CascadeExp(g.Generator(), proof.RB, slotPub, proof.CB)

	c, err := challengeHash(g, ctx, append([]group.Element{pub}, elements...), append([]group.Element{slotPub, t0A}, append(tElems, tB)...)...)
	if err != nil {
		return false, err
	}
	sum := g.AddScalar(proof.CA, proof.CB)
	return sum.Equal(c), nil
}

// serverCorrectnessProof is a Chaum-Pedersen proof that a bin server's
// mask-removal contribution was computed with the same secret as its
// long-term public key, grounded on
// original_source/src/Crypto/BlogDrop/ServerCiphertext.hpp's private
// Commit(g1, g2, y1, y2, t1, t2) two-generator helper.
type serverCorrectnessProof struct {
	C, R group.Scalar
}

// proveServerCorrectness proves log_G(pub1) == log_(base2)(pub2) for a
// shared secret.
func proveServerCorrectness(g group.Group, ctx []byte, base2, pub1, pub2 group.Element, secret group.Scalar) (*serverCorrectnessProof, error) {
	v, err := g.RandomExponent()
	if err != nil {
		return nil, errors.Wrap(err, "sample commitment randomness")
	}
	t0 := g.Exp(g.Generator(), v)
	t1 := g.Exp(base2, v)

	c, err := challengeHash(g, ctx, nil, pub1, pub2, t0, t1)
	if err != nil {
		return nil, err
	}
	r := g.SubScalar(v, g.MulScalar(c, secret))
	return &serverCorrectnessProof{C: c, R: r}, nil
}

func verifyServerCorrectness(g group.Group, ctx []byte, base2, pub1, pub2 group.Element, proof *serverCorrectnessProof) (bool, error) {
	t0 := g.CascadeExp(g.Generator(), proof.R, pub1, proof.C)
	t1 := g.CascadeExp(base2, proof.R, pub2, proof.C)
	c, err := challengeHash(g, ctx, nil, pub1, pub2, t0, t1)
	if err != nil {
		return false, err
	}
	return c.Equal(proof.C), nil
}

// marshalProof/unmarshalProof give the disjunction proof a flat byte
// encoding so it can travel in slotcrypto.Ciphertext.Proof.
func marshalProof(p *disjunctionProof) ([]byte, error) {
	return marshalScalars(p.CA, p.RA, p.CB, p.RB)
}

func unmarshalProof(g group.Group, bs []byte) (*disjunctionProof, error) {
	scalars, err := unmarshalScalars(g, bs, 4)
	if err != nil {
		return nil, err
	}
	return &disjunctionProof{CA: scalars[0], RA: scalars[1], CB: scalars[2], RB: scalars[3]}, nil
}

func marshalServerProof(p *serverCorrectnessProof) ([]byte, error) {
	return marshalScalars(p.C, p.R)
}

func unmarshalServerProof(g group.Group, bs []byte) (*serverCorrectnessProof, error) {
	scalars, err := unmarshalScalars(g, bs, 2)
	if err != nil {
		return nil, err
	}
	return &serverCorrectnessProof{C: scalars[0], R: scalars[1]}, nil
}

func marshalScalars(scalars ...group.Scalar) ([]byte, error) {
	var out []byte
	for _, s := range scalars {
		bs, err := s.Marshal()
		if err != nil {
			return nil, errors.Wrap(err, "marshal proof scalar")
		}
		out = append(out, lengthPrefix(len(bs))...)
		out = append(out, bs...)
	}
	return out, nil
}

func unmarshalScalars(g group.Group, bs []byte, count int) ([]group.Scalar, error) {
	scalars := make([]group.Scalar, 0, count)
	rest := bs
	for i := 0; i < count; i++ {
		n, tail, err := readLengthPrefix(rest)
		if err != nil {
			return nil, err
		}
		if len(tail) < n {
			return nil, errors.New("truncated proof encoding")
		}
		s, err := g.UnmarshalScalar(tail[:n])
		if err != nil {
			return nil, errors.Wrap(err, "unmarshal proof scalar")
		}
		scalars = append(scalars, s)
		rest = tail[n:]
	}
	return scalars, nil
}

func lengthPrefix(n int) []byte {
	return []byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
}

func readLengthPrefix(bs []byte) (int, []byte, error) {
	if len(bs) < 4 {
		return 0, nil, errors.New("truncated proof length prefix")
	}
	n := int(bs[0])<<24 | int(bs[1])<<16 | int(bs[2])<<8 | int(bs[3])
	return n, bs[4:], nil
}
