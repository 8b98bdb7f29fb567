package group

import (
	"crypto/rand"
	"math/big"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

// IntegerGroup is the prime-order subgroup of (Z/pZ)* of order q, with
// p = k*q + 1 for some cofactor k. It mirrors the C++ original's
// IntegerGroup (see original_source/src/Crypto/AbstractGroup) by building
// directly on big.Int modular exponentiation: kyber does not expose a
// generic "subgroup of Z mod p" group, only curves/pairings, so this is
// the one component of the group layer that is stdlib-only by necessity.
type IntegerGroup struct {
	p *big.Int // modulus
	q *big.Int // subgroup order
	g *big.Int // generator of the order-q subgroup
}

// NewIntegerGroup constructs the subgroup from its public parameters.
// Mirrors teacher conf/groups.go's toGroup(prime, smallprime, generator).
func NewIntegerGroup(p, q, g *big.Int) (*IntegerGroup, error) {
	if p == nil || q == nil || g == nil {
		jww.FATAL.Panicf("invalid integer group config (p: %v, q: %v, g: %v)",
			p != nil, q != nil, g != nil)
	}
	one := big.NewInt(1)
	if new(big.Int).Exp(g, q, p).Cmp(one) != 0 {
		return nil, errors.New("generator does not have order q")
	}
	return &IntegerGroup{p: p, q: q, g: g}, nil
}

type integerElement struct{ v *big.Int }

func (e *integerElement) Equal(o Element) bool {
	oe, ok := o.(*integerElement)
	return ok && e.v.Cmp(oe.v) == 0
}
func (e *integerElement) Marshal() ([]byte, error) { return e.v.Bytes(), nil }
func (e *integerElement) String() string           { return e.v.String() }

type integerScalar struct{ v *big.Int }

func (s *integerScalar) Equal(o Scalar) bool {
	os, ok := o.(*integerScalar)
	return ok && s.v.Cmp(os.v) == 0
}
func (s *integerScalar) Marshal() ([]byte, error) { return s.v.Bytes(), nil }
func (s *integerScalar) BigInt() *big.Int         { return new(big.Int).Set(s.v) }
func (s *integerScalar) String() string            { return s.v.String() }

func (g *IntegerGroup) Name() string   { return "integer" }
func (g *IntegerGroup) Identity() Element { return &integerElement{big.NewInt(1)} }
func (g *IntegerGroup) Generator() Element { return &integerElement{new(big.Int).Set(g.g)} }
func (g *IntegerGroup) Order() *big.Int { return new(big.Int).Set(g.q) }

func (g *IntegerGroup) RandomElement() (Element, error) {
	e, err := g.RandomExponent()
	if err != nil {
		return nil, err
	}
	return g.Exp(g.Generator(), e), nil
}

func (g *IntegerGroup) RandomExponent() (Scalar, error) {
	x, err := rand.Int(rand.Reader, g.q)
	if err != nil {
		return nil, errors.Wrap(err, "sample random exponent")
	}
	if x.Sign() == 0 {
		x.SetInt64(1)
	}
	return &integerScalar{x}, nil
}

func (g *IntegerGroup) toElem(a Element) *big.Int { return a.(*integerElement).v }
func (g *IntegerGroup) toScalar(s Scalar) *big.Int { return s.(*integerScalar).v }

func (g *IntegerGroup) Mul(a, b Element) Element {
	r := new(big.Int).Mul(g.toElem(a), g.toElem(b))
	r.Mod(r, g.p)
	return &integerElement{r}
}

func (g *IntegerGroup) Inv(a Element) Element {
	r := new(big.Int).ModInverse(g.toElem(a), g.p)
	return &integerElement{r}
}

func (g *IntegerGroup) Exp(a Element, e Scalar) Element {
	exp := new(big.Int).Mod(g.toScalar(e), g.q)
	r := new(big.Int).Exp(g.toElem(a), exp, g.p)
	return &integerElement{r}
}

func (g *IntegerGroup) CascadeExp(a1 Element, e1 Scalar, a2 Element, e2 Scalar) Element {
	return g.Mul(g.Exp(a1, e1), g.Exp(a2, e2))
}

func (g *IntegerGroup) IsElement(a Element) bool {
	ie, ok := a.(*integerElement)
	if !ok {
		return false
	}
	v := ie.v
	if v.Sign() <= 0 || v.Cmp(g.p) >= 0 {
		return false
	}
	return new(big.Int).Exp(v, g.q, g.p).Cmp(big.NewInt(1)) == 0
}

// BytesPerElement is the encode buffer width, (p.BitLen()-2)/8 bytes,
// minus its one leading length byte. The width keeps every candidate x
// below 2^(p.BitLen()-2), so x and p-x never fit the same width.
func (g *IntegerGroup) BytesPerElement() int {
	return (g.p.BitLen()-2)/8 - 1
}

// EncodeBytes embeds bs (len(bs) <= BytesPerElement) into a quadratic
// residue mod p by the standard try-both-signs construction: build a
// candidate x = a length byte, then bs, then zero padding, then use x or
// p-x, whichever is a QR (hence lies in the order-q subgroup when
// q = (p-1)/2). The same payload always yields the same element.
func (g *IntegerGroup) EncodeBytes(bs []byte) (Element, error) {
	max := g.BytesPerElement()
	if len(bs) > max {
		return nil, errors.Errorf("payload too long: %d > %d", len(bs), max)
	}
	buf := make([]byte, (g.p.BitLen()-2)/8)
	buf[0] = byte(len(bs))
	copy(buf[1:], bs)
	x := new(big.Int).SetBytes(buf)
	x.Mod(x, g.p)
	if x.Sign() == 0 {
		x.SetInt64(1)
	}
	if new(big.Int).Exp(x, g.q, g.p).Cmp(big.NewInt(1)) != 0 {
		x.Sub(g.p, x)
	}
	return &integerElement{x}, nil
}

// DecodeBytes reverses EncodeBytes: the encoder's candidate x always fits
// the encode buffer width while p-x never does, so the element itself is
// x when it fits that width and p minus the element otherwise.
func (g *IntegerGroup) DecodeBytes(a Element) ([]byte, error) {
	v := g.toElem(a)
	width := (g.p.BitLen() - 2) / 8
	cand := new(big.Int).Set(v)
	if cand.BitLen() > 8*width {
		cand.Sub(g.p, v)
	}
	if cand.Sign() < 0 || cand.BitLen() > 8*width {
		return nil, errors.New("invalid encoded element")
	}
	buf := cand.FillBytes(make([]byte, width))
	n := int(buf[0])
	if n > g.BytesPerElement() {
		return nil, errors.New("invalid encoded element")
	}
	return append([]byte(nil), buf[1:1+n]...), nil
}

// HashIntoElement hashes tag into a group element by EncodeBytes-ing a
// digest, retrying with a counter suffix up to a bounded number of times.
func (g *IntegerGroup) HashIntoElement(tag []byte) (Element, error) {
	return hashIntoElementCascade(g, tag)
}

func (g *IntegerGroup) Marshal(a Element) ([]byte, error) {
	v := g.toElem(a)
	buf := make([]byte, g.p.BitLen()/8+1)
	v.FillBytes(buf)
	return buf, nil
}

func (g *IntegerGroup) Unmarshal(bs []byte) (Element, error) {
	v := new(big.Int).SetBytes(bs)
	e := &integerElement{v}
	if !g.IsElement(e) {
		return nil, errors.New("decoded value is not a valid group element")
	}
	return e, nil
}

func (g *IntegerGroup) NewScalar(x *big.Int) Scalar {
	return &integerScalar{new(big.Int).Mod(x, g.q)}
}

func (g *IntegerGroup) UnmarshalScalar(bs []byte) (Scalar, error) {
	return &integerScalar{new(big.Int).Mod(new(big.Int).SetBytes(bs), g.q)}, nil
}

func (g *IntegerGroup) AddScalar(a, b Scalar) Scalar {
	r := new(big.Int).Add(g.toScalar(a), g.toScalar(b))
	return &integerScalar{r.Mod(r, g.q)}
}

func (g *IntegerGroup) SubScalar(a, b Scalar) Scalar {
	r := new(big.Int).Sub(g.toScalar(a), g.toScalar(b))
	return &integerScalar{r.Mod(r, g.q)}
}

func (g *IntegerGroup) MulScalar(a, b Scalar) Scalar {
	r := new(big.Int).Mul(g.toScalar(a), g.toScalar(b))
	return &integerScalar{r.Mod(r, g.q)}
}

func (g *IntegerGroup) NegScalar(a Scalar) Scalar {
	r := new(big.Int).Neg(g.toScalar(a))
	return &integerScalar{r.Mod(r, g.q)}
}
