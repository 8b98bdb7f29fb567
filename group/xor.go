package group

import (
	"crypto/rand"
	"math/big"

	"github.com/pkg/errors"
)

// XorGroup is the non-cryptographic XorTesting variant (spec §4.3/§9):
// elements are fixed-length byte strings, group multiplication is XOR,
// every element is its own inverse, and "exponents" are single bits
// (XOR is its own group of order 2 per bit). It exists purely so the
// rest of the protocol's plumbing can be driven without paying for real
// group arithmetic in tests.
type XorGroup struct {
	size int
}

// NewXorGroup returns an XOR group over byte strings of length size.
func NewXorGroup(size int) *XorGroup {
	return &XorGroup{size: size}
}

type xorElement struct{ bs []byte }

func (e *xorElement) Equal(o Element) bool {
	other, ok := o.(*xorElement)
	if !ok || len(other.bs) != len(e.bs) {
		return false
	}
	for i := range e.bs {
		if e.bs[i] != other.bs[i] {
			return false
		}
	}
	return true
}
func (e *xorElement) Marshal() ([]byte, error) { return append([]byte(nil), e.bs...), nil }
func (e *xorElement) String() string           { return "xor:" + new(big.Int).SetBytes(e.bs).Text(16) }

type xorScalar struct{ bit bool }

func (s *xorScalar) Equal(o Scalar) bool {
	other, ok := o.(*xorScalar)
	return ok && other.bit == s.bit
}
func (s *xorScalar) Marshal() ([]byte, error) {
	if s.bit {
		return []byte{1}, nil
	}
	return []byte{0}, nil
}
func (s *xorScalar) BigInt() *big.Int {
	if s.bit {
		return big.NewInt(1)
	}
	return big.NewInt(0)
}
func (s *xorScalar) String() string {
	if s.bit {
		return "1"
	}
	return "0"
}

func (g *XorGroup) Name() string     { return "xor-testing" }
func (g *XorGroup) Identity() Element { return &xorElement{bs: make([]byte, g.size)} }
func (g *XorGroup) Generator() Element {
	bs := make([]byte, g.size)
	bs[0] = 1
	return &xorElement{bs: bs}
}
func (g *XorGroup) Order() *big.Int { return big.NewInt(2) }

func (g *XorGroup) RandomElement() (Element, error) {
	bs := make([]byte, g.size)
	if _, err := rand.Read(bs); err != nil {
		return nil, errors.Wrap(err, "sample random xor element")
	}
	return &xorElement{bs: bs}, nil
}

func (g *XorGroup) RandomExponent() (Scalar, error) {
	bs := make([]byte, 1)
	if _, err := rand.Read(bs); err != nil {
		return nil, errors.Wrap(err, "sample random xor scalar")
	}
	return &xorScalar{bit: bs[0]&1 == 1}, nil
}

func (g *XorGroup) Mul(a, b Element) Element {
	ea, eb := a.(*xorElement), b.(*xorElement)
	out := make([]byte, g.size)
	for i := range out {
		out[i] = ea.bs[i] ^ eb.bs[i]
	}
	return &xorElement{bs: out}
}

func (g *XorGroup) Inv(a Element) Element { return a }

func (g *XorGroup) Exp(a Element, e Scalar) Element {
	if e.(*xorScalar).bit {
		return a
	}
	return g.Identity()
}

func (g *XorGroup) CascadeExp(a1 Element, e1 Scalar, a2 Element, e2 Scalar) Element {
	return g.Mul(g.Exp(a1, e1), g.Exp(a2, e2))
}

func (g *XorGroup) IsElement(a Element) bool {
	e, ok := a.(*xorElement)
	return ok && len(e.bs) == g.size
}

func (g *XorGroup) BytesPerElement() int { return g.size }

func (g *XorGroup) EncodeBytes(bs []byte) (Element, error) {
	if len(bs) > g.size {
		return nil, ErrPayloadTooLong
	}
	out := make([]byte, g.size)
	copy(out, bs)
	return &xorElement{bs: out}, nil
}

func (g *XorGroup) DecodeBytes(a Element) ([]byte, error) {
	e, ok := a.(*xorElement)
	if !ok {
		return nil, ErrInvalidElement
	}
	return append([]byte(nil), e.bs...), nil
}

func (g *XorGroup) HashIntoElement(tag []byte) (Element, error) {
	return hashIntoElementCascade(g, tag)
}

func (g *XorGroup) Marshal(a Element) ([]byte, error) { return a.Marshal() }
func (g *XorGroup) Unmarshal(bs []byte) (Element, error) {
	if len(bs) != g.size {
		return nil, ErrInvalidElement
	}
	return &xorElement{bs: append([]byte(nil), bs...)}, nil
}

func (g *XorGroup) NewScalar(x *big.Int) Scalar { return &xorScalar{bit: x.Bit(0) == 1} }
func (g *XorGroup) UnmarshalScalar(bs []byte) (Scalar, error) {
	if len(bs) != 1 {
		return nil, ErrInvalidElement
	}
	return &xorScalar{bit: bs[0]&1 == 1}, nil
}

func (g *XorGroup) AddScalar(a, b Scalar) Scalar {
	return &xorScalar{bit: a.(*xorScalar).bit != b.(*xorScalar).bit}
}
func (g *XorGroup) SubScalar(a, b Scalar) Scalar { return g.AddScalar(a, b) }
func (g *XorGroup) MulScalar(a, b Scalar) Scalar {
	return &xorScalar{bit: a.(*xorScalar).bit && b.(*xorScalar).bit}
}
func (g *XorGroup) NegScalar(a Scalar) Scalar { return a }
