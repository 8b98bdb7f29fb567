package group

import (
	"math/big"

	"github.com/pkg/errors"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/group/edwards25519"
)

// CurveGroup wraps a kyber curve suite (Edwards25519 by default) behind
// the Group interface, the way davidLeeeeeeeeeeee-dex's
// frost/core/curve/ed25519.go wraps kyber.Suite for its own Point/Scalar
// abstraction.
type CurveGroup struct {
	suite  *edwards25519.SuiteEd25519
	name   string
	order  *big.Int
	retryK int
}

// NewCurveGroup constructs the elliptic-curve variant.
func NewCurveGroup() *CurveGroup {
	suite := edwards25519.NewBlakeSHA256Ed25519()
	order := suite.Scalar().(kyber.Scalar)
	_ = order
	return &CurveGroup{
		suite:  suite,
		name:   "edwards25519",
		order:  curveOrder(),
		retryK: DefaultRetryK,
	}
}

// curveOrder is Edwards25519's prime subgroup order l = 2^252 + 27742317777372353535851937790883648493.
func curveOrder() *big.Int {
	l, _ := new(big.Int).SetString("7237005577332262213973186563042994240857116359379907606001950938285454250989", 10)
	return l
}

type curveElement struct{ p kyber.Point }
type curveScalar struct{ s kyber.Scalar; order *big.Int }

func (e *curveElement) Equal(o Element) bool {
	oe, ok := o.(*curveElement)
	return ok && e.p.Equal(oe.p)
}
func (e *curveElement) Marshal() ([]byte, error) { return e.p.MarshalBinary() }
func (e *curveElement) String() string           { return e.p.String() }

func (s *curveScalar) Equal(o Scalar) bool {
	os, ok := o.(*curveScalar)
	return ok && s.s.Equal(os.s)
}
func (s *curveScalar) Marshal() ([]byte, error) { return s.s.MarshalBinary() }
func (s *curveScalar) BigInt() *big.Int {
	bs, _ := s.s.MarshalBinary()
	// kyber scalars marshal little-endian; reverse to get a big-endian
	// big.Int matching the rest of this package's convention.
	rev := make([]byte, len(bs))
	for i, b := range bs {
		rev[len(bs)-1-i] = b
	}
	return new(big.Int).Mod(new(big.Int).SetBytes(rev), s.order)
}
func (s *curveScalar) String() string { return s.s.String() }

func (g *CurveGroup) Name() string      { return g.name }
func (g *CurveGroup) Identity() Element { return &curveElement{g.suite.Point().Null()} }
func (g *CurveGroup) Generator() Element {
	return &curveElement{g.suite.Point().Base()}
}
func (g *CurveGroup) Order() *big.Int { return new(big.Int).Set(g.order) }

func (g *CurveGroup) RandomElement() (Element, error) {
	return &curveElement{g.suite.Point().Pick(g.suite.RandomStream())}, nil
}

func (g *CurveGroup) RandomExponent() (Scalar, error) {
	return &curveScalar{g.suite.Scalar().Pick(g.suite.RandomStream()), g.order}, nil
}

func (g *CurveGroup) toElem(a Element) kyber.Point   { return a.(*curveElement).p }
func (g *CurveGroup) toScalar(s Scalar) kyber.Scalar { return s.(*curveScalar).s }

func (g *CurveGroup) bigToScalar(x *big.Int) kyber.Scalar {
	m := new(big.Int).Mod(x, g.order)
	bs := m.Bytes()
	rev := make([]byte, len(bs))
	for i, b := range bs {
		rev[len(bs)-1-i] = b
	}
	return g.suite.Scalar().SetBytes(rev)
}

func (g *CurveGroup) Mul(a, b Element) Element {
	return &curveElement{g.suite.Point().Add(g.toElem(a), g.toElem(b))}
}

func (g *CurveGroup) Inv(a Element) Element {
	return &curveElement{g.suite.Point().Neg(g.toElem(a))}
}

func (g *CurveGroup) Exp(a Element, e Scalar) Element {
	return &curveElement{g.suite.Point().Mul(g.toScalar(e), g.toElem(a))}
}

func (g *CurveGroup) CascadeExp(a1 Element, e1 Scalar, a2 Element, e2 Scalar) Element {
	return g.Mul(g.Exp(a1, e1), g.Exp(a2, e2))
}

func (g *CurveGroup) IsElement(a Element) bool {
	ce, ok := a.(*curveElement)
	return ok && ce.p != nil
}

// BytesPerElement is the kyber point's embedding capacity, i.e.
// PointLen minus the bookkeeping kyber's own Pick/Data convention needs.
func (g *CurveGroup) BytesPerElement() int {
	return g.suite.Point().EmbedLen()
}

func (g *CurveGroup) EncodeBytes(bs []byte) (Element, error) {
	if len(bs) > g.BytesPerElement() {
		return nil, errors.Errorf("payload too long: %d > %d", len(bs), g.BytesPerElement())
	}
	p, err := retryEmbed(g.suite, bs, g.retryK)
	if err != nil {
		return nil, err
	}
	return &curveElement{p}, nil
}

// retryEmbed is the Koblitz-embedding retry loop spec §4.1 calls for:
// kyber's Point.Embed(data, stream) already performs the try-candidate-x
// internally per call, bounded by EmbedLen; we additionally retry the
// whole embed up to k times. Attempt i draws its stream from
// suite.XOF(bs || i), so the same payload always embeds to the same point.
func retryEmbed(suite *edwards25519.SuiteEd25519, bs []byte, k int) (kyber.Point, error) {
	var lastErr error
	for i := 0; i < k; i++ {
		seed := append(append([]byte(nil), bs...), byte(i>>8), byte(i))
		p := suite.Point().Embed(bs, suite.XOF(seed))
		if p != nil {
			return p, nil
		}
		lastErr = errors.New("embed returned nil point")
	}
	return nil, errors.Wrapf(lastErr, "encode_bytes: no valid point in %d tries", k)
}

func (g *CurveGroup) DecodeBytes(a Element) ([]byte, error) {
	ce, ok := a.(*curveElement)
	if !ok {
		return nil, errors.New("not a curve element")
	}
	return ce.p.Data()
}

func (g *CurveGroup) HashIntoElement(tag []byte) (Element, error) {
	return hashIntoElementCascade(g, tag)
}

func (g *CurveGroup) Marshal(a Element) ([]byte, error) { return a.Marshal() }

func (g *CurveGroup) Unmarshal(bs []byte) (Element, error) {
	p := g.suite.Point()
	if err := p.UnmarshalBinary(bs); err != nil {
		return nil, errors.Wrap(err, "unmarshal curve point")
	}
	return &curveElement{p}, nil
}

func (g *CurveGroup) NewScalar(x *big.Int) Scalar {
	return &curveScalar{g.bigToScalar(x), g.order}
}

func (g *CurveGroup) UnmarshalScalar(bs []byte) (Scalar, error) {
	s := g.suite.Scalar()
	if err := s.UnmarshalBinary(bs); err != nil {
		return nil, errors.Wrap(err, "unmarshal curve scalar")
	}
	return &curveScalar{s, g.order}, nil
}

func (g *CurveGroup) AddScalar(a, b Scalar) Scalar {
	return &curveScalar{g.suite.Scalar().Add(g.toScalar(a), g.toScalar(b)), g.order}
}
func (g *CurveGroup) SubScalar(a, b Scalar) Scalar {
	return &curveScalar{g.suite.Scalar().Sub(g.toScalar(a), g.toScalar(b)), g.order}
}
func (g *CurveGroup) MulScalar(a, b Scalar) Scalar {
	return &curveScalar{g.suite.Scalar().Mul(g.toScalar(a), g.toScalar(b)), g.order}
}
func (g *CurveGroup) NegScalar(a Scalar) Scalar {
	return &curveScalar{g.suite.Scalar().Neg(g.toScalar(a)), g.order}
}
