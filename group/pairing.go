package group

import (
	"math/big"

	"github.com/pkg/errors"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/pairing/bn256"
	"go.dedis.ch/kyber/v3/util/random"
)

// genericKyberGroup adapts any kyber.Group (G1, G2, or GT) to our Group
// interface. CurveGroup above specializes edwards25519 directly because
// it needs SuiteEd25519's RandomStream/Embed; genericKyberGroup is the
// thinner wrapper bn256's three groups share, grounded the same way
// (davidLeeeeeeeeeeee-dex's utils/bls.go: bn256.NewSuite(), suite.Pair).
type genericKyberGroup struct {
	name  string
	group kyber.Group
	order *big.Int
}

type genericElement struct{ p kyber.Point }
type genericScalar struct {
	s     kyber.Scalar
	order *big.Int
}

func (e *genericElement) Equal(o Element) bool {
	oe, ok := o.(*genericElement)
	return ok && e.p.Equal(oe.p)
}
func (e *genericElement) Marshal() ([]byte, error) { return e.p.MarshalBinary() }
func (e *genericElement) String() string           { return e.p.String() }

func (s *genericScalar) Equal(o Scalar) bool {
	os, ok := o.(*genericScalar)
	return ok && s.s.Equal(os.s)
}
func (s *genericScalar) Marshal() ([]byte, error) { return s.s.MarshalBinary() }
func (s *genericScalar) BigInt() *big.Int {
	bs, _ := s.s.MarshalBinary()
	rev := make([]byte, len(bs))
	for i, b := range bs {
		rev[len(bs)-1-i] = b
	}
	return new(big.Int).Mod(new(big.Int).SetBytes(rev), s.order)
}
func (s *genericScalar) String() string { return s.s.String() }

func (g *genericKyberGroup) Name() string      { return g.name }
func (g *genericKyberGroup) Identity() Element { return &genericElement{g.group.Point().Null()} }
func (g *genericKyberGroup) Generator() Element {
	return &genericElement{g.group.Point().Base()}
}
func (g *genericKyberGroup) Order() *big.Int { return new(big.Int).Set(g.order) }

func (g *genericKyberGroup) RandomElement() (Element, error) {
	return &genericElement{g.group.Point().Pick(random.New())}, nil
}
func (g *genericKyberGroup) RandomExponent() (Scalar, error) {
	return &genericScalar{g.group.Scalar().Pick(random.New()), g.order}, nil
}

func (g *genericKyberGroup) toElem(a Element) kyber.Point   { return a.(*genericElement).p }
func (g *genericKyberGroup) toScalar(s Scalar) kyber.Scalar { return s.(*genericScalar).s }

func (g *genericKyberGroup) bigToScalar(x *big.Int) kyber.Scalar {
	m := new(big.Int).Mod(x, g.order)
	bs := m.Bytes()
	rev := make([]byte, len(bs))
	for i, b := range bs {
		rev[len(bs)-1-i] = b
	}
	return g.group.Scalar().SetBytes(rev)
}

func (g *genericKyberGroup) Mul(a, b Element) Element {
	return &genericElement{g.group.Point().Add(g.toElem(a), g.toElem(b))}
}
func (g *genericKyberGroup) Inv(a Element) Element {
	return &genericElement{g.group.Point().Neg(g.toElem(a))}
}
func (g *genericKyberGroup) Exp(a Element, e Scalar) Element {
	return &genericElement{g.group.Point().Mul(g.toScalar(e), g.toElem(a))}
}
func (g *genericKyberGroup) CascadeExp(a1 Element, e1 Scalar, a2 Element, e2 Scalar) Element {
	return g.Mul(g.Exp(a1, e1), g.Exp(a2, e2))
}
func (g *genericKyberGroup) IsElement(a Element) bool {
	ge, ok := a.(*genericElement)
	return ok && ge.p != nil
}

// BytesPerElement: the pairing groups' embedding capacity is small (or,
// for GT, effectively unused by this module — GT elements only ever
// carry a revealed plaintext that was encoded in G1/G2 before pairing).
func (g *genericKyberGroup) BytesPerElement() int {
	if n := g.group.Point().EmbedLen(); n > 0 {
		return n
	}
	return 0
}

// EncodeBytes embeds with a fresh random.New() stream on every call, so
// the same payload does not always yield the same element (and
// HashIntoElement on these groups is not deterministic either).
func (g *genericKyberGroup) EncodeBytes(bs []byte) (Element, error) {
	max := g.BytesPerElement()
	if max == 0 {
		return nil, errors.Errorf("%s does not support byte embedding", g.name)
	}
	if len(bs) > max {
		return nil, errors.Errorf("payload too long: %d > %d", len(bs), max)
	}
	p := g.group.Point().Embed(bs, random.New())
	if p == nil {
		return nil, errors.New("embed returned nil point")
	}
	return &genericElement{p}, nil
}

func (g *genericKyberGroup) DecodeBytes(a Element) ([]byte, error) {
	ge, ok := a.(*genericElement)
	if !ok {
		return nil, errors.New("not an element of this group")
	}
	return ge.p.Data()
}

func (g *genericKyberGroup) HashIntoElement(tag []byte) (Element, error) {
	return hashIntoElementCascade(g, tag)
}

func (g *genericKyberGroup) Marshal(a Element) ([]byte, error) { return a.Marshal() }
func (g *genericKyberGroup) Unmarshal(bs []byte) (Element, error) {
	p := g.group.Point()
	if err := p.UnmarshalBinary(bs); err != nil {
		return nil, errors.Wrap(err, "unmarshal pairing element")
	}
	return &genericElement{p}, nil
}
func (g *genericKyberGroup) NewScalar(x *big.Int) Scalar {
	return &genericScalar{g.bigToScalar(x), g.order}
}
func (g *genericKyberGroup) UnmarshalScalar(bs []byte) (Scalar, error) {
	s := g.group.Scalar()
	if err := s.UnmarshalBinary(bs); err != nil {
		return nil, errors.Wrap(err, "unmarshal pairing scalar")
	}
	return &genericScalar{s, g.order}, nil
}
func (g *genericKyberGroup) AddScalar(a, b Scalar) Scalar {
	return &genericScalar{g.group.Scalar().Add(g.toScalar(a), g.toScalar(b)), g.order}
}
func (g *genericKyberGroup) SubScalar(a, b Scalar) Scalar {
	return &genericScalar{g.group.Scalar().Sub(g.toScalar(a), g.toScalar(b)), g.order}
}
func (g *genericKyberGroup) MulScalar(a, b Scalar) Scalar {
	return &genericScalar{g.group.Scalar().Mul(g.toScalar(a), g.toScalar(b)), g.order}
}
func (g *genericKyberGroup) NegScalar(a Scalar) Scalar {
	return &genericScalar{g.group.Scalar().Neg(g.toScalar(a)), g.order}
}

// PairingGroup is the bilinear-pairing variant: G (≡G1) and G2 carry the
// client/server exponentiations, GT is the pairing target spec §4.1's
// apply_pairing lands in. Grounded on davidLeeeeeeeeeeee-dex's
// utils/bls.go (bn256.NewSuite(), suite.Pair(...)).
type PairingGroup struct {
	suite pairingSuite
	g1    *genericKyberGroup
	g2    *genericKyberGroup
	gt    *genericKyberGroup
	order *big.Int
}

// pairingSuite is the slice of kyber's pairing.Suite this module needs;
// named locally so tests can stub it without dragging in bn256's DKG
// helpers.
type pairingSuite interface {
	G1() kyber.Group
	G2() kyber.Group
	GT() kyber.Group
	Pair(p1, p2 kyber.Point) kyber.Point
}

// NewPairingGroup constructs the BN256-backed pairing variant.
func NewPairingGroup() *PairingGroup {
	suite := bn256.NewSuite()
	order := suite.G1().(interface{ Order() *big.Int })
	_ = order
	ord := bn256Order()
	return &PairingGroup{
		suite: suite,
		g1:    &genericKyberGroup{name: "bn256.G1", group: suite.G1(), order: ord},
		g2:    &genericKyberGroup{name: "bn256.G2", group: suite.G2(), order: ord},
		gt:    &genericKyberGroup{name: "bn256.GT", group: suite.GT(), order: ord},
		order: ord,
	}
}

// bn256Order is the BN256 curve's group order, the standard constant
// used throughout the pairing-crypto ecosystem (e.g. go-ethereum's
// bn256 package).
func bn256Order() *big.Int {
	n, _ := new(big.Int).SetString("21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)
	return n
}

func (g *PairingGroup) Name() string                { return g.g1.Name() }
func (g *PairingGroup) Identity() Element           { return g.g1.Identity() }
func (g *PairingGroup) Generator() Element          { return g.g1.Generator() }
func (g *PairingGroup) Order() *big.Int             { return g.g1.Order() }
func (g *PairingGroup) RandomElement() (Element, error)  { return g.g1.RandomElement() }
func (g *PairingGroup) RandomExponent() (Scalar, error)  { return g.g1.RandomExponent() }
func (g *PairingGroup) Mul(a, b Element) Element         { return g.g1.Mul(a, b) }
func (g *PairingGroup) Inv(a Element) Element            { return g.g1.Inv(a) }
func (g *PairingGroup) Exp(a Element, e Scalar) Element   { return g.g1.Exp(a, e) }
func (g *PairingGroup) CascadeExp(a1 Element, e1 Scalar, a2 Element, e2 Scalar) Element {
	return g.g1.CascadeExp(a1, e1, a2, e2)
}
func (g *PairingGroup) IsElement(a Element) bool             { return g.g1.IsElement(a) }
func (g *PairingGroup) BytesPerElement() int                 { return g.g1.BytesPerElement() }
func (g *PairingGroup) EncodeBytes(bs []byte) (Element, error) { return g.g1.EncodeBytes(bs) }
func (g *PairingGroup) DecodeBytes(a Element) ([]byte, error)  { return g.g1.DecodeBytes(a) }
func (g *PairingGroup) HashIntoElement(tag []byte) (Element, error) {
	return g.g1.HashIntoElement(tag)
}
func (g *PairingGroup) Marshal(a Element) ([]byte, error)    { return g.g1.Marshal(a) }
func (g *PairingGroup) Unmarshal(bs []byte) (Element, error) { return g.g1.Unmarshal(bs) }
func (g *PairingGroup) NewScalar(x *big.Int) Scalar          { return g.g1.NewScalar(x) }
func (g *PairingGroup) UnmarshalScalar(bs []byte) (Scalar, error) {
	return g.g1.UnmarshalScalar(bs)
}
func (g *PairingGroup) AddScalar(a, b Scalar) Scalar { return g.g1.AddScalar(a, b) }
func (g *PairingGroup) SubScalar(a, b Scalar) Scalar { return g.g1.SubScalar(a, b) }
func (g *PairingGroup) MulScalar(a, b Scalar) Scalar { return g.g1.MulScalar(a, b) }
func (g *PairingGroup) NegScalar(a Scalar) Scalar    { return g.g1.NegScalar(a) }

func (g *PairingGroup) G2() Group { return g.g2 }
func (g *PairingGroup) GT() Group { return g.gt }

// ApplyPairing computes e(a,b) with a in G1, b in G2, landing in GT —
// spec §4.1's apply_pairing.
func (g *PairingGroup) ApplyPairing(a, b Element) Element {
	ae := a.(*genericElement).p
	be := b.(*genericElement).p
	return &genericElement{g.suite.Pair(ae, be)}
}
