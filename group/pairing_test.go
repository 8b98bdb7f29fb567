package group

import "testing"

func TestPairingGroup_Bilinearity(t *testing.T) {
	g := NewPairingGroup()
	a, err := g.RandomExponent()
	if err != nil {
		t.Fatal(err)
	}
	b, err := g.G2().RandomExponent()
	if err != nil {
		t.Fatal(err)
	}

	p1 := g.Exp(g.Generator(), a)
	p2 := g.G2().Exp(g.G2().Generator(), b)

	lhs := g.ApplyPairing(p1, p2)

	// e(g^a, g2^b) should equal e(g,g2)^(a*b).
	base := g.ApplyPairing(g.Generator(), g.G2().Generator())
	ab := g.MulScalar(a, b)
	rhs := g.GT().Exp(base, ab)

	if !lhs.Equal(rhs) {
		t.Fatal("pairing should be bilinear: e(g^a,g2^b) != e(g,g2)^(ab)")
	}
}
