package group

import (
	"math/big"
	"testing"
)

// testIntegerGroup searches for a small safe prime p = 2q+1 (both prime)
// at test time, rather than hand-verifying a hardcoded constant, and
// returns the order-q subgroup of (Z/pZ)*.
func testIntegerGroup(t *testing.T) *IntegerGroup {
	t.Helper()
	var p, q *big.Int
	for candidate := int64(5); ; candidate += 2 {
		q = big.NewInt(candidate)
		if !q.ProbablyPrime(20) {
			continue
		}
		p = new(big.Int).Mul(q, big.NewInt(2))
		p.Add(p, big.NewInt(1))
		if p.ProbablyPrime(20) {
			break
		}
		if candidate > 1<<20 {
			t.Fatal("could not find a small safe prime")
		}
	}

	var gen *big.Int
	for i := int64(2); i < 1000; i++ {
		cand := big.NewInt(i)
		if cand.Cmp(p) >= 0 {
			break
		}
		if new(big.Int).Exp(cand, q, p).Cmp(big.NewInt(1)) == 0 && cand.Cmp(big.NewInt(1)) != 0 {
			gen = cand
			break
		}
	}
	if gen == nil {
		t.Fatal("could not find a subgroup generator")
	}
	g, err := NewIntegerGroup(p, q, gen)
	if err != nil {
		t.Fatalf("NewIntegerGroup: %v", err)
	}
	return g
}

func TestIntegerGroup_ExpRoundTrip(t *testing.T) {
	g := testIntegerGroup(t)
	e, err := g.RandomExponent()
	if err != nil {
		t.Fatal(err)
	}
	elem := g.Exp(g.Generator(), e)
	if !g.IsElement(elem) {
		t.Fatal("exponentiated element should be in the subgroup")
	}
}

func TestIntegerGroup_CascadeExpMatchesSequential(t *testing.T) {
	g := testIntegerGroup(t)
	e1, _ := g.RandomExponent()
	e2, _ := g.RandomExponent()
	a, _ := g.RandomElement()
	b, _ := g.RandomElement()

	got := g.CascadeExp(a, e1, b, e2)
	want := g.Mul(g.Exp(a, e1), g.Exp(b, e2))
	if !got.Equal(want) {
		t.Fatalf("CascadeExp mismatch: got %v want %v", got, want)
	}
}

func TestIntegerGroup_InvIsInverse(t *testing.T) {
	g := testIntegerGroup(t)
	a, _ := g.RandomElement()
	inv := g.Inv(a)
	id := g.Mul(a, inv)
	if !id.Equal(g.Identity()) {
		t.Fatalf("a * inv(a) should be identity, got %v", id)
	}
}

func TestIntegerGroup_ScalarArithmetic(t *testing.T) {
	g := testIntegerGroup(t)
	order := g.Order()
	a := g.NewScalar(big.NewInt(4))
	b := g.NewScalar(big.NewInt(9))
	sum := g.AddScalar(a, b)
	want := new(big.Int).Mod(big.NewInt(13), order)
	if sum.BigInt().Cmp(want) != 0 {
		t.Fatalf("AddScalar mod order wrong: got %v want %v", sum.BigInt(), want)
	}
	neg := g.NegScalar(a)
	if g.AddScalar(a, neg).BigInt().Sign() != 0 {
		t.Fatal("a + (-a) should be 0 mod order")
	}
}

func TestIntegerGroup_UnmarshalRejectsNonElement(t *testing.T) {
	g := testIntegerGroup(t)
	// p itself is never a valid element (it's 0 mod p).
	_, err := g.Unmarshal(g.p.Bytes())
	if err == nil {
		t.Fatal("expected an error unmarshalling a non-element")
	}
}
