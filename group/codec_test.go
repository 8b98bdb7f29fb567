package group

import (
	"bytes"
	"math/big"
	"testing"
)

// testIntegerGroupLarge is like testIntegerGroup but searches from a
// larger starting point so BytesPerElement leaves room for a real
// payload, needed to exercise EncodeBytes/DecodeBytes.
func testIntegerGroupLarge(t *testing.T) *IntegerGroup {
	t.Helper()
	start := int64(1) << 40
	var p, q *big.Int
	for candidate := start + 1; ; candidate += 2 {
		q = big.NewInt(candidate)
		if !q.ProbablyPrime(20) {
			continue
		}
		p = new(big.Int).Mul(q, big.NewInt(2))
		p.Add(p, big.NewInt(1))
		if p.ProbablyPrime(20) {
			break
		}
		if candidate > start+(1<<20) {
			t.Fatal("could not find a safe prime in range")
		}
	}
	var gen *big.Int
	for i := int64(2); i < 1000; i++ {
		cand := big.NewInt(i)
		if new(big.Int).Exp(cand, q, p).Cmp(big.NewInt(1)) == 0 {
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

func TestIntegerGroup_EncodeDecodeRoundTrip(t *testing.T) {
	g := testIntegerGroupLarge(t)
	max := g.BytesPerElement()
	if max <= 0 {
		t.Fatalf("expected positive BytesPerElement, got %d", max)
	}
	payloads := [][]byte{
		{},
		{0x01},
		bytes.Repeat([]byte{0xAB}, max),
	}
	for _, payload := range payloads {
		elem, err := g.EncodeBytes(payload)
		if err != nil {
			t.Fatalf("EncodeBytes(%d bytes): %v", len(payload), err)
		}
		if !g.IsElement(elem) {
			t.Fatalf("encoded element not in subgroup for payload len %d", len(payload))
		}
		got, err := g.DecodeBytes(elem)
		if err != nil {
			t.Fatalf("DecodeBytes: %v", err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("round trip mismatch: got %x want %x", got, payload)
		}
	}
}

func TestIntegerGroup_EncodeBytesRejectsOversizePayload(t *testing.T) {
	g := testIntegerGroupLarge(t)
	oversize := bytes.Repeat([]byte{0x01}, g.BytesPerElement()+1)
	if _, err := g.EncodeBytes(oversize); err == nil {
		t.Fatal("expected an error for an oversized payload")
	}
}

func TestIntegerGroup_HashIntoElementIsDeterministic(t *testing.T) {
	g := testIntegerGroupLarge(t)
	a, err := g.HashIntoElement([]byte("pair-42"))
	if err != nil {
		t.Fatalf("HashIntoElement: %v", err)
	}
	b, err := g.HashIntoElement([]byte("pair-42"))
	if err != nil {
		t.Fatalf("HashIntoElement: %v", err)
	}
	if !a.Equal(b) {
		t.Fatal("hash_into_element should be deterministic for the same tag")
	}
	c, _ := g.HashIntoElement([]byte("pair-43"))
	if a.Equal(c) {
		t.Fatal("different tags should (almost always) hash to different elements")
	}
}
