package group

import (
	"bytes"
	"testing"
)

func TestCurveGroup_ExpAndCascade(t *testing.T) {
	g := NewCurveGroup()
	e1, err := g.RandomExponent()
	if err != nil {
		t.Fatal(err)
	}
	e2, err := g.RandomExponent()
	if err != nil {
		t.Fatal(err)
	}
	a, _ := g.RandomElement()
	b, _ := g.RandomElement()

	got := g.CascadeExp(a, e1, b, e2)
	want := g.Mul(g.Exp(a, e1), g.Exp(b, e2))
	if !got.Equal(want) {
		t.Fatal("CascadeExp should match sequential Mul(Exp,Exp)")
	}
}

func TestCurveGroup_MarshalUnmarshalRoundTrip(t *testing.T) {
	g := NewCurveGroup()
	a, _ := g.RandomElement()
	bs, err := g.Marshal(a)
	if err != nil {
		t.Fatal(err)
	}
	back, err := g.Unmarshal(bs)
	if err != nil {
		t.Fatal(err)
	}
	if !a.Equal(back) {
		t.Fatal("marshal/unmarshal round trip should preserve the element")
	}
}

func TestCurveGroup_EncodeDecodeRoundTrip(t *testing.T) {
	g := NewCurveGroup()
	payload := bytes.Repeat([]byte{0x42}, g.BytesPerElement())
	elem, err := g.EncodeBytes(payload)
	if err != nil {
		t.Fatalf("EncodeBytes: %v", err)
	}
	got, err := g.DecodeBytes(elem)
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("round trip mismatch: got %x want %x", got, payload)
	}
}

func TestCurveGroup_InvIsInverse(t *testing.T) {
	g := NewCurveGroup()
	a, _ := g.RandomElement()
	id := g.Mul(a, g.Inv(a))
	if !id.Equal(g.Identity()) {
		t.Fatal("a * inv(a) should be the identity")
	}
}
