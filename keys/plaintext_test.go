package keys

import (
	"bytes"
	"testing"

	"github.com/henrycg/Dissent/group"
)

func TestPlaintext_EncodeDecodeRoundTrip(t *testing.T) {
	g := group.NewCurveGroup()
	n := 3
	capacity := MaxPlaintextLen(n, g.BytesPerElement())
	payload := bytes.Repeat([]byte{0x07}, capacity)

	elems, err := EncodePlaintext(g, n, 5, payload)
	if err != nil {
		t.Fatalf("EncodePlaintext: %v", err)
	}
	if len(elems) != n {
		t.Fatalf("expected %d elements, got %d", n, len(elems))
	}

	nextN, remainder, err := DecodePlaintext(g, elems)
	if err != nil {
		t.Fatalf("DecodePlaintext: %v", err)
	}
	if nextN != 5 {
		t.Fatalf("expected nextN=5, got %d", nextN)
	}
	if !bytes.Equal(remainder, payload) {
		t.Fatalf("round trip mismatch: got %x want %x", remainder, payload)
	}
}

func TestPlaintext_RejectsOversizePayload(t *testing.T) {
	g := group.NewCurveGroup()
	n := 1
	capacity := MaxPlaintextLen(n, g.BytesPerElement())
	oversize := bytes.Repeat([]byte{0x01}, capacity+1)
	if _, err := EncodePlaintext(g, n, 0, oversize); err == nil {
		t.Fatal("expected an error for an over-capacity payload")
	}
}

func TestAggregatePublicKeys(t *testing.T) {
	g := group.NewCurveGroup()
	var pks []group.Element
	product := g.Identity()
	for i := 0; i < 4; i++ {
		kp, err := Generate(g)
		if err != nil {
			t.Fatal(err)
		}
		pks = append(pks, kp.Public)
		product = g.Mul(product, kp.Public)
	}
	agg := AggregatePublicKeys(g, pks)
	if !agg.Equal(product) {
		t.Fatal("AggregatePublicKeys should equal the sequential product")
	}
}
