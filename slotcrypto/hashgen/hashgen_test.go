package hashgen

import (
	"bytes"
	"testing"

	"github.com/henrycg/Dissent/group"
)

func TestPairGenerator_DeterministicAndDistinct(t *testing.T) {
	g := group.NewCurveGroup()
	a, err := PairGenerator(g, []byte("client-1"), []byte("server-1"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := PairGenerator(g, []byte("client-1"), []byte("server-1"))
	if err != nil {
		t.Fatal(err)
	}
	if !a.Equal(b) {
		t.Fatal("PairGenerator must be deterministic")
	}
	c, err := PairGenerator(g, []byte("client-1"), []byte("server-2"))
	if err != nil {
		t.Fatal(err)
	}
	if a.Equal(c) {
		t.Fatal("different server id should yield a different generator")
	}
}

func TestMasterSecret_DeterministicAndBoundToNonce(t *testing.T) {
	g := group.NewCurveGroup()
	shared, err := g.RandomElement()
	if err != nil {
		t.Fatal(err)
	}
	s1, err := MasterSecret(shared, []byte("round-1"), 32)
	if err != nil {
		t.Fatal(err)
	}
	s2, err := MasterSecret(shared, []byte("round-1"), 32)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(s1, s2) {
		t.Fatal("MasterSecret must be deterministic for the same inputs")
	}
	s3, err := MasterSecret(shared, []byte("round-2"), 32)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(s1, s3) {
		t.Fatal("different round nonce should yield a different master secret")
	}
}
