package keys

import (
	"testing"

	"github.com/henrycg/Dissent/group"
)

func TestSchnorrProof_CompleteAndSound(t *testing.T) {
	g := group.NewCurveGroup()
	kp, err := Generate(g)
	if err != nil {
		t.Fatal(err)
	}
	context := []byte("round-7|server-3")

	proof, err := ProveKnowledge(g, context, kp)
	if err != nil {
		t.Fatalf("ProveKnowledge: %v", err)
	}

	ok, err := VerifyKnowledge(g, context, kp.Public, proof)
	if err != nil {
		t.Fatalf("VerifyKnowledge: %v", err)
	}
	if !ok {
		t.Fatal("an honestly generated proof must verify (completeness)")
	}

	// Soundness: a proof for a different context must not verify.
	ok, err = VerifyKnowledge(g, []byte("different-context"), kp.Public, proof)
	if err != nil {
		t.Fatalf("VerifyKnowledge: %v", err)
	}
	if ok {
		t.Fatal("a proof bound to a different context must not verify")
	}

	// Soundness: a proof for a different public key must not verify.
	other, _ := Generate(g)
	ok, err = VerifyKnowledge(g, context, other.Public, proof)
	if err != nil {
		t.Fatalf("VerifyKnowledge: %v", err)
	}
	if ok {
		t.Fatal("a proof must not verify against an unrelated public key")
	}
}

func TestKeyPair_Valid(t *testing.T) {
	g := group.NewCurveGroup()
	kp, err := Generate(g)
	if err != nil {
		t.Fatal(err)
	}
	if !kp.Valid(g) {
		t.Fatal("freshly generated key pair should satisfy pk == G^sk")
	}
	kp.Public = g.Identity()
	if kp.Valid(g) {
		t.Fatal("tampering with the public key should break validity")
	}
}
