package wire

import (
	"crypto/ed25519"
	"testing"

	"github.com/henrycg/Dissent/peer"
)

func TestMarshalUnmarshal_RoundTrip(t *testing.T) {
	body := ClientCiphertextBody{SlotCiphertexts: [][]byte{{1, 2, 3}, {4, 5}}}
	bs, err := Marshal(&body)
	if err != nil {
		t.Fatal(err)
	}
	var out ClientCiphertextBody
	if err := Unmarshal(bs, &out); err != nil {
		t.Fatal(err)
	}
	if len(out.SlotCiphertexts) != 2 || len(out.SlotCiphertexts[0]) != 3 {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

func TestSortClientEntries_Canonical(t *testing.T) {
	entries := []ClientEntry{
		{ClientID: peer.ID{0x03}},
		{ClientID: peer.ID{0x01}},
		{ClientID: peer.ID{0x02}},
	}
	SortClientEntries(entries)
	for i := 0; i < len(entries)-1; i++ {
		if entries[i].ClientID[0] > entries[i+1].ClientID[0] {
			t.Fatalf("entries not sorted: %+v", entries)
		}
	}
}

func TestSealVerify(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	kp := &peer.SigningKeyPair{ID: peer.ID{1}, Public: pub, Private: priv}
	ident := peer.Identity{ID: peer.ID{1}, VerifyKey: pub}

	env := &Envelope{Type: TypeClientCiphertext, RoundID: 7, Phase: 2, Body: []byte("hello")}
	Seal(env, kp)
	if !Verify(env, ident) {
		t.Fatal("expected a freshly sealed envelope to verify")
	}
	env.Body = []byte("tampered")
	if Verify(env, ident) {
		t.Fatal("tampering with the body should break verification")
	}
}
