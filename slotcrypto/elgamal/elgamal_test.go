package elgamal

import (
	"bytes"
	"testing"

	"github.com/henrycg/Dissent/group"
	"github.com/henrycg/Dissent/keys"
	"github.com/henrycg/Dissent/params"
	"github.com/henrycg/Dissent/slotcrypto"
)

func setup(t *testing.T, nServers, n int) (g group.Group, serverKPs []*keys.KeyPair, serverPubs []group.Element, slotKP *keys.KeyPair, cfg slotcrypto.Config) {
	t.Helper()
	g = group.NewCurveGroup()
	for i := 0; i < nServers; i++ {
		kp, err := keys.Generate(g)
		if err != nil {
			t.Fatal(err)
		}
		serverKPs = append(serverKPs, kp)
		serverPubs = append(serverPubs, kp.Public)
	}
	slotKP, err := keys.Generate(g)
	if err != nil {
		t.Fatal(err)
	}
	p := &params.Parameters{KeyGroup: g, MessageGroup: g, N: n}
	cfg = slotcrypto.Config{
		Params:     p,
		ServerKeys: serverPubs,
		SlotPub:    slotKP.Public,
		Context:    []byte("round-1|slot-3"),
	}
	return g, serverKPs, serverPubs, slotKP, cfg
}

func TestElGamal_RoundTrip_AuthorAndCoverReveal(t *testing.T) {
	nServers, nClients, n := 3, 4, 2
	g, serverKPs, _, slotKP, cfg := setup(t, nServers, n)

	bpe := g.BytesPerElement()
	capacity := keys.MaxPlaintextLen(n, bpe)
	payload := bytes.Repeat([]byte{0x42}, capacity)
	m, err := keys.EncodePlaintext(g, n, 7, payload)
	if err != nil {
		t.Fatal(err)
	}

	author := NewAuthor(cfg, slotKP.Secret)
	authorCt, err := author.GenAuthor(m)
	if err != nil {
		t.Fatalf("GenAuthor: %v", err)
	}

	var clientCts []*slotcrypto.Ciphertext
	clientCts = append(clientCts, authorCt)
	for i := 0; i < nClients-1; i++ {
		cover := NewCoverClient(cfg)
		ct, err := cover.GenCover()
		if err != nil {
			t.Fatalf("GenCover: %v", err)
		}
		clientCts = append(clientCts, ct)
	}

	var servers []*BinServer
	for _, skp := range serverKPs {
		servers = append(servers, NewBinServer(cfg, skp.Secret))
	}

	for _, bs := range servers {
		for _, ct := range clientCts {
			ok, err := bs.VerifyClient(ct)
			if err != nil {
				t.Fatalf("VerifyClient: %v", err)
			}
			if !ok {
				t.Fatal("honest client ciphertext failed verification")
			}
			if err := bs.AddClientCt(ct); err != nil {
				t.Fatalf("AddClientCt: %v", err)
			}
		}
	}

	var serverCts []*slotcrypto.ServerCiphertext
	for _, bs := range servers {
		sct, err := bs.GenServerCt()
		if err != nil {
			t.Fatalf("GenServerCt: %v", err)
		}
		serverCts = append(serverCts, sct)
	}

	for _, bs := range servers {
		for _, sct := range serverCts {
			if err := bs.AddServerCt(sct); err != nil {
				t.Fatalf("AddServerCt: %v", err)
			}
		}
		if err := bs.CloseBin(); err != nil {
			t.Fatalf("CloseBin: %v", err)
		}
	}

	for _, bs := range servers {
		nextN, remainder, err := bs.RevealPlaintext()
		if err != nil {
			t.Fatalf("RevealPlaintext: %v", err)
		}
		if nextN != 7 {
			t.Fatalf("expected nextN=7, got %d", nextN)
		}
		if !bytes.Equal(remainder, payload) {
			t.Fatalf("revealed payload mismatch: got %x want %x", remainder, payload)
		}
	}
}

func TestElGamal_VerifyClient_RejectsTamperedCiphertext(t *testing.T) {
	nServers, n := 2, 2
	g, serverKPs, _, _, cfg := setup(t, nServers, n)

	cover := NewCoverClient(cfg)
	ct, err := cover.GenCover()
	if err != nil {
		t.Fatal(err)
	}
	// Tamper with one element position; the shared-response construction
	// should make this detectable even though the proof only names
	// elements[0] in the old (unextended) scheme — here every position
	// is bound.
	other, err := g.RandomElement()
	if err != nil {
		t.Fatal(err)
	}
	ct.Elements[1] = other

	bs := NewBinServer(cfg, serverKPs[0].Secret)
	ok, err := bs.VerifyClient(ct)
	if err != nil {
		t.Fatalf("VerifyClient: %v", err)
	}
	if ok {
		t.Fatal("tampered cover ciphertext must not verify")
	}
}

func TestElGamal_AuthorProof_HonestAuthorVerifies(t *testing.T) {
	nServers, n := 2, 1
	g, serverKPs, _, slotKP, cfg := setup(t, nServers, n)

	m, err := keys.EncodePlaintext(g, n, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	author := NewAuthor(cfg, slotKP.Secret)
	ct, err := author.GenAuthor(m)
	if err != nil {
		t.Fatal(err)
	}

	bs := NewBinServer(cfg, serverKPs[0].Secret)
	ok, err := bs.VerifyClient(ct)
	if err != nil {
		t.Fatalf("VerifyClient: %v", err)
	}
	if !ok {
		t.Fatal("honest author ciphertext must verify")
	}
}

func TestElGamal_VerifyClient_WrongSlotKey(t *testing.T) {
	nServers, n := 2, 1
	g, serverKPs, _, _, cfg := setup(t, nServers, n)

	wrongSlotKP, err := keys.Generate(g)
	if err != nil {
		t.Fatal(err)
	}
	author := NewAuthor(cfg, wrongSlotKP.Secret) // claims ownership without matching cfg.SlotPub
	m, err := keys.EncodePlaintext(g, n, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	ct, err := author.GenAuthor(m)
	if err != nil {
		t.Fatal(err)
	}

	bs := NewBinServer(cfg, serverKPs[0].Secret)
	ok, err := bs.VerifyClient(ct)
	if err != nil {
		t.Fatalf("VerifyClient: %v", err)
	}
	if ok {
		t.Fatal("an author ciphertext signed with the wrong slot secret must not verify")
	}
}
