package xortest

import (
	"bytes"
	"testing"

	"github.com/henrycg/Dissent/group"
	"github.com/henrycg/Dissent/keys"
	"github.com/henrycg/Dissent/params"
	"github.com/henrycg/Dissent/slotcrypto"
)

func TestXorTest_RoundTrip(t *testing.T) {
	n := 3
	g := group.NewXorGroup(8)
	p := &params.Parameters{KeyGroup: g, MessageGroup: g, N: n}
	cfg := slotcrypto.Config{Params: p}

	payload := bytes.Repeat([]byte{0xAA}, keys.MaxPlaintextLen(n, g.BytesPerElement()))
	m, err := keys.EncodePlaintext(g, n, 3, payload)
	if err != nil {
		t.Fatal(err)
	}

	author := NewAuthor(cfg)
	authorCt, err := author.GenAuthor(m)
	if err != nil {
		t.Fatal(err)
	}
	cover := NewCoverClient(cfg)
	coverCt, err := cover.GenCover()
	if err != nil {
		t.Fatal(err)
	}

	bs := NewBinServer(cfg)
	for _, ct := range []*slotcrypto.Ciphertext{authorCt, coverCt} {
		ok, err := bs.VerifyClient(ct)
		if err != nil || !ok {
			t.Fatalf("VerifyClient: ok=%v err=%v", ok, err)
		}
		if err := bs.AddClientCt(ct); err != nil {
			t.Fatal(err)
		}
	}
	if err := bs.CloseBin(); err != nil {
		t.Fatal(err)
	}
	nextN, remainder, err := bs.RevealPlaintext()
	if err != nil {
		t.Fatal(err)
	}
	if nextN != 3 || !bytes.Equal(remainder, payload) {
		t.Fatalf("round trip mismatch: nextN=%d remainder=%x", nextN, remainder)
	}
}
