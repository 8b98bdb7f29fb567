package params

import (
	"testing"

	"github.com/henrycg/Dissent/group"
)

func TestParameters_CloneIsIndependent(t *testing.T) {
	g := group.NewCurveGroup()
	p := &Parameters{
		Variant:      group.ElGamal,
		RoundNonce:   []byte("round-1"),
		KeyGroup:     g,
		MessageGroup: g,
		N:            4,
		MaxElements:  DefaultMaxElements,
		RetryK:       group.DefaultRetryK,
	}
	clone := p.Clone()
	clone.N = 99
	clone.RoundNonce[0] = 'X'

	if p.N != 4 {
		t.Fatalf("mutating the clone's N should not affect the original, got %d", p.N)
	}
	if p.RoundNonce[0] == 'X' {
		t.Fatal("clone's RoundNonce must not alias the original's backing array")
	}
	if clone.KeyGroup != p.KeyGroup {
		t.Fatal("clone should share the read-only group engine pointer")
	}
}

func TestParseVariant(t *testing.T) {
	cases := map[string]group.Variant{
		"elgamal":           group.ElGamal,
		"":                  group.ElGamal,
		"pairing":           group.Pairing,
		"hashing-generator": group.HashingGenerator,
		"xor-testing":       group.XorTesting,
	}
	for in, want := range cases {
		got, err := parseVariant(in)
		if err != nil {
			t.Fatalf("parseVariant(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("parseVariant(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := parseVariant("bogus"); err == nil {
		t.Fatal("expected an error for an unknown variant")
	}
}
