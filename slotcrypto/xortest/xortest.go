// Package xortest implements the SlotCrypto interface for the
// XorTesting variant (spec §4.3/§9): a non-cryptographic mode that
// XOR-combines ciphertexts instead of exponentiating in a group, so the
// rest of the protocol (phase machine, orchestrator, lifecycle) can be
// exercised in tests without paying for real group arithmetic. There is
// no disjunction proof in this variant: BinServer.VerifyClient only
// checks that a ciphertext has N elements.
package xortest

import (
	"github.com/pkg/errors"
	"github.com/henrycg/Dissent/group"
	"github.com/henrycg/Dissent/keys"
	"github.com/henrycg/Dissent/slotcrypto"
)

// Author is the XorTesting author engine.
type Author struct {
	g group.Group
	n int
}

// NewAuthor constructs an author engine for the XorTesting variant.
func NewAuthor(cfg slotcrypto.Config) *Author {
	return &Author{g: cfg.Params.MessageGroup, n: cfg.Params.N}
}

// GenAuthor implements slotcrypto.SlotCrypto: the message is the
// ciphertext outright, since there is no masking to undo.
func (a *Author) GenAuthor(m []group.Element) (*slotcrypto.Ciphertext, error) {
	if len(m) != a.n {
		return nil, errors.Errorf("author message has %d elements, slot wants %d", len(m), a.n)
	}
	return &slotcrypto.Ciphertext{OneTimePub: a.g.Identity(), Elements: m}, nil
}

func (a *Author) GenCover() (*slotcrypto.Ciphertext, error) { return nil, slotcrypto.ErrWrongRole }
func (a *Author) VerifyClient(*slotcrypto.Ciphertext) (bool, error) {
	return false, slotcrypto.ErrWrongRole
}
func (a *Author) AddClientCt(*slotcrypto.Ciphertext) error        { return slotcrypto.ErrWrongRole }
func (a *Author) AddServerCt(*slotcrypto.ServerCiphertext) error  { return slotcrypto.ErrWrongRole }
func (a *Author) GenServerCt() (*slotcrypto.ServerCiphertext, error) {
	return nil, slotcrypto.ErrWrongRole
}
func (a *Author) CloseBin() error { return slotcrypto.ErrWrongRole }
func (a *Author) RevealPlaintext() (uint32, []byte, error) {
	return 0, nil, slotcrypto.ErrWrongRole
}
func (a *Author) NextPhase()         {}
func (a *Author) ClearBin()          {}
func (a *Author) SetNElements(n int) { a.n = n }

// CoverClient is the XorTesting cover engine: it emits the group
// identity (the XOR zero string) in every position, which is a no-op
// contribution once accumulated.
type CoverClient struct {
	g group.Group
	n int
}

// NewCoverClient constructs a cover engine for the XorTesting variant.
func NewCoverClient(cfg slotcrypto.Config) *CoverClient {
	return &CoverClient{g: cfg.Params.MessageGroup, n: cfg.Params.N}
}

func (c *CoverClient) GenCover() (*slotcrypto.Ciphertext, error) {
	elements := make([]group.Element, c.n)
	for j := range elements {
		elements[j] = c.g.Identity()
	}
	return &slotcrypto.Ciphertext{OneTimePub: c.g.Identity(), Elements: elements}, nil
}

func (c *CoverClient) GenAuthor([]group.Element) (*slotcrypto.Ciphertext, error) {
	return nil, slotcrypto.ErrWrongRole
}
func (c *CoverClient) VerifyClient(*slotcrypto.Ciphertext) (bool, error) {
	return false, slotcrypto.ErrWrongRole
}
func (c *CoverClient) AddClientCt(*slotcrypto.Ciphertext) error       { return slotcrypto.ErrWrongRole }
func (c *CoverClient) AddServerCt(*slotcrypto.ServerCiphertext) error { return slotcrypto.ErrWrongRole }
func (c *CoverClient) GenServerCt() (*slotcrypto.ServerCiphertext, error) {
	return nil, slotcrypto.ErrWrongRole
}
func (c *CoverClient) CloseBin() error { return slotcrypto.ErrWrongRole }
func (c *CoverClient) RevealPlaintext() (uint32, []byte, error) {
	return 0, nil, slotcrypto.ErrWrongRole
}
func (c *CoverClient) NextPhase()         {}
func (c *CoverClient) ClearBin()          {}
func (c *CoverClient) SetNElements(n int) { c.n = n }

// BinServer accumulates by XOR and accepts any client ciphertext with N
// elements: there is no proof to check in this variant.
type BinServer struct {
	g      group.Group
	n      int
	accum  []group.Element
	closed bool
}

// NewBinServer constructs a bin server engine for the XorTesting variant.
func NewBinServer(cfg slotcrypto.Config) *BinServer {
	g := cfg.Params.MessageGroup
	n := cfg.Params.N
	accum := make([]group.Element, n)
	for j := range accum {
		accum[j] = g.Identity()
	}
	return &BinServer{g: g, n: n, accum: accum}
}

func (b *BinServer) VerifyClient(ct *slotcrypto.Ciphertext) (bool, error) {
	return len(ct.Elements) == b.n, nil
}

func (b *BinServer) AddClientCt(ct *slotcrypto.Ciphertext) error {
	if b.closed {
		return errors.New("bin already closed")
	}
	for j, e := range ct.Elements {
		b.accum[j] = b.g.Mul(b.accum[j], e)
	}
	return nil
}

// AddServerCt is a no-op: the XorTesting variant has no server-side
// mask-removal share since there is no masking to begin with.
func (b *BinServer) AddServerCt(*slotcrypto.ServerCiphertext) error { return nil }

func (b *BinServer) GenServerCt() (*slotcrypto.ServerCiphertext, error) {
	elements := make([]group.Element, b.n)
	for j := range elements {
		elements[j] = b.g.Identity()
	}
	return &slotcrypto.ServerCiphertext{Elements: elements}, nil
}

func (b *BinServer) CloseBin() error { b.closed = true; return nil }

func (b *BinServer) RevealPlaintext() (uint32, []byte, error) {
	if !b.closed {
		return 0, nil, errors.New("bin not closed")
	}
	return keys.DecodePlaintext(b.g, b.accum)
}

func (b *BinServer) GenCover() (*slotcrypto.Ciphertext, error) { return nil, slotcrypto.ErrWrongRole }
func (b *BinServer) GenAuthor([]group.Element) (*slotcrypto.Ciphertext, error) {
	return nil, slotcrypto.ErrWrongRole
}
func (b *BinServer) NextPhase() { b.ClearBin() }
func (b *BinServer) ClearBin() {
	for j := range b.accum {
		b.accum[j] = b.g.Identity()
	}
	b.closed = false
}
func (b *BinServer) SetNElements(n int) {
	b.n = n
	b.accum = make([]group.Element, n)
	for j := range b.accum {
		b.accum[j] = b.g.Identity()
	}
	b.closed = false
}
