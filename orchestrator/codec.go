package orchestrator

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/henrycg/Dissent/group"
	"github.com/henrycg/Dissent/keys"
	"github.com/henrycg/Dissent/slotcrypto"
	"github.com/henrycg/Dissent/wire"
)

// Wire ciphertexts are group.Element-valued, so they cannot go through
// wire/codec.go's reflection-based protobuf encoder directly (Element
// is an interface with no registered concrete type); this file mirrors
// slotcrypto/elgamal/proof.go's length-prefix convention to marshal
// them into the opaque byte strings wire.ClientCiphertextBody and
// wire.ServerCiphertextBody actually carry.

func lengthPrefix(bs []byte) []byte {
	out := make([]byte, 4+len(bs))
	binary.BigEndian.PutUint32(out[:4], uint32(len(bs)))
	copy(out[4:], bs)
	return out
}

func readLengthPrefix(bs []byte) (chunk, rest []byte, err error) {
	if len(bs) < 4 {
		return nil, nil, errors.New("orchestrator: truncated length prefix")
	}
	n := binary.BigEndian.Uint32(bs[:4])
	if uint32(len(bs)-4) < n {
		return nil, nil, errors.New("orchestrator: truncated chunk")
	}
	return bs[4 : 4+n], bs[4+n:], nil
}

func marshalCiphertext(ct *slotcrypto.Ciphertext) ([]byte, error) {
	pubBytes, err := ct.OneTimePub.Marshal()
	if err != nil {
		return nil, errors.Wrap(err, "marshal one-time public key")
	}
	var buf []byte
	buf = append(buf, lengthPrefix(pubBytes)...)
	buf = append(buf, lengthPrefix(uint32Bytes(uint32(len(ct.Elements))))...)
	for i, e := range ct.Elements {
		eb, err := e.Marshal()
		if err != nil {
			return nil, errors.Wrapf(err, "marshal element %d", i)
		}
		buf = append(buf, lengthPrefix(eb)...)
	}
	buf = append(buf, lengthPrefix(ct.Proof)...)
	return buf, nil
}

func unmarshalCiphertext(g group.Group, bs []byte) (*slotcrypto.Ciphertext, error) {
	pubBytes, rest, err := readLengthPrefix(bs)
	if err != nil {
		return nil, err
	}
	pub, err := g.Unmarshal(pubBytes)
	if err != nil {
		return nil, errors.Wrap(err, "unmarshal one-time public key")
	}

	countBytes, rest, err := readLengthPrefix(rest)
	if err != nil {
		return nil, err
	}
	count := bytesUint32(countBytes)

	elems := make([]group.Element, count)
	for i := uint32(0); i < count; i++ {
		var eb []byte
		eb, rest, err = readLengthPrefix(rest)
		if err != nil {
			return nil, err
		}
		e, err := g.Unmarshal(eb)
		if err != nil {
			return nil, errors.Wrapf(err, "unmarshal element %d", i)
		}
		elems[i] = e
	}

	proof, _, err := readLengthPrefix(rest)
	if err != nil {
		return nil, err
	}
	return &slotcrypto.Ciphertext{OneTimePub: pub, Elements: elems, Proof: proof}, nil
}

func marshalServerCiphertext(sct *slotcrypto.ServerCiphertext) ([]byte, error) {
	var buf []byte
	buf = append(buf, lengthPrefix(uint32Bytes(uint32(len(sct.Elements))))...)
	for i, e := range sct.Elements {
		eb, err := e.Marshal()
		if err != nil {
			return nil, errors.Wrapf(err, "marshal server element %d", i)
		}
		buf = append(buf, lengthPrefix(eb)...)
	}
	buf = append(buf, lengthPrefix(sct.Proof)...)
	return buf, nil
}

func unmarshalServerCiphertext(g group.Group, bs []byte) (*slotcrypto.ServerCiphertext, error) {
	countBytes, rest, err := readLengthPrefix(bs)
	if err != nil {
		return nil, err
	}
	count := bytesUint32(countBytes)

	elems := make([]group.Element, count)
	for i := uint32(0); i < count; i++ {
		var eb []byte
		eb, rest, err = readLengthPrefix(rest)
		if err != nil {
			return nil, err
		}
		e, err := g.Unmarshal(eb)
		if err != nil {
			return nil, errors.Wrapf(err, "unmarshal server element %d", i)
		}
		elems[i] = e
	}

	proof, _, err := readLengthPrefix(rest)
	if err != nil {
		return nil, err
	}
	return &slotcrypto.ServerCiphertext{Elements: elems, Proof: proof}, nil
}

func unmarshalSchnorr(g group.Group, bs []byte) (*keys.SchnorrProof, error) {
	cBytes, rest, err := readLengthPrefix(bs)
	if err != nil {
		return nil, err
	}
	c, err := g.UnmarshalScalar(cBytes)
	if err != nil {
		return nil, errors.Wrap(err, "unmarshal schnorr challenge")
	}
	rBytes, _, err := readLengthPrefix(rest)
	if err != nil {
		return nil, err
	}
	rr, err := g.UnmarshalScalar(rBytes)
	if err != nil {
		return nil, errors.Wrap(err, "unmarshal schnorr response")
	}
	return &keys.SchnorrProof{C: c, R: rr}, nil
}

func marshalSchnorr(proof *keys.SchnorrProof) ([]byte, error) {
	cBytes, err := proof.C.Marshal()
	if err != nil {
		return nil, err
	}
	rBytes, err := proof.R.Marshal()
	if err != nil {
		return nil, err
	}
	var buf []byte
	buf = append(buf, lengthPrefix(cBytes)...)
	buf = append(buf, lengthPrefix(rBytes)...)
	return buf, nil
}

// signedPacketBytes is the byte string a SignedPacket's long-term
// signature covers.
func signedPacketBytes(p wire.SignedPacket) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, p.RoundID)
	buf = append(buf, lengthPrefix(p.Proof)...)
	buf = append(buf, lengthPrefix(p.KeyBody)...)
	return buf
}

// rawSlotBytes reconstructs the undivided plaintext buffer
// keys.EncodePlaintext originally produced (4-byte little-endian
// nextN followed by payload) from RevealPlaintext's already-split
// return values, so the canonical cleartext broadcast to clients
// carries enough information for every receiver to rerun spec §4.6's
// rule 2 independently.
func rawSlotBytes(nextN uint32, payload []byte) []byte {
	buf := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(buf[:4], nextN)
	copy(buf[4:], payload)
	return buf
}

// SplitCleartext divides a canonical cleartext broadcast back into its
// per-slot raw byte chunks, given the open/N state every honest
// participant held going into this phase (spec §4.6: a closed slot
// contributes nothing, an open slot with prior N_i contributes exactly
// N_i*bytesPerElement bytes).
func SplitCleartext(cleartext []byte, open []bool, n []int, bytesPerElement int) ([][]byte, error) {
	chunks := make([][]byte, len(open))
	offset := 0
	for i, isOpen := range open {
		if !isOpen {
			continue
		}
		size := n[i] * bytesPerElement
		if offset+size > len(cleartext) {
			return nil, errors.New("orchestrator: cleartext shorter than expected slot layout")
		}
		chunks[i] = cleartext[offset : offset+size]
		offset += size
	}
	if offset != len(cleartext) {
		return nil, errors.New("orchestrator: cleartext longer than expected slot layout")
	}
	return chunks, nil
}

// decodeRawSlot splits one SplitCleartext chunk into its next-N prefix
// and payload, the client-side mirror of keys.DecodePlaintext's prefix
// convention applied to an already-reassembled byte chunk rather than
// a list of group elements.
func decodeRawSlot(chunk []byte) (nextN uint32, payload []byte, err error) {
	if len(chunk) < 4 {
		return 0, nil, errors.New("orchestrator: slot chunk shorter than the length prefix")
	}
	nextN = binary.LittleEndian.Uint32(chunk[:4])
	return nextN, chunk[4:], nil
}

func uint32Bytes(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func bytesUint32(bs []byte) uint32 {
	return binary.BigEndian.Uint32(bs)
}
