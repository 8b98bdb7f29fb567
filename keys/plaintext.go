package keys

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/henrycg/Dissent/group"
)

// lengthPrefixSize is the 4-byte little-endian slot-length advertisement
// spec §4.2/§4.6/§9 require to be bit-exact: the first four bytes of
// every slot's decoded plaintext carry the N to use for that slot next
// phase.
const lengthPrefixSize = 4

// MaxPlaintextLen returns the maximum message length a slot with n
// message-group elements of capacity bytesPerElement can carry once the
// 4-byte length prefix is subtracted — spec §4.2's
// "N · bytes_per_element − overhead".
func MaxPlaintextLen(n, bytesPerElement int) int {
	cap := n*bytesPerElement - lengthPrefixSize
	if cap < 0 {
		return 0
	}
	return cap
}

// EncodePlaintext packs payload (padded with zero bytes up to the slot's
// full capacity) and the 4-byte next-phase-N prefix across n message-group
// elements, grounded on
// original_source/src/Crypto/BlogDrop/Plaintext.hpp.
func EncodePlaintext(g group.Group, n int, nextN uint32, payload []byte) ([]group.Element, error) {
	bpe := g.BytesPerElement()
	capacity := MaxPlaintextLen(n, bpe)
	if len(payload) > capacity {
		return nil, errors.Errorf("payload of %d bytes exceeds slot capacity %d (n=%d)", len(payload), capacity, n)
	}

	buf := make([]byte, lengthPrefixSize+capacity)
	binary.LittleEndian.PutUint32(buf[:lengthPrefixSize], nextN)
	copy(buf[lengthPrefixSize:], payload)

	elems := make([]group.Element, n)
	for i := 0; i < n; i++ {
		start := i * bpe
		end := start + bpe
		if end > len(buf) {
			end = len(buf)
		}
		chunk := buf[start:end]
		e, err := g.EncodeBytes(chunk)
		if err != nil {
			return nil, errors.Wrapf(err, "encode chunk %d", i)
		}
		elems[i] = e
	}
	return elems, nil
}

// DecodePlaintext reverses EncodePlaintext: concatenates the per-element
// payloads, reads the 4-byte next-phase-N prefix, and returns it along
// with the remaining bytes. The remainder is the slot's full capacity
// minus the prefix — trimming any application-level padding is left to
// the caller, matching spec §4.2 ("strips it, and emits the remainder").
func DecodePlaintext(g group.Group, elems []group.Element) (nextN uint32, remainder []byte, err error) {
	var buf []byte
	for i, e := range elems {
		chunk, derr := g.DecodeBytes(e)
		if derr != nil {
			return 0, nil, errors.Wrapf(derr, "decode chunk %d", i)
		}
		buf = append(buf, chunk...)
	}
	if len(buf) < lengthPrefixSize {
		return 0, nil, errors.New("decoded plaintext shorter than the length prefix")
	}
	nextN = binary.LittleEndian.Uint32(buf[:lengthPrefixSize])
	return nextN, buf[lengthPrefixSize:], nil
}
