package group

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

// DefaultRetryK is the default Koblitz-embedding retry budget: with k
// candidates tried, failure probability is at most 2^-k (spec §4.1).
const DefaultRetryK = 256

// hashIntoElementCascade hashes tag with blake2b and retries EncodeBytes
// over successive candidate digests blake2b(tag || i) for i in [0, k), failing hard
// if none of the k candidates embeds into a valid element. It is shared
// by every Group implementation so hash_into_element behaves identically
// across variants.
func hashIntoElementCascade(g Group, tag []byte) (Element, error) {
	return hashIntoElementCascadeK(g, tag, DefaultRetryK)
}

func hashIntoElementCascadeK(g Group, tag []byte, k int) (Element, error) {
	max := g.BytesPerElement()
	var lastErr error
	for i := 0; i < k; i++ {
		h, err := blake2b.New512(nil)
		if err != nil {
			return nil, errors.Wrap(err, "init blake2b")
		}
		h.Write(tag)
		var ctr [4]byte
		binary.BigEndian.PutUint32(ctr[:], uint32(i))
		h.Write(ctr[:])
		digest := h.Sum(nil)
		if max > len(digest) {
			max = len(digest)
		}
		elem, err := g.EncodeBytes(digest[:max])
		if err != nil {
			lastErr = err
			continue
		}
		return elem, nil
	}
	return nil, errors.Wrapf(lastErr, "hash_into_element: no valid candidate in %d tries", k)
}
