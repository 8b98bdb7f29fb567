package wire

import (
	"bytes"
	"sort"

	"github.com/pkg/errors"
	"github.com/henrycg/Dissent/peer"
	"go.dedis.ch/protobuf"
)

// Marshal encodes any wire body struct with dedis's reflection-based
// protobuf encoder, grounded on dedis-cothority's use of
// go.dedis.ch/protobuf for its own wire messages (the same module kyber
// already pulls in transitively).
func Marshal(v interface{}) ([]byte, error) {
	bs, err := protobuf.Encode(v)
	return bs, errors.Wrap(err, "protobuf encode")
}

// Unmarshal decodes bs into v (a pointer to a wire body struct).
func Unmarshal(bs []byte, v interface{}) error {
	return errors.Wrap(protobuf.Decode(bs, v), "protobuf decode")
}

// SortClientEntries sorts a ClientEntry slice into canonical order.
func SortClientEntries(entries []ClientEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].ClientID, entries[j].ClientID) < 0
	})
}

// SortMasterClientEntries sorts a MasterClientEntry slice into
// canonical order.
func SortMasterClientEntries(entries []MasterClientEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].ClientID, entries[j].ClientID) < 0
	})
}

// SortClientListEntries sorts a ClientListEntry slice into canonical
// order.
func SortClientListEntries(entries []ClientListEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].ClientID, entries[j].ClientID) < 0
	})
}

// SortServerSignatures sorts a ServerSignatureEntry slice by server
// index.
func SortServerSignatures(entries []ServerSignatureEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].ServerIndex < entries[j].ServerIndex })
}

// signedPayload is everything an Envelope's signature covers.
func signedPayload(e *Envelope) []byte {
	buf := make([]byte, 0, len(e.Type)+8+4+len(e.Body))
	buf = append(buf, []byte(e.Type)...)
	buf = appendUint64(buf, e.RoundID)
	buf = appendUint32(buf, e.Phase)
	buf = append(buf, e.Body...)
	return buf
}

func appendUint64(buf []byte, v uint64) []byte {
	for i := 0; i < 8; i++ {
		buf = append(buf, byte(v>>(56-8*i)))
	}
	return buf
}

func appendUint32(buf []byte, v uint32) []byte {
	for i := 0; i < 4; i++ {
		buf = append(buf, byte(v>>(24-8*i)))
	}
	return buf
}

// Seal signs an envelope with the sender's long-term key, per spec §6:
// "every outbound payload is appended with a signature under the
// sender's long-term signing key".
func Seal(e *Envelope, kp *peer.SigningKeyPair) {
	e.Signature = kp.Sign(signedPayload(e))
}

// Verify checks an envelope's signature against the claimed sender's
// known verification key.
func Verify(e *Envelope, sender peer.Identity) bool {
	return sender.Verify(signedPayload(e), e.Signature)
}
