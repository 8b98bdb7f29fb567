// Package wire defines the bulk round's on-the-wire message types and
// bodies (spec §6): every payload is a (message_type, round_id, phase,
// body) tuple followed by a long-term signature. Map-valued bodies are
// represented as sorted slices rather than native Go maps so that
// canonical ordering (spec §9's Open Question: lexicographic on raw id
// bytes) is a property of the type itself, not of whatever a codec
// happens to do with map iteration order.
package wire

import "github.com/henrycg/Dissent/peer"

// Type names one of the recognized message kinds (spec §6's table).
type Type string

const (
	TypeClientPublicKey       Type = "CLIENT_PUBLIC_KEY"
	TypeClientMasterPublicKey Type = "CLIENT_MASTER_PUBLIC_KEY"
	TypeServerPublicKey       Type = "SERVER_PUBLIC_KEY"
	TypeServerMasterPublicKey Type = "SERVER_MASTER_PUBLIC_KEY"
	TypeClientCiphertext      Type = "CLIENT_CIPHERTEXT"
	TypeServerClientList      Type = "SERVER_CLIENT_LIST"
	TypeServerCiphertext      Type = "SERVER_CIPHERTEXT"
	TypeServerValidation      Type = "SERVER_VALIDATION"
	TypeServerCleartext       Type = "SERVER_CLEARTEXT"
)

// Envelope is the outer wire frame every message travels in.
type Envelope struct {
	Type      Type
	RoundID   uint64
	Phase     uint32
	Body      []byte // the type-specific body, protobuf-encoded
	Signature []byte // over Type‖RoundID‖Phase‖Body, under the sender's long-term key
}

// SignedPacket is the (round_id, proof-of-knowledge, public-key-bytes)
// tuple every CLIENT_PUBLIC_KEY/CLIENT_MASTER_PUBLIC_KEY body wraps,
// spec §6's body table.
type SignedPacket struct {
	RoundID uint64
	Proof   []byte // marshaled keys.SchnorrProof
	KeyBody []byte // marshaled public key (or, for the master variant, the commit list)
}

// ClientPublicKeyBody is CLIENT_PUBLIC_KEY's body.
type ClientPublicKeyBody struct {
	Packet             SignedPacket
	LongTermSignature  []byte
}

// ClientEntry pairs a client id with its signed packet, used wherever
// the spec calls for map<client_id -> signed_packet>; kept as a sorted
// slice for canonical serialization.
type ClientEntry struct {
	ClientID peer.ID
	Packet   ClientPublicKeyBody
}

// ServerPublicKeyBody is SERVER_PUBLIC_KEY's body.
type ServerPublicKeyBody struct {
	PublicKey []byte
	Proof     []byte
	Clients   []ClientEntry // sorted by ClientID
}

// ClientMasterPublicKeyBody is CLIENT_MASTER_PUBLIC_KEY's body.
type ClientMasterPublicKeyBody struct {
	Packet            SignedPacket
	LongTermSignature []byte
}

// MasterClientEntry is the master-key-exchange analogue of ClientEntry.
type MasterClientEntry struct {
	ClientID peer.ID
	Packet   ClientMasterPublicKeyBody
}

// ServerMasterPublicKeyBody is SERVER_MASTER_PUBLIC_KEY's body.
type ServerMasterPublicKeyBody struct {
	MasterPublicKey []byte
	CommitList      [][]byte // one commit per client, same order as Clients
	Clients         []MasterClientEntry
}

// ClientCiphertextBody is CLIENT_CIPHERTEXT's body: one ciphertext per
// slot, in slot-index order.
type ClientCiphertextBody struct {
	SlotCiphertexts [][]byte
}

// ClientListEntry pairs a client id with its ciphertext submission.
type ClientListEntry struct {
	ClientID   peer.ID
	Ciphertext ClientCiphertextBody
}

// ServerClientListBody is SERVER_CLIENT_LIST's body.
type ServerClientListBody struct {
	Clients []ClientListEntry // sorted by ClientID
}

// ServerCiphertextBody is SERVER_CIPHERTEXT's body.
type ServerCiphertextBody struct {
	SlotCiphertexts [][]byte
}

// ServerValidationBody is SERVER_VALIDATION's body.
type ServerValidationBody struct {
	Signature []byte
}

// ServerSignatureEntry pairs a server index with its cleartext signature.
type ServerSignatureEntry struct {
	ServerIndex uint32
	Signature   []byte
}

// ServerCleartextBody is SERVER_CLEARTEXT's body.
type ServerCleartextBody struct {
	Signatures []ServerSignatureEntry // sorted by ServerIndex
	Cleartext  []byte
}
