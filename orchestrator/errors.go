package orchestrator

import "github.com/pkg/errors"

// Category names one of spec §7's five error categories; the
// orchestrator's handlers tag every error they return so the caller
// (and our own tests) can assert on recovery behavior instead of
// string-matching messages — grounded on the teacher's io/errors.go
// style of naming every failure mode explicitly, generalized from
// format-string constants to a typed category since spec §7 assigns
// different *recovery behavior* per category, not just a message.
type Category int

const (
	// PeerProtocolError: wrong state, duplicate submission, unknown
	// sender. The message is dropped, the peer is logged, the round
	// continues. No retry.
	PeerProtocolError Category = iota
	// CryptoVerificationFailure: bad signature, invalid key, invalid ZK
	// proof. The round stops; the sender is reported as a bad member;
	// interrupted = false.
	CryptoVerificationFailure
	// MemberDisconnect: a group member disconnected. The round stops,
	// interrupted = true, no bad-member attribution.
	MemberDisconnect
	// ArithmeticOrDecodeFailure: treated as CryptoVerificationFailure
	// against the sender (spec §7 category 4).
	ArithmeticOrDecodeFailure
	// SelfAssertionFailure: an internal invariant broke (e.g. our own
	// construction produced the wrong number of ciphertexts). Fatal,
	// non-recoverable, must surface to the outer process.
	SelfAssertionFailure
)

func (c Category) String() string {
	switch c {
	case PeerProtocolError:
		return "peer protocol error"
	case CryptoVerificationFailure:
		return "cryptographic verification failure"
	case MemberDisconnect:
		return "member disconnect"
	case ArithmeticOrDecodeFailure:
		return "arithmetic or deserialization failure"
	case SelfAssertionFailure:
		return "self-assertion failure"
	default:
		return "unknown error category"
	}
}

// RoundError is an error tagged with its spec §7 category and,
// for peer-attributable categories, the offending peer id.
type RoundError struct {
	Category Category
	PeerID   []byte // nil if not attributable to a specific peer
	cause    error
}

func (e *RoundError) Error() string {
	if len(e.PeerID) > 0 {
		return e.Category.String() + ": " + e.cause.Error()
	}
	return e.Category.String() + ": " + e.cause.Error()
}

func (e *RoundError) Unwrap() error { return e.cause }

// Fatal reports whether this error should stop the round (every
// category except PeerProtocolError, which merely drops the message).
func (e *RoundError) Fatal() bool { return e.Category != PeerProtocolError }

// Interrupted mirrors the outer session's restart decision: categories
// other than MemberDisconnect leave interrupted = false so the session
// may restart the round; MemberDisconnect sets interrupted = true.
func (e *RoundError) Interrupted() bool { return e.Category == MemberDisconnect }

func newError(cat Category, peerID []byte, cause error) *RoundError {
	return &RoundError{Category: cat, PeerID: peerID, cause: cause}
}

// ProtocolError wraps a dropped, non-fatal peer protocol violation.
func ProtocolError(peerID []byte, format string, args ...interface{}) *RoundError {
	return newError(PeerProtocolError, peerID, errors.Errorf(format, args...))
}

// CryptoError wraps a fatal cryptographic verification failure
// attributed to peerID.
func CryptoError(peerID []byte, cause error) *RoundError {
	return newError(CryptoVerificationFailure, peerID, cause)
}

// DisconnectError wraps a group-member disconnect.
func DisconnectError(peerID []byte) *RoundError {
	return newError(MemberDisconnect, peerID, errors.New("group member disconnected"))
}

// DecodeError wraps an arithmetic/deserialization failure, treated as
// a CryptoVerificationFailure against the sender (spec §7 category 4).
func DecodeError(peerID []byte, cause error) *RoundError {
	return newError(ArithmeticOrDecodeFailure, peerID, cause)
}

// SelfError wraps a broken internal invariant: fatal, non-recoverable,
// never attributed to a peer.
func SelfError(cause error) *RoundError {
	return newError(SelfAssertionFailure, nil, cause)
}
