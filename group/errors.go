package group

import "github.com/pkg/errors"

// ErrInvalidElement is returned by Unmarshal/Decode when bytes do not
// correspond to a valid group element. Spec §4.1's failure model: invalid
// deserialization returns an error variant, arithmetic never panics on
// well-formed inputs.
var ErrInvalidElement = errors.New("group: invalid element encoding")

// ErrPayloadTooLong is returned by EncodeBytes when the payload exceeds
// BytesPerElement.
var ErrPayloadTooLong = errors.New("group: payload exceeds bytes-per-element")
