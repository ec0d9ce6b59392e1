// Package codec implements the two on-disk node encodings used by a
// sack-backed B+Tree provider: SS (opaque length-prefixed byte strings)
// and PP (per-entry framed byte strings, suited to carrying the tagged
// values built by the Encode* helpers in this package).
package codec

import "errors"

// ErrCorrupt indicates a node body could not be decoded.
var ErrCorrupt = errors.New("codec: corrupt node body")

// Codec encodes and decodes the variable-length portion of a node: its
// keys and, for a leaf, its values. Everything else (the leaf/internal
// flag, prev/next links, an internal node's child descriptors) is framed
// by the caller.
type Codec interface {
	// Tag is the 2-byte ASCII identifier stored in the tree header so a
	// reopened tree picks the same codec.
	Tag() string

	// EncodeValues serializes a BytesList-shaped slice: keys for both
	// node kinds, or leaf values. A nil entry encodes as absent.
	EncodeValues(items [][]byte) ([]byte, error)

	// DecodeValues is the inverse of EncodeValues. It returns the decoded
	// items along with the number of bytes consumed from data, so callers
	// can decode several back-to-back blocks out of one buffer.
	DecodeValues(data []byte) (items [][]byte, consumed int, err error)
}

// ByTag resolves a codec from its on-disk tag.
func ByTag(tag string) (Codec, error) {
	switch tag {
	case "SS":
		return SS{}, nil
	case "PP":
		return PP{}, nil
	default:
		return nil, errors.New("codec: unsupported type " + tag)
	}
}
