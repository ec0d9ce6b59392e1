package codec

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/text/encoding/charmap"
)

// Value tags let a caller store typed Go scalars as tree keys/values
// without losing their type on reload. This replaces the original
// implementation's reliance on pickling arbitrary Python objects: only a
// fixed, forward-compatible set of tags is supported.
type Tag byte

const (
	TagBytes         Tag = 0
	TagString        Tag = 1 // utf-8
	TagLegacyString  Tag = 2 // windows-1252, for interop with legacy data
	TagUint64        Tag = 3
	TagInt64         Tag = 4
)

// ErrUnknownTag is returned when decoding encounters an unrecognized tag.
var ErrUnknownTag = fmt.Errorf("codec: unknown value tag")

// EncodeBytes wraps raw bytes with TagBytes.
func EncodeBytes(b []byte) []byte {
	return append([]byte{byte(TagBytes)}, b...)
}

// EncodeString wraps a UTF-8 string with TagString.
func EncodeString(s string) []byte {
	return append([]byte{byte(TagString)}, []byte(s)...)
}

// EncodeLegacyString transcodes s to windows-1252 and wraps it with
// TagLegacyString. It fails if s contains characters outside that
// codepage.
func EncodeLegacyString(s string) ([]byte, error) {
	encoded, err := charmap.Windows1252.NewEncoder().String(s)
	if err != nil {
		return nil, fmt.Errorf("codec: encode legacy string: %w", err)
	}
	return append([]byte{byte(TagLegacyString)}, []byte(encoded)...), nil
}

// EncodeUint64 wraps a uint64 with TagUint64.
func EncodeUint64(v uint64) []byte {
	out := make([]byte, 9)
	out[0] = byte(TagUint64)
	binary.BigEndian.PutUint64(out[1:], v)
	return out
}

// EncodeInt64 wraps an int64 with TagInt64.
func EncodeInt64(v int64) []byte {
	out := make([]byte, 9)
	out[0] = byte(TagInt64)
	binary.BigEndian.PutUint64(out[1:], uint64(v))
	return out
}

// Decode returns the tag and untagged payload for a value produced by one
// of the Encode* helpers.
func Decode(data []byte) (Tag, []byte, error) {
	if len(data) < 1 {
		return 0, nil, ErrCorrupt
	}
	return Tag(data[0]), data[1:], nil
}

// DecodeString decodes a TagString or TagLegacyString payload back to a
// Go string.
func DecodeString(tag Tag, payload []byte) (string, error) {
	switch tag {
	case TagString:
		return string(payload), nil
	case TagLegacyString:
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(payload)
		if err != nil {
			return "", fmt.Errorf("codec: decode legacy string: %w", err)
		}
		return string(decoded), nil
	default:
		return "", ErrUnknownTag
	}
}

// DecodeUint64 decodes a TagUint64 payload.
func DecodeUint64(tag Tag, payload []byte) (uint64, error) {
	if tag != TagUint64 || len(payload) != 8 {
		return 0, ErrUnknownTag
	}
	return binary.BigEndian.Uint64(payload), nil
}

// DecodeInt64 decodes a TagInt64 payload.
func DecodeInt64(tag Tag, payload []byte) (int64, error) {
	if tag != TagInt64 || len(payload) != 8 {
		return 0, ErrUnknownTag
	}
	return int64(binary.BigEndian.Uint64(payload)), nil
}
