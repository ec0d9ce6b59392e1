package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSSRoundTrip(t *testing.T) {
	items := [][]byte{[]byte("alpha"), nil, []byte(""), []byte("delta")}
	data, err := SS{}.EncodeValues(items)
	require.NoError(t, err)

	got, consumed, err := SS{}.DecodeValues(data)
	require.NoError(t, err)
	require.Equal(t, len(data), consumed)
	require.Equal(t, items, got)
}

func TestPPRoundTrip(t *testing.T) {
	items := [][]byte{[]byte("alpha"), nil, []byte(""), []byte("delta")}
	data, err := PP{}.EncodeValues(items)
	require.NoError(t, err)

	got, consumed, err := PP{}.DecodeValues(data)
	require.NoError(t, err)
	require.Equal(t, len(data), consumed)
	require.Equal(t, items, got)
}

func TestValueTags(t *testing.T) {
	tag, payload, err := Decode(EncodeUint64(42))
	require.NoError(t, err)
	v, err := DecodeUint64(tag, payload)
	require.NoError(t, err)
	require.EqualValues(t, 42, v)

	tag, payload, err = Decode(EncodeInt64(-7))
	require.NoError(t, err)
	iv, err := DecodeInt64(tag, payload)
	require.NoError(t, err)
	require.EqualValues(t, -7, iv)

	tag, payload, err = Decode(EncodeString("héllo"))
	require.NoError(t, err)
	s, err := DecodeString(tag, payload)
	require.NoError(t, err)
	require.Equal(t, "héllo", s)

	legacy, err := EncodeLegacyString("café")
	require.NoError(t, err)
	tag, payload, err = Decode(legacy)
	require.NoError(t, err)
	s, err = DecodeString(tag, payload)
	require.NoError(t, err)
	require.Equal(t, "café", s)
}

func TestByTagUnsupported(t *testing.T) {
	_, err := ByTag("XX")
	require.Error(t, err)
}
