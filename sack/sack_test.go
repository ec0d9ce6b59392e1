package sack

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestPushGetPop mirrors scenario S1 from the store specification: push a
// few records, flush, reopen, and confirm Get/Pop and in-place vs
// relocating Push behavior.
func TestPushGetPop(t *testing.T) {
	mem := NewMemory()
	s, err := New(mem, 10, 32)
	require.NoError(t, err)

	d0, err := s.Push([]byte("some data"), 0)
	require.NoError(t, err)
	large := []byte(strings.Repeat("some large data", 100))
	d1, err := s.Push(large, 0)
	require.NoError(t, err)
	d2, err := s.Push([]byte("test"), 0)
	require.NoError(t, err)

	require.NoError(t, s.Flush())

	got, err := s.Get(d0)
	require.NoError(t, err)
	require.Equal(t, []byte("some data"), got)

	popped, err := s.Pop(d1)
	require.NoError(t, err)
	require.Equal(t, large, popped)

	// reopen
	s2, err := Open(mem, 10, false)
	require.NoError(t, err)

	got2, err := s2.Get(d2)
	require.NoError(t, err)
	require.Equal(t, []byte("test"), got2)

	d2b, err := s2.Push([]byte(strings.Repeat("test", 10)), d2)
	require.NoError(t, err)
	require.NotEqual(t, d2, d2b)

	d1b, err := s2.Push([]byte("abc"), d1)
	require.NoError(t, err)
	require.Equal(t, d1, d1b)
}

func TestPushInPlaceWhenFits(t *testing.T) {
	mem := NewMemory()
	s, err := New(mem, 0, 20)
	require.NoError(t, err)

	d, err := s.Push(bytes.Repeat([]byte{1}, 100), 0)
	require.NoError(t, err)

	d2, err := s.Push(bytes.Repeat([]byte{2}, 50), d)
	require.NoError(t, err)
	require.Equal(t, d, d2, "smaller payload that still fits must stay in place")
}

func TestReadOnlyRejectsMutation(t *testing.T) {
	mem := NewMemory()
	s, err := New(mem, 0, 20)
	require.NoError(t, err)
	require.NoError(t, s.Flush())

	ro, err := Open(mem, 0, true)
	require.NoError(t, err)

	_, err = ro.Push([]byte("x"), 0)
	require.ErrorIs(t, err, ErrReadOnly)

	_, err = ro.Pop(0)
	require.ErrorIs(t, err, ErrReadOnly)

	err = ro.Flush()
	require.ErrorIs(t, err, ErrReadOnly)
}

func TestFlushIdempotent(t *testing.T) {
	mem := NewMemory()
	s, err := New(mem, 0, 20)
	require.NoError(t, err)

	_, err = s.Push([]byte("hello"), 0)
	require.NoError(t, err)

	require.NoError(t, s.Flush())
	first := append([]byte(nil), mem.Bytes()[:headerSize]...)

	require.NoError(t, s.Flush())
	second := mem.Bytes()[:headerSize]

	require.Equal(t, first, second)
}
