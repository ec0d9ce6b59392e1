package sack

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestCellDirectory mirrors scenario S2: a fresh sack's cell directory is
// empty; setting a sparse index extends it with absent entries; deleting
// collapses it back to empty without shifting neighbors.
func TestCellDirectory(t *testing.T) {
	mem := NewMemory()
	s, err := New(mem, 0, 20)
	require.NoError(t, err)

	require.Equal(t, 0, s.Cell().Len())

	s.Cell().Set(1, []byte("test"))
	require.Equal(t, 2, s.Cell().Len())
	require.Nil(t, s.Cell().Get(0))
	require.Nil(t, s.Cell().Get(2))
	require.Equal(t, []byte("test"), s.Cell().Get(1))

	s.Cell().Del(1)
	require.Equal(t, 0, s.Cell().Len())
}

func TestCellPersistsAcrossFlush(t *testing.T) {
	mem := NewMemory()
	s, err := New(mem, 0, 20)
	require.NoError(t, err)

	s.Cell().Set(0, []byte("root"))
	s.Cell().Set(3, []byte("another"))
	require.NoError(t, s.Flush())

	s2, err := Open(mem, 0, false)
	require.NoError(t, err)
	require.Equal(t, 4, s2.Cell().Len())
	require.Equal(t, []byte("root"), s2.Cell().Get(0))
	require.Nil(t, s2.Cell().Get(1))
	require.Equal(t, []byte("another"), s2.Cell().Get(3))
}
