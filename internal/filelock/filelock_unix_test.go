//go:build unix

package filelock

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTryLockExclusiveExcludesSecondHandle(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "filelock")
	require.NoError(t, err)
	defer f.Close()

	g, err := os.OpenFile(f.Name(), os.O_RDWR, 0)
	require.NoError(t, err)
	defer g.Close()

	ok, err := TryLock(f.Fd(), true)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = TryLock(g.Fd(), true)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, Unlock(f.Fd()))

	ok, err = TryLock(g.Fd(), true)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, Unlock(g.Fd()))
}

func TestTryLockSharedAllowsMultipleReaders(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "filelock")
	require.NoError(t, err)
	defer f.Close()

	g, err := os.OpenFile(f.Name(), os.O_RDWR, 0)
	require.NoError(t, err)
	defer g.Close()

	ok, err := TryLock(f.Fd(), false)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = TryLock(g.Fd(), false)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, Unlock(f.Fd()))
	require.NoError(t, Unlock(g.Fd()))
}
