package sackdb

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aslpavel/sackdb/sack"
)

func dbKey(i int) []byte   { return []byte(fmt.Sprintf("%06d", i)) }
func dbValue(i int) []byte { return []byte(fmt.Sprintf("%d", i)) }

func TestDBBulkInsertAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.sackdb")

	db, err := Create(path, Options{SackOrder: 20, TreeOrder: 7})
	require.NoError(t, err)

	for i := 10; i < 1024; i++ {
		require.NoError(t, db.Put(dbKey(i), dbValue(i)))
	}
	require.NoError(t, db.Flush())
	require.NoError(t, db.Close())

	db, err = Open(path, sack.ModeWrite, Options{})
	require.NoError(t, err)
	defer db.Close()

	for i := 0; i < 10; i++ {
		require.NoError(t, db.Put(dbKey(i), dbValue(i)))
	}

	for i := 0; i < 1024; i++ {
		v, err := db.Get(dbKey(i))
		require.NoError(t, err)
		require.Equal(t, dbValue(i), v)
	}
	require.EqualValues(t, 1024, db.Len())

	r, err := db.Range(dbKey(100), dbKey(202))
	require.NoError(t, err)
	var got []int
	for {
		ok, err := r.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		var i int
		_, scanErr := fmt.Sscanf(string(r.Key()), "%d", &i)
		require.NoError(t, scanErr)
		got = append(got, i)
	}
	want := make([]int, 0, 102)
	for i := 100; i < 202; i++ {
		want = append(want, i)
	}
	require.Equal(t, want, got)
}

func TestDBCursorAtKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.sackdb")
	db, err := Create(path, Options{SackOrder: 20, TreeOrder: 7})
	require.NoError(t, err)
	defer db.Close()

	for i := 0; i < 1024; i++ {
		require.NoError(t, db.Put(dbKey(i), dbValue(i)))
	}

	cur, err := db.Cursor(dbKey(11))
	require.NoError(t, err)
	require.Equal(t, dbValue(11), cur.Value())
	ok, err := cur.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, dbValue(12), cur.Value())

	rcur, err := db.ReverseCursor(dbKey(12))
	require.NoError(t, err)
	var seen [][]byte
	for rcur.Valid() {
		seen = append(seen, append([]byte(nil), rcur.Value()...))
		ok, err := rcur.Prev()
		require.NoError(t, err)
		if !ok {
			break
		}
	}
	want := make([][]byte, 0, 13)
	for i := 12; i >= 0; i-- {
		want = append(want, dbValue(i))
	}
	require.Equal(t, want, seen)
}

func TestDBRandomDeleteThenEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.sackdb")
	db, err := Create(path, Options{SackOrder: 20, TreeOrder: 7})
	require.NoError(t, err)

	const n = 1024
	keys := make([]int, n)
	for i := range keys {
		keys[i] = i
	}
	rand.New(rand.NewSource(7)).Shuffle(n, func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })

	for _, i := range keys {
		require.NoError(t, db.Put(dbKey(i), dbValue(i)))
	}
	require.NoError(t, db.Flush())

	for _, i := range keys[:n/2] {
		_, err := db.Pop(dbKey(i))
		require.NoError(t, err)
	}
	require.NoError(t, db.Flush())
	require.NoError(t, db.Close())

	db, err = Open(path, sack.ModeWrite, Options{})
	require.NoError(t, err)
	defer db.Close()

	for _, i := range keys[n/2:] {
		_, err := db.Pop(dbKey(i))
		require.NoError(t, err)
	}
	require.EqualValues(t, 0, db.Len())

	r, err := db.Range(nil, nil)
	require.NoError(t, err)
	ok, err := r.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

// TestDBRelocationStress forces a tight sack capacity so most flushes
// relocate nodes, and checks the tree stays internally consistent
// (sorted, complete) across repeated flush/reopen cycles.
func TestDBRelocationStress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.sackdb")
	db, err := Create(path, Options{SackOrder: 16, TreeOrder: 4})
	require.NoError(t, err)

	const n = 600
	for round := 0; round < 3; round++ {
		for i := 0; i < n; i++ {
			require.NoError(t, db.Put(dbKey(i), dbValue(i+round)))
		}
		require.NoError(t, db.Flush())

		var keys []string
		r, err := db.Range(nil, nil)
		require.NoError(t, err)
		for {
			ok, err := r.Next()
			require.NoError(t, err)
			if !ok {
				break
			}
			keys = append(keys, string(r.Key()))
		}
		require.True(t, sort.StringsAreSorted(keys))
		require.Len(t, keys, n)
	}
	require.NoError(t, db.Close())

	db, err = Open(path, sack.ModeRead, Options{})
	require.NoError(t, err)
	defer db.Close()
	for i := 0; i < n; i++ {
		v, err := db.Get(dbKey(i))
		require.NoError(t, err)
		require.Equal(t, dbValue(i+2), v)
	}
}

func TestDBReadOnlyRejectsMutation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.sackdb")
	db, err := Create(path, Options{SackOrder: 16, TreeOrder: 4})
	require.NoError(t, err)
	require.NoError(t, db.Put([]byte("a"), []byte("1")))
	require.NoError(t, db.Close())

	ro, err := Open(path, sack.ModeRead, Options{})
	require.NoError(t, err)
	defer ro.Close()

	v, err := ro.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)

	err = ro.Put([]byte("b"), []byte("2"))
	require.ErrorIs(t, err, sack.ErrReadOnly)
}
