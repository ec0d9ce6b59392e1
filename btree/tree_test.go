package btree

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func keyFor(i int) []byte   { return []byte(fmt.Sprintf("key-%06d", i)) }
func valueFor(i int) []byte { return []byte(fmt.Sprintf("value-%d", i)) }

func TestTreeGetPutBasic(t *testing.T) {
	tree := New(NewSimpleProvider(8))

	_, err := tree.Get([]byte("missing"))
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, tree.Put([]byte("a"), []byte("1")))
	require.NoError(t, tree.Put([]byte("b"), []byte("2")))

	v, err := tree.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)

	require.NoError(t, tree.Put([]byte("a"), []byte("overwritten")))
	v, err = tree.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("overwritten"), v)

	require.EqualValues(t, 2, tree.Len())
}

func TestTreeBulkInsertAndRange(t *testing.T) {
	const n = 2000
	tree := New(NewSimpleProvider(16))

	order := rand.New(rand.NewSource(1)).Perm(n)
	for _, i := range order {
		require.NoError(t, tree.Put(keyFor(i), valueFor(i)))
	}
	require.EqualValues(t, n, tree.Len())

	for i := 0; i < n; i++ {
		v, err := tree.Get(keyFor(i))
		require.NoError(t, err)
		require.Equal(t, valueFor(i), v)
	}

	r, err := tree.Range(keyFor(100), keyFor(110))
	require.NoError(t, err)
	var got []string
	for {
		ok, err := r.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, string(r.Key()))
	}
	require.Len(t, got, 10)
	for i, k := range got {
		require.Equal(t, string(keyFor(100+i)), k)
	}
}

func TestTreeUnboundedRangeIsSorted(t *testing.T) {
	const n = 500
	tree := New(NewSimpleProvider(5))
	rnd := rand.New(rand.NewSource(2))
	for _, i := range rnd.Perm(n) {
		require.NoError(t, tree.Put(keyFor(i), valueFor(i)))
	}

	r, err := tree.Range(nil, nil)
	require.NoError(t, err)
	var keys []string
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

func TestTreeCursorForwardAndReverse(t *testing.T) {
	const n = 300
	tree := New(NewSimpleProvider(6))
	for i := 0; i < n; i++ {
		require.NoError(t, tree.Put(keyFor(i), valueFor(i)))
	}

	cur, err := tree.Cursor(nil)
	require.NoError(t, err)
	count := 0
	for cur.Valid() {
		require.Equal(t, string(keyFor(count)), string(cur.Key()))
		count++
		ok, err := cur.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
	}
	require.Equal(t, n, count)

	rcur, err := tree.ReverseCursor(nil)
	require.NoError(t, err)
	count = 0
	for rcur.Valid() {
		require.Equal(t, string(keyFor(n-1-count)), string(rcur.Key()))
		count++
		ok, err := rcur.Prev()
		require.NoError(t, err)
		if !ok {
			break
		}
	}
	require.Equal(t, n, count)
}

// TestTreeMatchesReferenceMap drives a btree and a plain Go map through the
// same randomized sequence of Put/Pop operations and checks they agree at
// every step, including final sorted order.
func TestTreeMatchesReferenceMap(t *testing.T) {
	tree := New(NewSimpleProvider(4))
	reference := make(map[string]string)
	rnd := rand.New(rand.NewSource(42))

	const universe = 400
	for step := 0; step < 8000; step++ {
		i := rnd.Intn(universe)
		k, v := keyFor(i), valueFor(i+step)

		if rnd.Intn(3) == 0 {
			if _, ok := reference[string(k)]; ok {
				delete(reference, string(k))
				_, err := tree.Pop(k)
				require.NoError(t, err)
			} else {
				_, err := tree.Pop(k)
				require.ErrorIs(t, err, ErrNotFound)
			}
			continue
		}

		reference[string(k)] = string(v)
		require.NoError(t, tree.Put(k, v))
	}

	require.EqualValues(t, len(reference), tree.Len())

	for k, v := range reference {
		got, err := tree.Get([]byte(k))
		require.NoError(t, err)
		require.Equal(t, v, string(got))
	}

	var wantKeys []string
	for k := range reference {
		wantKeys = append(wantKeys, k)
	}
	sort.Strings(wantKeys)

	r, err := tree.Range(nil, nil)
	require.NoError(t, err)
	var gotKeys []string
	for {
		ok, err := r.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		gotKeys = append(gotKeys, string(r.Key()))
	}
	require.Equal(t, wantKeys, gotKeys)
}

func TestTreePopCollapsesRoot(t *testing.T) {
	tree := New(NewSimpleProvider(4))
	for i := 0; i < 50; i++ {
		require.NoError(t, tree.Put(keyFor(i), valueFor(i)))
	}
	require.Greater(t, tree.Depth(), 1)

	for i := 0; i < 49; i++ {
		_, err := tree.Pop(keyFor(i))
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, tree.Len())
	require.Equal(t, 1, tree.Depth())

	v, err := tree.Get(keyFor(49))
	require.NoError(t, err)
	require.Equal(t, valueFor(49), v)
}

func TestTreePopNotFound(t *testing.T) {
	tree := New(NewSimpleProvider(8))
	require.NoError(t, tree.Put([]byte("x"), []byte("y")))
	_, err := tree.Pop([]byte("z"))
	require.ErrorIs(t, err, ErrNotFound)
}
