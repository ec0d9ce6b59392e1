package btree

import "bytes"

// Cursor walks the tree's leaf chain in ascending key order starting from
// a given key (inclusive of an exact match), without holding the whole
// result set in memory. It is invalidated by concurrent mutation of the
// tree.
type Cursor struct {
	tree *Tree
	leaf *Node
	idx  int
}

// Cursor positions a Cursor at the first key >= from. If from is nil the
// cursor starts at the smallest key.
func (t *Tree) Cursor(from []byte) (*Cursor, error) {
	root, err := t.provider.Root()
	if err != nil {
		return nil, err
	}
	node := root
	depth := t.provider.Depth()
	for d := 0; d < depth-1; d++ {
		var idx int
		if from == nil {
			idx = 0
		} else {
			idx = rank(node.Keys, from)
		}
		child, err := t.provider.DescToNode(node.Children[idx])
		if err != nil {
			return nil, err
		}
		node = child
	}

	idx := 0
	if from != nil {
		idx = bisectLeft(node.Keys, from)
	}
	for idx >= len(node.Keys) && node.Next != NoDesc {
		next, err := t.provider.DescToNode(node.Next)
		if err != nil {
			return nil, err
		}
		node, idx = next, 0
	}
	return &Cursor{tree: t, leaf: node, idx: idx}, nil
}

// ReverseCursor positions a Cursor for descending iteration starting from
// the last key <= from. If from is nil the cursor starts at the largest
// key.
func (t *Tree) ReverseCursor(from []byte) (*Cursor, error) {
	root, err := t.provider.Root()
	if err != nil {
		return nil, err
	}
	node := root
	depth := t.provider.Depth()
	for d := 0; d < depth-1; d++ {
		var idx int
		if from == nil {
			idx = len(node.Children) - 1
		} else {
			idx = rank(node.Keys, from)
		}
		child, err := t.provider.DescToNode(node.Children[idx])
		if err != nil {
			return nil, err
		}
		node = child
	}

	idx := len(node.Keys) - 1
	if from != nil {
		idx = rank(node.Keys, from) - 1
	}
	for idx < 0 && node.Prev != NoDesc {
		prev, err := t.provider.DescToNode(node.Prev)
		if err != nil {
			return nil, err
		}
		node, idx = prev, len(prev.Keys)-1
	}
	return &Cursor{tree: t, leaf: node, idx: idx}, nil
}

// Valid reports whether the cursor is positioned on a key.
func (c *Cursor) Valid() bool {
	return c.leaf != nil && c.idx >= 0 && c.idx < len(c.leaf.Keys)
}

// Key returns the key at the cursor's current position.
func (c *Cursor) Key() []byte {
	return c.leaf.Keys[c.idx]
}

// Value returns the value at the cursor's current position.
func (c *Cursor) Value() []byte {
	return c.leaf.Values[c.idx]
}

// Next advances the cursor to the next key in ascending order. It returns
// false once iteration is exhausted.
func (c *Cursor) Next() (bool, error) {
	if c.leaf == nil {
		return false, nil
	}
	c.idx++
	for c.idx >= len(c.leaf.Keys) {
		if c.leaf.Next == NoDesc {
			c.leaf = nil
			return false, nil
		}
		next, err := c.tree.provider.DescToNode(c.leaf.Next)
		if err != nil {
			return false, err
		}
		c.leaf, c.idx = next, 0
	}
	return true, nil
}

// Prev moves the cursor to the previous key in ascending order (i.e. the
// next key in descending order). It returns false once iteration is
// exhausted.
func (c *Cursor) Prev() (bool, error) {
	if c.leaf == nil {
		return false, nil
	}
	c.idx--
	for c.idx < 0 {
		if c.leaf.Prev == NoDesc {
			c.leaf = nil
			return false, nil
		}
		prev, err := c.tree.provider.DescToNode(c.leaf.Prev)
		if err != nil {
			return false, err
		}
		c.leaf = prev
		c.idx = len(c.leaf.Keys) - 1
	}
	return true, nil
}

// Range is a lazy, finite, single-pass iterator over [low, high). Either
// bound may be nil, meaning unbounded in that direction.
type Range struct {
	cur     *Cursor
	high    []byte
	started bool
	done    bool
}

// Range returns an iterator over keys in [low, high). A nil bound is
// unbounded.
func (t *Tree) Range(low, high []byte) (*Range, error) {
	cur, err := t.Cursor(low)
	if err != nil {
		return nil, err
	}
	return &Range{cur: cur, high: high}, nil
}

// Next advances the iterator to the next pair and reports whether one is
// available. Call Key/Value only after Next returns true.
func (r *Range) Next() (bool, error) {
	if r.done {
		return false, nil
	}
	if r.started {
		ok, err := r.cur.Next()
		if err != nil {
			return false, err
		}
		if !ok {
			r.done = true
			return false, nil
		}
	}
	r.started = true
	if !r.cur.Valid() {
		r.done = true
		return false, nil
	}
	if r.high != nil && bytes.Compare(r.cur.Key(), r.high) >= 0 {
		r.done = true
		return false, nil
	}
	return true, nil
}

// Key returns the current pair's key.
func (r *Range) Key() []byte { return r.cur.Key() }

// Value returns the current pair's value.
func (r *Range) Value() []byte { return r.cur.Value() }
