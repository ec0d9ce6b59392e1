package btree

import (
	"bytes"
	"sort"
)

// Tree is an ordered key/value map backed by a Provider. It is not safe
// for concurrent use.
type Tree struct {
	provider Provider
}

// New wraps provider in a Tree.
func New(provider Provider) *Tree {
	return &Tree{provider: provider}
}

// Len returns the number of key/value pairs in the tree.
func (t *Tree) Len() int64 {
	return t.provider.Size()
}

// Order returns the tree's fan-out.
func (t *Tree) Order() int {
	return t.provider.Order()
}

// Depth returns the tree's depth (root is a leaf at depth 1).
func (t *Tree) Depth() int {
	return t.provider.Depth()
}

// rank returns the number of keys <= key (a right-biased / bisect-right
// search). Internal-node routing uses rank: subtree rank(key) holds every
// key >= the separator at rank(key)-1, so an equal key always routes to
// the right of its matching separator.
func rank(keys [][]byte, key []byte) int {
	return sort.Search(len(keys), func(i int) bool { return bytes.Compare(keys[i], key) > 0 })
}

// bisectLeft returns the smallest index i such that keys[i] >= key (a
// left-biased search), used for equality checks at a leaf.
func bisectLeft(keys [][]byte, key []byte) int {
	return sort.Search(len(keys), func(i int) bool { return bytes.Compare(keys[i], key) >= 0 })
}

// Rank exposes the tree's own child-routing search (see rank) for
// Provider implementations that need to relocate a node by walking down
// from the root using one of its keys, without hand-rolling a second,
// possibly-inconsistent comparator.
func Rank(keys [][]byte, key []byte) int {
	return rank(keys, key)
}

// descend walks from the root to the leaf that would contain key,
// returning that leaf.
func (t *Tree) descend(key []byte) (*Node, error) {
	node, err := t.provider.Root()
	if err != nil {
		return nil, err
	}
	depth := t.provider.Depth()
	for d := 0; d < depth-1; d++ {
		idx := rank(node.Keys, key)
		child, err := t.provider.DescToNode(node.Children[idx])
		if err != nil {
			return nil, err
		}
		if child == nil {
			return nil, ErrCorrupt
		}
		node = child
	}
	return node, nil
}

// Get returns the value stored for key.
func (t *Tree) Get(key []byte) ([]byte, error) {
	leaf, err := t.descend(key)
	if err != nil {
		return nil, err
	}
	idx := bisectLeft(leaf.Keys, key)
	if idx >= len(leaf.Keys) || !bytes.Equal(leaf.Keys[idx], key) {
		return nil, ErrNotFound
	}
	return leaf.Values[idx], nil
}

// Has reports whether key is present.
func (t *Tree) Has(key []byte) (bool, error) {
	_, err := t.Get(key)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type pathEntry struct {
	node       *Node
	keyIndex   int
	childIndex int
}

// Put inserts key/value, or overwrites the value if key is already present.
func (t *Tree) Put(key, value []byte) error {
	order := t.provider.Order()

	root, err := t.provider.Root()
	if err != nil {
		return err
	}
	node := root
	var path []pathEntry
	depth := t.provider.Depth()
	for d := 0; d < depth-1; d++ {
		idx := rank(node.Keys, key)
		path = append(path, pathEntry{node: node, keyIndex: idx, childIndex: idx + 1})
		child, err := t.provider.DescToNode(node.Children[idx])
		if err != nil {
			return err
		}
		if child == nil {
			return ErrCorrupt
		}
		node = child
	}

	// node is now the leaf.
	idx := bisectLeft(node.Keys, key)
	if idx < len(node.Keys) && bytes.Equal(node.Keys[idx], key) {
		node.Values[idx] = value
		t.provider.Dirty(node)
		return nil
	}

	t.provider.SetSize(t.provider.Size() + 1)

	leaf := node
	leaf.Keys = insertBytes(leaf.Keys, idx, key)
	leaf.Values = insertBytes(leaf.Values, idx, value)
	t.provider.Dirty(leaf)

	if len(leaf.Keys) < order {
		return nil
	}

	promKey, sibling, err := t.splitLeaf(leaf)
	if err != nil {
		return err
	}
	promChild := sibling.Desc
	t.provider.Dirty(sibling)

	for len(path) > 0 {
		e := path[len(path)-1]
		path = path[:len(path)-1]

		e.node.Keys = insertBytes(e.node.Keys, e.keyIndex, promKey)
		e.node.Children = insertDesc(e.node.Children, e.childIndex, promChild)
		t.provider.Dirty(e.node)

		if len(e.node.Keys) < order {
			return nil
		}

		promKey, sibling = t.splitInternal(e.node)
		promChild = sibling.Desc
		t.provider.Dirty(sibling)
	}

	t.provider.SetDepth(t.provider.Depth() + 1)
	newRoot := t.provider.NodeCreate([][]byte{promKey}, nil, []Desc{root.Desc, promChild}, false)
	t.provider.SetRoot(newRoot)
	return nil
}

func (t *Tree) splitLeaf(leaf *Node) ([]byte, *Node, error) {
	center := len(leaf.Keys) >> 1
	rightKeys := cloneBytes(leaf.Keys[center:])
	rightValues := cloneBytes(leaf.Values[center:])
	leaf.Keys = leaf.Keys[:center]
	leaf.Values = leaf.Values[:center]

	sibling := t.provider.NodeCreate(rightKeys, rightValues, nil, true)
	sibling.Next = leaf.Next
	sibling.Prev = leaf.Desc
	leaf.Next = sibling.Desc
	if sibling.Next != NoDesc {
		next, err := t.provider.DescToNode(sibling.Next)
		if err != nil {
			return nil, nil, err
		}
		if next != nil {
			next.Prev = sibling.Desc
			t.provider.Dirty(next)
		}
	}
	return sibling.Keys[0], sibling, nil
}

func (t *Tree) splitInternal(node *Node) ([]byte, *Node) {
	center := len(node.Children) >> 1
	rightKeys := cloneBytes(node.Keys[center:])
	rightChildren := append([]Desc(nil), node.Children[center:]...)

	node.Keys = node.Keys[:center]
	node.Children = node.Children[:center]
	promKey := node.Keys[len(node.Keys)-1]
	node.Keys = node.Keys[:len(node.Keys)-1]

	sibling := t.provider.NodeCreate(rightKeys, nil, rightChildren, false)
	return promKey, sibling
}

// Pop removes key, returning its value.
func (t *Tree) Pop(key []byte) ([]byte, error) {
	halfOrder := t.provider.Order() >> 1

	type ancestor struct {
		node   *Node
		index  int // this node's index as a child of parent
		parent *Node
	}

	root, err := t.provider.Root()
	if err != nil {
		return nil, err
	}
	node := root
	var path []ancestor
	depth := t.provider.Depth()
	for d := 0; d < depth-1; d++ {
		idx := rank(node.Keys, key)
		parent := node
		child, err := t.provider.DescToNode(node.Children[idx])
		if err != nil {
			return nil, err
		}
		if child == nil {
			return nil, ErrCorrupt
		}
		path = append(path, ancestor{node: child, index: idx, parent: parent})
		node = child
	}

	idx := bisectLeft(node.Keys, key)
	if idx >= len(node.Keys) || !bytes.Equal(node.Keys[idx], key) {
		return nil, ErrNotFound
	}
	value := node.Values[idx]
	keyIndex, childIndex := idx, idx

	t.provider.SetSize(t.provider.Size() - 1)

	for len(path) > 0 {
		a := path[len(path)-1]
		path = path[:len(path)-1]
		node, nodeIndex, parent := a.node, a.index, a.parent

		node.Keys = removeBytes(node.Keys, keyIndex)
		if node.Leaf {
			node.Values = removeBytes(node.Values, childIndex)
		} else {
			node.Children = removeDesc(node.Children, childIndex)
		}

		if len(node.Keys) >= halfOrder {
			t.provider.Dirty(node)
			return value, nil
		}

		var left, right *Node
		if nodeIndex > 0 {
			l, err := t.provider.DescToNode(parent.Children[nodeIndex-1])
			if err != nil {
				return nil, err
			}
			left = l
			if len(left.Keys) > halfOrder {
				if node.Leaf {
					node.Keys = insertBytes(node.Keys, 0, left.Keys[len(left.Keys)-1])
				} else {
					node.Keys = insertBytes(node.Keys, 0, parent.Keys[nodeIndex-1])
				}
				parent.Keys[nodeIndex-1] = left.Keys[len(left.Keys)-1]
				left.Keys = left.Keys[:len(left.Keys)-1]
				if node.Leaf {
					node.Values = insertBytes(node.Values, 0, left.Values[len(left.Values)-1])
					left.Values = left.Values[:len(left.Values)-1]
				} else {
					node.Children = insertDesc(node.Children, 0, left.Children[len(left.Children)-1])
					left.Children = left.Children[:len(left.Children)-1]
				}
				t.provider.Dirty(node)
				t.provider.Dirty(left)
				t.provider.Dirty(parent)
				return value, nil
			}
		}

		if nodeIndex < len(parent.Keys) {
			r, err := t.provider.DescToNode(parent.Children[nodeIndex+1])
			if err != nil {
				return nil, err
			}
			right = r
			if len(right.Keys) > halfOrder {
				if node.Leaf {
					node.Keys = append(node.Keys, right.Keys[0])
					right.Keys = right.Keys[1:]
					parent.Keys[nodeIndex] = right.Keys[0]

					node.Values = append(node.Values, right.Values[0])
					right.Values = right.Values[1:]
				} else {
					node.Keys = append(node.Keys, parent.Keys[nodeIndex])
					parent.Keys[nodeIndex] = right.Keys[0]
					right.Keys = right.Keys[1:]

					node.Children = append(node.Children, right.Children[0])
					right.Children = right.Children[1:]
				}
				t.provider.Dirty(node)
				t.provider.Dirty(right)
				t.provider.Dirty(parent)
				return value, nil
			}
		}

		// merge
		var src, dst *Node
		if left != nil {
			src, dst, childIndex = node, left, nodeIndex
		} else {
			src, dst, childIndex = right, node, nodeIndex+1
		}

		if src.Leaf {
			dst.Next = src.Next
			if src.Next != NoDesc {
				srcNext, err := t.provider.DescToNode(src.Next)
				if err != nil {
					return nil, err
				}
				srcNext.Prev = src.Prev
				t.provider.Dirty(srcNext)
			}
			dst.Keys = append(dst.Keys, src.Keys...)
			dst.Values = append(dst.Values, src.Values...)
		} else {
			dst.Keys = append(dst.Keys, parent.Keys[childIndex-1])
			dst.Keys = append(dst.Keys, src.Keys...)
			dst.Children = append(dst.Children, src.Children...)
		}

		if err := t.provider.Release(src); err != nil {
			return nil, err
		}
		t.provider.Dirty(dst)

		keyIndex = childIndex - 1
	}

	// update root
	root, err = t.provider.Root()
	if err != nil {
		return nil, err
	}
	root.Keys = removeBytes(root.Keys, keyIndex)
	if root.Leaf {
		root.Values = removeBytes(root.Values, childIndex)
	} else {
		root.Children = removeDesc(root.Children, childIndex)
	}

	if len(root.Keys) == 0 {
		depth := t.provider.Depth()
		if depth > 1 {
			sole, err := t.provider.DescToNode(root.Children[0])
			if err != nil {
				return nil, err
			}
			t.provider.SetRoot(sole)
			if err := t.provider.Release(root); err != nil {
				return nil, err
			}
			t.provider.SetDepth(depth - 1)
		} else {
			t.provider.Dirty(root)
		}
	} else {
		t.provider.Dirty(root)
	}

	return value, nil
}

func insertBytes(s [][]byte, idx int, v []byte) [][]byte {
	s = append(s, nil)
	copy(s[idx+1:], s[idx:])
	s[idx] = v
	return s
}

func removeBytes(s [][]byte, idx int) [][]byte {
	copy(s[idx:], s[idx+1:])
	return s[:len(s)-1]
}

func insertDesc(s []Desc, idx int, v Desc) []Desc {
	s = append(s, 0)
	copy(s[idx+1:], s[idx:])
	s[idx] = v
	return s
}

func removeDesc(s []Desc, idx int) []Desc {
	copy(s[idx:], s[idx+1:])
	return s[:len(s)-1]
}

func cloneBytes(s [][]byte) [][]byte {
	out := make([][]byte, len(s))
	copy(out, s)
	return out
}
