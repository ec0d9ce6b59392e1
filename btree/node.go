package btree

// Desc identifies a node as seen by a Provider. Persistent providers use
// positive values for on-disk nodes and negative values for nodes created
// this session that haven't been flushed yet; zero means "no node" (used
// for Prev/Next on boundary leaves).
type Desc = int64

// NoDesc is the descriptor value meaning "no node".
const NoDesc Desc = 0

// Node is either an internal node or a leaf.
//
// Internal: len(Children) == len(Keys)+1. For child index i, every key in
// the subtree rooted at Children[i] is < Keys[i]; every key in
// Children[i+1:] is >= Keys[i].
//
// Leaf: len(Values) == len(Keys), keys strictly ascending. Prev/Next link
// leaves into a doubly-linked list in ascending key order (0 = no
// neighbor).
type Node struct {
	Desc Desc
	Leaf bool

	Keys     [][]byte
	Children []Desc   // internal only
	Values   [][]byte // leaf only

	Prev, Next Desc // leaf only
}

// count returns the number of keys held in the node.
func (n *Node) count() int {
	return len(n.Keys)
}
