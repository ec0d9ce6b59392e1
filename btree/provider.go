package btree

// Provider is the capability set a Tree needs from its storage backing:
// resolving descriptors to nodes, tracking which nodes are dirty, creating
// and releasing nodes, and holding the tree's header fields (root, depth,
// size, order). See package provider for a sack-backed implementation and
// SimpleProvider below for a pure in-memory one.
type Provider interface {
	// DescToNode resolves a descriptor to its node. NoDesc resolves to nil.
	DescToNode(d Desc) (*Node, error)

	// Dirty marks n as modified; it must be rewritten on the next flush.
	Dirty(n *Node)

	// Release destroys n: the in-memory entry is dropped and, if n was
	// already persisted, its storage is freed. Called on merge and root
	// collapse.
	Release(n *Node) error

	// NodeCreate allocates a new node, assigns it a fresh descriptor, adds
	// it to the dirty set, and returns it.
	NodeCreate(keys [][]byte, values [][]byte, children []Desc, leaf bool) *Node

	// Size/SetSize track the element count.
	Size() int64
	SetSize(n int64)

	// Depth/SetDepth track tree depth (root is a leaf at depth 1).
	Depth() int
	SetDepth(d int)

	// Root/SetRoot track the root node.
	Root() (*Node, error)
	SetRoot(n *Node)

	// Order returns the maximum children per internal node (also the
	// max keys+1 for leaves).
	Order() int
}
