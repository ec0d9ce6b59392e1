package btree

// SimpleProvider is a pure in-memory Provider: every node lives in a Go
// map, nothing is ever persisted, and Release simply forgets the node. It
// is used for tests and as a reference oracle, mirroring the role of the
// teacher's simplest allocator-less implementations.
type SimpleProvider struct {
	nodes map[Desc]*Node
	next  Desc // next descriptor to hand out (strictly decreasing)

	root  *Node
	size  int64
	depth int
	order int
}

// NewSimpleProvider creates a SimpleProvider with an empty root leaf.
func NewSimpleProvider(order int) *SimpleProvider {
	p := &SimpleProvider{
		nodes: make(map[Desc]*Node),
		next:  -1,
		depth: 1,
		order: order,
	}
	p.root = p.NodeCreate(nil, nil, nil, true)
	return p
}

func (p *SimpleProvider) DescToNode(d Desc) (*Node, error) {
	if d == NoDesc {
		return nil, nil
	}
	n, ok := p.nodes[d]
	if !ok {
		return nil, ErrCorrupt
	}
	return n, nil
}

func (p *SimpleProvider) Dirty(n *Node) {}

func (p *SimpleProvider) Release(n *Node) error {
	delete(p.nodes, n.Desc)
	return nil
}

func (p *SimpleProvider) NodeCreate(keys [][]byte, values [][]byte, children []Desc, leaf bool) *Node {
	d := p.next
	p.next--
	n := &Node{Desc: d, Leaf: leaf, Keys: keys, Values: values, Children: children}
	p.nodes[d] = n
	return n
}

func (p *SimpleProvider) Size() int64     { return p.size }
func (p *SimpleProvider) SetSize(n int64) { p.size = n }

func (p *SimpleProvider) Depth() int     { return p.depth }
func (p *SimpleProvider) SetDepth(d int) { p.depth = d }

func (p *SimpleProvider) Root() (*Node, error) { return p.root, nil }
func (p *SimpleProvider) SetRoot(n *Node)      { p.root = n }

func (p *SimpleProvider) Order() int { return p.order }
