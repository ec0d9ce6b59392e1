// Package provider implements btree.Provider on top of a sack, giving a
// B+Tree a durable, single-file backing store. Nodes are cached in
// memory, marked dirty on mutation, and serialized only on Flush; the
// flush protocol resolves descriptor relocation (a sack Push that doesn't
// fit in place moves to a new block) by re-queuing anything that pointed
// at the moved node.
package provider

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/aslpavel/sackdb/btree"
	"github.com/aslpavel/sackdb/provider/codec"
	"github.com/aslpavel/sackdb/sack"
)

// Flush-time compression is not offered: sacks do not expose a
// compressed record mode, so FlagCompression from the original format has
// no equivalent here and is left unimplemented.
const (
	headerTagSize   = 2
	headerFixedSize = headerTagSize + 8 + 4 + 4 + 8 + 8 // tag, flags, order, depth, size, root desc
)

var (
	// ErrTypeMismatch is returned by New when an explicit codec tag
	// doesn't match the tag recorded in an existing header.
	ErrTypeMismatch = errors.New("provider: codec type mismatch")

	// ErrCorrupt indicates a malformed on-disk node or header.
	ErrCorrupt = errors.New("provider: corrupt node")
)

// SackProvider is a btree.Provider backed by a sack.Sack. Its header
// (codec tag, flags, order, depth, size, root descriptor) lives in one
// cell slot of the sack.
type SackProvider struct {
	sack  *sack.Sack
	cell  int
	codec codec.Codec
	flags uint64

	order    int
	depth    int
	size     int64
	root     *btree.Node
	rootDesc btree.Desc // valid only between loadHeader and New resolving the root node

	d2n   map[btree.Desc]*btree.Node
	dirty map[*btree.Node]struct{}
	next  btree.Desc
}

// New opens the provider rooted at cell, or creates one if the cell is
// empty. order is required when creating, and an empty tag defaults to
// "SS"; both are ignored (beyond a type-mismatch check on a non-empty tag)
// when reopening an existing provider.
func New(s *sack.Sack, cell int, order int, tag string) (*SackProvider, error) {
	p := &SackProvider{
		sack:  s,
		cell:  cell,
		d2n:   make(map[btree.Desc]*btree.Node),
		dirty: make(map[*btree.Node]struct{}),
		next:  -1,
	}

	header := s.Cell().Get(cell)
	if header != nil {
		if err := p.loadHeader(header, tag); err != nil {
			return nil, err
		}
		root, err := p.loadNode(p.rootDesc)
		if err != nil {
			return nil, err
		}
		p.root = root
		return p, nil
	}

	if order <= 0 {
		return nil, errors.New("provider: order is required to create a new provider")
	}
	if tag == "" {
		tag = "SS"
	}
	c, err := codec.ByTag(tag)
	if err != nil {
		return nil, err
	}
	p.codec = c
	p.order = order
	p.depth = 1
	p.root = p.NodeCreate(nil, nil, nil, true)
	if err := p.Flush(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *SackProvider) loadHeader(header []byte, wantTag string) error {
	if len(header) < headerFixedSize {
		return ErrCorrupt
	}
	tag := string(header[0:2])
	if wantTag != "" && wantTag != tag {
		return ErrTypeMismatch
	}
	c, err := codec.ByTag(tag)
	if err != nil {
		return err
	}
	p.codec = c
	p.flags = binary.BigEndian.Uint64(header[2:10])
	p.order = int(binary.BigEndian.Uint32(header[10:14]))
	p.depth = int(binary.BigEndian.Uint32(header[14:18]))
	p.size = int64(binary.BigEndian.Uint64(header[18:26]))
	p.rootDesc = btree.Desc(binary.BigEndian.Uint64(header[26:34]))
	return nil
}

//--------------------------------------------------------------------------//
// btree.Provider                                                           //
//--------------------------------------------------------------------------//

func (p *SackProvider) DescToNode(d btree.Desc) (*btree.Node, error) {
	if d == btree.NoDesc {
		return nil, nil
	}
	if n, ok := p.d2n[d]; ok {
		return n, nil
	}
	return p.loadNode(d)
}

func (p *SackProvider) Dirty(n *btree.Node) {
	p.dirty[n] = struct{}{}
}

func (p *SackProvider) Release(n *btree.Node) error {
	delete(p.d2n, n.Desc)
	delete(p.dirty, n)
	if n.Desc >= 0 {
		if _, err := p.sack.Pop(sack.Descriptor(n.Desc)); err != nil {
			return err
		}
	}
	return nil
}

func (p *SackProvider) NodeCreate(keys, values [][]byte, children []btree.Desc, leaf bool) *btree.Node {
	desc := p.next
	p.next--
	n := &btree.Node{Desc: desc, Leaf: leaf, Keys: keys, Values: values, Children: children}
	p.d2n[desc] = n
	p.dirty[n] = struct{}{}
	return n
}

func (p *SackProvider) Size() int64     { return p.size }
func (p *SackProvider) SetSize(n int64) { p.size = n }

func (p *SackProvider) Depth() int     { return p.depth }
func (p *SackProvider) SetDepth(d int) { p.depth = d }

func (p *SackProvider) Root() (*btree.Node, error) { return p.root, nil }
func (p *SackProvider) SetRoot(n *btree.Node)      { p.root = n }

func (p *SackProvider) Order() int { return p.order }

//--------------------------------------------------------------------------//
// Flush                                                                    //
//--------------------------------------------------------------------------//

// Flush writes every dirty node to the sack and persists the tree header.
//
// A node that doesn't fit back in its existing sack block (or never had
// one, for a brand-new node) relocates to a new descriptor. Leaves flush
// in two passes: the first reserves space for every dirty leaf and
// cascades to any sibling or parent that references a relocated
// descriptor; the second patches each leaf's prev/next links to the
// final descriptors and writes it. Internal nodes then flush bottom-up,
// resolving each child reference through the relocation table (or by
// recursively flushing it first, if it's still queued).
func (p *SackProvider) Flush() error {
	if len(p.dirty) > 0 {
		reloc := make(map[btree.Desc]*btree.Node)
		leafQueue := make(map[*btree.Node][]byte)
		nodeQueue := make(map[*btree.Node]struct{})

		var leafEnqueue func(*btree.Node) error
		leafEnqueue = func(leaf *btree.Node) error {
			if _, already := leafQueue[leaf]; already {
				return nil
			}

			data, err := p.encodeNode(leaf)
			if err != nil {
				return err
			}
			leafQueue[leaf] = data

			oldDesc := leaf.Desc
			prevSack := sack.Descriptor(0)
			if oldDesc >= 0 {
				prevSack = sack.Descriptor(oldDesc)
			}
			newSack, err := p.sack.Reserve(len(data), prevSack)
			if err != nil {
				return err
			}
			newDesc := btree.Desc(newSack)
			if newDesc == oldDesc {
				return nil
			}

			if leaf != p.root {
				parent, err := p.findParent(oldDesc, leaf.Keys[0])
				if err != nil {
					return err
				}
				if _, dirty := p.dirty[parent]; !dirty {
					nodeQueue[parent] = struct{}{}
				}
			}

			for _, sibDesc := range [2]btree.Desc{leaf.Prev, leaf.Next} {
				if sibDesc == btree.NoDesc {
					continue
				}
				if _, done := reloc[sibDesc]; sibDesc <= 0 || done {
					continue
				}
				if cached, ok := p.d2n[sibDesc]; ok {
					_, isDirty := p.dirty[cached]
					_, isQueued := leafQueue[cached]
					if !isDirty && !isQueued {
						if err := leafEnqueue(cached); err != nil {
							return err
						}
					}
				} else {
					loaded, err := p.loadNode(sibDesc)
					if err != nil {
						return err
					}
					if err := leafEnqueue(loaded); err != nil {
						return err
					}
				}
			}

			delete(p.d2n, oldDesc)
			reloc[oldDesc] = leaf
			leaf.Desc = newDesc
			p.d2n[newDesc] = leaf
			return nil
		}

		for n := range p.dirty {
			if n.Leaf {
				if err := leafEnqueue(n); err != nil {
					return err
				}
			} else {
				nodeQueue[n] = struct{}{}
			}
		}

		for leaf, data := range leafQueue {
			if np, ok := reloc[leaf.Prev]; ok {
				leaf.Prev = np.Desc
			}
			if nn, ok := reloc[leaf.Next]; ok {
				leaf.Next = nn.Desc
			}
			binary.BigEndian.PutUint64(data[1:9], uint64(leaf.Prev))
			binary.BigEndian.PutUint64(data[9:17], uint64(leaf.Next))

			got, err := p.sack.Push(data, sack.Descriptor(leaf.Desc))
			if err != nil {
				return err
			}
			if btree.Desc(got) != leaf.Desc {
				return errors.New("provider: leaf moved on final write after being reserved")
			}
		}

		var nodeFlush func(*btree.Node) (btree.Desc, error)
		nodeFlush = func(n *btree.Node) (btree.Desc, error) {
			for i, childDesc := range n.Children {
				if child, ok := reloc[childDesc]; ok {
					n.Children[i] = child.Desc
					continue
				}
				if cached, ok := p.d2n[childDesc]; ok {
					if _, queued := nodeQueue[cached]; queued {
						newChildDesc, err := nodeFlush(cached)
						if err != nil {
							return 0, err
						}
						n.Children[i] = newChildDesc
					}
				}
			}

			data, err := p.encodeNode(n)
			if err != nil {
				return 0, err
			}

			oldDesc := n.Desc
			prevSack := sack.Descriptor(0)
			if oldDesc >= 0 {
				prevSack = sack.Descriptor(oldDesc)
			}
			newSack, err := p.sack.Push(data, prevSack)
			if err != nil {
				return 0, err
			}
			newDesc := btree.Desc(newSack)

			if newDesc != oldDesc {
				if n != p.root {
					parent, err := p.findParent(oldDesc, n.Keys[0])
					if err != nil {
						return 0, err
					}
					if _, dirty := p.dirty[parent]; !dirty {
						nodeQueue[parent] = struct{}{}
					}
				}
				delete(p.d2n, oldDesc)
				reloc[oldDesc] = n
				n.Desc = newDesc
				p.d2n[newDesc] = n
			}
			delete(nodeQueue, n)
			return newDesc, nil
		}

		for len(nodeQueue) > 0 {
			var n *btree.Node
			for k := range nodeQueue {
				n = k
				break
			}
			if _, err := nodeFlush(n); err != nil {
				return err
			}
		}

		p.dirty = make(map[*btree.Node]struct{})
	}

	return p.flushHeader()
}

// findParent walks from the root to the node currently at childDesc,
// using key (one of that node's own keys) to route at each level, the
// same way the tree itself would. It is used to find the ancestor whose
// child-descriptor entry needs patching after a relocation.
func (p *SackProvider) findParent(childDesc btree.Desc, key []byte) (*btree.Node, error) {
	parent := p.root
	for {
		idx := btree.Rank(parent.Keys, key)
		candidate := parent.Children[idx]
		if candidate == childDesc {
			return parent, nil
		}
		next, err := p.DescToNode(candidate)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, ErrCorrupt
		}
		parent = next
	}
}

func (p *SackProvider) flushHeader() error {
	var hdr [headerFixedSize]byte
	copy(hdr[0:2], p.codec.Tag())
	binary.BigEndian.PutUint64(hdr[2:10], p.flags)
	binary.BigEndian.PutUint32(hdr[10:14], uint32(p.order))
	binary.BigEndian.PutUint32(hdr[14:18], uint32(p.depth))
	binary.BigEndian.PutUint64(hdr[18:26], uint64(p.size))
	binary.BigEndian.PutUint64(hdr[26:34], uint64(p.root.Desc))
	p.sack.Cell().Set(p.cell, hdr[:])
	return p.sack.Flush()
}

//--------------------------------------------------------------------------//
// Encoding                                                                 //
//--------------------------------------------------------------------------//

func (p *SackProvider) loadNode(d btree.Desc) (*btree.Node, error) {
	data, err := p.sack.Get(sack.Descriptor(d))
	if err != nil {
		return nil, err
	}
	n, err := p.decodeNode(d, data)
	if err != nil {
		return nil, err
	}
	p.d2n[d] = n
	return n, nil
}

func (p *SackProvider) encodeNode(n *btree.Node) ([]byte, error) {
	var buf bytes.Buffer
	if n.Leaf {
		buf.WriteByte(1)
		var link [16]byte
		binary.BigEndian.PutUint64(link[0:8], uint64(n.Prev))
		binary.BigEndian.PutUint64(link[8:16], uint64(n.Next))
		buf.Write(link[:])

		keys, err := p.codec.EncodeValues(n.Keys)
		if err != nil {
			return nil, err
		}
		buf.Write(keys)

		values, err := p.codec.EncodeValues(n.Values)
		if err != nil {
			return nil, err
		}
		buf.Write(values)
	} else {
		buf.WriteByte(0)

		keys, err := p.codec.EncodeValues(n.Keys)
		if err != nil {
			return nil, err
		}
		buf.Write(keys)

		var countBuf [4]byte
		binary.BigEndian.PutUint32(countBuf[:], uint32(len(n.Children)))
		buf.Write(countBuf[:])
		for _, child := range n.Children {
			var d [8]byte
			binary.BigEndian.PutUint64(d[:], uint64(child))
			buf.Write(d[:])
		}
	}
	return buf.Bytes(), nil
}

func (p *SackProvider) decodeNode(desc btree.Desc, data []byte) (*btree.Node, error) {
	if len(data) < 1 {
		return nil, ErrCorrupt
	}
	leaf := data[0] == 1
	data = data[1:]

	n := &btree.Node{Desc: desc, Leaf: leaf}
	if leaf {
		if len(data) < 16 {
			return nil, ErrCorrupt
		}
		n.Prev = btree.Desc(binary.BigEndian.Uint64(data[0:8]))
		n.Next = btree.Desc(binary.BigEndian.Uint64(data[8:16]))
		data = data[16:]

		keys, consumed, err := p.codec.DecodeValues(data)
		if err != nil {
			return nil, err
		}
		n.Keys = keys
		data = data[consumed:]

		values, _, err := p.codec.DecodeValues(data)
		if err != nil {
			return nil, err
		}
		n.Values = values
	} else {
		keys, consumed, err := p.codec.DecodeValues(data)
		if err != nil {
			return nil, err
		}
		n.Keys = keys
		data = data[consumed:]

		if len(data) < 4 {
			return nil, ErrCorrupt
		}
		count := binary.BigEndian.Uint32(data)
		data = data[4:]
		if uint64(len(data)) < 8*uint64(count) {
			return nil, ErrCorrupt
		}
		children := make([]btree.Desc, count)
		for i := range children {
			children[i] = btree.Desc(binary.BigEndian.Uint64(data))
			data = data[8:]
		}
		n.Children = children
	}
	return n, nil
}
