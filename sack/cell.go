package sack

import (
	"encoding/binary"
	"fmt"
)

// Cell is a sparse indexed array of opaque byte strings, persisted as a
// single sack record. It gives higher layers (package btree, package
// provider) a small directory of well-known roots addressed by index
// instead of by descriptor.
//
// On-disk encoding: a 4-byte big-endian count, then count signed 32-bit
// big-endian sizes (-1 meaning "absent"), then the concatenated payloads of
// every non-absent entry in order.
type Cell struct {
	sack  *Sack
	desc  Descriptor
	items [][]byte // nil entry == absent
}

func newCell(s *Sack, desc Descriptor) *Cell {
	return &Cell{sack: s, desc: desc}
}

func loadCell(s *Sack, desc Descriptor) (*Cell, error) {
	c := &Cell{sack: s, desc: desc}
	if desc.IsNone() {
		return c, nil
	}
	raw, err := s.Get(desc)
	if err != nil {
		return nil, fmt.Errorf("sack: load cell: %w", err)
	}
	if len(raw) < 4 {
		return nil, fmt.Errorf("sack: %w: cell directory truncated", ErrCorrupt)
	}
	count := int(binary.BigEndian.Uint32(raw[0:4]))
	sizesOff := 4
	sizesLen := count * 4
	if sizesOff+sizesLen > len(raw) {
		return nil, fmt.Errorf("sack: %w: cell directory size table truncated", ErrCorrupt)
	}
	sizes := make([]int32, count)
	for i := 0; i < count; i++ {
		sizes[i] = int32(binary.BigEndian.Uint32(raw[sizesOff+i*4 : sizesOff+i*4+4]))
	}

	items := make([][]byte, count)
	pos := sizesOff + sizesLen
	for i, sz := range sizes {
		if sz < 0 {
			continue
		}
		end := pos + int(sz)
		if end > len(raw) {
			return nil, fmt.Errorf("sack: %w: cell directory payload truncated", ErrCorrupt)
		}
		items[i] = append([]byte{}, raw[pos:end]...)
		pos = end
	}
	c.items = items
	return c, nil
}

// Len returns one past the last non-absent index (0 if the cell is empty).
func (c *Cell) Len() int {
	length := 0
	for i, item := range c.items {
		if item != nil {
			length = i + 1
		}
	}
	return length
}

// Get returns the value at index, or nil if absent.
func (c *Cell) Get(index int) []byte {
	if index < 0 || index >= len(c.items) {
		return nil
	}
	return c.items[index]
}

// Set stores value at index, extending the directory with absent entries
// as needed.
func (c *Cell) Set(index int, value []byte) {
	if index < 0 {
		return
	}
	for index >= len(c.items) {
		c.items = append(c.items, nil)
	}
	if value == nil {
		value = []byte{}
	}
	c.items[index] = value
}

// Del marks index as absent. It does not shift any adjacent entries.
func (c *Cell) Del(index int) {
	if index < 0 || index >= len(c.items) {
		return
	}
	c.items[index] = nil
}

// flush trims trailing absent entries and persists the directory as one
// sack record, updating c.desc.
func (c *Cell) flush() error {
	c.items = c.items[:c.Len()]

	var sizes []byte
	var payload []byte
	for _, item := range c.items {
		var szBuf [4]byte
		if item == nil {
			binary.BigEndian.PutUint32(szBuf[:], ^uint32(0)) // int32(-1)
		} else {
			binary.BigEndian.PutUint32(szBuf[:], uint32(int32(len(item))))
			payload = append(payload, item...)
		}
		sizes = append(sizes, szBuf[:]...)
	}

	data := make([]byte, 0, 4+len(sizes)+len(payload))
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(c.items)))
	data = append(data, countBuf[:]...)
	data = append(data, sizes...)
	data = append(data, payload...)

	desc, err := c.sack.Push(data, c.desc)
	if err != nil {
		return fmt.Errorf("sack: flush cell directory: %w", err)
	}
	c.desc = desc
	return nil
}
