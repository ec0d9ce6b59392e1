package codec

import "encoding/binary"

// SS stores keys and values as opaque length-prefixed byte strings: a
// count, a BE-int32 size per entry (-1 meaning absent, for the rare case
// of a nil slot), then the concatenated payloads in order.
type SS struct{}

func (SS) Tag() string { return "SS" }

func (SS) EncodeValues(items [][]byte) ([]byte, error) {
	out := make([]byte, 4+4*len(items))
	binary.BigEndian.PutUint32(out, uint32(len(items)))
	off := 4
	for _, item := range items {
		size := int32(-1)
		if item != nil {
			size = int32(len(item))
		}
		binary.BigEndian.PutUint32(out[off:], uint32(size))
		off += 4
	}
	for _, item := range items {
		out = append(out, item...)
	}
	return out, nil
}

func (SS) DecodeValues(data []byte) ([][]byte, int, error) {
	total := len(data)
	if len(data) < 4 {
		return nil, 0, ErrCorrupt
	}
	count := binary.BigEndian.Uint32(data)
	data = data[4:]

	if uint64(len(data)) < 4*uint64(count) {
		return nil, 0, ErrCorrupt
	}
	sizes := make([]int32, count)
	for i := range sizes {
		sizes[i] = int32(binary.BigEndian.Uint32(data))
		data = data[4:]
	}

	items := make([][]byte, count)
	for i, size := range sizes {
		if size < 0 {
			continue
		}
		if int64(len(data)) < int64(size) {
			return nil, 0, ErrCorrupt
		}
		items[i] = append([]byte{}, data[:size]...)
		data = data[size:]
	}
	return items, total - len(data), nil
}
