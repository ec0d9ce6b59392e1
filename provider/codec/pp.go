package codec

import "encoding/binary"

// PP frames each entry inline as a presence byte, a BE-uint32 length, and
// the payload, rather than SS's parallel count/size arrays followed by a
// concatenated payload block. It exists so callers building typed values
// on top (see Tag and the Encode*/Decode* helpers) get a self-describing
// per-entry layout instead of reconstructing offsets from a separate size
// table. PP itself treats every entry as opaque bytes; it neither adds nor
// checks value tags.
type PP struct{}

func (PP) Tag() string { return "PP" }

func (PP) EncodeValues(items [][]byte) ([]byte, error) {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, uint32(len(items)))
	for _, item := range items {
		if item == nil {
			out = append(out, 0)
			continue
		}
		out = append(out, 1)
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(item)))
		out = append(out, lenBuf[:]...)
		out = append(out, item...)
	}
	return out, nil
}

func (PP) DecodeValues(data []byte) ([][]byte, int, error) {
	total := len(data)
	if len(data) < 4 {
		return nil, 0, ErrCorrupt
	}
	count := binary.BigEndian.Uint32(data)
	data = data[4:]

	items := make([][]byte, count)
	for i := range items {
		if len(data) < 1 {
			return nil, 0, ErrCorrupt
		}
		present := data[0]
		data = data[1:]
		if present == 0 {
			continue
		}
		if len(data) < 4 {
			return nil, 0, ErrCorrupt
		}
		size := binary.BigEndian.Uint32(data)
		data = data[4:]
		if uint64(len(data)) < uint64(size) {
			return nil, 0, ErrCorrupt
		}
		items[i] = append([]byte{}, data[:size]...)
		data = data[size:]
	}
	return items, total - len(data), nil
}
