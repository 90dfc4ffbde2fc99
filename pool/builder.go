package pool

import (
	"bytes"
	"encoding/binary"

	"github.com/klauspost/compress/flate"
)

// Builder lays out entries at chosen offsets, the way the protector writes
// its resource. Gaps are zero filled.
type Builder struct {
	data []byte
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Put writes a raw entry at offset. The type code is not validated so that
// corrupt pools can be produced too.
func (b *Builder) Put(offset uint32, tc TypeCode, encrypted []byte) *Builder {
	end := int(offset) + 5 + len(encrypted)
	if end > len(b.data) {
		b.data = append(b.data, make([]byte, end-len(b.data))...)
	}
	b.data[offset] = byte(tc)
	binary.LittleEndian.PutUint32(b.data[offset+1:], uint32(len(encrypted)))
	copy(b.data[offset+5:], encrypted)
	return b
}

func (b *Builder) Bytes() []byte {
	return b.data
}

// Deflate compresses data as raw DEFLATE without a zlib header.
func Deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
