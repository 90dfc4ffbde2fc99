package utils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBinaryStreamLittleEndian(t *testing.T) {
	bs := NewBinaryStream(bytes.NewReader([]byte{0x01, 0x2A, 0x00, 0x00, 0x00, 0xFF}), "little")
	require.NoError(t, bs.Seek(1))
	v, err := bs.ReadInt32()
	require.NoError(t, err)
	require.Equal(t, int32(42), v)
	require.Equal(t, int64(5), bs.Position())

	b, err := bs.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte(0xFF), b)

	_, err = bs.ReadBytes(1)
	require.Error(t, err)
}
