package utils

import (
	"encoding/binary"
	"io"
	"math"
)

type BinaryStream struct {
	BaseStream io.ReadSeeker
	Endian     binary.ByteOrder
}

func NewBinaryStream(baseStream io.ReadSeeker, endian string) *BinaryStream {
	bs := &BinaryStream{
		BaseStream: baseStream,
	}
	if endian == "big" {
		bs.Endian = binary.BigEndian
	} else {
		bs.Endian = binary.LittleEndian
	}
	return bs
}

func (bs *BinaryStream) Seek(offset int64) error {
	_, err := bs.BaseStream.Seek(offset, io.SeekStart)
	return err
}

func (bs *BinaryStream) Position() int64 {
	pos, _ := bs.BaseStream.Seek(0, io.SeekCurrent)
	return pos
}

func (bs *BinaryStream) ReadByte() (byte, error) {
	buf := make([]byte, 1)
	_, err := io.ReadFull(bs.BaseStream, buf)
	return buf[0], err
}

func (bs *BinaryStream) ReadBytes(length int) ([]byte, error) {
	buf := make([]byte, length)
	_, err := io.ReadFull(bs.BaseStream, buf)
	return buf, err
}

func (bs *BinaryStream) ReadInt32() (int32, error) {
	buf := make([]byte, 4)
	_, err := io.ReadFull(bs.BaseStream, buf)
	return int32(bs.Endian.Uint32(buf)), err
}

func (bs *BinaryStream) ReadUInt32() (uint32, error) {
	buf := make([]byte, 4)
	_, err := io.ReadFull(bs.BaseStream, buf)
	return bs.Endian.Uint32(buf), err
}

func (bs *BinaryStream) ReadInt64() (int64, error) {
	buf := make([]byte, 8)
	_, err := io.ReadFull(bs.BaseStream, buf)
	return int64(bs.Endian.Uint64(buf)), err
}

func (bs *BinaryStream) ReadFloat32() (float32, error) {
	bits, err := bs.ReadUInt32()
	return math.Float32frombits(bits), err
}

func (bs *BinaryStream) ReadFloat64() (float64, error) {
	bits, err := bs.ReadInt64()
	return math.Float64frombits(uint64(bits)), err
}
