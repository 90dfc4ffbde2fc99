// Package pool reads encrypted constants out of the decompressed resource.
package pool

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"

	"haruki-const-decrypter/utils"
)

var (
	ErrInvalidTypeCode = errors.New("invalid type code")
	ErrOutOfRange      = errors.New("entry out of range")
)

// TypeCode tags the declared type of an encrypted constant.
type TypeCode byte

const (
	TypeInt32  TypeCode = 0x01
	TypeInt64  TypeCode = 0x02
	TypeSingle TypeCode = 0x03
	TypeDouble TypeCode = 0x04
	TypeString TypeCode = 0x05
)

func (tc TypeCode) Valid() bool {
	switch tc {
	case TypeInt32, TypeInt64, TypeSingle, TypeDouble, TypeString:
		return true
	default:
		return false
	}
}

func (tc TypeCode) String() string {
	switch tc {
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	case TypeSingle:
		return "single"
	case TypeDouble:
		return "double"
	case TypeString:
		return "string"
	default:
		return fmt.Sprintf("invalid(0x%02X)", byte(tc))
	}
}

func ParseTypeCode(s string) (TypeCode, error) {
	for _, tc := range []TypeCode{TypeInt32, TypeInt64, TypeSingle, TypeDouble, TypeString} {
		if tc.String() == s {
			return tc, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrInvalidTypeCode, s)
}

// Entry is one tagged, length-prefixed encrypted constant.
type Entry struct {
	Offset    uint32
	TypeCode  TypeCode
	Encrypted []byte
}

// Pool is the decompressed constants resource. It is read-only after New and
// safe for concurrent readers.
type Pool struct {
	data []byte
}

func New(data []byte) *Pool {
	return &Pool{data: data}
}

// Inflate decompresses the raw DEFLATE resource payload into a Pool.
func Inflate(raw []byte) (*Pool, error) {
	r := flate.NewReader(bytes.NewReader(raw))
	defer func(r io.ReadCloser) {
		_ = r.Close()
	}(r)
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("inflate constants resource: %w", err)
	}
	return New(data), nil
}

func (p *Pool) Len() int {
	return len(p.data)
}

// ReadEntry reads the entry stored at offset.
func (p *Pool) ReadEntry(offset uint32) (Entry, error) {
	if uint64(offset) >= uint64(len(p.data)) {
		return Entry{}, fmt.Errorf("offset 0x%08X of %d bytes: %w", offset, len(p.data), ErrOutOfRange)
	}
	bs := utils.NewBinaryStream(bytes.NewReader(p.data), "little")
	if err := bs.Seek(int64(offset)); err != nil {
		return Entry{}, err
	}
	b, err := bs.ReadByte()
	if err != nil {
		return Entry{}, err
	}
	tc := TypeCode(b)
	if !tc.Valid() {
		return Entry{}, fmt.Errorf("offset 0x%08X: %w 0x%02X", offset, ErrInvalidTypeCode, b)
	}
	if uint64(offset)+5 > uint64(len(p.data)) {
		return Entry{}, fmt.Errorf("offset 0x%08X length header: %w", offset, ErrOutOfRange)
	}
	length, err := bs.ReadInt32()
	if err != nil {
		return Entry{}, err
	}
	if length < 0 || bs.Position()+int64(length) > int64(len(p.data)) {
		return Entry{}, fmt.Errorf("offset 0x%08X length %d: %w", offset, length, ErrOutOfRange)
	}
	encrypted, err := bs.ReadBytes(int(length))
	if err != nil {
		return Entry{}, err
	}
	return Entry{Offset: offset, TypeCode: tc, Encrypted: encrypted}, nil
}
