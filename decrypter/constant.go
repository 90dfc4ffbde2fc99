package decrypter

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"haruki-const-decrypter/pool"
	"haruki-const-decrypter/utils"
)

var ErrShortConstant = errors.New("decrypted constant too short")

// Constant is a decrypted value with its declared type.
type Constant struct {
	TypeCode pool.TypeCode `json:"-" msgpack:"-" yaml:"-"`
	Type     string        `json:"type" msgpack:"type" yaml:"type"`
	Value    any           `json:"value" msgpack:"value" yaml:"value"`
}

// DecodeConstant interprets plaintext bytes according to tc. Strings are
// UTF-8 with invalid sequences replaced.
func DecodeConstant(tc pool.TypeCode, data []byte) (Constant, error) {
	c := Constant{TypeCode: tc, Type: tc.String()}
	need := 0
	switch tc {
	case pool.TypeInt32, pool.TypeSingle:
		need = 4
	case pool.TypeInt64, pool.TypeDouble:
		need = 8
	case pool.TypeString:
		c.Value = utils.DecodeUTF8(data)
		return c, nil
	default:
		return Constant{}, fmt.Errorf("%w 0x%02X", pool.ErrInvalidTypeCode, byte(tc))
	}
	if len(data) < need {
		return Constant{}, fmt.Errorf("%s needs %d bytes, got %d: %w", tc, need, len(data), ErrShortConstant)
	}
	bs := utils.NewBinaryStream(bytes.NewReader(data), "little")
	var err error
	switch tc {
	case pool.TypeInt32:
		c.Value, err = bs.ReadInt32()
	case pool.TypeSingle:
		c.Value, err = bs.ReadFloat32()
	case pool.TypeInt64:
		c.Value, err = bs.ReadInt64()
	case pool.TypeDouble:
		c.Value, err = bs.ReadFloat64()
	}
	if err != nil {
		return Constant{}, fmt.Errorf("decode %s: %w", tc, err)
	}
	return c, nil
}

// EncodeConstant is the inverse of DecodeConstant for Go values of the five
// supported types.
func EncodeConstant(v any) (pool.TypeCode, []byte, error) {
	switch x := v.(type) {
	case int32:
		return pool.TypeInt32, binary.LittleEndian.AppendUint32(nil, uint32(x)), nil
	case int64:
		return pool.TypeInt64, binary.LittleEndian.AppendUint64(nil, uint64(x)), nil
	case float32:
		return pool.TypeSingle, binary.LittleEndian.AppendUint32(nil, math.Float32bits(x)), nil
	case float64:
		return pool.TypeDouble, binary.LittleEndian.AppendUint64(nil, math.Float64bits(x)), nil
	case string:
		return pool.TypeString, []byte(x), nil
	default:
		return 0, nil, fmt.Errorf("unsupported constant type %T", v)
	}
}
