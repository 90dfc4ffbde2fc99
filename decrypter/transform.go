package decrypter

import (
	"encoding/binary"
	"errors"
	"fmt"

	"haruki-const-decrypter/keys"
	"haruki-const-decrypter/pool"
	"haruki-const-decrypter/version"
)

var ErrCorruptConstant = errors.New("corrupt encrypted constant")

// cipher is one reversible byte transform. Both directions take the same
// key material; open recovers plaintext and seal produces ciphertext.
type cipher struct {
	name string
	open func(b keys.Bundle, data []byte, offset uint32, tc pool.TypeCode) ([]byte, error)
	seal func(b keys.Bundle, data []byte, offset uint32, tc pool.TypeCode) []byte
}

var (
	normalCipher = cipher{
		name: "normal",
		open: func(b keys.Bundle, data []byte, offset uint32, tc pool.TypeCode) ([]byte, error) {
			return xorStream16(b.Key4*(offset+uint32(tc)), data, b.Salt), nil
		},
		seal: func(b keys.Bundle, data []byte, offset uint32, tc pool.TypeCode) []byte {
			return xorStream16(b.Key4*(offset+uint32(tc)), data, b.Salt)
		},
	}
	dynamicCipher = cipher{
		name: "dynamic",
		open: func(b keys.Bundle, data []byte, _ uint32, _ pool.TypeCode) ([]byte, error) {
			return openWords(b.Key4, data, b.Salt)
		},
		seal: func(b keys.Bundle, data []byte, _ uint32, _ pool.TypeCode) []byte {
			return sealWords(b.Key4, data, b.Salt)
		},
	}
)

// ciphers maps every version to its transform. Later revisions reuse the
// r74788 bodies, and the native helper computes the dynamic transform.
var ciphers = map[version.Version]cipher{
	version.V17R74708Normal:  normalCipher,
	version.V17R74708Dynamic: dynamicCipher,
	version.V17R74708Native:  dynamicCipher,
	version.V17R74788Normal:  normalCipher,
	version.V17R74788Dynamic: dynamicCipher,
	version.V17R74788Native:  dynamicCipher,
	version.V17R74816Normal:  normalCipher,
	version.V17R74816Dynamic: dynamicCipher,
	version.V17R74816Native:  dynamicCipher,
	version.V17R75056Normal:  normalCipher,
	version.V17R75056Dynamic: dynamicCipher,
	version.V17R75056Native:  dynamicCipher,
}

func cipherFor(v version.Version, tc pool.TypeCode) (cipher, error) {
	if !tc.Valid() {
		return cipher{}, fmt.Errorf("%w 0x%02X", pool.ErrInvalidTypeCode, byte(tc))
	}
	c, ok := ciphers[v]
	if !ok {
		return cipher{}, fmt.Errorf("%s: %w", v, version.ErrUnreachable)
	}
	return c, nil
}

// Decrypt reverses the transform of v over one encrypted entry.
func Decrypt(v version.Version, b keys.Bundle, encrypted []byte, offset uint32, tc pool.TypeCode) ([]byte, error) {
	c, err := cipherFor(v, tc)
	if err != nil {
		return nil, err
	}
	return c.open(b, encrypted, offset, tc)
}

// Seal encrypts plain the way the protector of v stores it.
func Seal(v version.Version, b keys.Bundle, plain []byte, offset uint32, tc pool.TypeCode) ([]byte, error) {
	c, err := cipherFor(v, tc)
	if err != nil {
		return nil, err
	}
	return c.seal(b, plain, offset, tc), nil
}

// TransformName names the byte transform used by v.
func TransformName(v version.Version) string {
	if c, ok := ciphers[v]; ok {
		return c.name
	}
	return ""
}

// xorStream16 is the 16-bit multiply-add keystream inlined by normal mode.
// It is an involution.
func xorStream16(seed uint32, data, salt []byte) []byte {
	hi := uint16(seed >> 16)
	lo := uint16(seed)
	m, c := lo, hi
	s := uint16(seed)
	out := make([]byte, len(data))
	for i, b := range data {
		b ^= byte(s*m + c)
		if len(salt) > 0 {
			b ^= salt[i%len(salt)]
		}
		out[i] = b
		m = s*m + hi
		c = s*c + lo
	}
	return out
}

// words emits the 32-bit keystream of dynamic mode, one word per four bytes.
type words struct {
	state uint32
}

func (w *words) next() uint32 {
	w.state = w.state*0x343FD + 0x269EC3
	return w.state ^ (w.state >> 15)
}

func applyWords(key uint32, src, dst, salt []byte) {
	ks := words{state: key}
	var w uint32
	for i := range src {
		if i%4 == 0 {
			w = ks.next()
		}
		b := src[i] ^ byte(w>>(8*(i%4)))
		if len(salt) > 0 {
			b ^= salt[i%len(salt)]
		}
		dst[i] = b
	}
}

// openWords strips the length header (length xor key) and decodes the body.
func openWords(key uint32, data, salt []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorruptConstant, len(data))
	}
	n := binary.LittleEndian.Uint32(data) ^ key
	body := data[4:]
	if uint64(n) != uint64(len(body)) {
		return nil, fmt.Errorf("%w: header says %d bytes, have %d", ErrCorruptConstant, n, len(body))
	}
	out := make([]byte, len(body))
	applyWords(key, body, out, salt)
	return out, nil
}

func sealWords(key uint32, plain, salt []byte) []byte {
	out := make([]byte, 4+len(plain))
	binary.LittleEndian.PutUint32(out, uint32(len(plain))^key)
	applyWords(key, plain, out[4:], salt)
	return out
}
