package decrypter

import "math/bits"

const hashRounds = 64

// hash is the offset mixing function of the decrypt routine. It is seeded by
// key0..key3 of the routine's bundle.
func (i *Info) hash(x uint32) uint32 {
	k := i.Keys
	h0 := k.Key1 ^ x
	h1 := k.Key2
	h2 := k.Key3
	for r := uint32(1); r <= hashRounds; r++ {
		h0 = bits.RotateLeft32(h0, 8)
		n := h0 & 0x3F
		switch {
		case n < 16:
			h1 |= (uint32(byte(h0>>8)) & (h0 >> 16)) ^ uint32(byte(^h0))
			h2 ^= (h0*r + 1) % 16
			h0 += (h1 | h2) ^ k.Key0
		case n < 32:
			h1 ^= ((h0 & 0x00FF00FF) << 8) ^ uint32(uint16((h0>>8)|^h0))
			h2 += (h0 * r) % 32
			h0 |= (h1 + ^h2) & k.Key0
		case n < 48:
			h1 += uint32(byte(h0|(h0>>16))) + (^h0 & 0xFF)
			h2 -= ^(h0 + n) % 48
			if h2 == 0 {
				h0 ^= h1 | k.Key0
			} else {
				h0 ^= (h1 % h2) | k.Key0
			}
		default:
			h1 ^= uint32(byte(h0>>16)|byte(^h0)) * (^h0 & 0x00FF0000)
			h2 += (h0 ^ (r - 1)) % n
			h0 -= ^(h1 ^ h2) + k.Key0
		}
	}
	return h0
}
