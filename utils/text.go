package utils

import (
	"golang.org/x/text/encoding/unicode"
)

// DecodeUTF8 decodes b the way the target runtime does: invalid sequences
// become U+FFFD instead of being kept as raw bytes.
func DecodeUTF8(b []byte) string {
	out, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// DecodeUTF16LE decodes a user string as stored in the metadata #US heap.
func DecodeUTF16LE(b []byte) (string, error) {
	if len(b)%2 == 1 {
		// heap entries carry a trailing flag byte
		b = b[:len(b)-1]
	}
	out, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
