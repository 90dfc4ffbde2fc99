// Package keys extracts the per-routine key material from a decrypt routine.
package keys

import (
	"errors"
	"fmt"

	"haruki-const-decrypter/il"
	"haruki-const-decrypter/matcher"
	"haruki-const-decrypter/version"
)

var ErrKeyExtractionFailed = errors.New("key extraction failed")

// Bundle is the key material of one decrypt routine. Salt is only set for
// revisions that derive it from key5.
type Bundle struct {
	Key0 uint32 `json:"key0" msgpack:"key0" yaml:"key0"`
	Key1 uint32 `json:"key1" msgpack:"key1" yaml:"key1"`
	Key2 uint32 `json:"key2" msgpack:"key2" yaml:"key2"`
	Key3 uint32 `json:"key3" msgpack:"key3" yaml:"key3"`
	Key4 uint32 `json:"key4" msgpack:"key4" yaml:"key4"`
	Key5 uint32 `json:"key5" msgpack:"key5" yaml:"key5"`
	Salt []byte `json:"salt,omitempty" msgpack:"salt,omitempty" yaml:"salt,omitempty"`
}

// ExtractionError names the key whose idiom was not found.
type ExtractionError struct {
	Key     string
	Version version.Version
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s: %s not found", e.Version, e.Key)
}

func (e *ExtractionError) Unwrap() error {
	return ErrKeyExtractionFailed
}

type probe struct {
	key  string
	find func(s il.Stream, b *Bundle) bool
}

func findKey0(s il.Stream, b *Bundle) (ok bool) {
	b.Key0, ok = matcher.FindConst(s, matcher.OrXorAdd)
	return ok
}

func findKey1(s il.Stream, b *Bundle) (ok bool) {
	b.Key1, ok = matcher.FindConst(s, matcher.XorStore)
	return ok
}

func findKey2Key3(s il.Stream, b *Bundle) (ok bool) {
	b.Key2, b.Key3, ok = matcher.FindConstPair(s, matcher.PairedConstStore)
	return ok
}

func findKey4Normal(s il.Stream, b *Bundle) (ok bool) {
	b.Key4, ok = matcher.FindConst(s, matcher.MixStore)
	return ok
}

func findKey4Other(s il.Stream, b *Bundle) (ok bool) {
	b.Key4, ok = matcher.PostCallConstant(s, il.BinaryReaderReadInt32)
	return ok
}

func findKey5(s il.Stream, b *Bundle) (ok bool) {
	b.Key5, ok = matcher.PostCallConstant(s, il.AssemblyGetModule)
	return ok
}

func noKey5(_ il.Stream, b *Bundle) bool {
	b.Key5 = 0
	return true
}

// probes returns the ordered probe set for v.
func probes(v version.Version) ([]probe, error) {
	ps := []probe{
		{"key0", findKey0},
		{"key1", findKey1},
		{"key2/key3", findKey2Key3},
	}
	switch v.Mode() {
	case version.Normal:
		ps = append(ps, probe{"key4", findKey4Normal})
	case version.Dynamic, version.Native:
		ps = append(ps, probe{"key4", findKey4Other})
	default:
		return nil, fmt.Errorf("%s: %w", v, version.ErrUnreachable)
	}
	if v.HasKey5() {
		ps = append(ps, probe{"key5", findKey5})
	} else {
		ps = append(ps, probe{"key5", noKey5})
	}
	return ps, nil
}

// Extract runs the probes for v over s. The first missing key aborts
// extraction; a partially filled bundle is never returned.
func Extract(v version.Version, s il.Stream) (Bundle, error) {
	ps, err := probes(v)
	if err != nil {
		return Bundle{}, err
	}
	var b Bundle
	for _, p := range ps {
		if !p.find(s, &b) {
			return Bundle{}, &ExtractionError{Key: p.key, Version: v}
		}
	}
	return b, nil
}
