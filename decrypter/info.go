package decrypter

import (
	"fmt"

	"haruki-const-decrypter/il"
	"haruki-const-decrypter/keys"
	"haruki-const-decrypter/pool"
	"haruki-const-decrypter/version"
)

// Extractor recovers the key bundle of one decrypt routine.
type Extractor func(v version.Version, s il.Stream) (keys.Bundle, error)

// Info binds one decrypt routine to its keys. It is immutable once built.
type Info struct {
	Version version.Version
	Method  *il.MethodDef
	Keys    keys.Bundle
}

// NewInfo extracts the keys of method and, for revisions carrying key5,
// reads the salt blob addressed by the routine token xor key5.
func NewInfo(module *il.Module, v version.Version, method *il.MethodDef, simplifier il.Simplifier, extract Extractor) (*Info, error) {
	if simplifier == nil {
		simplifier = il.NopSimplifier{}
	}
	if extract == nil {
		extract = keys.Extract
	}
	b, err := extract(v, simplifier.Simplify(method).Stream())
	if err != nil {
		return nil, fmt.Errorf("routine %s: %w", method.FullName(), err)
	}
	if v.HasKey5() {
		salt, err := module.SignatureBlob(method.Token ^ b.Key5)
		if err != nil {
			return nil, fmt.Errorf("routine %s salt: %w", method.FullName(), err)
		}
		b.Salt = salt
	}
	return &Info{Version: v, Method: method, Keys: b}, nil
}

func (i *Info) Token() uint32 {
	return i.Method.Token
}

// Offset derives the pool offset of the constant loaded with (a0, a1).
func (i *Info) Offset(a0, a1 uint32) uint32 {
	var declTok uint32
	if i.Method.DeclaringType != nil {
		declTok = i.Method.DeclaringType.Token
	}
	return i.hash(i.Method.Token^(declTok*a0)) ^ a1
}

// Decrypt recovers the plaintext of e.
func (i *Info) Decrypt(e pool.Entry) ([]byte, error) {
	return Decrypt(i.Version, i.Keys, e.Encrypted, e.Offset, e.TypeCode)
}

// Seal produces the pool entry that decrypts to plain at offset.
func (i *Info) Seal(plain []byte, offset uint32, tc pool.TypeCode) (pool.Entry, error) {
	enc, err := Seal(i.Version, i.Keys, plain, offset, tc)
	if err != nil {
		return pool.Entry{}, err
	}
	return pool.Entry{Offset: offset, TypeCode: tc, Encrypted: enc}, nil
}
