// Package decryptertest protects known constants into synthetic modules.
package decryptertest

import (
	"fmt"

	"haruki-const-decrypter/decrypter"
	"haruki-const-decrypter/il"
	"haruki-const-decrypter/il/iltest"
	"haruki-const-decrypter/keys"
	"haruki-const-decrypter/pool"
	"haruki-const-decrypter/version"
)

// Value is one constant to protect. A zero Offset is assigned automatically.
// Corrupt stores the entry under an unknown type code.
type Value struct {
	Routine int
	Arg0    uint32
	Offset  uint32
	Value   any
	Corrupt bool
}

// Fixture is a protected module plus the call sites that load its values,
// in the order the values were given.
type Fixture struct {
	Module    *il.Module
	Options   iltest.Options
	CallSites []iltest.CallSite
	Values    []Value
}

var DefaultKeys = []iltest.Keys{
	{Key0: 0x1A2B3C4D, Key1: 0x0BADF00D, Key2: 0x13572468, Key3: 0x24681357, Key4: 0x7F4A7C15, Key5: 0x00001234},
	{Key0: 0x55AA55AA, Key1: 0x31415926, Key2: 0x27182818, Key3: 0x16180339, Key4: 0x0DEFACED, Key5: 0x00004321},
}

// DefaultValues covers every type code across two routines.
var DefaultValues = []Value{
	{Routine: 0, Arg0: 7, Value: int32(42)},
	{Routine: 0, Arg0: 8, Value: int64(-1 << 40)},
	{Routine: 1, Arg0: 9, Value: float32(1.5)},
	{Routine: 1, Arg0: 10, Value: 2.718281828},
	{Routine: 0, Arg0: 11, Value: "héllo, world"},
}

// Salt returns the signature blob planted for routine i.
func Salt(i int) []byte {
	return []byte(fmt.Sprintf("salt-%d-\x07\x01\xfe", i))
}

// Default protects DefaultValues with DefaultKeys for v.
func Default(v version.Version) *Fixture {
	return Build(iltest.Options{Version: v, Routines: DefaultKeys}, DefaultValues)
}

// Build fills the resource, blobs and call sites of opts so that every value
// resolves through its routine.
func Build(opts iltest.Options, values []Value) *Fixture {
	if opts.Version.HasKey5() && opts.Blobs == nil {
		opts.Blobs = make(map[uint32][]byte)
		for i, k := range opts.Routines {
			opts.Blobs[iltest.DecryptTokenAt(i)^k.Key5] = Salt(i)
		}
	}
	bare := iltest.Module(opts)

	b := pool.NewBuilder()
	cursor := uint32(8)
	placed := make([]Value, len(values))
	var sites []iltest.CallSite
	for n, val := range values {
		info := infoFor(bare, opts, val.Routine)
		if val.Offset == 0 {
			val.Offset = cursor
		}
		tc, plain, err := decrypter.EncodeConstant(val.Value)
		if err != nil {
			panic(err)
		}
		entry, err := info.Seal(plain, val.Offset, tc)
		if err != nil {
			panic(err)
		}
		if val.Corrupt {
			entry.TypeCode = 0x07
		}
		b.Put(entry.Offset, entry.TypeCode, entry.Encrypted)
		if end := entry.Offset + 5 + uint32(len(entry.Encrypted)); end+3 > cursor {
			cursor = end + 3
		}
		placed[n] = val
		sites = append(sites, iltest.CallSite{
			Routine: val.Routine,
			Arg0:    val.Arg0,
			Arg1:    info.Offset(val.Arg0, 0) ^ val.Offset,
		})
	}

	raw, err := pool.Deflate(b.Bytes())
	if err != nil {
		panic(err)
	}
	if opts.Resource == nil {
		opts.Resource = raw
	}
	opts.CallSites = sites
	return &Fixture{Module: iltest.Module(opts), Options: opts, CallSites: sites, Values: placed}
}

func infoFor(module *il.Module, opts iltest.Options, routine int) *decrypter.Info {
	k := opts.Routines[routine]
	bundle := keys.Bundle{Key0: k.Key0, Key1: k.Key1, Key2: k.Key2, Key3: k.Key3, Key4: k.Key4}
	if opts.Version.HasKey5() {
		bundle.Key5 = k.Key5
		bundle.Salt = opts.Blobs[iltest.DecryptTokenAt(routine)^k.Key5]
	}
	m := module.Method(iltest.DecryptTokenAt(routine))
	if m == nil {
		panic(fmt.Sprintf("no decrypt routine %d", routine))
	}
	return &decrypter.Info{Version: opts.Version, Method: m, Keys: bundle}
}
