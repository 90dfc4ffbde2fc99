// Package iltest builds synthetic protected modules whose decrypt routines
// carry known keys.
package iltest

import (
	"fmt"

	"haruki-const-decrypter/il"
	"haruki-const-decrypter/version"
)

const (
	ModuleTypeToken = 0x02000001
	HolderTypeToken = 0x02000010
	CctorToken      = 0x06000001
	NativeToken     = 0x06000002
	DecryptToken    = 0x06000100
	ProgramToken    = 0x06000200

	DefaultResourceName = "consts"
	// DefaultResourceID spells "cons" in little-endian bytes.
	DefaultResourceID = 0x736E6F63

	NativeHelper = "System.Int32 <Module>::NativeHelper(System.Int32)"
)

// Keys are the values planted into one decrypt routine. Omit names one
// idiom ("key0", "key1", "key23", "key4", "key5") to leave out.
type Keys struct {
	Key0, Key1, Key2, Key3, Key4, Key5 uint32
	Omit                               string
}

// CallSite is a constant load "ldc arg0; ldc arg1; call decrypt" emitted
// into Program::Main for the routine at index Routine.
type CallSite struct {
	Routine    int
	Arg0, Arg1 uint32
}

type Options struct {
	Version  version.Version
	Routines []Keys
	// Resource is stored under the name the initializer references.
	Resource     []byte
	ResourceID   uint32
	Blobs        map[uint32][]byte
	CallSites    []CallSite
	OmitLocal    string
	OmitDict     bool
	OmitNative   bool
	NoModuleInit bool
}

// DecryptTokenAt returns the token of the i-th decrypt routine.
func DecryptTokenAt(i int) uint32 {
	return DecryptToken + uint32(i)
}

// HolderTokenAt returns the token of the type declaring the i-th routine.
func HolderTokenAt(i int) uint32 {
	return HolderTypeToken + uint32(i)
}

// ResourceName is the resource name the initializer of opts refers to.
func ResourceName(opts Options) string {
	if opts.Version.Epoch() != version.R75056 {
		return DefaultResourceName
	}
	id := opts.ResourceID
	if id == 0 {
		id = DefaultResourceID
	}
	return string([]byte{byte(id), byte(id >> 8), byte(id >> 16), byte(id >> 24)})
}

// Module assembles a protected module from opts.
func Module(opts Options) *il.Module {
	moduleType := &il.TypeDef{
		Token: ModuleTypeToken,
		Name:  il.ModuleTypeName,
		Fields: []*il.FieldDef{
			{Token: 0x04000001, Name: "cache", Type: il.TypeConstsCache},
			{Token: 0x04000002, Name: "data", Type: il.TypeStream},
		},
	}
	if !opts.NoModuleInit {
		moduleType.Methods = append(moduleType.Methods, initializer(opts))
	}
	if opts.Version.Mode() == version.Native && !opts.OmitNative {
		moduleType.Methods = append(moduleType.Methods, &il.MethodDef{
			Token:          NativeToken,
			Name:           "NativeHelper",
			Attributes:     il.MethodStatic,
			ImplAttributes: il.ImplNative | il.ImplUnmanaged,
			ReturnType:     il.TypeInt32,
			Params:         []string{il.TypeInt32},
		})
	}

	types := []*il.TypeDef{moduleType}
	for i, k := range opts.Routines {
		types = append(types, &il.TypeDef{
			Token:      HolderTokenAt(i),
			Name:       fmt.Sprintf("Consts%d", i),
			Attributes: il.TypeAbstract | il.TypeSealed,
			Methods:    []*il.MethodDef{DecryptMethod(DecryptTokenAt(i), opts.Version, k)},
		})
	}
	if len(opts.CallSites) > 0 {
		types = append(types, program(opts))
	}

	var resources []*il.Resource
	if opts.Resource != nil {
		resources = append(resources, &il.Resource{Name: ResourceName(opts), Data: opts.Resource})
	}
	return il.NewModule("sample.exe", types, resources, opts.Blobs)
}

func initializer(opts Options) *il.MethodDef {
	asm := &il.Local{Index: 0, Type: il.TypeAssembly}
	deflate := &il.Local{Index: 1, Type: il.TypeDeflate}
	buf := &il.Local{Index: 2, Type: il.TypeByteArray}
	n := &il.Local{Index: 3, Type: il.TypeInt32}
	var locals []*il.Local
	for _, l := range []*il.Local{asm, deflate, buf, n} {
		if l.Type != opts.OmitLocal {
			locals = append(locals, l)
		}
	}

	var body []il.Instruction
	if !opts.OmitDict {
		body = append(body,
			Newobj(il.ConstsCacheCtor),
			Stsfld(il.TypeConstsCache+" <Module>::cache"),
		)
	}
	body = append(body,
		Call("System.Reflection.Assembly System.Reflection.Assembly::GetExecutingAssembly()"),
		Stloc(asm),
		Ldloc(asm),
	)
	if opts.Version.Epoch() == version.R75056 {
		id := opts.ResourceID
		if id == 0 {
			id = DefaultResourceID
		}
		body = append(body,
			Ldc(id),
			Call(il.BitConverterGetBytes),
			Callvirt("System.String System.Text.Encoding::GetString(System.Byte[])"),
		)
	} else {
		body = append(body, il.Instruction{Op: il.Ldstr, Str: DefaultResourceName})
	}
	body = append(body,
		Callvirt(il.GetManifestResourceStream),
		Ldc(0),
		Newobj("System.Void System.IO.Compression.DeflateStream::.ctor(System.IO.Stream,System.IO.Compression.CompressionMode)"),
		Stloc(deflate),
		Ldc(0),
		Stloc(n),
		Ldloc(buf),
		Newobj("System.Void System.IO.MemoryStream::.ctor(System.Byte[])"),
		Stsfld("System.IO.Stream <Module>::data"),
		Op(il.Ret),
	)
	return &il.MethodDef{
		Token:      CctorToken,
		Name:       ".cctor",
		Attributes: il.MethodStatic,
		ReturnType: "System.Void",
		Locals:     locals,
		Body:       body,
	}
}

// DecryptMethod builds a decrypt routine in the shape emitted for v.
func DecryptMethod(token uint32, v version.Version, k Keys) *il.MethodDef {
	ls := make([]*il.Local, 7)
	for i := range ls {
		ls[i] = &il.Local{Index: i, Type: il.TypeUInt32}
	}
	ls[6].Type = il.TypeBinaryRead

	body := []il.Instruction{Op(il.Other)}
	if k.Omit != "key23" {
		body = append(body, Ldc(k.Key2), Stloc(ls[2]), Ldc(k.Key3), Stloc(ls[3]))
	}
	if k.Omit != "key0" {
		body = append(body, Ldloc(ls[0]), Op(il.Or), Ldc(k.Key0), Op(il.Xor), Op(il.Add), Stloc(ls[0]))
	}
	if k.Omit != "key1" {
		body = append(body, Op(il.Other), Stloc(ls[1]), Ldc(k.Key1), Ldloc(ls[1]), Op(il.Xor), Stloc(ls[4]))
	}
	if v.HasKey5() && k.Omit != "key5" {
		body = append(body, Ldloc(ls[6]), Callvirt(il.AssemblyGetModule), Ldc(k.Key5), Op(il.Xor), Stloc(ls[5]))
	}
	if v.Epoch() >= version.R74816 {
		body = append(body, Callvirt(il.ModuleGetScopeName), Op(il.Other))
	}
	switch v.Mode() {
	case version.Normal:
		if k.Omit != "key4" {
			body = append(body, Ldloc(ls[0]), Ldloc(ls[1]), Op(il.Add), Ldc(k.Key4), Op(il.Mul), Stloc(ls[4]))
		}
		body = append(body,
			Ldloc(ls[4]), Ldc(0xFFFF), Op(il.Other),
			Ldc(0x100), Op(il.Mul),
			Ldloc(ls[4]), Ldc(0x10000), Op(il.Other), Stloc(ls[4]),
		)
	case version.Dynamic, version.Native:
		if k.Omit != "key4" {
			body = append(body, Ldloc(ls[6]), Callvirt(il.BinaryReaderReadInt32), Ldc(k.Key4), Op(il.Xor), Stloc(ls[4]))
		}
		if v.Mode() == version.Native {
			body = append(body, Ldloc(ls[4]), Call(NativeHelper), Stloc(ls[4]))
		}
	}
	body = append(body, Op(il.Ret))

	return &il.MethodDef{
		Token:      token,
		Name:       "Decrypt",
		Attributes: il.MethodStatic | il.MethodHideBySig,
		ReturnType: il.TypeObject,
		Params:     []string{il.TypeUInt32, il.TypeUInt32},
		Locals:     ls,
		Body:       body,
	}
}

func program(opts Options) *il.TypeDef {
	var body []il.Instruction
	for _, cs := range opts.CallSites {
		target := fmt.Sprintf("System.Object Consts%d::Decrypt(System.UInt32,System.UInt32)", cs.Routine)
		body = append(body, Ldc(cs.Arg0), Ldc(cs.Arg1), Call(target), Op(il.Other))
	}
	body = append(body, Op(il.Ret))
	return &il.TypeDef{
		Token: 0x02000100,
		Name:  "Program",
		Methods: []*il.MethodDef{{
			Token:      ProgramToken,
			Name:       "Main",
			Attributes: il.MethodStatic,
			ReturnType: "System.Void",
			Body:       body,
		}},
	}
}

func Ldc(v uint32) il.Instruction      { return il.Instruction{Op: il.LdcI4, Int: int32(v)} }
func Ldloc(l *il.Local) il.Instruction { return il.Instruction{Op: il.Ldloc, Local: l} }
func Stloc(l *il.Local) il.Instruction { return il.Instruction{Op: il.Stloc, Local: l} }
func Op(c il.Code) il.Instruction      { return il.Instruction{Op: c} }

func Call(fullName string) il.Instruction {
	return il.Instruction{Op: il.Call, Method: mustMethod(fullName)}
}

func Callvirt(fullName string) il.Instruction {
	return il.Instruction{Op: il.Callvirt, Method: mustMethod(fullName)}
}

func Newobj(fullName string) il.Instruction {
	return il.Instruction{Op: il.Newobj, Method: mustMethod(fullName)}
}

func Stsfld(fullName string) il.Instruction {
	ref, err := il.ParseFieldRef(fullName)
	if err != nil {
		panic(err)
	}
	return il.Instruction{Op: il.Stsfld, Field: ref}
}

func mustMethod(fullName string) *il.MethodRef {
	ref, err := il.ParseMethodRef(fullName)
	if err != nil {
		panic(err)
	}
	return ref
}
