package matcher

import (
	"testing"

	"github.com/stretchr/testify/require"

	"haruki-const-decrypter/il"
)

const readInt32 = "System.Int32 System.IO.BinaryReader::ReadInt32()"

func ldc(v uint32) il.Instruction      { return il.Instruction{Op: il.LdcI4, Int: int32(v)} }
func ldloc(l *il.Local) il.Instruction { return il.Instruction{Op: il.Ldloc, Local: l} }
func stloc(l *il.Local) il.Instruction { return il.Instruction{Op: il.Stloc, Local: l} }
func op(c il.Code) il.Instruction      { return il.Instruction{Op: c} }

func call(t *testing.T, fullName string) il.Instruction {
	ref, err := il.ParseMethodRef(fullName)
	require.NoError(t, err)
	return il.Instruction{Op: il.Callvirt, Method: ref}
}

func locals(n int) []*il.Local {
	ls := make([]*il.Local, n)
	for i := range ls {
		ls[i] = &il.Local{Index: i, Type: "System.UInt32"}
	}
	return ls
}

func TestXorStore(t *testing.T) {
	l := locals(2)
	s := il.NewStream([]il.Instruction{
		op(il.Nop),
		stloc(l[0]), ldc(0xCAFEBABE), ldloc(l[0]), op(il.Xor), stloc(l[1]),
	})
	m, ok := XorStore.Find(s, 0)
	require.True(t, ok)
	require.Equal(t, 1, m.Start)
	require.Equal(t, 6, m.End)
	require.Equal(t, []uint32{0xCAFEBABE}, m.Values)
}

func TestXorStoreRejectsMismatchedLocals(t *testing.T) {
	l := locals(2)
	s := il.NewStream([]il.Instruction{
		stloc(l[0]), ldc(0xCAFEBABE), ldloc(l[1]), op(il.Xor), stloc(l[1]),
	})
	_, ok := XorStore.Find(s, 0)
	require.False(t, ok)
}

func TestXorStoreRejectsMissingLocals(t *testing.T) {
	s := il.NewStream([]il.Instruction{
		op(il.Stloc), ldc(0x1234), op(il.Ldloc), op(il.Xor), op(il.Stloc),
	})
	_, ok := FindConst(s, XorStore)
	require.False(t, ok)
}

func TestXorStoreRejectsWrongOperator(t *testing.T) {
	l := locals(1)
	s := il.NewStream([]il.Instruction{
		stloc(l[0]), ldc(1), ldloc(l[0]), op(il.Add), stloc(l[0]),
	})
	_, ok := FindConst(s, XorStore)
	require.False(t, ok)
}

func TestFirstMatchWins(t *testing.T) {
	l := locals(1)
	s := il.NewStream([]il.Instruction{
		stloc(l[0]), ldc(1), ldloc(l[0]), op(il.Xor), stloc(l[0]),
		stloc(l[0]), ldc(2), ldloc(l[0]), op(il.Xor), stloc(l[0]),
	})
	v, ok := FindConst(s, XorStore)
	require.True(t, ok)
	require.Equal(t, uint32(1), v)

	m, ok := XorStore.Find(s, 1)
	require.True(t, ok)
	require.Equal(t, []uint32{2}, m.Values)
}

func TestMixStore(t *testing.T) {
	l := locals(3)
	s := il.NewStream([]il.Instruction{
		ldloc(l[0]), ldloc(l[1]), op(il.Add), ldc(0x1234), op(il.Mul), stloc(l[2]),
	})
	v, ok := FindConst(s, MixStore)
	require.True(t, ok)
	require.Equal(t, uint32(0x1234), v)

	near := il.NewStream([]il.Instruction{
		ldloc(l[0]), ldloc(l[1]), op(il.Add), ldc(0x1234), op(il.Xor), stloc(l[2]),
	})
	_, ok = FindConst(near, MixStore)
	require.False(t, ok)
}

func TestOrXorAdd(t *testing.T) {
	l := locals(1)
	s := il.NewStream([]il.Instruction{
		ldloc(l[0]), op(il.Or), ldc(77), op(il.Xor), op(il.Add), stloc(l[0]),
	})
	v, ok := FindConst(s, OrXorAdd)
	require.True(t, ok)
	require.Equal(t, uint32(77), v)
}

func TestPairedConstStore(t *testing.T) {
	l := locals(2)
	s := il.NewStream([]il.Instruction{
		ldc(10), stloc(l[0]), ldc(20), stloc(l[1]),
	})
	a, b, ok := FindConstPair(s, PairedConstStore)
	require.True(t, ok)
	require.Equal(t, uint32(10), a)
	require.Equal(t, uint32(20), b)

	same := il.NewStream([]il.Instruction{
		ldc(10), stloc(l[0]), ldc(20), stloc(l[0]),
	})
	_, _, ok = FindConstPair(same, PairedConstStore)
	require.False(t, ok)
}

func TestPostCallConstant(t *testing.T) {
	l := locals(1)
	s := il.NewStream([]il.Instruction{
		call(t, readInt32), stloc(l[0]),
		call(t, readInt32), ldc(0x55AA), op(il.Xor),
	})
	v, ok := PostCallConstant(s, readInt32)
	require.True(t, ok)
	require.Equal(t, uint32(0x55AA), v)

	tail := il.NewStream([]il.Instruction{ldc(1), call(t, readInt32)})
	_, ok = PostCallConstant(tail, readInt32)
	require.False(t, ok)

	_, ok = PostCallConstant(s, "System.Void Foo::Bar()")
	require.False(t, ok)
}

func TestConstBeforeCall(t *testing.T) {
	getBytes := "System.Byte[] System.BitConverter::GetBytes(System.Int32)"
	s := il.NewStream([]il.Instruction{call(t, getBytes), ldc(0x64636261), call(t, getBytes)})
	v, ok := ConstBeforeCall(s, getBytes)
	require.True(t, ok)
	require.Equal(t, uint32(0x64636261), v)
}

func TestStringBeforeCall(t *testing.T) {
	getStream := "System.IO.Stream System.Reflection.Assembly::GetManifestResourceStream(System.String)"
	s := il.NewStream([]il.Instruction{{Op: il.Ldstr, Str: "consts"}, call(t, getStream)})
	name, ok := StringBeforeCall(s, getStream)
	require.True(t, ok)
	require.Equal(t, "consts", name)
}

func TestHasIntegerAndCallsMethod(t *testing.T) {
	s := il.NewStream([]il.Instruction{ldc(0x100), ldc(0xFFFF), call(t, readInt32)})
	require.True(t, HasInteger(s, 0x100))
	require.True(t, HasInteger(s, 0xFFFF))
	require.False(t, HasInteger(s, 0x10000))
	require.True(t, CallsMethod(s, readInt32))
	require.False(t, CallsMethod(s, "System.Void Foo::Bar()"))
}

func TestConstCall(t *testing.T) {
	virt := call(t, readInt32)
	direct := virt
	direct.Op = il.Call
	s := il.NewStream([]il.Instruction{
		ldc(1), ldc(2), virt,
		ldc(3), op(il.Other), ldc(4), direct,
		ldc(5), ldc(6), direct,
	})
	m, ok := ConstCall.Find(s, 0)
	require.True(t, ok)
	require.Equal(t, []uint32{5, 6}, m.Values)
	require.Equal(t, 10, m.End)
}
