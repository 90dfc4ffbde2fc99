package il

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var readInt32 = &MethodRef{ReturnType: "System.Int32", DeclaringType: "System.IO.BinaryReader", Name: "ReadInt32"}

func TestStreamPredicates(t *testing.T) {
	l := &Local{Index: 0, Type: "System.UInt32"}
	s := NewStream([]Instruction{
		{Op: Stloc, Local: l},
		{Op: LdcI4, Int: -1},
		{Op: Ldloc, Local: l},
		{Op: Xor},
		{Op: Add},
		{Op: Mul},
		{Op: Callvirt, Method: readInt32},
	})

	require.Equal(t, 7, s.Len())
	require.True(t, s.IsStloc(0))
	require.True(t, s.IsLdcI4(1))
	require.True(t, s.IsLdloc(2))
	require.True(t, s.IsXor(3))
	require.True(t, s.IsAdd(4))
	require.True(t, s.IsMul(5))
	require.True(t, s.IsCallAt(6))
	require.False(t, s.IsLdloc(0))
	require.Nil(t, s.At(7))
	require.Nil(t, s.At(-1))

	require.Same(t, s.LocalAt(0), s.LocalAt(2))
	require.Nil(t, s.LocalAt(1))

	v, ok := s.IntAt(1)
	require.True(t, ok)
	require.Equal(t, uint32(0xFFFFFFFF), uint32(v))
	_, ok = s.IntAt(0)
	require.False(t, ok)
}

func TestLocalIdentityIsNotValue(t *testing.T) {
	a := &Local{Index: 1, Type: "System.Int32"}
	b := &Local{Index: 1, Type: "System.Int32"}
	s := NewStream([]Instruction{{Op: Stloc, Local: a}, {Op: Ldloc, Local: b}})
	require.NotSame(t, s.LocalAt(0), s.LocalAt(1))
}

func TestFindCall(t *testing.T) {
	s := NewStream([]Instruction{
		{Op: Callvirt, Method: readInt32},
		{Op: LdcI4, Int: 1},
		{Op: Call, Method: readInt32},
	})
	name := "System.Int32 System.IO.BinaryReader::ReadInt32()"
	require.Equal(t, 0, s.FindCall(0, name))
	require.Equal(t, 2, s.FindCall(1, name))
	require.Equal(t, -1, s.FindCall(3, name))
	require.Equal(t, -1, s.FindCall(0, "System.Void Foo::Bar()"))
}
