package il

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPeepholeFoldsConstants(t *testing.T) {
	l := &Local{Index: 0, Type: "System.Int32"}
	m := &MethodDef{Name: "f", Body: []Instruction{
		{Op: Nop},
		{Op: LdcI4, Int: 0x10},
		{Op: LdcI4, Int: 0x01},
		{Op: Xor},
		{Op: LdcI4, Int: 2},
		{Op: Mul},
		{Op: Nop},
		{Op: Stloc, Local: l},
	}}

	out := Peephole{}.Simplify(m)
	require.Equal(t, []Instruction{
		{Op: LdcI4, Int: 0x22},
		{Op: Stloc, Local: l},
	}, out.Body)
	require.Len(t, m.Body, 8)
}

func TestPeepholeKeepsIdioms(t *testing.T) {
	l := &Local{Index: 0, Type: "System.UInt32"}
	body := []Instruction{
		{Op: Stloc, Local: l},
		{Op: LdcI4, Int: 5},
		{Op: Ldloc, Local: l},
		{Op: Xor},
		{Op: Stloc, Local: l},
	}
	out := Peephole{}.Simplify(&MethodDef{Body: body})
	require.Equal(t, body, out.Body)
}
