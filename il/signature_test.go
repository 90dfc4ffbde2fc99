package il

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMethodRef(t *testing.T) {
	tests := []struct {
		fullName string
		ret      string
		decl     string
		name     string
		params   []string
	}{
		{"System.Int32 System.IO.BinaryReader::ReadInt32()", "System.Int32", "System.IO.BinaryReader", "ReadInt32", nil},
		{"System.Object <Module>::Decrypt(System.UInt32,System.UInt32)", "System.Object", "<Module>", "Decrypt", []string{"System.UInt32", "System.UInt32"}},
		{
			"System.Void System.Collections.Generic.Dictionary`2<System.UInt32,System.Object>::.ctor()",
			"System.Void", "System.Collections.Generic.Dictionary`2<System.UInt32,System.Object>", ".ctor", nil,
		},
		{
			"System.Void Foo::Bar(System.Collections.Generic.Dictionary`2<System.UInt32,System.Object>,System.Int32)",
			"System.Void", "Foo", "Bar", []string{"System.Collections.Generic.Dictionary`2<System.UInt32,System.Object>", "System.Int32"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.fullName, func(t *testing.T) {
			ref, err := ParseMethodRef(tt.fullName)
			require.NoError(t, err)
			require.Equal(t, tt.ret, ref.ReturnType)
			require.Equal(t, tt.decl, ref.DeclaringType)
			require.Equal(t, tt.name, ref.Name)
			require.Equal(t, tt.params, ref.Params)
			require.Equal(t, tt.fullName, ref.FullName())
		})
	}
}

func TestParseMethodRefInvalid(t *testing.T) {
	_, err := ParseMethodRef("ReadInt32")
	require.Error(t, err)
}

func TestParseFieldRef(t *testing.T) {
	ref, err := ParseFieldRef("System.IO.Stream <Module>::stream")
	require.NoError(t, err)
	require.Equal(t, "System.IO.Stream", ref.Type)
	require.Equal(t, "<Module>", ref.DeclaringType)
	require.Equal(t, "stream", ref.Name)

	_, err = ParseFieldRef("stream")
	require.Error(t, err)
}
