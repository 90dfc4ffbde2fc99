package keys

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"haruki-const-decrypter/il"
	"haruki-const-decrypter/il/iltest"
	"haruki-const-decrypter/version"
)

var planted = iltest.Keys{
	Key0: 0x9E3779B9, Key1: 0x85EBCA6B, Key2: 0xC2B2AE35, Key3: 0x27D4EB2F,
	Key4: 0x165667B1, Key5: 0x0000BEEF,
}

func TestExtractRecoversPlantedKeys(t *testing.T) {
	for _, v := range version.All() {
		t.Run(v.String(), func(t *testing.T) {
			m := iltest.DecryptMethod(0x06000001, v, planted)
			b, err := Extract(v, m.Stream())
			require.NoError(t, err)
			require.Equal(t, planted.Key0, b.Key0)
			require.Equal(t, planted.Key1, b.Key1)
			require.Equal(t, planted.Key2, b.Key2)
			require.Equal(t, planted.Key3, b.Key3)
			require.Equal(t, planted.Key4, b.Key4)
			if v.HasKey5() {
				require.Equal(t, planted.Key5, b.Key5)
			} else {
				require.Zero(t, b.Key5)
			}
		})
	}
}

func TestExtractAfterPeephole(t *testing.T) {
	v := version.V17R75056Normal
	m := il.Peephole{}.Simplify(iltest.DecryptMethod(0x06000001, v, planted))
	b, err := Extract(v, m.Stream())
	require.NoError(t, err)
	require.Equal(t, planted.Key4, b.Key4)
}

func TestExtractFailsOnMissingIdiom(t *testing.T) {
	tests := []struct {
		omit    string
		version version.Version
		key     string
	}{
		{"key0", version.V17R74708Normal, "key0"},
		{"key1", version.V17R74788Dynamic, "key1"},
		{"key23", version.V17R74816Native, "key2/key3"},
		{"key4", version.V17R74708Normal, "key4"},
		{"key4", version.V17R75056Dynamic, "key4"},
		{"key5", version.V17R74816Normal, "key5"},
	}
	for _, tt := range tests {
		t.Run(tt.version.String()+"/"+tt.omit, func(t *testing.T) {
			k := planted
			k.Omit = tt.omit
			m := iltest.DecryptMethod(0x06000001, tt.version, k)
			b, err := Extract(tt.version, m.Stream())
			require.True(t, errors.Is(err, ErrKeyExtractionFailed))
			var extErr *ExtractionError
			require.True(t, errors.As(err, &extErr))
			require.Equal(t, tt.key, extErr.Key)
			require.Equal(t, Bundle{}, b)
		})
	}
}

func TestKey5NotRequiredBeforeR74788(t *testing.T) {
	k := planted
	k.Omit = "key5"
	m := iltest.DecryptMethod(0x06000001, version.V17R74708Dynamic, k)
	b, err := Extract(version.V17R74708Dynamic, m.Stream())
	require.NoError(t, err)
	require.Zero(t, b.Key5)
}

func TestNormalProbeDoesNotAcceptDynamicShape(t *testing.T) {
	m := iltest.DecryptMethod(0x06000001, version.V17R74788Dynamic, planted)
	_, err := Extract(version.V17R74788Normal, m.Stream())
	require.True(t, errors.Is(err, ErrKeyExtractionFailed))
}

func TestExtractUnknownVersion(t *testing.T) {
	_, err := Extract(version.Unknown, il.NewStream(nil))
	require.True(t, errors.Is(err, version.ErrUnreachable))
}
