package version

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComposeCoversEveryPair(t *testing.T) {
	seen := make(map[Version]bool)
	for _, e := range []Epoch{R74708, R74788, R74816, R75056} {
		for _, m := range []Mode{Normal, Dynamic, Native} {
			v, err := Compose(e, m)
			require.NoError(t, err)
			require.Equal(t, e, v.Epoch())
			require.Equal(t, m, v.Mode())
			require.False(t, seen[v], "duplicate tag %s", v)
			seen[v] = true
		}
	}
	require.Len(t, seen, len(All()))
}

func TestComposeUnreachable(t *testing.T) {
	_, err := Compose(Epoch(99), Normal)
	require.True(t, errors.Is(err, ErrUnreachable))

	_, err = Compose(R74788, Mode(0))
	require.True(t, errors.Is(err, ErrUnreachable))
}

func TestHasKey5(t *testing.T) {
	require.False(t, V17R74708Normal.HasKey5())
	require.False(t, V17R74708Native.HasKey5())
	require.True(t, V17R74788Dynamic.HasKey5())
	require.True(t, V17R75056Normal.HasKey5())
	require.False(t, Unknown.HasKey5())
}

func TestParseRoundTrip(t *testing.T) {
	for _, v := range All() {
		parsed, err := Parse(v.String())
		require.NoError(t, err)
		require.Equal(t, v, parsed)
	}
	require.Equal(t, "v17_r74816_native", V17R74816Native.String())

	_, err := Parse("v17_r1_normal")
	require.Error(t, err)
}
