package decrypter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"haruki-const-decrypter/keys"
	"haruki-const-decrypter/pool"
	"haruki-const-decrypter/version"
)

var testBundle = keys.Bundle{
	Key0: 0x1A2B3C4D, Key1: 0x0BADF00D, Key2: 0x13572468, Key3: 0x24681357,
	Key4: 0x7F4A7C15, Key5: 0x00001234,
}

func bundleFor(v version.Version) keys.Bundle {
	b := testBundle
	if v.HasKey5() {
		b.Salt = []byte{0x10, 0x20, 0x30, 0x40, 0x50}
	} else {
		b.Key5 = 0
	}
	return b
}

func TestRoundTripEveryVersion(t *testing.T) {
	plains := map[pool.TypeCode][]byte{
		pool.TypeInt32:  {0x2A, 0, 0, 0},
		pool.TypeInt64:  {1, 2, 3, 4, 5, 6, 7, 8},
		pool.TypeSingle: {0, 0, 0xC0, 0x3F},
		pool.TypeDouble: {0x69, 0x57, 0x14, 0x8B, 0x0A, 0xBF, 0x05, 0x40},
		pool.TypeString: []byte("constants are not secrets"),
	}
	for _, v := range version.All() {
		b := bundleFor(v)
		for tc, plain := range plains {
			enc, err := Seal(v, b, plain, 0x1234, tc)
			require.NoError(t, err)
			require.NotEqual(t, plain, enc, "%s %s", v, tc)
			got, err := Decrypt(v, b, enc, 0x1234, tc)
			require.NoError(t, err)
			require.Equal(t, plain, got, "%s %s", v, tc)
		}
	}
}

func TestNativeMatchesDynamic(t *testing.T) {
	pairs := [][2]version.Version{
		{version.V17R74708Dynamic, version.V17R74708Native},
		{version.V17R74788Dynamic, version.V17R74788Native},
		{version.V17R74816Dynamic, version.V17R74816Native},
		{version.V17R75056Dynamic, version.V17R75056Native},
	}
	plain := []byte("same bytes either way")
	for _, p := range pairs {
		b := bundleFor(p[0])
		dyn, err := Seal(p[0], b, plain, 99, pool.TypeString)
		require.NoError(t, err)
		nat, err := Seal(p[1], b, plain, 99, pool.TypeString)
		require.NoError(t, err)
		require.Equal(t, dyn, nat)

		got, err := Decrypt(p[1], b, dyn, 99, pool.TypeString)
		require.NoError(t, err)
		require.Equal(t, plain, got)
	}
}

func TestKnownCiphertext(t *testing.T) {
	plain := []byte{0x2A, 0, 0, 0}
	tests := []struct {
		v    version.Version
		want []byte
	}{
		{version.V17R74708Native, []byte{0x11, 0x7C, 0x4A, 0x7F, 0x59, 0xC0, 0x7A, 0xBF}},
		{version.V17R75056Native, []byte{0x11, 0x7C, 0x4A, 0x7F, 0x49, 0xE0, 0x4A, 0xFF}},
		{version.V17R74708Dynamic, []byte{0x11, 0x7C, 0x4A, 0x7F, 0x59, 0xC0, 0x7A, 0xBF}},
		{version.V17R74708Normal, []byte{0x3C, 0xDC, 0xB2, 0x18}},
	}
	for _, tt := range tests {
		b := bundleFor(tt.v)
		enc, err := Seal(tt.v, b, plain, 0x1234, pool.TypeInt32)
		require.NoError(t, err)
		require.Equal(t, tt.want, enc, tt.v.String())

		got, err := Decrypt(tt.v, b, tt.want, 0x1234, pool.TypeInt32)
		require.NoError(t, err)
		require.Equal(t, plain, got, tt.v.String())
	}
}

func TestLaterRevisionsReuseR74788(t *testing.T) {
	plain := []byte{9, 8, 7, 6}
	for _, mode := range []version.Mode{version.Normal, version.Dynamic, version.Native} {
		base, err := version.Compose(version.R74788, mode)
		require.NoError(t, err)
		want, err := Seal(base, bundleFor(base), plain, 5, pool.TypeInt32)
		require.NoError(t, err)
		for _, epoch := range []version.Epoch{version.R74816, version.R75056} {
			v, err := version.Compose(epoch, mode)
			require.NoError(t, err)
			got, err := Seal(v, bundleFor(v), plain, 5, pool.TypeInt32)
			require.NoError(t, err)
			require.Equal(t, want, got, v.String())
			require.Equal(t, TransformName(base), TransformName(v))
		}
	}
}

func TestNormalDependsOnOffsetAndTypeCode(t *testing.T) {
	b := bundleFor(version.V17R74708Normal)
	plain := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	a, _ := Seal(version.V17R74708Normal, b, plain, 10, pool.TypeInt64)
	c, _ := Seal(version.V17R74708Normal, b, plain, 11, pool.TypeInt64)
	d, _ := Seal(version.V17R74708Normal, b, plain, 10, pool.TypeDouble)
	require.NotEqual(t, a, c)
	require.NotEqual(t, a, d)
}

func TestSaltChangesCiphertext(t *testing.T) {
	b := bundleFor(version.V17R74788Normal)
	unsalted := b
	unsalted.Salt = nil
	plain := []byte("salted")
	a, _ := Seal(version.V17R74788Normal, b, plain, 1, pool.TypeString)
	c, _ := Seal(version.V17R74788Normal, unsalted, plain, 1, pool.TypeString)
	require.NotEqual(t, a, c)
}

func TestInvalidTypeCodeRejectedBeforeTransform(t *testing.T) {
	for _, v := range version.All() {
		_, err := Decrypt(v, bundleFor(v), []byte{1, 2, 3, 4, 5}, 0, 0x09)
		require.True(t, errors.Is(err, pool.ErrInvalidTypeCode), v.String())
	}
}

func TestUnknownVersion(t *testing.T) {
	_, err := Decrypt(version.Unknown, testBundle, []byte{1}, 0, pool.TypeInt32)
	require.True(t, errors.Is(err, version.ErrUnreachable))
}

func TestDynamicHeaderMismatch(t *testing.T) {
	b := bundleFor(version.V17R74708Dynamic)
	enc, err := Seal(version.V17R74708Dynamic, b, []byte{1, 2, 3, 4}, 0, pool.TypeInt32)
	require.NoError(t, err)

	_, err = Decrypt(version.V17R74708Dynamic, b, enc[:6], 0, pool.TypeInt32)
	require.True(t, errors.Is(err, ErrCorruptConstant))
	_, err = Decrypt(version.V17R74708Dynamic, b, enc[:2], 0, pool.TypeInt32)
	require.True(t, errors.Is(err, ErrCorruptConstant))
}
