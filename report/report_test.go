package report

import (
	"os"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/shamaton/msgpack/v2"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"haruki-const-decrypter/decrypter"
	"haruki-const-decrypter/decrypter/decryptertest"
	"haruki-const-decrypter/il/iltest"
	"haruki-const-decrypter/pool"
	"haruki-const-decrypter/version"
)

func scanned(t *testing.T, f *decryptertest.Fixture) *Report {
	t.Helper()
	d, err := decrypter.Open(f.Module, decrypter.Options{})
	require.NoError(t, err)
	require.NotNil(t, d)
	return Scan(d)
}

func TestScanResolvesEveryCallSite(t *testing.T) {
	f := decryptertest.Default(version.V17R74788Normal)
	r := scanned(t, f)
	require.Equal(t, "sample.exe", r.Module)
	require.Equal(t, "v17_r74788_normal", r.Version)
	require.Equal(t, "normal", r.Transform)
	require.Equal(t, "consts", r.Resource)
	require.Len(t, r.Routines, 2)
	require.Equal(t, len(f.Values), r.Resolved)
	require.Zero(t, r.Failed)
	for i, s := range r.Sites {
		require.Equal(t, "System.Void Program::Main()", s.Caller)
		require.Equal(t, iltest.DecryptTokenAt(f.Values[i].Routine), s.Routine)
		require.Equal(t, f.Values[i].Value, s.Value)
		require.Empty(t, s.Error)
	}
}

func TestScanReportsFailures(t *testing.T) {
	routines := []iltest.Keys{decryptertest.DefaultKeys[0], decryptertest.DefaultKeys[1]}
	routines[1].Omit = "key4"
	f := decryptertest.Build(
		iltest.Options{Version: version.V17R74708Dynamic, Routines: routines},
		[]decryptertest.Value{
			{Routine: 0, Arg0: 1, Value: "kept"},
			{Routine: 1, Arg0: 2, Value: int64(9)},
			{Routine: 0, Arg0: 3, Value: int32(3), Corrupt: true},
		},
	)
	r := scanned(t, f)
	require.Equal(t, 1, r.Resolved)
	require.Equal(t, 2, r.Failed)
	require.Contains(t, r.Sites[1].Error, "key4")
	require.Contains(t, r.Sites[2].Error, "invalid type code")
	require.Len(t, r.Routines, 2)
	require.Nil(t, r.Routines[1].Keys)
	require.NotEmpty(t, r.Routines[1].Error)
}

func TestOnlyKeepsRequestedTypes(t *testing.T) {
	r := scanned(t, decryptertest.Default(version.V17R75056Dynamic))
	r.Only(pool.TypeString, pool.TypeInt32)
	require.Equal(t, 2, r.Resolved)
	require.Len(t, r.Sites, 2)
	require.Equal(t, "int32", r.Sites[0].Type)
	require.Equal(t, "string", r.Sites[1].Type)

	all := scanned(t, decryptertest.Default(version.V17R75056Dynamic))
	all.Only()
	require.Len(t, all.Sites, 5)
}

func TestEncodeJSONIsOrdered(t *testing.T) {
	r := scanned(t, decryptertest.Default(version.V17R74708Normal))
	data, err := Encode(r, FormatJSON)
	require.NoError(t, err)
	out := string(data)
	require.Less(t, strings.Index(out, `"module"`), strings.Index(out, `"version"`))
	require.Less(t, strings.Index(out, `"routines"`), strings.Index(out, `"sites"`))
	require.Contains(t, out, `"héllo, world"`)

	var decoded map[string]any
	require.NoError(t, sonic.Unmarshal(data, &decoded))
	sites := decoded["sites"].([]any)
	require.Len(t, sites, len(r.Sites))
	require.Equal(t, 1.5, sites[2].(map[string]any)["value"])
	routine := decoded["routines"].([]any)[0].(map[string]any)
	require.Equal(t, "0x1A2B3C4D", routine["keys"].(map[string]any)["key0"])
}

func TestJSONFloatsKeepFraction(t *testing.T) {
	data, err := sonic.Marshal([]any{jsonValue(2.0), jsonValue(float32(0.1)), jsonValue(int32(2))})
	require.NoError(t, err)
	require.Equal(t, `[2.0,0.1,2]`, string(data))
}

func TestEncodeMsgpackAndYAML(t *testing.T) {
	r := scanned(t, decryptertest.Default(version.V17R75056Dynamic))

	data, err := Encode(r, FormatMsgpack)
	require.NoError(t, err)
	var fromMsgpack Report
	require.NoError(t, msgpack.Unmarshal(data, &fromMsgpack))
	require.Equal(t, r.Version, fromMsgpack.Version)
	require.Len(t, fromMsgpack.Sites, len(r.Sites))

	data, err = Encode(r, FormatYAML)
	require.NoError(t, err)
	var fromYAML Report
	require.NoError(t, yaml.Unmarshal(data, &fromYAML))
	require.Equal(t, r.Resolved, fromYAML.Resolved)
	require.Equal(t, "cons", fromYAML.Resource)
}

func TestWrite(t *testing.T) {
	r := scanned(t, decryptertest.Default(version.V17R74816Native))
	path, err := Write(r, t.TempDir(), FormatYAML)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "sample.exe.consts.yaml"))
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("YML")
	require.NoError(t, err)
	require.Equal(t, FormatYAML, f)
	f, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, f)
	_, err = ParseFormat("xml")
	require.ErrorIs(t, err, ErrUnknownFormat)
}
