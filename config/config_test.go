package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sample = `
concurrent_decrypters: 8
backend:
  host: 0.0.0.0
  port: 9000
  enable_authorization: true
  accept_authorization_token: secret
modules:
  - name: game
    path: dumps/game.json
  - url: https://example.invalid/dumps/app.msgpack
report:
  format: yaml
remote_storages:
  - type: s3
    region: us-east-1
    bucket: reports
    prefix: consts/
`

func TestParse(t *testing.T) {
	cfg, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	require.Equal(t, 8, cfg.ConcurrentDecrypters)
	require.Equal(t, 4, cfg.ConcurrentUploads)
	require.Equal(t, 9000, cfg.Backend.Port)
	require.Equal(t, "INFO", cfg.Backend.LogLevel)
	require.True(t, cfg.Backend.EnableAuthorization)
	require.Len(t, cfg.Modules, 2)
	require.Equal(t, "dumps/game.json", cfg.Modules[0].Path)
	require.Equal(t, "yaml", cfg.Report.Format)
	require.Equal(t, "reports", cfg.Report.OutputDir)
	require.Equal(t, "consts/", cfg.RemoteStorages[0].Prefix)
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoad(t *testing.T) {
	old := Cfg
	t.Cleanup(func() { Cfg = old })

	require.NoError(t, Load(filepath.Join(t.TempDir(), "missing.yaml")))
	require.Equal(t, old, Cfg)

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))
	require.NoError(t, Load(path))
	require.Equal(t, 8, Cfg.ConcurrentDecrypters)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("backend: [1, 2"), 0644))
	require.Error(t, Load(bad))
}
