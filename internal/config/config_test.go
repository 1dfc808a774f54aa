package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/cs2kit/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cs2d.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadOverlaysDefinedKeys(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
addr = "127.0.0.1:9400"
trailing_newline = false
api_token = " s3cret "
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	want := DefaultConfig()
	want.Addr = "127.0.0.1:9400"
	want.TrailingNewline = false
	want.APIToken = "s3cret"
	require.Equal(t, want, cfg)
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	testlog.Start(t)
	_, err := Load(writeConfig(t, `adress = ":1"`))
	require.ErrorContains(t, err, "unknown key")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	testlog.Start(t)
	_, err := Load(writeConfig(t, `max_body_bytes = 0`))
	require.ErrorContains(t, err, "max_body_bytes")

	_, err = Load(writeConfig(t, `log_level = "loud"`))
	require.ErrorContains(t, err, "log_level")

	_, err = Load(writeConfig(t, `addr = "  "`))
	require.ErrorContains(t, err, "addr is required")
}

func TestTemplatesParse(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "cs2d.toml")
	require.NoError(t, WriteTemplate(path, "cs2d", false))
	require.Error(t, WriteTemplate(path, "cs2d", false))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "schemas", cfg.SchemaDir)

	_, err = Template("ghost")
	require.Error(t, err)
}
