package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ws://localhost:3000/ws", cfg.Upstream.URL)
	assert.Equal(t, uint64(4), cfg.Upstream.MaxDialRetries)
	assert.Equal(t, 256, cfg.Channel.SendBuffer)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
upstream:
  url: ws://bot:9000/ws
  max_dial_retries: 2
channel:
  send_buffer: 64
logging:
  level: debug
  format: pretty
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(LoadOptions{Path: path})
	require.NoError(t, err)

	assert.Equal(t, "ws://bot:9000/ws", cfg.Upstream.URL)
	assert.Equal(t, uint64(2), cfg.Upstream.MaxDialRetries)
	assert.Equal(t, 64, cfg.Channel.SendBuffer)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "pretty", cfg.Logging.Format)

	// Untouched fields keep their defaults.
	assert.Equal(t, 60*time.Second, cfg.Channel.ReadTimeout)
}

func TestLoad_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"upstream": {"url": "ws://bot:8000/ws"}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(LoadOptions{Path: path})
	require.NoError(t, err)

	assert.Equal(t, "ws://bot:8000/ws", cfg.Upstream.URL)
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("x = 1"), 0o600))

	_, err := Load(LoadOptions{Path: path})
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BOTMUX_UPSTREAM_URL", "ws://env:7000/ws")
	t.Setenv("BOTMUX_LOG_LEVEL", "warn")
	t.Setenv("BOTMUX_UPSTREAM_MAX_DIAL_RETRIES", "9")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ws://env:7000/ws", cfg.Upstream.URL)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, uint64(9), cfg.Upstream.MaxDialRetries)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Upstream.URL = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Channel.SendBuffer = 0
	assert.Error(t, cfg.Validate())

	assert.NoError(t, Default().Validate())
}
