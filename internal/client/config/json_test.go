package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := writeTempJSON(t, dir, "drawctl.json", map[string]any{
		"server_url":      "https://draw.example",
		"token":           "tok",
		"poll_interval":   "10s",
		"request_timeout": int64(time.Minute),
	})

	t.Run("loads from -config", func(t *testing.T) {
		cfg := &Config{}
		cfg.LoadDefaults()
		require.NoError(t, parseJson(cfg, []string{"-config", path}))

		assert.Equal(t, "https://draw.example", cfg.ServerURL)
		assert.Equal(t, "tok", cfg.Token)
		assert.Equal(t, 10*time.Second, cfg.PollInterval)
		assert.Equal(t, time.Minute, cfg.RequestTimeout)
		assert.Equal(t, ".drawctl", cfg.HistoryDir, "absent keys keep defaults")
	})

	t.Run("no flag leaves config untouched", func(t *testing.T) {
		cfg := &Config{}
		cfg.LoadDefaults()
		require.NoError(t, parseJson(cfg, []string{"list"}))
		assert.Equal(t, "http://127.0.0.1:8080", cfg.ServerURL)
	})

	t.Run("bad json", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
		cfg := &Config{}
		assert.Error(t, parseJson(cfg, []string{"-c", bad}))
	})

	t.Run("bad duration", func(t *testing.T) {
		bad := writeTempJSON(t, dir, "dur.json", map[string]any{"poll_interval": "soon"})
		cfg := &Config{}
		assert.Error(t, parseJson(cfg, []string{"-c", bad}))
	})
}
