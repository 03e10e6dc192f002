package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("EDITOR", "vi")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8081/config.json", cfg.ConfigURL)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, 15*time.Minute, cfg.IdleTimeout)
	assert.Equal(t, "vi", cfg.Editor)
	assert.Equal(t, DefaultKeybinds(), cfg.Keybinds)
}

func TestLoadMergesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "message-feed")
	require.NoError(t, os.MkdirAll(dir, 0755))
	yml := `
config_url: https://feed.example.com/config.json
poll_interval: 5s
keybinds:
  global:
    refresh: f5
theme:
  primary_color: "#FF0000"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yml), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://feed.example.com/config.json", cfg.ConfigURL)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 15*time.Minute, cfg.IdleTimeout)
	assert.Equal(t, "f5", cfg.Keybinds.Global.Refresh)
	assert.Equal(t, "ctrl+s", cfg.Keybinds.Global.Share)
	assert.Equal(t, "#FF0000", cfg.Theme.PrimaryColor)
	assert.Equal(t, "#10B981", cfg.Theme.SecondaryColor)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "message-feed")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("poll_interval: [oops"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.IdleTimeout = time.Minute
	require.NoError(t, cfg.Save())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, loaded.IdleTimeout)

	logPath, err := LogPath()
	require.NoError(t, err)
	assert.Equal(t, "message-feed.log", filepath.Base(logPath))
}
