package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n0ko/message-feed/internal/feed"
	"github.com/n0ko/message-feed/internal/ledger"
)

func TestCacheRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	s := NewWithDir(dir)

	cache, err := s.LoadCache()
	require.NoError(t, err)
	assert.Nil(t, cache)

	kp, err := ledger.NewKeypair()
	require.NoError(t, err)
	saved := &Cache{
		ConfigURL:    "http://localhost:8081/config.json",
		FirstMessage: kp.Public,
		Messages: []feed.Message{
			{PublicKey: kp.Public, From: kp.Public, Created: time.Unix(1700000000, 0).UTC(), Text: "hello"},
		},
	}
	require.NoError(t, s.SaveCache(saved))
	assert.False(t, saved.SavedAt.IsZero())

	info, err := os.Stat(filepath.Join(dir, "feed.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := NewWithDir(dir).LoadCache()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, saved.ConfigURL, loaded.ConfigURL)
	assert.Equal(t, saved.FirstMessage, loaded.FirstMessage)
	assert.Equal(t, saved.Messages, loaded.Messages)
}

func TestClearCache(t *testing.T) {
	s := NewWithDir(t.TempDir())
	require.NoError(t, s.ClearCache())

	require.NoError(t, s.SaveCache(&Cache{ConfigURL: "x"}))
	assert.NotNil(t, s.GetCache())

	require.NoError(t, s.ClearCache())
	assert.Nil(t, s.GetCache())

	cache, err := s.LoadCache()
	require.NoError(t, err)
	assert.Nil(t, cache)
}

func TestLoadCacheMalformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "feed.json"), []byte("{"), 0600))

	_, err := NewWithDir(dir).LoadCache()
	assert.Error(t, err)
}
