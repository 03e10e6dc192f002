package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/n0ko/message-feed/internal/config"
	"github.com/n0ko/message-feed/internal/feed"
	"github.com/n0ko/message-feed/internal/ledger"
)

// Cache is the last feed loaded from a node, restored on start so the
// feed renders before the first refresh completes.
type Cache struct {
	// ConfigURL identifies the node the feed was loaded from
	ConfigURL    string           `json:"config_url"`
	FirstMessage ledger.PublicKey `json:"first_message"`
	Messages     []feed.Message   `json:"messages"`
	SavedAt      time.Time        `json:"saved_at"`
}

// Store manages the on-disk feed cache
type Store struct {
	mu    sync.RWMutex
	dir   string
	cache *Cache
}

// New creates a Store under the config directory
func New() (*Store, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, err
	}
	return NewWithDir(dir), nil
}

// NewWithDir creates a Store keeping its files in dir
func NewWithDir(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) cachePath() string {
	return filepath.Join(s.dir, "feed.json")
}

// LoadCache loads the cache from disk. It returns nil if none was saved.
func (s *Store) LoadCache() (*Cache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.cachePath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cache Cache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, err
	}

	s.cache = &cache
	return &cache, nil
}

// SaveCache writes cache to disk
func (s *Store) SaveCache(cache *Cache) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}

	cache.SavedAt = time.Now()
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}

	s.cache = cache
	return os.WriteFile(s.cachePath(), data, 0600)
}

// ClearCache removes the cache from disk
func (s *Store) ClearCache() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache = nil

	err := os.Remove(s.cachePath())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// GetCache returns the cache last loaded or saved
func (s *Store) GetCache() *Cache {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache
}
