// Package translate provides the cached, rate-limited translation layer
// used during ingestion of non-English documents.
package translate

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// cacheKeyLen is the hex prefix length of the content hash. Collisions are
// negligible at corpus scale; the key is not a cryptographic guarantee.
const cacheKeyLen = 16

// CacheEntry is the bookkeeping record kept per cached translation.
type CacheEntry struct {
	SourceLang    string `json:"source_lang"`
	OriginalLen   int    `json:"original_len"`
	TranslatedLen int    `json:"translated_len"`
}

// Cache is a content-addressable, append-only store of translations. Each
// translation lives in its own <key>.txt file next to an index.json mapping
// keys to bookkeeping metadata. Concurrent processes sharing a cache
// directory race on the index file; the last writer wins.
type Cache struct {
	dir string

	mu    sync.Mutex
	index map[string]CacheEntry
}

// NewCache opens (or creates) a cache directory and loads its index.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	c := &Cache{dir: dir, index: map[string]CacheEntry{}}

	data, err := os.ReadFile(c.indexPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return nil, fmt.Errorf("read cache index: %w", err)
	}
	if err := json.Unmarshal(data, &c.index); err != nil {
		return nil, fmt.Errorf("parse cache index: %w", err)
	}
	return c, nil
}

// Key derives the cache key for a (text, source language) pair.
func Key(text, sourceLang string) string {
	sum := sha256.Sum256([]byte(text))
	return sourceLang + "_" + hex.EncodeToString(sum[:])[:cacheKeyLen]
}

// Get returns the cached translation and whether it was found.
func (c *Cache) Get(text, sourceLang string) (string, bool) {
	key := Key(text, sourceLang)

	c.mu.Lock()
	_, indexed := c.index[key]
	c.mu.Unlock()
	if !indexed {
		return "", false
	}

	data, err := os.ReadFile(filepath.Join(c.dir, key+".txt"))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Put stores a translation, overwriting any previous entry for the same
// pair, and rewrites the on-disk index.
func (c *Cache) Put(text, sourceLang, translation string) error {
	key := Key(text, sourceLang)
	if err := os.WriteFile(filepath.Join(c.dir, key+".txt"), []byte(translation), 0o644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.index[key] = CacheEntry{
		SourceLang:    sourceLang,
		OriginalLen:   len(text),
		TranslatedLen: len(translation),
	}
	return c.saveIndexLocked()
}

// Len returns the number of indexed entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

func (c *Cache) indexPath() string { return filepath.Join(c.dir, "index.json") }

func (c *Cache) saveIndexLocked() error {
	data, err := json.MarshalIndent(c.index, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.indexPath(), data, 0o644); err != nil {
		return fmt.Errorf("write cache index: %w", err)
	}
	return nil
}
