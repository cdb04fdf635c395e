package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Cache stores catalog objects keyed by id. Entries never expire.
type Cache interface {
	Get(id string) (*Object, bool)
	Set(id string, obj *Object)
	Len() int
}

// MemoryCache is an in-memory Cache.
type MemoryCache struct {
	mu    sync.RWMutex
	store map[string]*Object
}

// NewMemoryCache creates an empty memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		store: make(map[string]*Object),
	}
}

// Get retrieves an object from the cache
func (c *MemoryCache) Get(id string) (*Object, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	obj, found := c.store[id]
	return obj, found
}

// Set stores an object in the cache
func (c *MemoryCache) Set(id string, obj *Object) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[id] = obj
}

// Len returns the number of cached objects
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.store)
}

// snapshot copies the store so it can be serialized without holding the lock.
func (c *MemoryCache) snapshot() map[string]*Object {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]*Object, len(c.store))
	for k, v := range c.store {
		out[k] = v
	}
	return out
}

// FileCache is a MemoryCache backed by a JSON file mapping id to object.
// The file is read once by OpenFileCache and rewritten wholesale by Flush.
type FileCache struct {
	*MemoryCache
	path string
}

// OpenFileCache loads the cache file at path. A missing file yields an
// empty cache; a corrupt one is an error.
func OpenFileCache(path string) (*FileCache, error) {
	fc := &FileCache{
		MemoryCache: NewMemoryCache(),
		path:        path,
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog cache %s: %w", path, err)
	}
	if len(data) == 0 {
		return fc, nil
	}

	var entries map[string]*Object
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse catalog cache %s: %w", path, err)
	}
	for id, obj := range entries {
		if obj != nil {
			fc.store[id] = obj
		}
	}

	return fc, nil
}

// Path returns the backing file path.
func (c *FileCache) Path() string {
	return c.path
}

// Flush writes every entry to disk, replacing the previous file atomically.
func (c *FileCache) Flush() error {
	data, err := json.MarshalIndent(c.snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode catalog cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".catalog-cache-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write catalog cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close catalog cache: %w", err)
	}

	if err := os.Rename(tmpName, c.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace catalog cache: %w", err)
	}
	return nil
}

// Close flushes the cache. It is meant to be deferred right after
// OpenFileCache so every exit path persists what was resolved.
func (c *FileCache) Close() error {
	return c.Flush()
}
