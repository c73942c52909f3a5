package store

import (
	"sync"
	"time"
)

// MemoryCache is an in-memory Cache used when no database path is configured
// and in tests.
type MemoryCache struct {
	mu       sync.RWMutex
	entries  map[string]memoryEntry
	settings map[string]string
	now      func() time.Time
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries:  make(map[string]memoryEntry),
		settings: make(map[string]string),
		now:      time.Now,
	}
}

// Get returns the cached payload for key if it has not expired.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || !c.now().Before(entry.expiresAt) {
		return nil, false
	}
	return entry.payload, true
}

// Set stores a payload under key with the given TTL. Already-expired entries
// are dropped on the way.
func (c *MemoryCache) Set(key string, payload []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = memoryEntry{payload: payload, expiresAt: now.Add(ttl)}
	return nil
}

// Purge removes expired entries.
func (c *MemoryCache) Purge() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
	return nil
}

// GetSetting returns a settings value.
func (c *MemoryCache) GetSetting(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	value, ok := c.settings[key]
	return value, ok
}

// SetSetting stores a settings value.
func (c *MemoryCache) SetSetting(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.settings[key] = value
	return nil
}

// Close is a no-op for the in-memory cache.
func (c *MemoryCache) Close() error {
	return nil
}

var _ Cache = (*MemoryCache)(nil)
