package store

import "time"

// Cache stores marshalled report pages keyed by a query fingerprint, with a
// per-entry TTL, plus a small settings namespace used for alert debounce
// state. Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the cached payload for key if present and younger than the
	// TTL the entry was stored with.
	Get(key string) ([]byte, bool)
	// Set stores a payload under key with the given TTL.
	Set(key string, payload []byte, ttl time.Duration) error
	// Purge removes expired entries.
	Purge() error

	// GetSetting returns a settings value.
	GetSetting(key string) (string, bool)
	// SetSetting stores a settings value.
	SetSetting(key, value string) error

	Close() error
}
