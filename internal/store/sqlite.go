package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gsclens/gsclens/internal/errors"
)

// SQLiteCache is a SQLite-backed report cache with WAL mode. It survives
// restarts, which keeps the dashboard responsive after a redeploy without
// re-hitting the Search Console quota.
type SQLiteCache struct {
	mu  sync.RWMutex
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteCache opens (or creates) the cache database at dbPath.
func NewSQLiteCache(dbPath string) (*SQLiteCache, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &errors.ErrDirectoryCreate{Path: dir, Err: err}
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, &errors.ErrDatabaseOpen{Path: dbPath, Err: err}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &errors.ErrDatabaseOpen{Path: dbPath, Err: err}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteCache{db: db, now: time.Now}, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS report_cache (
			key        TEXT PRIMARY KEY,
			payload    BLOB NOT NULL,
			stored_at  INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_report_cache_expires ON report_cache(expires_at)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return &errors.ErrDatabaseQuery{Operation: "migrate", Err: err}
		}
	}
	return nil
}

// Get returns the cached payload for key if it has not expired.
func (c *SQLiteCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var payload []byte
	var expiresAt int64
	err := c.db.QueryRow(`SELECT payload, expires_at FROM report_cache WHERE key = ?`, key).Scan(&payload, &expiresAt)
	if err != nil {
		return nil, false
	}
	if c.now().Unix() >= expiresAt {
		return nil, false
	}
	return payload, true
}

// Set stores a payload under key with the given TTL. Already-expired rows
// are dropped on the way so the table does not grow unboundedly between
// purges.
func (c *SQLiteCache) Set(key string, payload []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, err := c.db.Exec(`DELETE FROM report_cache WHERE expires_at <= ?`, now.Unix()); err != nil {
		return &errors.ErrDatabaseQuery{Operation: "cache_purge", Err: err}
	}
	_, err := c.db.Exec(
		`INSERT INTO report_cache (key, payload, stored_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, stored_at = excluded.stored_at, expires_at = excluded.expires_at`,
		key, payload, now.Unix(), now.Add(ttl).Unix(),
	)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "cache_set", Err: err}
	}
	return nil
}

// Purge removes expired cache entries.
func (c *SQLiteCache) Purge() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec(`DELETE FROM report_cache WHERE expires_at <= ?`, c.now().Unix())
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "cache_purge", Err: err}
	}
	return nil
}

// GetSetting returns a settings value.
func (c *SQLiteCache) GetSetting(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var value string
	err := c.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}

// SetSetting stores a settings value.
func (c *SQLiteCache) SetSetting(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "settings_set", Err: err}
	}
	return nil
}

// Close closes the database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

var _ Cache = (*SQLiteCache)(nil)
