// Package cache provides a staleness-aware offline cache of fetched
// payloads, backed by SQLite so results survive restarts.
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key        TEXT PRIMARY KEY,
	payload    BLOB NOT NULL,
	fetched_at INTEGER NOT NULL,
	expires_at INTEGER
);

CREATE INDEX IF NOT EXISTS idx_cache_fetched_at ON cache_entries(fetched_at);
`

// Entry is one cached payload. The payload is opaque to this package; only
// the timestamps are interpreted.
type Entry struct {
	Key       string
	Payload   []byte
	FetchedAt time.Time
	// ExpiresAt is the optional explicit expiry; zero means none.
	ExpiresAt time.Time
}

// Cache wraps a sql.DB with cache-specific operations.
type Cache struct {
	conn *sql.DB
	now  func() time.Time
}

// Open opens (or creates) the cache database and applies the schema.
func Open(dsn string) (*Cache, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cache: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cache: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cache: apply schema: %w", err)
	}
	return &Cache{conn: conn, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	return c.conn.Close()
}

// Get returns the entry for key, or nil when absent or past its explicit
// expiry. A stale-but-unexpired entry is still returned; staleness is the
// caller's decision via IsStale.
func (c *Cache) Get(key string) (*Entry, error) {
	var (
		payload   []byte
		fetchedAt int64
		expiresAt sql.NullInt64
	)
	err := c.conn.QueryRow(
		`SELECT payload, fetched_at, expires_at FROM cache_entries WHERE key = ?`, key,
	).Scan(&payload, &fetchedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache: get %s: %w", key, err)
	}

	e := &Entry{
		Key:       key,
		Payload:   payload,
		FetchedAt: time.UnixMilli(fetchedAt),
	}
	if expiresAt.Valid {
		e.ExpiresAt = time.UnixMilli(expiresAt.Int64)
		if c.now().After(e.ExpiresAt) {
			return nil, nil
		}
	}
	return e, nil
}

// Put writes (or replaces) an entry with no explicit expiry.
func (c *Cache) Put(key string, payload []byte, fetchedAt time.Time) error {
	return c.put(key, payload, fetchedAt, time.Time{})
}

// PutWithExpiry writes (or replaces) an entry with an explicit expiry.
func (c *Cache) PutWithExpiry(key string, payload []byte, fetchedAt, expiresAt time.Time) error {
	return c.put(key, payload, fetchedAt, expiresAt)
}

func (c *Cache) put(key string, payload []byte, fetchedAt, expiresAt time.Time) error {
	var exp sql.NullInt64
	if !expiresAt.IsZero() {
		exp = sql.NullInt64{Int64: expiresAt.UnixMilli(), Valid: true}
	}
	_, err := c.conn.Exec(`
		INSERT INTO cache_entries (key, payload, fetched_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			payload    = excluded.payload,
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at
	`, key, payload, fetchedAt.UnixMilli(), exp)
	if err != nil {
		return fmt.Errorf("cache: put %s: %w", key, err)
	}
	return nil
}

// IsStale reports whether the entry's age exceeds maxAge.
func (c *Cache) IsStale(e *Entry, maxAge time.Duration) bool {
	if e == nil {
		return true
	}
	return c.now().Sub(e.FetchedAt) > maxAge
}

// ClearExpired removes entries older than the retention ceiling, plus any
// entry past its explicit expiry. Intended to run periodically to bound
// on-disk storage.
func (c *Cache) ClearExpired(retention time.Duration) error {
	cutoff := c.now().Add(-retention).UnixMilli()
	_, err := c.conn.Exec(`
		DELETE FROM cache_entries
		WHERE fetched_at < ?
		   OR (expires_at IS NOT NULL AND expires_at < ?)
	`, cutoff, c.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("cache: clear expired: %w", err)
	}
	return nil
}

// ClearAll removes every entry.
func (c *Cache) ClearAll() error {
	if _, err := c.conn.Exec(`DELETE FROM cache_entries`); err != nil {
		return fmt.Errorf("cache: clear all: %w", err)
	}
	return nil
}

// Len returns the number of stored entries.
func (c *Cache) Len() (int, error) {
	var n int
	if err := c.conn.QueryRow(`SELECT count(*) FROM cache_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("cache: count: %w", err)
	}
	return n, nil
}
