package vrcapi

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// cacheFile is the database file created inside the cache directory.
const cacheFile = "responses.db"

const schema = `
CREATE TABLE IF NOT EXISTS responses (
	url          TEXT PRIMARY KEY,
	status       INTEGER NOT NULL,
	content_type TEXT NOT NULL,
	body         BLOB,
	expires_at   INTEGER NOT NULL
)`

// Response is a stored HTTP response.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// Cache stores HTTP responses by URL in SQLite until they expire.
type Cache struct {
	db  *sql.DB
	now func() time.Time
}

// OpenCache opens or creates the cache database in dir.
func OpenCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+filepath.Join(dir, cacheFile))
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	// Lookups and stores are few; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}

	return &Cache{db: db, now: time.Now}, nil
}

// Get returns the unexpired response stored for url.
func (c *Cache) Get(ctx context.Context, url string) (*Response, bool, error) {
	var r Response
	var expires int64
	err := c.db.QueryRowContext(ctx,
		`SELECT status, content_type, body, expires_at FROM responses WHERE url = ?`, url,
	).Scan(&r.Status, &r.ContentType, &r.Body, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache: %w", err)
	}
	if c.now().UnixMilli() >= expires {
		return nil, false, nil
	}
	return &r, true, nil
}

// Put stores r for url for ttl, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, url string, r *Response, ttl time.Duration) error {
	expires := c.now().Add(ttl).UnixMilli()
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO responses (url, status, content_type, body, expires_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET status = excluded.status, content_type = excluded.content_type,
			body = excluded.body, expires_at = excluded.expires_at`,
		url, r.Status, r.ContentType, r.Body, expires)
	if err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	return nil
}

// Prune deletes expired entries and returns how many were removed.
func (c *Cache) Prune(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM responses WHERE expires_at <= ?`, c.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("pruning cache: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}
