// Package sizecache persists path size/mtime metadata so repeated size
// aggregation does not re-walk unchanged trees.
package sizecache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

const (
	// FreshnessWindow is how long an entry is trusted without re-reading the
	// filesystem, provided the on-disk mtime is unchanged.
	FreshnessWindow = 24 * time.Hour

	// RetentionWindow is how long an entry survives before Sweep may evict
	// it regardless of validity.
	RetentionWindow = 7 * 24 * time.Hour
)

// schema contains the DDL executed on first open. Using IF NOT EXISTS makes
// it safe to run on every startup.
const schema = `
CREATE TABLE IF NOT EXISTS file_cache (
    path          TEXT PRIMARY KEY,
    size          INTEGER NOT NULL,
    modified_time INTEGER NOT NULL,
    last_checked  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_last_checked ON file_cache(last_checked);
`

// lockStripes is the fixed number of key locks; memory stays bounded no
// matter how many paths a scan sizes.
const lockStripes = 64

// Cache is the single owner of the persistent path metadata store. All reads
// and writes go through its API; nothing else touches the database file.
type Cache struct {
	db *sql.DB

	// locks stripe path keys so two goroutines rarely recompute the same
	// entry concurrently. A parent and its children can share a stripe, so
	// no stripe is ever held across recursion; a racing recompute upserts
	// the same row twice, which is harmless.
	locks [lockStripes]sync.Mutex

	// Injection points for tests; default to the real filesystem and clock.
	stat    func(string) (os.FileInfo, error)
	readDir func(string) ([]os.DirEntry, error)
	now     func() time.Time
}

// Open opens (or creates) the cache database at dbPath, enables WAL mode and
// busy timeout, and creates the schema if it does not exist.
func Open(ctx context.Context, dbPath string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("sizecache: create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sizecache: open database: %w", err)
	}

	// SQLite only supports a single writer; one connection avoids
	// SQLITE_BUSY contention between pooled connections.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sizecache: enable WAL mode: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sizecache: set busy timeout: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sizecache: create schema: %w", err)
	}

	return &Cache{
		db:      db,
		stat:    os.Lstat,
		readDir: os.ReadDir,
		now:     time.Now,
	}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Size returns the size in bytes of the file or directory tree at path,
// served from the cache while the entry is fresh and the on-disk mtime is
// unchanged, recomputed otherwise. Unreadable children are skipped rather
// than failing the aggregation; symlinks are never followed. Any cache
// inconsistency is treated as a miss.
func (c *Cache) Size(ctx context.Context, path string) int64 {
	info, err := c.stat(path)
	if err != nil {
		return 0
	}

	// A symlink contributes its own link size; following it would double
	// count and can cycle.
	if info.Mode()&os.ModeSymlink != 0 {
		return info.Size()
	}

	mtime := info.ModTime().UnixNano()
	lock := c.stripeLock(path)

	lock.Lock()
	size, ok := c.lookup(ctx, path, mtime)
	lock.Unlock()
	if ok {
		return size
	}

	// Recursion into children must run unlocked: a child path may hash to
	// the same stripe as its parent.
	if info.IsDir() {
		size = c.computeDirSize(ctx, path)
	} else {
		size = info.Size()
	}

	lock.Lock()
	c.upsert(ctx, path, size, mtime)
	lock.Unlock()
	return size
}

// computeDirSize sums the immediate children of dir, recursing through the
// cached Size path for subdirectories.
func (c *Cache) computeDirSize(ctx context.Context, dir string) int64 {
	entries, err := c.readDir(dir)
	if err != nil {
		return 0
	}

	var total int64
	for _, entry := range entries {
		child := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			total += c.Size(ctx, child)
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// Permission or I/O failure on one child never fails the
			// aggregation.
			continue
		}
		total += info.Size()
	}
	return total
}

// lookup returns the cached size for path if the stored mtime matches and the
// entry is within the freshness window.
func (c *Cache) lookup(ctx context.Context, path string, mtime int64) (int64, bool) {
	var size, storedMtime, lastChecked int64
	err := c.db.QueryRowContext(ctx,
		"SELECT size, modified_time, last_checked FROM file_cache WHERE path = ?",
		path).Scan(&size, &storedMtime, &lastChecked)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false
	}
	if err != nil {
		// Treated as a miss, never as a failure.
		return 0, false
	}

	if storedMtime != mtime {
		return 0, false
	}
	if c.now().Sub(time.Unix(0, lastChecked)) > FreshnessWindow {
		return 0, false
	}

	return size, true
}

// upsert stores a fresh entry for path. Failure is ignored; the cache is an
// optimization, not a source of truth.
func (c *Cache) upsert(ctx context.Context, path string, size, mtime int64) {
	const q = `
		INSERT INTO file_cache (path, size, modified_time, last_checked)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			size = excluded.size,
			modified_time = excluded.modified_time,
			last_checked = excluded.last_checked`
	_, _ = c.db.ExecContext(ctx, q, path, size, mtime, c.now().UnixNano())
}

// Sweep deletes entries whose last_checked timestamp is older than the
// retention window and returns the number of rows removed. It runs
// independently of lookups and never blocks them.
func (c *Cache) Sweep(ctx context.Context) (int64, error) {
	cutoff := c.now().Add(-RetentionWindow).UnixNano()
	res, err := c.db.ExecContext(ctx,
		"DELETE FROM file_cache WHERE last_checked < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("sizecache: sweep: %w", err)
	}
	return res.RowsAffected()
}

// Len returns the number of cached entries, used for diagnostics.
func (c *Cache) Len(ctx context.Context) (int64, error) {
	var n int64
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM file_cache").Scan(&n); err != nil {
		return 0, fmt.Errorf("sizecache: count: %w", err)
	}
	return n, nil
}

func (c *Cache) stripeLock(path string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(path))
	return &c.locks[h.Sum32()%lockStripes]
}
