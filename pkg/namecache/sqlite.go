package namecache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a Store backed by a local SQLite database file
type SQLiteStore struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS cost_centers (
    name TEXT PRIMARY KEY,
    id TEXT NOT NULL,
    cached_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_cost_centers_cached_at ON cost_centers(cached_at);
`

// Open creates or opens a SQLite cache database at the given path
func Open(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging cache database: %w", err)
	}

	s := &SQLiteStore{db: db, path: path}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating cache schema: %w", err)
	}

	return s, nil
}

// OpenMemory creates an in-memory SQLite cache (useful for testing)
func OpenMemory() (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory cache: %w", err)
	}

	s := &SQLiteStore{db: db, path: ":memory:"}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating cache schema: %w", err)
	}

	return s, nil
}

// Get returns the cached entry for a cost center name
func (s *SQLiteStore) Get(name string) (Entry, bool, error) {
	var e Entry
	var cachedAt string

	row := s.db.QueryRow(`SELECT name, id, cached_at FROM cost_centers WHERE name = ?`, name)
	if err := row.Scan(&e.Name, &e.ID, &cachedAt); err != nil {
		if err == sql.ErrNoRows {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("reading cache entry %q: %w", name, err)
	}

	t, err := parseSQLiteTime(cachedAt)
	if err != nil {
		return Entry{}, false, fmt.Errorf("parsing cached_at for %q: %w", name, err)
	}
	e.CachedAt = t

	return e, true, nil
}

// Put records or refreshes a resolution with the current timestamp
func (s *SQLiteStore) Put(name, id string) error {
	_, err := s.db.Exec(`
		INSERT INTO cost_centers (name, id, cached_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET id = excluded.id, cached_at = excluded.cached_at`,
		name, id, time.Now().UTC().Format(sqliteTimeFormat))
	if err != nil {
		return fmt.Errorf("writing cache entry %q: %w", name, err)
	}
	return nil
}

// Delete removes a single entry
func (s *SQLiteStore) Delete(name string) error {
	if _, err := s.db.Exec(`DELETE FROM cost_centers WHERE name = ?`, name); err != nil {
		return fmt.Errorf("deleting cache entry %q: %w", name, err)
	}
	return nil
}

// Entries returns all cached entries ordered by name
func (s *SQLiteStore) Entries() ([]Entry, error) {
	rows, err := s.db.Query(`SELECT name, id, cached_at FROM cost_centers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing cache entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var cachedAt string
		if err := rows.Scan(&e.Name, &e.ID, &cachedAt); err != nil {
			return nil, fmt.Errorf("scanning cache entry: %w", err)
		}
		t, err := parseSQLiteTime(cachedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing cached_at: %w", err)
		}
		e.CachedAt = t
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Clear removes all entries
func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM cost_centers`); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	return nil
}

// Cleanup removes entries older than maxAge
func (s *SQLiteStore) Cleanup(maxAge time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-maxAge).Format(sqliteTimeFormat)
	res, err := s.db.Exec(`DELETE FROM cost_centers WHERE cached_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleaning cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the location of the database file
func (s *SQLiteStore) Path() string {
	return s.path
}

const sqliteTimeFormat = "2006-01-02 15:04:05"

func parseSQLiteTime(v string) (time.Time, error) {
	// datetime('now') and our own writes both use this layout; older
	// entries written with sub-second precision still parse via RFC3339.
	if t, err := time.Parse(sqliteTimeFormat, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
