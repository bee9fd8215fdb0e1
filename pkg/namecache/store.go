// Package namecache persists cost center name to ID resolutions between
// invocations so that repeated runs avoid redundant API lookups.
package namecache

import "time"

// Entry is a single cached name to ID resolution
type Entry struct {
	Name     string    `json:"name"`
	ID       string    `json:"id"`
	CachedAt time.Time `json:"cached_at"`
}

// Age returns how long ago the entry was cached
func (e Entry) Age() time.Duration {
	return time.Since(e.CachedAt)
}

// Fresh reports whether the entry is younger than the given TTL
func (e Entry) Fresh(ttl time.Duration) bool {
	return e.Age() < ttl
}

// Store is a persistent name to ID cache
type Store interface {
	// Get returns the entry for a cost center name. The boolean is false
	// when the name has never been cached.
	Get(name string) (Entry, bool, error)

	// Put records or refreshes a resolution with the current timestamp
	Put(name, id string) error

	// Delete removes a single entry
	Delete(name string) error

	// Entries returns all cached entries
	Entries() ([]Entry, error)

	// Clear removes all entries
	Clear() error

	// Cleanup removes entries older than maxAge and returns how many
	// were removed
	Cleanup(maxAge time.Duration) (int, error)

	// Close releases any underlying resources
	Close() error
}
