package namecache

import (
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store with no persistence
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty in-memory cache
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

// Get returns the cached entry for a cost center name
func (m *MemoryStore) Get(name string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[name]
	return e, ok, nil
}

// Put records or refreshes a resolution with the current timestamp
func (m *MemoryStore) Put(name, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[name] = Entry{Name: name, ID: id, CachedAt: time.Now()}
	return nil
}

// Delete removes a single entry
func (m *MemoryStore) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, name)
	return nil
}

// Entries returns all cached entries ordered by name
func (m *MemoryStore) Entries() ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Clear removes all entries
func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]Entry)
	return nil
}

// Cleanup removes entries older than maxAge
func (m *MemoryStore) Cleanup(maxAge time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for name, e := range m.entries {
		if e.Age() > maxAge {
			delete(m.entries, name)
			removed++
		}
	}
	return removed, nil
}

// Close is a no-op for the in-memory store
func (m *MemoryStore) Close() error {
	return nil
}

// SetCachedAt overrides an entry's timestamp. Test helper for exercising
// TTL expiry without sleeping.
func (m *MemoryStore) SetCachedAt(name string, t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[name]; ok {
		e.CachedAt = t
		m.entries[name] = e
	}
}
