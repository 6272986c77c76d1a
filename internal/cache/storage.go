package cache

import (
	"sort"
	"strings"
	"sync"
)

// Storage is the raw key/value backend of the cache. Implementations must
// tolerate concurrent writers; the cache treats every read as possibly stale.
type Storage interface {
	Load(key string) ([]byte, bool, error)
	Store(key string, value []byte) error
	Delete(key string) error
	Keys(prefix string) ([]string, error)
}

// MemoryStorage is an in-process Storage.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{entries: make(map[string][]byte)}
}

// Load returns a copy of the value stored under key.
func (m *MemoryStorage) Load(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Store writes a copy of value under key.
func (m *MemoryStorage) Store(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key.
func (m *MemoryStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Keys returns the sorted keys starting with prefix.
func (m *MemoryStorage) Keys(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
