package cache

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-process Store with no eviction.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*CacheEntry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*CacheEntry),
	}
}

// Get retrieves a cache entry by key.
func (m *MemoryStore) Get(_ context.Context, key CacheKey) (*CacheEntry, error) {
	m.mu.RLock()
	entry, ok := m.entries[key.String()]
	m.mu.RUnlock()

	if !ok {
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues("memory").Inc()
	clone := *entry
	return &clone, nil
}

// Set stores a cache entry, replacing any previous entry for key.
func (m *MemoryStore) Set(_ context.Context, key CacheKey, entry *CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	clone := *entry
	m.mu.Lock()
	m.entries[key.String()] = &clone
	m.mu.Unlock()

	CacheSize.WithLabelValues("memory").Add(float64(len(entry.Data)))
	return nil
}

// Len returns the number of cached entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
