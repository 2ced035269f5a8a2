package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// CacheEntry represents a cached LIMS GET response.
type CacheEntry struct {
	// Data is the response body
	Data []byte `json:"data"`

	// StatusCode is the HTTP status code of the cached response
	StatusCode int `json:"status_code"`

	// ContentType is the response Content-Type header
	ContentType string `json:"content_type,omitempty"`

	// CachedAt is when we cached this response
	CachedAt time.Time `json:"cached_at"`
}

// Age returns how long ago the entry was cached.
func (e *CacheEntry) Age() time.Duration {
	return time.Since(e.CachedAt)
}

// Store is a response cache backend.
type Store interface {
	// Get returns ErrCacheMiss when key has no entry.
	Get(ctx context.Context, key CacheKey) (*CacheEntry, error)

	Set(ctx context.Context, key CacheKey, entry *CacheEntry) error
}
