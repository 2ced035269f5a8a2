// Package cache provides the per-client response cache for LIMS GET requests.
//
// Entries map a fully qualified GET URL to the last successful response body.
// They are never invalidated: a client keeps what it fetched for its whole
// lifetime. Mutating calls (POST, PUT, DELETE) never read or write the cache.
//
// # Stores
//
// MemoryStore keeps entries in a map owned by one client:
//
//	store := cache.NewMemoryStore()
//
// RedisStore keeps entries in Redis under a namespace. Give every client its
// own namespace so entries are never shared between clients:
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	store := cache.NewRedisStore(redisClient, uuid.NewString())
//
// # Keys
//
//	key, err := cache.KeyFromURL("https://lims.example.org/api/v2/containers?type=Tube")
//	entry, err := store.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the LIMS
//	}
//
// # Metrics
//
//   - lims_cache_hits_total{layer="memory|redis"} - Cache hits
//   - lims_cache_misses_total - Cache misses
//   - lims_cache_size_bytes{layer} - Bytes written to the cache
//   - lims_cache_errors_total{operation} - Cache operation errors
package cache
