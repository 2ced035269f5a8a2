package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by layer (memory, redis)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lims_cache_hits_total",
			Help: "Total number of LIMS response cache hits",
		},
		[]string{"layer"},
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lims_cache_misses_total",
			Help: "Total number of LIMS response cache misses",
		},
	)

	// CacheSize tracks bytes written to the cache by layer
	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lims_cache_size_bytes",
			Help: "Bytes written to the LIMS response cache",
		},
		[]string{"layer"},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lims_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set"
	)
)
