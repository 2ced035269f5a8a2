package pagination

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesHarvested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lims_pages_harvested_total",
		Help: "Total listing pages consumed by the harvester",
	})

	dispatchInflight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lims_dispatch_inflight",
		Help: "GET requests currently running in the dispatcher pool",
	})

	dispatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lims_dispatch_duration_seconds",
		Help:    "Wall time of one concurrent fetch group",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})
)

// Config holds harvester and dispatcher configuration.
type Config struct {
	// MaxConcurrency is the number of dispatcher workers.
	MaxConcurrency int

	// Timeout per fetch.
	Timeout time.Duration

	// MaxPages stops a harvest that follows more cursors than this. 0 means unbounded.
	MaxPages int
}

// DefaultConfig returns the configuration used by the LIMS client.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 8,
		Timeout:        60 * time.Second,
		MaxPages:       0,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = def.MaxConcurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.MaxPages < 0 {
		c.MaxPages = 0
	}
	return c
}

// Fetcher performs a single GET and returns the response body.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, uri string) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, uri string) ([]byte, error) {
	return f(ctx, uri)
}
