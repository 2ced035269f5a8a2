package pagination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/UACoreFacilitiesIT/clarity-client/pkg/logging"
	"github.com/rs/zerolog"
)

// Result is the outcome of fetching one uri.
type Result struct {
	// Index is the position of URI in the FetchAll input.
	Index int
	URI   string
	Body  []byte
	Err   error
}

// Dispatcher fetches many uris on a bounded worker pool.
type Dispatcher struct {
	fetcher Fetcher
	config  Config
	logger  zerolog.Logger
}

// NewDispatcher creates a new dispatcher.
func NewDispatcher(fetcher Fetcher, config Config) *Dispatcher {
	return &Dispatcher{
		fetcher: fetcher,
		config:  config.withDefaults(),
		logger:  logging.NewLogger(logging.ComponentDispatcher),
	}
}

// FetchAll fetches every uri and returns the results in input order. The
// first failure cancels the remaining work and is returned as is; no partial
// results are returned with it.
func (d *Dispatcher) FetchAll(ctx context.Context, uris []string) ([]Result, error) {
	if len(uris) == 0 {
		return nil, nil
	}

	start := time.Now()
	defer func() {
		dispatchDuration.Observe(time.Since(start).Seconds())
	}()

	groupCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := d.config.MaxConcurrency
	if workers > len(uris) {
		workers = len(uris)
	}

	jobs := make(chan int)
	results := make(chan Result, len(uris))

	// Queue every uri; stop early once the group is cancelled.
	go func() {
		defer close(jobs)
		for i := range uris {
			select {
			case jobs <- i:
			case <-groupCtx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go d.worker(groupCtx, uris, jobs, results, &wg, i)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]Result, len(uris))
	var (
		firstErr error
		received int
	)
	for r := range results {
		if r.Err != nil {
			if firstErr == nil {
				firstErr = r.Err
				cancel()
				d.logger.Warn().
					Err(r.Err).
					Str("uri", r.URI).
					Int("completed", received).
					Int("total", len(uris)).
					Msg("Fetch failed - cancelling remaining requests")
			}
			continue
		}
		ordered[r.Index] = r
		received++
	}

	if firstErr != nil {
		return nil, firstErr
	}
	if received != len(uris) {
		return nil, fmt.Errorf("fetch incomplete (%d/%d uris): %w", received, len(uris), ctx.Err())
	}

	d.logger.Debug().
		Int("uris", len(uris)).
		Int("workers", workers).
		Dur("duration", time.Since(start)).
		Msg("Concurrent fetch complete")

	return ordered, nil
}

// worker processes uri indexes from the queue.
func (d *Dispatcher) worker(ctx context.Context, uris []string, jobs <-chan int, results chan<- Result, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	processed := 0

	for idx := range jobs {
		if ctx.Err() != nil {
			d.logger.Debug().
				Int("worker_id", workerID).
				Int("processed", processed).
				Msg("Worker stopping (context cancelled)")
			return
		}

		dispatchInflight.Inc()
		fetchCtx, cancel := context.WithTimeout(ctx, d.config.Timeout)
		body, err := d.fetcher.Fetch(fetchCtx, uris[idx])
		cancel()
		dispatchInflight.Dec()

		// results is buffered for every uri, so this send never blocks.
		results <- Result{Index: idx, URI: uris[idx], Body: body, Err: err}
		processed++
	}
}
