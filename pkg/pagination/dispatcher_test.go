package pagination

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uriList(n int) []string {
	uris := make([]string, n)
	for i := range uris {
		uris[i] = fmt.Sprintf("configuration/udfs/%d", i)
	}
	return uris
}

func TestFetchAll_PreservesInputOrder(t *testing.T) {
	fetcher := FetcherFunc(func(ctx context.Context, uri string) ([]byte, error) {
		time.Sleep(time.Duration(rand.Intn(15)) * time.Millisecond)
		return []byte("<body>" + uri + "</body>"), nil
	})

	uris := uriList(40)
	d := NewDispatcher(fetcher, Config{MaxConcurrency: 6, Timeout: time.Second})

	results, err := d.FetchAll(context.Background(), uris)
	require.NoError(t, err)
	require.Len(t, results, len(uris))
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, uris[i], r.URI)
		assert.Equal(t, "<body>"+uris[i]+"</body>", string(r.Body))
		assert.NoError(t, r.Err)
	}
}

func TestFetchAll_BoundedConcurrency(t *testing.T) {
	var inflight, peak, calls int32
	fetcher := FetcherFunc(func(ctx context.Context, uri string) ([]byte, error) {
		n := atomic.AddInt32(&inflight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&inflight, -1)
		atomic.AddInt32(&calls, 1)
		return []byte("<ok/>"), nil
	})

	d := NewDispatcher(fetcher, Config{MaxConcurrency: 4})
	results, err := d.FetchAll(context.Background(), uriList(200))
	require.NoError(t, err)

	assert.Len(t, results, 200)
	assert.Equal(t, int32(200), atomic.LoadInt32(&calls))
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(4))
}

func TestFetchAll_ConcurrentIsFasterThanSequential(t *testing.T) {
	const delay = 20 * time.Millisecond
	fetcher := FetcherFunc(func(ctx context.Context, uri string) ([]byte, error) {
		time.Sleep(delay)
		return []byte("<ok/>"), nil
	})

	uris := uriList(8)
	start := time.Now()
	_, err := NewDispatcher(fetcher, Config{MaxConcurrency: 8}).FetchAll(context.Background(), uris)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), time.Duration(len(uris))*delay)
}

func TestFetchAll_FailFast(t *testing.T) {
	boom := errors.New("status 404")
	var calls int32
	fetcher := FetcherFunc(func(ctx context.Context, uri string) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		if uri == "configuration/udfs/0" {
			return nil, boom
		}
		select {
		case <-time.After(50 * time.Millisecond):
			return []byte("<ok/>"), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	d := NewDispatcher(fetcher, Config{MaxConcurrency: 2})
	results, err := d.FetchAll(context.Background(), uriList(100))

	require.ErrorIs(t, err, boom)
	assert.Nil(t, results)
	assert.Less(t, atomic.LoadInt32(&calls), int32(100), "queued uris must not be fetched after a failure")
}

func TestFetchAll_ParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := FetcherFunc(func(ctx context.Context, uri string) ([]byte, error) {
		return nil, ctx.Err()
	})

	_, err := NewDispatcher(fetcher, DefaultConfig()).FetchAll(ctx, uriList(10))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchAll_Empty(t *testing.T) {
	results, err := NewDispatcher(FetcherFunc(func(ctx context.Context, uri string) ([]byte, error) {
		t.Fatal("no fetch expected")
		return nil, nil
	}), DefaultConfig()).FetchAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultConfig().MaxConcurrency, cfg.MaxConcurrency)
	assert.Equal(t, DefaultConfig().Timeout, cfg.Timeout)
	assert.Equal(t, 0, cfg.MaxPages)
}
