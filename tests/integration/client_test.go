//go:build integration

package integration

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/UACoreFacilitiesIT/clarity-client/internal/testutil"
	"github.com/UACoreFacilitiesIT/clarity-client/pkg/cache"
	"github.com/UACoreFacilitiesIT/clarity-client/pkg/client"
	"github.com/UACoreFacilitiesIT/clarity-client/pkg/config"
	"github.com/UACoreFacilitiesIT/clarity-client/pkg/document"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, string, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	addr := host + ":" + port.Port()
	redisClient := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, addr, cleanup
}

func listingPage(host string, first, count int, next string) string {
	var b strings.Builder
	b.WriteString(`<con:containers xmlns:con="http://genologics.com/ri/container">`)
	for i := first; i < first+count; i++ {
		fmt.Fprintf(&b, `<container uri="%scontainers/27-%d" limsid="27-%d"/>`, host, i, i)
	}
	if next != "" {
		fmt.Fprintf(&b, `<next-page uri="%s"/>`, next)
	}
	b.WriteString(`</con:containers>`)
	return b.String()
}

func newClient(t *testing.T, mock *testutil.MockLIMS, store cache.Store) *client.Client {
	t.Helper()
	cfg := client.DefaultConfig(mock.Host(), "apiuser", "secret")
	cfg.RequestTimeout = 10 * time.Second
	cfg.Cache = store
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// TestHarvestThroughRedisCache runs a three page harvest twice; the second
// run is served entirely from Redis.
func TestHarvestThroughRedisCache(t *testing.T) {
	redisClient, _, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockLIMS()
	defer mock.Close()

	host := mock.Host()
	mock.SetResponse("/api/v2/containers", testutil.NewXMLResponse(listingPage(host, 0, 500, host+"containers?start-index=500")))
	mock.SetResponse("/api/v2/containers?start-index=500", testutil.NewXMLResponse(listingPage(host, 500, 500, host+"containers?start-index=1000")))
	mock.SetResponse("/api/v2/containers?start-index=1000", testutil.NewXMLResponse(listingPage(host, 1000, 41, "")))

	c := newClient(t, mock, cache.NewRedisStore(redisClient, uuid.NewString()))
	ctx := context.Background()

	first, err := c.Get(ctx, []string{"containers"})
	if err != nil {
		t.Fatalf("First harvest failed: %v", err)
	}
	if mock.GetRequestCount() != 3 {
		t.Fatalf("Expected 3 page fetches, got %d", mock.GetRequestCount())
	}

	second, err := c.Get(ctx, []string{"containers"})
	if err != nil {
		t.Fatalf("Second harvest failed: %v", err)
	}
	if mock.GetRequestCount() != 3 {
		t.Errorf("Expected cached second harvest, got %d requests", mock.GetRequestCount())
	}

	if string(first) != string(second) {
		t.Error("Cached harvest differs from the first one")
	}

	frags, err := document.Extract(second, "container")
	if err != nil {
		t.Fatalf("Parse aggregate: %v", err)
	}
	if len(frags) != 1041 {
		t.Errorf("Expected 1041 containers, got %d", len(frags))
	}
}

// TestNamespacesIsolateClients checks that two clients sharing one Redis
// never see each other's entries.
func TestNamespacesIsolateClients(t *testing.T) {
	redisClient, _, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockLIMS()
	defer mock.Close()
	mock.SetResponse("/api/v2/configuration/udfs/1", testutil.NewXMLResponse(`<cnf:field xmlns:cnf="http://genologics.com/ri/configuration"/>`))

	ctx := context.Background()
	a := newClient(t, mock, cache.NewRedisStore(redisClient, uuid.NewString()))
	b := newClient(t, mock, cache.NewRedisStore(redisClient, uuid.NewString()))

	for _, c := range []*client.Client{a, b, a, b} {
		if _, err := c.Get(ctx, []string{"configuration/udfs/1"}); err != nil {
			t.Fatalf("Get failed: %v", err)
		}
	}

	if mock.GetRequestCount() != 2 {
		t.Errorf("Expected one request per client, got %d", mock.GetRequestCount())
	}
}

// TestBatchAndWritesBypassCache checks that POST traffic is never cached.
func TestBatchAndWritesBypassCache(t *testing.T) {
	redisClient, _, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockLIMS()
	defer mock.Close()
	mock.SetResponse("POST /api/v2/containers/batch/retrieve", testutil.NewXMLResponse(`<con:details xmlns:con="http://genologics.com/ri/container"/>`))
	mock.SetResponse("POST /api/v2/containers", testutil.NewXMLResponse(`<con:container xmlns:con="http://genologics.com/ri/container"/>`))

	store := cache.NewRedisStore(redisClient, uuid.NewString())
	c := newClient(t, mock, store)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := c.Get(ctx, []string{"containers/27-1", "containers/27-2"}); err != nil {
			t.Fatalf("Batch get failed: %v", err)
		}
		if _, err := c.Post(ctx, "containers", []byte("<con:container/>")); err != nil {
			t.Fatalf("Post failed: %v", err)
		}
	}

	if got := mock.CountMethod(http.MethodPost); got != 4 {
		t.Errorf("Expected 4 POSTs, got %d", got)
	}

	keys, err := redisClient.Keys(ctx, store.Namespace()+":*").Result()
	if err != nil {
		t.Fatalf("List keys: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("Expected no cached entries, got %v", keys)
	}
}

// TestConfigRedisBackend builds a client from LIMS_* environment variables.
func TestConfigRedisBackend(t *testing.T) {
	_, addr, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockLIMS()
	defer mock.Close()
	mock.SetResponse("/api/v2/configuration/udfs/1", testutil.NewXMLResponse(`<cnf:field xmlns:cnf="http://genologics.com/ri/configuration"/>`))

	t.Setenv("LIMS_HOST", mock.Host())
	t.Setenv("LIMS_USERNAME", "apiuser")
	t.Setenv("LIMS_CACHE_BACKEND", "redis")
	t.Setenv("LIMS_REDIS_ADDR", addr)

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load config: %v", err)
	}

	ctx := context.Background()
	c, closeFn, err := config.NewClient(ctx, cfg)
	if err != nil {
		t.Fatalf("Create client: %v", err)
	}
	defer closeFn()

	for i := 0; i < 3; i++ {
		if _, err := c.Get(ctx, []string{"configuration/udfs/1"}); err != nil {
			t.Fatalf("Get failed: %v", err)
		}
	}

	if mock.GetRequestCount() != 1 {
		t.Errorf("Expected 1 request, got %d", mock.GetRequestCount())
	}
}
