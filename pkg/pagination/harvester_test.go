package pagination

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pagedServer serves listing pages keyed by uri and counts fetches.
type pagedServer struct {
	mu    sync.Mutex
	pages map[string]string
	fails map[string]error
	calls []string
}

func (s *pagedServer) Fetch(_ context.Context, uri string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, uri)
	if err, ok := s.fails[uri]; ok {
		return nil, err
	}
	body, ok := s.pages[uri]
	if !ok {
		return nil, fmt.Errorf("no page %s", uri)
	}
	return []byte(body), nil
}

func listingPage(first, count int, next string) string {
	var b strings.Builder
	b.WriteString(`<con:containers xmlns:con="http://genologics.com/ri/container">`)
	for i := first; i < first+count; i++ {
		fmt.Fprintf(&b, `<container uri="containers/27-%d" limsid="27-%d"/>`, i, i)
	}
	if next != "" {
		fmt.Fprintf(&b, `<next-page uri="%s"/>`, next)
	}
	b.WriteString(`</con:containers>`)
	return b.String()
}

func threePageServer() *pagedServer {
	return &pagedServer{
		pages: map[string]string{
			"containers":                  listingPage(0, 500, "containers?start-index=500"),
			"containers?start-index=500":  listingPage(500, 500, "containers?start-index=1000"),
			"containers?start-index=1000": listingPage(1000, 41, ""),
		},
	}
}

func TestHarvest_ThreePages(t *testing.T) {
	srv := threePageServer()
	h := NewHarvester(srv, DefaultConfig())

	frags, err := h.Harvest(context.Background(), "containers", "container")
	require.NoError(t, err)

	assert.Equal(t, []string{"containers", "containers?start-index=500", "containers?start-index=1000"}, srv.calls)
	require.Len(t, frags, 1041)
	for i, f := range frags {
		assert.Contains(t, f.String(), fmt.Sprintf(`uri="containers/27-%d"`, i))
	}
}

func TestHarvest_Idempotent(t *testing.T) {
	srv := threePageServer()
	h := NewHarvester(srv, DefaultConfig())

	first, err := h.Harvest(context.Background(), "containers", "container")
	require.NoError(t, err)
	second, err := h.Harvest(context.Background(), "containers", "container")
	require.NoError(t, err)

	assert.ElementsMatch(t, first, second)
}

func TestHarvestFrom_SkipsFirstFetch(t *testing.T) {
	srv := threePageServer()
	h := NewHarvester(srv, DefaultConfig())

	firstPage := []byte(srv.pages["containers"])
	frags, err := h.HarvestFrom(context.Background(), "containers", firstPage, "container")
	require.NoError(t, err)

	assert.Len(t, frags, 1041)
	assert.Equal(t, []string{"containers?start-index=500", "containers?start-index=1000"}, srv.calls)
}

func TestHarvest_SinglePage(t *testing.T) {
	srv := &pagedServer{pages: map[string]string{"permissions": `<permission:permissions xmlns:permission="p"><permission uri="1"/></permission:permissions>`}}
	h := NewHarvester(srv, DefaultConfig())

	frags, err := h.Harvest(context.Background(), "permissions", "permission")
	require.NoError(t, err)
	assert.Len(t, frags, 1)
	assert.Len(t, srv.calls, 1)
}

func TestHarvest_ErrorDiscardsPartialResults(t *testing.T) {
	boom := errors.New("status 500")
	srv := threePageServer()
	srv.fails = map[string]error{"containers?start-index=1000": boom}
	h := NewHarvester(srv, DefaultConfig())

	frags, err := h.Harvest(context.Background(), "containers", "container")
	require.ErrorIs(t, err, boom)
	assert.Nil(t, frags)
	assert.Len(t, srv.calls, 3)
}

func TestHarvest_MalformedPage(t *testing.T) {
	srv := &pagedServer{pages: map[string]string{"containers": "<con:containers>"}}
	h := NewHarvester(srv, DefaultConfig())

	_, err := h.Harvest(context.Background(), "containers", "container")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse page 1 of containers")
}

func TestHarvest_PageLimit(t *testing.T) {
	// A cursor that points back at itself never terminates on its own.
	srv := &pagedServer{pages: map[string]string{"loop": listingPage(0, 1, "loop")}}
	cfg := DefaultConfig()
	cfg.MaxPages = 5
	h := NewHarvester(srv, cfg)

	_, err := h.Harvest(context.Background(), "loop", "container")
	require.ErrorIs(t, err, ErrPageLimit)
	assert.Len(t, srv.calls, 5)
}
