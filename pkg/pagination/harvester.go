package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UACoreFacilitiesIT/clarity-client/pkg/document"
	"github.com/UACoreFacilitiesIT/clarity-client/pkg/logging"
	"github.com/rs/zerolog"
)

// ErrPageLimit is returned when a listing has more pages than Config.MaxPages.
var ErrPageLimit = errors.New("page limit exceeded")

// Harvester follows next-page cursors until a listing is exhausted.
type Harvester struct {
	fetcher Fetcher
	config  Config
	logger  zerolog.Logger
}

// NewHarvester creates a new harvester.
func NewHarvester(fetcher Fetcher, config Config) *Harvester {
	return &Harvester{
		fetcher: fetcher,
		config:  config.withDefaults(),
		logger:  logging.NewLogger(logging.ComponentHarvester),
	}
}

// Harvest fetches uri and every following page, returning the elements
// named tag in page order.
func (h *Harvester) Harvest(ctx context.Context, uri, tag string) ([]document.Fragment, error) {
	return h.harvest(ctx, uri, nil, tag)
}

// HarvestFrom is Harvest with the body of the first page already in hand.
func (h *Harvester) HarvestFrom(ctx context.Context, uri string, firstPage []byte, tag string) ([]document.Fragment, error) {
	return h.harvest(ctx, uri, firstPage, tag)
}

func (h *Harvester) harvest(ctx context.Context, cursor string, body []byte, tag string) ([]document.Fragment, error) {
	start := time.Now()
	origin := cursor

	var (
		fragments []document.Fragment
		pages     int
	)

	for cursor != "" {
		if h.config.MaxPages > 0 && pages >= h.config.MaxPages {
			return nil, fmt.Errorf("%w: %d pages from %s", ErrPageLimit, pages, origin)
		}

		if body == nil {
			b, err := h.fetch(ctx, cursor)
			if err != nil {
				h.logger.Warn().
					Err(err).
					Str("uri", cursor).
					Int("pages_fetched", pages).
					Msg("Page fetch failed - discarding harvest")
				return nil, err
			}
			body = b
		}

		page, err := document.ParsePage(body, tag)
		if err != nil {
			return nil, fmt.Errorf("parse page %d of %s: %w", pages+1, origin, err)
		}

		fragments = append(fragments, page.Fragments...)
		pages++
		pagesHarvested.Inc()

		h.logger.Debug().
			Str("uri", cursor).
			Int("page", pages).
			Int("matched", len(page.Fragments)).
			Msg("Harvested page")

		cursor = page.Next
		body = nil
	}

	h.logger.Info().
		Str("uri", origin).
		Str("resource", tag).
		Int("pages", pages).
		Int("fragments", len(fragments)).
		Dur("duration", time.Since(start)).
		Msg("Harvest complete")

	return fragments, nil
}

func (h *Harvester) fetch(ctx context.Context, uri string) ([]byte, error) {
	pageCtx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()
	return h.fetcher.Fetch(pageCtx, uri)
}
