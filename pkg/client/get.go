package client

import (
	"context"
	"fmt"

	"github.com/UACoreFacilitiesIT/clarity-client/pkg/document"
	"github.com/UACoreFacilitiesIT/clarity-client/pkg/resource"
)

type getOptions struct {
	query  Query
	getAll bool
}

// GetOption configures a Get call.
type GetOption func(*getOptions)

// WithQuery appends q to the first endpoint. It is ignored when the
// endpoints are served by a batch retrieve.
func WithQuery(q Query) GetOption {
	return func(o *getOptions) {
		o.query = q
	}
}

// WithGetAll controls whether a paginated listing is followed to its last
// page (the default) or returned as the first page only.
func WithGetAll(getAll bool) GetOption {
	return func(o *getOptions) {
		o.getAll = getAll
	}
}

// Get retrieves endpoints and returns one XML document.
//
// Endpoints may be relative to the configured host. Batchable endpoints are
// fetched with one batch/retrieve POST and the service response is returned
// as is. Several non-batchable endpoints are fetched concurrently and
// aggregated in input order. A single endpoint is returned raw unless it is
// a paginated listing and get-all is set, in which case every page is
// harvested and aggregated.
//
// Unknown or mixed resources fail before any request is made.
func (c *Client) Get(ctx context.Context, endpoints []string, opts ...GetOption) ([]byte, error) {
	if len(endpoints) == 0 {
		return nil, ErrNoEndpoints
	}

	o := getOptions{getAll: true}
	for _, opt := range opts {
		opt(&o)
	}

	uris := c.normalize(endpoints)

	tag, err := resource.Resolve(uris[0])
	if err != nil {
		return nil, err
	}

	batch, err := resource.Classify(uris)
	if err != nil {
		return nil, err
	}

	if batch.Batchable {
		if len(o.query) > 0 {
			c.logger.Warn().
				Str("family", batch.Family).
				Msg("Query parameters ignored for batch retrieve")
		}
		limsGetTotal.WithLabelValues("batch").Inc()
		return c.batchRetrieve(ctx, batch)
	}

	if len(o.query) > 0 {
		uris[0] = appendQuery(uris[0], o.query)
	}

	if len(uris) > 1 {
		limsGetTotal.WithLabelValues("concurrent").Inc()
		return c.getMany(ctx, uris, tag)
	}

	return c.getOne(ctx, uris[0], tag, o.getAll)
}

// getMany fetches uris concurrently and wraps each document root.
func (c *Client) getMany(ctx context.Context, uris []string, tag resource.Tag) ([]byte, error) {
	results, err := c.dispatcher.FetchAll(ctx, uris)
	if err != nil {
		return nil, err
	}

	fragments := make([]document.Fragment, 0, len(results))
	for _, r := range results {
		root, err := document.Root(r.Body)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", r.URI, err)
		}
		fragments = append(fragments, root)
	}

	return document.Aggregate(fragments, string(tag)), nil
}

// getOne fetches uri and harvests the remaining pages when asked to.
func (c *Client) getOne(ctx context.Context, uri string, tag resource.Tag, getAll bool) ([]byte, error) {
	body, err := c.Fetch(ctx, uri)
	if err != nil {
		return nil, err
	}

	if !getAll {
		limsGetTotal.WithLabelValues("single").Inc()
		return body, nil
	}

	_, paginated, err := document.NextPage(body)
	if err != nil {
		c.logger.Debug().Err(err).Str("uri", uri).Msg("Response is not a listing, returning raw body")
	}
	if err != nil || !paginated {
		limsGetTotal.WithLabelValues("single").Inc()
		return body, nil
	}

	limsGetTotal.WithLabelValues("harvest").Inc()
	fragments, err := c.harvester.HarvestFrom(ctx, uri, body, string(tag))
	if err != nil {
		return nil, err
	}

	return document.Aggregate(fragments, string(tag)), nil
}
