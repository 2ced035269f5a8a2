// Package client provides the Clarity LIMS REST client: batched, paginated
// and concurrent GETs aggregated into one XML document, plus thin write and
// file download helpers.
package client

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/UACoreFacilitiesIT/clarity-client/pkg/cache"
	"github.com/UACoreFacilitiesIT/clarity-client/pkg/logging"
	"github.com/UACoreFacilitiesIT/clarity-client/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for LIMS client operations.
var (
	limsRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lims_requests_total",
		Help: "Total LIMS requests by method and status",
	}, []string{"method", "status"})

	limsRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lims_request_duration_seconds",
		Help:    "LIMS request duration in seconds by method",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"method"})

	limsErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lims_errors_total",
		Help: "Total LIMS errors by class",
	}, []string{"class"})

	limsGetTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lims_get_total",
		Help: "Total Get calls by execution path",
	}, []string{"path"})
)

// ContentType is sent with every request.
const ContentType = "application/xml"

// Client is the main LIMS client.
type Client struct {
	httpClient *http.Client
	cache      cache.Store
	config     Config
	logger     zerolog.Logger
	harvester  *pagination.Harvester
	dispatcher *pagination.Dispatcher
}

// Config holds the client configuration.
type Config struct {
	// Host is the API root, e.g. "https://lims.example.org/api/v2/".
	// A trailing slash is added when missing.
	Host string

	// Basic auth credentials
	Username string
	Password string

	// RequestTimeout bounds every single HTTP call.
	RequestTimeout time.Duration

	// MaxConcurrency is the worker count for multi-URI GETs.
	MaxConcurrency int

	// MaxPages caps a single harvest. 0 means unbounded.
	MaxPages int

	// Cache stores GET responses for the lifetime of the client. Nil disables caching.
	Cache cache.Store

	// HTTPClient overrides the default transport (optional).
	HTTPClient *http.Client
}

// DefaultConfig returns a default configuration for host.
func DefaultConfig(host, username, password string) Config {
	return Config{
		Host:           host,
		Username:       username,
		Password:       password,
		RequestTimeout: 60 * time.Second,
		MaxConcurrency: 8,
		MaxPages:       0,
	}
}

// New creates a new LIMS client.
func New(cfg Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("host is required")
	}

	u, err := url.Parse(cfg.Host)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("host must be an absolute url (got %q)", cfg.Host)
	}

	if cfg.Username == "" {
		return nil, fmt.Errorf("username is required")
	}

	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("request_timeout must be > 0 (got %s)", cfg.RequestTimeout)
	}

	if cfg.MaxConcurrency < 1 {
		return nil, fmt.Errorf("max_concurrency must be >= 1 (got %d)", cfg.MaxConcurrency)
	}

	if cfg.MaxPages < 0 {
		return nil, fmt.Errorf("max_pages must be >= 0 (got %d)", cfg.MaxPages)
	}

	if !strings.HasSuffix(cfg.Host, "/") {
		cfg.Host += "/"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.RequestTimeout,
		}
	}

	c := &Client{
		httpClient: httpClient,
		cache:      cfg.Cache,
		config:     cfg,
		logger:     logging.NewLogger(logging.ComponentClient),
	}

	pageCfg := pagination.Config{
		MaxConcurrency: cfg.MaxConcurrency,
		Timeout:        cfg.RequestTimeout,
		MaxPages:       cfg.MaxPages,
	}
	c.harvester = pagination.NewHarvester(c, pageCfg)
	c.dispatcher = pagination.NewDispatcher(c, pageCfg)

	return c, nil
}

// Host returns the normalized API root.
func (c *Client) Host() string {
	return c.config.Host
}

// Fetch performs a single GET, consulting the response cache first.
// It implements pagination.Fetcher.
func (c *Client) Fetch(ctx context.Context, uri string) ([]byte, error) {
	key, keyErr := cache.KeyFromURL(uri)
	useCache := c.cache != nil && keyErr == nil

	if useCache {
		entry, err := c.cache.Get(ctx, key)
		switch {
		case err == nil:
			c.logger.Debug().Str("uri", uri).Dur("age", entry.Age()).Msg("Cache hit")
			return entry.Data, nil
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("uri", uri).Msg("Cache get error")
		}
	}

	resp, body, err := c.do(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}

	if useCache {
		entry := &cache.CacheEntry{
			Data:        body,
			StatusCode:  resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
			CachedAt:    time.Now(),
		}
		if err := c.cache.Set(ctx, key, entry); err != nil {
			c.logger.Warn().Err(err).Str("uri", uri).Msg("Failed to cache response")
		}
	}

	return body, nil
}

// do executes one authenticated request and reads the whole body.
// Any network failure or non-2xx status is returned as *TransportError.
// The returned response carries a fresh reader over the body.
func (c *Client) do(ctx context.Context, method, uri string, payload []byte) (*http.Response, []byte, error) {
	startTime := time.Now()
	defer func() {
		limsRequestDuration.WithLabelValues(method).Observe(time.Since(startTime).Seconds())
	}()

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, uri, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}

	req.SetBasicAuth(c.config.Username, c.config.Password)
	req.Header.Set("Content-Type", ContentType)

	c.logger.Debug().
		Str("method", method).
		Str("uri", uri).
		Msg("Executing LIMS request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		limsErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		limsRequestsTotal.WithLabelValues(method, "network_error").Inc()
		c.logger.Error().Err(err).Str("method", method).Str("uri", uri).Msg("HTTP request failed")
		return nil, nil, &TransportError{
			Method:     method,
			URL:        uri,
			ErrorClass: ErrorClassNetwork,
			Message:    "request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		limsErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		limsRequestsTotal.WithLabelValues(method, "network_error").Inc()
		return nil, nil, &TransportError{
			Method:     method,
			URL:        uri,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Message:    "read body",
			Err:        err,
		}
	}

	limsRequestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errClass := classifyStatus(resp.StatusCode)
		limsErrorsTotal.WithLabelValues(string(errClass)).Inc()

		c.logger.Warn().
			Str("method", method).
			Str("uri", uri).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("LIMS request error")

		return nil, nil, &TransportError{
			Method:     method,
			URL:        uri,
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    exceptionMessage(body, resp.Status),
		}
	}

	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, body, nil
}

// exceptionMessage returns the <message> of a LIMS exception document,
// or fallback when body is not one.
func exceptionMessage(body []byte, fallback string) string {
	var exc struct {
		XMLName xml.Name `xml:"exception"`
		Message string   `xml:"message"`
	}
	if err := xml.Unmarshal(body, &exc); err != nil || exc.Message == "" {
		return fallback
	}
	return exc.Message
}

// normalize prefixes the host to every relative uri.
func (c *Client) normalize(endpoints []string) []string {
	uris := make([]string, len(endpoints))
	for i, e := range endpoints {
		if strings.HasPrefix(e, "http://") || strings.HasPrefix(e, "https://") {
			uris[i] = e
			continue
		}
		uris[i] = c.config.Host + strings.TrimLeft(e, "/")
	}
	return uris
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
