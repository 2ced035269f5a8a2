package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// CacheKey identifies a cached GET response.
type CacheKey struct {
	// Endpoint is the scheme, host and path of the request
	// (e.g., "https://lims.example.org/api/v2/containers")
	Endpoint string

	// QueryParams are the query parameters (e.g., {"type": ["Tube"]})
	QueryParams url.Values
}

// KeyFromURL builds a key from a fully qualified GET URL.
func KeyFromURL(rawURL string) (CacheKey, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return CacheKey{}, fmt.Errorf("parse cache url: %w", err)
	}

	query := u.Query()
	u.RawQuery = ""
	u.Fragment = ""

	return CacheKey{
		Endpoint:    u.String(),
		QueryParams: query,
	}, nil
}

// String generates a deterministic cache key string.
// Format: lims:endpoint:query1=val1:query1=val2:query2=val1
//
// Example:
//
//	lims:https://lims.example.org/api/v2/containers:name=A:type=Tube
func (k CacheKey) String() string {
	parts := []string{"lims"}

	endpoint := strings.TrimRight(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Keys sorted; repeated values keep their request order. Names and
	// values are escaped so a ':' or '=' inside a value cannot forge a pair.
	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			for _, value := range k.QueryParams[key] {
				parts = append(parts, url.QueryEscape(key)+"="+url.QueryEscape(value))
			}
		}
	}

	return strings.Join(parts, ":")
}
