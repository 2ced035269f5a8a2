package client

import (
	"net/url"
	"sort"
	"strings"
)

// Query holds GET query parameters. Single-valued keys are encoded first
// with standard encoding; multi-valued keys follow as repeated key=value pairs.
type Query map[string][]string

// Encode renders q as a query string without the leading "?".
func (q Query) Encode() string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	scalars := url.Values{}
	var repeated []string
	for _, k := range keys {
		values := q[k]
		switch len(values) {
		case 0:
		case 1:
			scalars.Set(k, values[0])
		default:
			for _, v := range values {
				repeated = append(repeated, url.QueryEscape(k)+"="+url.QueryEscape(v))
			}
		}
	}

	parts := make([]string, 0, 1+len(repeated))
	if s := scalars.Encode(); s != "" {
		parts = append(parts, s)
	}
	parts = append(parts, repeated...)
	return strings.Join(parts, "&")
}

// appendQuery adds q to uri, keeping any query uri already has.
func appendQuery(uri string, q Query) string {
	encoded := q.Encode()
	if encoded == "" {
		return uri
	}
	if strings.Contains(uri, "?") {
		return uri + "&" + encoded
	}
	return uri + "?" + encoded
}
