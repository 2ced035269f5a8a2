package client

import (
	"context"
	"net/http"
)

// Post sends payload to endpoint and returns the response body.
// Writes never touch the response cache.
func (c *Client) Post(ctx context.Context, endpoint string, payload []byte) ([]byte, error) {
	_, body, err := c.do(ctx, http.MethodPost, c.normalize([]string{endpoint})[0], payload)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Put sends payload to endpoint and returns the response body.
func (c *Client) Put(ctx context.Context, endpoint string, payload []byte) ([]byte, error) {
	_, body, err := c.do(ctx, http.MethodPut, c.normalize([]string{endpoint})[0], payload)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Delete removes endpoint and returns the full response. The body has
// already been read and can be consumed again from resp.Body.
func (c *Client) Delete(ctx context.Context, endpoint string) (*http.Response, error) {
	resp, _, err := c.do(ctx, http.MethodDelete, c.normalize([]string{endpoint})[0], nil)
	if err != nil {
		return nil, err
	}
	return resp, nil
}
