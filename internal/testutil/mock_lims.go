// Package testutil provides testing utilities for the LIMS client.
package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// APIPath is the path prefix of every mock resource.
const APIPath = "/api/v2/"

// MockLIMSResponse defines the behavior for a mock LIMS endpoint response.
type MockLIMSResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// Request is one request received by the mock.
type Request struct {
	Method string
	// Target is the path plus raw query, e.g. "/api/v2/containers?start-index=500".
	Target string
	Body   string
}

// MockLIMS is a configurable mock LIMS server for testing.
type MockLIMS struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	requests []Request

	// Username and Password, when set, are required as basic auth.
	Username string
	Password string
}

// NewMockLIMS creates a new mock LIMS server.
func NewMockLIMS() *MockLIMS {
	mock := &MockLIMS{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		target := r.URL.Path
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}

		mock.mu.Lock()
		mock.requests = append(mock.requests, Request{Method: r.Method, Target: target, Body: string(body)})
		username, password := mock.Username, mock.Password
		mock.mu.Unlock()

		if username != "" {
			user, pass, ok := r.BasicAuth()
			if !ok || user != username || pass != password {
				writeException(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
		}

		// Exact method+target first, then method+path, then any method.
		mock.mu.RLock()
		handler, exists := mock.handlers[r.Method+" "+target]
		if !exists {
			handler, exists = mock.handlers[r.Method+" "+r.URL.Path]
		}
		if !exists {
			handler, exists = mock.handlers[target]
		}
		if !exists {
			handler, exists = mock.handlers[r.URL.Path]
		}
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		writeException(w, http.StatusNotFound, fmt.Sprintf("No resource at %s", target))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockLIMS) URL() string {
	return m.server.URL
}

// Host returns the API root with trailing slash, e.g. "http://127.0.0.1:1234/api/v2/".
func (m *MockLIMS) Host() string {
	return m.server.URL + APIPath
}

// Close shuts down the mock server.
func (m *MockLIMS) Close() {
	m.server.Close()
}

// Reset clears recorded requests.
func (m *MockLIMS) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

// SetHandler sets a custom handler. key is a target ("/api/v2/containers",
// "/api/v2/containers?start-index=500"), optionally prefixed with a method
// ("POST /api/v2/containers/batch/retrieve").
func (m *MockLIMS) SetHandler(key string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[key] = handler
}

// SetResponse configures a simple response for key.
func (m *MockLIMS) SetResponse(key string, resp MockLIMSResponse) {
	m.SetHandler(key, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for k, v := range resp.Headers {
			w.Header().Set(k, v)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// Requests returns a copy of every request received so far.
func (m *MockLIMS) Requests() []Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockLIMS) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// CountMethod returns the number of requests made with method.
func (m *MockLIMS) CountMethod(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.requests {
		if r.Method == method {
			n++
		}
	}
	return n
}

func writeException(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<exc:exception xmlns:exc="http://genologics.com/ri/exception"><message>%s</message></exc:exception>`, msg)
}

// NewXMLResponse creates a standard 200 OK XML response.
func NewXMLResponse(body string) MockLIMSResponse {
	return MockLIMSResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/xml",
		},
	}
}

// NewNotFoundResponse creates a 404 Not Found response.
func NewNotFoundResponse() MockLIMSResponse {
	return MockLIMSResponse{
		StatusCode: http.StatusNotFound,
		Body:       `<exc:exception xmlns:exc="http://genologics.com/ri/exception"><message>Not found</message></exc:exception>`,
		Headers:    map[string]string{"Content-Type": "application/xml"},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockLIMSResponse {
	return MockLIMSResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `<exc:exception xmlns:exc="http://genologics.com/ri/exception"><message>Internal server error</message></exc:exception>`,
		Headers:    map[string]string{"Content-Type": "application/xml"},
	}
}

// NewBinaryResponse creates a 200 OK octet-stream response, as served by files/{id}/download.
func NewBinaryResponse(data []byte) MockLIMSResponse {
	return MockLIMSResponse{
		StatusCode: http.StatusOK,
		Body:       string(data),
		Headers:    map[string]string{"Content-Type": "application/octet-stream"},
	}
}
