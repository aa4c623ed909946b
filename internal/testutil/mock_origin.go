// Package testutil provides testing utilities for the cache inspector.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock origin response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockOrigin is a configurable stand-in for a site served through Netlify.
type MockOrigin struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	DebugLoggingCount int
	LastRequestHeader http.Header
}

// NewMockOrigin starts a new mock origin server.
func NewMockOrigin() *MockOrigin {
	mock := &MockOrigin{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		if r.Header.Get("X-NF-Debug-Logging") == "1" {
			mock.DebugLoggingCount++
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockOrigin) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockOrigin) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockOrigin) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.DebugLoggingCount = 0
	m.LastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockOrigin) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockOrigin) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockOrigin) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetDebugLoggingCount returns the number of requests that asked for
// Netlify debug headers.
func (m *MockOrigin) GetDebugLoggingCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.DebugLoggingCount
}

// GetLastRequestHeader returns the headers of the most recent request.
func (m *MockOrigin) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader
}

// defaultHandler answers like a Netlify edge cache hit.
func (m *MockOrigin) defaultHandler(w http.ResponseWriter, r *http.Request) {
	for key, value := range NewEdgeHitResponse().Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("<html>ok</html>"))
}

func netlifyHeaders(extra map[string]string) map[string]string {
	h := map[string]string{
		"Server":             "Netlify",
		"Date":               time.Now().UTC().Format(http.TimeFormat),
		"Content-Type":       "text/html; charset=UTF-8",
		"Debug-X-BB-Host-Id": "cdn-glo-aws-cmh-57, cdn-glo-aws-cmh-57",
		"X-NF-Request-Id":    "01HXYZTESTREQUEST",
	}
	for k, v := range extra {
		h[k] = v
	}
	return h
}

// NewEdgeHitResponse creates a 200 OK served from the Netlify edge cache.
func NewEdgeHitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       "<html>cached</html>",
		Headers: netlifyHeaders(map[string]string{
			"Cache-Status":  `"Netlify Edge"; hit`,
			"Cache-Control": "public, max-age=0, must-revalidate",
			"Age":           "120",
			"ETag":          `"edge-etag-1"`,
		}),
	}
}

// NewDurableHitResponse creates a 200 OK served from the durable cache.
func NewDurableHitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       "<html>durable</html>",
		Headers: netlifyHeaders(map[string]string{
			"Cache-Status":                    `"Netlify Durable"; hit; ttl=3540, "Netlify Edge"; fwd=miss`,
			"Cache-Control":                   "public, max-age=0, must-revalidate",
			"Debug-Netlify-CDN-Cache-Control": "public, durable, s-maxage=3600",
			"Age":                             "60",
		}),
	}
}

// NewFunctionResponse creates a 200 OK generated by a function.
func NewFunctionResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"ok":true}`,
		Headers: netlifyHeaders(map[string]string{
			"Cache-Status":             `"Netlify Edge"; fwd=miss`,
			"Cache-Control":            "private, no-store",
			"Debug-X-NF-Function-Type": "v2",
			"Content-Type":             "application/json",
		}),
	}
}

// NewNotFoundResponse creates a Netlify 404.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       "Not Found",
		Headers: netlifyHeaders(map[string]string{
			"Cache-Status": `"Netlify Edge"; fwd=miss`,
		}),
	}
}

// NewNonNetlifyResponse creates a 200 OK from some other server.
func NewNonNetlifyResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       "<html>elsewhere</html>",
		Headers: map[string]string{
			"Server":        "nginx",
			"Cache-Control": "public, max-age=60",
		},
	}
}
