// Package testutil provides testing utilities for the HubSpot extract client.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockHubSpot is a configurable mock HubSpot API server for testing.
type MockHubSpot struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	LastRequestHeader http.Header
	LastRequestBody   []byte
}

// NewMockHubSpot creates a new mock HubSpot server.
func NewMockHubSpot() *MockHubSpot {
	mock := &MockHubSpot{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.LastRequestBody = body
		mock.mu.Unlock()

		// Check for custom handler
		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		// Default handler
		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockHubSpot) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockHubSpot) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockHubSpot) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastRequestHeader = nil
	m.LastRequestBody = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockHubSpot) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockHubSpot) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		// Add delay if specified
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		// Set headers
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		// Write status and body
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetPagedResponses configures a path to serve pages linked by after tokens.
// The first request (no after parameter or body field) gets pages[0]; a
// request carrying token "page-N" gets pages[N]. Every page except the last
// links to the next one.
func (m *MockHubSpot) SetPagedResponses(path string, pages []string) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		after := r.URL.Query().Get("after")
		if after == "" && r.Method == http.MethodPost {
			var body map[string]any
			data, _ := io.ReadAll(r.Body)
			if json.Unmarshal(data, &body) == nil {
				after, _ = body["after"].(string)
			}
		}

		index := 0
		if after != "" {
			fmt.Sscanf(after, "page-%d", &index)
		}
		if index >= len(pages) {
			index = len(pages) - 1
		}

		setRateLimitHeaders(w, "95")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(pages[index]))
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockHubSpot) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// defaultHandler provides default HubSpot-like responses.
func (m *MockHubSpot) defaultHandler(w http.ResponseWriter, r *http.Request) {
	setRateLimitHeaders(w, "95")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"results": []}`))
}

func setRateLimitHeaders(w http.ResponseWriter, remaining string) {
	w.Header().Set("X-HubSpot-RateLimit-Remaining", remaining)
	w.Header().Set("X-HubSpot-RateLimit-Interval-Milliseconds", "10000")
}

// PageBody builds a v3 response body with n records and an optional after token.
// Record ids are sequential starting at firstID.
func PageBody(n, firstID int, after string) string {
	results := make([]map[string]any, n)
	for i := range results {
		results[i] = map[string]any{
			"id": fmt.Sprintf("%d", firstID+i),
			"properties": map[string]any{
				"email": fmt.Sprintf("user%d@example.com", firstID+i),
			},
		}
	}

	body := map[string]any{"results": results}
	if after != "" {
		body["paging"] = map[string]any{"next": map[string]any{"after": after}}
	}

	data, _ := json.Marshal(body)
	return string(data)
}

// NewHealthyResponse creates a standard 200 OK response with rate limit headers.
func NewHealthyResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"X-HubSpot-RateLimit-Remaining":             "95",
			"X-HubSpot-RateLimit-Interval-Milliseconds": "10000",
			"Content-Type":                              "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"status": "error", "message": "Rate limit exceeded", "category": "RATE_LIMITS"}`,
		Headers: map[string]string{
			"X-HubSpot-RateLimit-Remaining":             "0",
			"X-HubSpot-RateLimit-Interval-Milliseconds": "10000",
			"Content-Type":                              "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"status": "error", "message": "internal error"}`,
		Headers: map[string]string{
			"X-HubSpot-RateLimit-Remaining":             "95",
			"X-HubSpot-RateLimit-Interval-Milliseconds": "10000",
			"Content-Type":                              "application/json; charset=utf-8",
		},
	}
}
