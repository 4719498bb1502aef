// Package testutil provides testing utilities for the trade paginator.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// TradesPath is the path the mock serves trade pages on.
const TradesPath = "/api/BTC/trades/"

// MockResponse defines the behavior for a single mock response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockTradesAPI is a configurable mock of a tid-cursored trades API.
// Pages are keyed by the tid query parameter; unknown cursors get "[]".
type MockTradesAPI struct {
	server *httptest.Server
	mu     sync.RWMutex
	pages  map[uint64]MockResponse

	// failures are consumed before the page for a cursor is served.
	failures map[uint64][]MockResponse

	// Tracking
	RequestCount    int
	RequestedTIDs   []string
	LastUserAgent   string
	LastAcceptValue string
}

// NewMockTradesAPI creates a new mock trades server.
func NewMockTradesAPI() *MockTradesAPI {
	mock := &MockTradesAPI{
		pages:    make(map[uint64]MockResponse),
		failures: make(map[uint64][]MockResponse),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))

	return mock
}

// URL returns the base URL of the trades endpoint.
func (m *MockTradesAPI) URL() string {
	return m.server.URL + TradesPath
}

// Close shuts down the mock server.
func (m *MockTradesAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockTradesAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.RequestedTIDs = nil
	m.LastUserAgent = ""
	m.LastAcceptValue = ""
}

// SetPage serves body with 200 OK for the given cursor.
func (m *MockTradesAPI) SetPage(tid uint64, body string) {
	m.SetResponse(tid, NewPageResponse(body))
}

// SetResponse configures the response for the given cursor.
func (m *MockTradesAPI) SetResponse(tid uint64, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[tid] = resp
}

// FailNext queues responses served for tid before its configured page.
func (m *MockTradesAPI) FailNext(tid uint64, resps ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[tid] = append(m.failures[tid], resps...)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockTradesAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetLastHeaders returns the User-Agent and Accept values of the last request.
func (m *MockTradesAPI) GetLastHeaders() (userAgent, accept string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastUserAgent, m.LastAcceptValue
}

// GetRequestedTIDs returns the raw tid query values in request order.
func (m *MockTradesAPI) GetRequestedTIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.RequestedTIDs))
	copy(out, m.RequestedTIDs)
	return out
}

func (m *MockTradesAPI) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != TradesPath {
		http.NotFound(w, r)
		return
	}

	rawTID := r.URL.Query().Get("tid")

	m.mu.Lock()
	m.RequestCount++
	m.RequestedTIDs = append(m.RequestedTIDs, rawTID)
	m.LastUserAgent = r.Header.Get("User-Agent")
	m.LastAcceptValue = r.Header.Get("Accept")

	tid, err := strconv.ParseUint(rawTID, 10, 64)
	if err != nil {
		m.mu.Unlock()
		http.Error(w, fmt.Sprintf(`{"error": "invalid tid %q"}`, rawTID), http.StatusBadRequest)
		return
	}

	var resp MockResponse
	if queued := m.failures[tid]; len(queued) > 0 {
		resp = queued[0]
		m.failures[tid] = queued[1:]
	} else if page, ok := m.pages[tid]; ok {
		resp = page
	} else {
		resp = NewPageResponse("[]")
	}
	m.mu.Unlock()

	writeResponse(w, r, resp)
}

func writeResponse(w http.ResponseWriter, r *http.Request, resp MockResponse) {
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
}

// NewPageResponse creates a standard 200 OK JSON response.
func NewPageResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewSlowResponse creates a 200 OK response delivered after delay.
func NewSlowResponse(body string, delay time.Duration) MockResponse {
	resp := NewPageResponse(body)
	resp.Delay = delay
	return resp
}

// TradeJSON renders a single trade object in the upstream wire format.
func TradeJSON(tid uint64, date int64, side string, price, amount string) string {
	return fmt.Sprintf(`{"tid":%d,"date":%d,"type":%q,"price":%s,"amount":%s}`,
		tid, date, side, price, amount)
}
