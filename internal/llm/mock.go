package llm

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MockResponse is one canned reply.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
}

// MockHandler computes a reply from the request when the queue is empty.
type MockHandler func(ctx context.Context, req Request) MockResponse

// MockProvider is a deterministic Provider. Queued responses are served
// first in FIFO order, then Handler if set; with neither it reports
// ErrProviderUnavailable. Every request is recorded in Calls.
type MockProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	handler   MockHandler
	delay     time.Duration
	Calls     []Request
}

// NewMockProvider creates a MockProvider with the given queued responses.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses}
}

// WithHandler sets the fallback handler and returns m.
func (m *MockProvider) WithHandler(h MockHandler) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = h
	return m
}

// WithDelay makes every call wait d (or until ctx is done) before replying.
func (m *MockProvider) WithDelay(d time.Duration) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

func (m *MockProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	delay := m.delay
	var (
		next MockResponse
		ok   bool
	)
	if len(m.responses) > 0 {
		next, ok = m.responses[0], true
		m.responses = m.responses[1:]
	}
	handler := m.handler
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	switch {
	case ok:
	case handler != nil:
		next = handler(ctx, req)
	default:
		return nil, &ErrProviderUnavailable{}
	}

	if next.Err != nil {
		return nil, next.Err
	}
	return finalize(req, next.Content, next.Usage, "mock", "end")
}

// ModelID returns "mock".
func (m *MockProvider) ModelID() string {
	return "mock"
}

// AddResponse queues another canned response.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

// CallCount returns the number of Generate calls.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// CallsFor returns the recorded requests whose schema name matches.
func (m *MockProvider) CallsFor(schemaName string) []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Request
	for _, c := range m.Calls {
		if c.Schema != nil && c.Schema.Name == schemaName {
			out = append(out, c)
		}
	}
	return out
}
