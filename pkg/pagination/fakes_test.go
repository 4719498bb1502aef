package pagination

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// transportCall records one PerformRequest invocation.
type transportCall struct {
	URL     string
	Timeout time.Duration
}

// fakeTransport answers PerformRequest through respond and records every call.
type fakeTransport struct {
	mu      sync.Mutex
	calls   []transportCall
	respond func(call int, url string) ([]byte, error)
}

func (f *fakeTransport) PerformRequest(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, transportCall{URL: url, Timeout: timeout})
	call := len(f.calls)
	f.mu.Unlock()

	return f.respond(call, url)
}

func (f *fakeTransport) Calls() []transportCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]transportCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// Cursors returns the tid query value of every call.
func (f *fakeTransport) Cursors() []string {
	var cursors []string
	for _, c := range f.Calls() {
		u, err := url.Parse(c.URL)
		if err != nil {
			cursors = append(cursors, "<bad url>")
			continue
		}
		cursors = append(cursors, u.Query().Get("tid"))
	}
	return cursors
}

// sequenceTransport serves bodies in call order; calls past the end get "[]".
func sequenceTransport(bodies ...string) *fakeTransport {
	return &fakeTransport{
		respond: func(call int, _ string) ([]byte, error) {
			if call > len(bodies) {
				return []byte("[]"), nil
			}
			return []byte(bodies[call-1]), nil
		},
	}
}

// failingTransport always returns err.
func failingTransport(err error) *fakeTransport {
	return &fakeTransport{
		respond: func(int, string) ([]byte, error) {
			return nil, err
		},
	}
}

// recordingSleeper records requested durations without waiting.
type recordingSleeper struct {
	mu     sync.Mutex
	sleeps []time.Duration
	err    error
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleeps = append(s.sleeps, d)
	if s.err != nil {
		return s.err
	}
	return ctx.Err()
}

func (s *recordingSleeper) Sleeps() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.sleeps))
	copy(out, s.sleeps)
	return out
}

// newTestPaginator builds a paginator with a silent logger and a recording sleeper.
func newTestPaginator(t testing.TB, tr *fakeTransport, cfg Config) (*Paginator, *recordingSleeper) {
	t.Helper()

	sleeper := &recordingSleeper{}
	p, err := New(tr, cfg, WithSleeper(sleeper), WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p, sleeper
}

const (
	tradeA = `{"tid":8191061,"date":1611853484,"type":"buy","price":174799.8998,"amount":0.00932356}`
	tradeB = `{"tid":8191062,"date":1611853489,"type":"sell","price":174700.10001,"amount":0.00555123}`
)
