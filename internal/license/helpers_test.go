package license

import (
	"context"
	"errors"
	"sync"
	"time"
)

var testEpoch = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: testEpoch}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// stubSource is a KeySource whose result can be changed between fetches.
type stubSource struct {
	mu    sync.Mutex
	keys  []string
	err   error
	calls int
	// gate, when set, blocks each fetch until it is closed.
	gate chan struct{}
}

func newStubSource(keys ...string) *stubSource {
	return &stubSource{keys: keys}
}

func (s *stubSource) FetchKeys(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	s.calls++
	gate := s.gate
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out, nil
}

func (s *stubSource) Describe() string { return "stub" }

func (s *stubSource) set(keys []string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = keys
	s.err = err
}

func (s *stubSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var errSourceDown = errors.New("source unavailable")
