package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// KeyListServer serves a plaintext, newline-separated key list the way a
// published spreadsheet export does. Keys and status can be changed between
// requests.
type KeyListServer struct {
	*httptest.Server

	mu     sync.Mutex
	keys   []string
	status int
	hits   int
}

// NewKeyListServer starts a server returning keys. It is closed when the
// test ends.
func NewKeyListServer(t *testing.T, keys ...string) *KeyListServer {
	t.Helper()
	s := &KeyListServer{keys: keys, status: http.StatusOK}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *KeyListServer) serve(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.hits++
	status := s.status
	body := strings.Join(s.keys, "\r\n")
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if status == http.StatusOK {
		_, _ = w.Write([]byte(body))
	}
}

// SetKeys replaces the served list.
func (s *KeyListServer) SetKeys(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = keys
}

// Fail makes subsequent requests answer status.
func (s *KeyListServer) Fail(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// Hits returns how many requests were served.
func (s *KeyListServer) Hits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits
}
