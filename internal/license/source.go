package license

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultMaxBodyBytes caps the size of a fetched key list.
const DefaultMaxBodyBytes int64 = 1 << 20

// KeySource fetches the current list of valid license keys.
type KeySource interface {
	FetchKeys(ctx context.Context) ([]string, error)
	// Describe returns a short, credential-free description for logs.
	Describe() string
}

// ParseKeyList splits a plaintext key list into keys. Lines may end in \n,
// \r\n or \r; each line is trimmed and empty lines are dropped. Order and
// duplicates are preserved.
func ParseKeyList(body string) []string {
	lines := strings.FieldsFunc(body, func(r rune) bool {
		return r == '\n' || r == '\r'
	})
	keys := make([]string, 0, len(lines))
	for _, line := range lines {
		if key := strings.TrimSpace(line); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// HTTPKeySource reads a newline-separated key list from a URL.
type HTTPKeySource struct {
	url          string
	client       *http.Client
	maxBodyBytes int64
}

// HTTPKeySourceOption configures an HTTPKeySource.
type HTTPKeySourceOption func(*HTTPKeySource)

// WithHTTPClient replaces the default otelhttp-instrumented client.
func WithHTTPClient(client *http.Client) HTTPKeySourceOption {
	return func(s *HTTPKeySource) {
		if client != nil {
			s.client = client
		}
	}
}

// WithMaxBodyBytes caps how much of the response body is read.
func WithMaxBodyBytes(n int64) HTTPKeySourceOption {
	return func(s *HTTPKeySource) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// NewHTTPKeySource creates a source for url. The default client traces each
// outbound request.
func NewHTTPKeySource(url string, opts ...HTTPKeySourceOption) *HTTPKeySource {
	s := &HTTPKeySource{
		url: url,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   30 * time.Second,
		},
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchKeys performs one GET and parses the body. Any status other than
// 200 is an error.
func (s *HTTPKeySource) FetchKeys(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build key list request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch key list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("key list request returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read key list body: %w", err)
	}
	if int64(len(body)) > s.maxBodyBytes {
		return nil, fmt.Errorf("key list body exceeds %d bytes", s.maxBodyBytes)
	}

	return ParseKeyList(string(body)), nil
}

func (s *HTTPKeySource) Describe() string {
	return "http " + redactURL(s.url)
}

// redactURL strips the query string, which may carry access tokens.
func redactURL(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i]
	}
	return raw
}
