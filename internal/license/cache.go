package license

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Key cache defaults.
const (
	DefaultCacheInterval    = 5 * time.Minute
	DefaultMinRetryInterval = 30 * time.Second
	DefaultFetchTimeout     = 10 * time.Second
)

// KeyCacheConfig controls refresh timing.
type KeyCacheConfig struct {
	// Interval is how long a successful fetch stays fresh.
	Interval time.Duration
	// MinRetryInterval is the minimum spacing of refresh attempts made on
	// behalf of requests. Zero disables the gate.
	MinRetryInterval time.Duration
	// FetchTimeout bounds each fetch.
	FetchTimeout time.Duration
}

// DefaultKeyCacheConfig returns the standard refresh timings.
func DefaultKeyCacheConfig() KeyCacheConfig {
	return KeyCacheConfig{
		Interval:         DefaultCacheInterval,
		MinRetryInterval: DefaultMinRetryInterval,
		FetchTimeout:     DefaultFetchTimeout,
	}
}

// KeyCacheState is a point-in-time view of the cache for health reporting.
type KeyCacheState struct {
	Source      string    `json:"source"`
	Keys        int       `json:"keys"`
	Loaded      bool      `json:"loaded"`
	Stale       bool      `json:"stale"`
	RefreshedAt time.Time `json:"refreshedAt,omitempty"`
	LastAttempt time.Time `json:"lastAttempt,omitempty"`
	LastError   string    `json:"lastError,omitempty"`
}

// KeyCache holds the list of keys fetched from a KeySource. The list lock is
// never held while a fetch is in progress.
type KeyCache struct {
	source       KeySource
	interval     time.Duration
	fetchTimeout time.Duration
	clock        Clock
	logger       *slog.Logger
	metrics      *Metrics

	retry *rate.Limiter
	group singleflight.Group

	mu          sync.RWMutex
	keys        []string
	index       map[string]struct{}
	refreshedAt time.Time
	lastAttempt time.Time
	lastErr     error
}

// NewKeyCache creates an empty, stale cache over source.
func NewKeyCache(source KeySource, cfg KeyCacheConfig, opts ...Option) *KeyCache {
	o := applyOptions(opts)

	if cfg.Interval <= 0 {
		cfg.Interval = DefaultCacheInterval
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	limit := rate.Inf
	if cfg.MinRetryInterval > 0 {
		limit = rate.Every(cfg.MinRetryInterval)
	}

	return &KeyCache{
		source:       source,
		interval:     cfg.Interval,
		fetchTimeout: cfg.FetchTimeout,
		clock:        o.clock,
		logger:       o.logger.With(slog.String("component", "key_cache")),
		metrics:      o.metrics,
		retry:        rate.NewLimiter(limit, 1),
		index:        make(map[string]struct{}),
	}
}

// EnsureFresh refreshes the list when it is stale. Concurrent callers share
// one fetch. After an attempt, further request-driven attempts are refused
// with ErrRefreshThrottled until MinRetryInterval has passed. On any error
// the previous list stays in place.
func (c *KeyCache) EnsureFresh(ctx context.Context) error {
	if !c.Stale() {
		return nil
	}

	_, err, _ := c.group.Do("ensure", func() (interface{}, error) {
		now := c.clock()
		if !c.staleAt(now) {
			return nil, nil
		}
		if !c.retry.AllowN(now, 1) {
			c.metrics.recordThrottled(ctx)
			return nil, ErrRefreshThrottled
		}
		return nil, c.fetch(ctx)
	})
	return err
}

// Refresh fetches the list unconditionally, bypassing the retry gate.
func (c *KeyCache) Refresh(ctx context.Context) error {
	_, err, _ := c.group.Do("force", func() (interface{}, error) {
		return nil, c.fetch(ctx)
	})
	return err
}

func (c *KeyCache) fetch(ctx context.Context) error {
	if c.source == nil {
		return ErrNoKeySource
	}

	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
	defer cancel()

	start := time.Now()
	keys, err := c.source.FetchKeys(fetchCtx)
	elapsed := time.Since(start)
	attempted := c.clock()

	if err != nil {
		c.mu.Lock()
		c.lastAttempt = attempted
		c.lastErr = err
		cached := len(c.keys)
		c.mu.Unlock()

		c.metrics.recordRefresh(ctx, elapsed, cached, err)
		c.logger.LogAttrs(ctx, slog.LevelWarn, "key list refresh failed, keeping cached keys",
			slog.String("source", c.source.Describe()),
			slog.Int("cached_keys", cached),
			slog.Duration("duration", elapsed),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to refresh key list from %s: %w", c.source.Describe(), err)
	}

	index := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		index[k] = struct{}{}
	}

	c.mu.Lock()
	c.keys = keys
	c.index = index
	c.refreshedAt = attempted
	c.lastAttempt = attempted
	c.lastErr = nil
	c.mu.Unlock()

	c.metrics.recordRefresh(ctx, elapsed, len(keys), nil)
	level := slog.LevelInfo
	if len(keys) == 0 {
		level = slog.LevelWarn
	}
	c.logger.LogAttrs(ctx, level, "key list refreshed",
		slog.String("source", c.source.Describe()),
		slog.Int("keys", len(keys)),
		slog.Duration("duration", elapsed),
	)
	return nil
}

// Stale reports whether the list has never loaded or is older than the
// refresh interval.
func (c *KeyCache) Stale() bool {
	return c.staleAt(c.clock())
}

func (c *KeyCache) staleAt(now time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshedAt.IsZero() || now.Sub(c.refreshedAt) >= c.interval
}

// Contains reports whether key is in the cached list.
func (c *KeyCache) Contains(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.index[key]
	return ok
}

// Add appends key to the cached list unless it is already present. It
// reports whether the key was added. Added keys last until the next
// successful refresh replaces the list.
func (c *KeyCache) Add(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.index[key]; ok {
		return false
	}
	c.keys = append(c.keys, key)
	c.index[key] = struct{}{}
	return true
}

// Keys returns a copy of the cached list.
func (c *KeyCache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Len returns the number of cached keys, duplicates included.
func (c *KeyCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keys)
}

// State returns the cache state.
func (c *KeyCache) State() KeyCacheState {
	now := c.clock()

	c.mu.RLock()
	defer c.mu.RUnlock()

	state := KeyCacheState{
		Keys:        len(c.keys),
		Loaded:      !c.refreshedAt.IsZero(),
		Stale:       c.refreshedAt.IsZero() || now.Sub(c.refreshedAt) >= c.interval,
		RefreshedAt: c.refreshedAt,
		LastAttempt: c.lastAttempt,
	}
	if c.source != nil {
		state.Source = c.source.Describe()
	}
	if c.lastErr != nil {
		state.LastError = c.lastErr.Error()
	}
	return state
}
