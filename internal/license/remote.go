package license

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

// RemoteManager implements the remote variant: membership comes from a
// KeyCache and records are created lazily on first validation.
type RemoteManager struct {
	store    *Store
	cache    *KeyCache
	clock    Clock
	validity time.Duration
	logger   *slog.Logger
	metrics  *Metrics
}

// NewRemoteManager creates a remote manager. store may be nil, in which case
// an empty activation table is created.
func NewRemoteManager(cache *KeyCache, store *Store, opts ...Option) *RemoteManager {
	o := applyOptions(opts)
	if store == nil {
		store = NewStore()
	}
	return &RemoteManager{
		store:    store,
		cache:    cache,
		clock:    o.clock,
		validity: o.validity,
		logger:   o.logger.With(slog.String("component", "license_manager"), slog.String("variant", string(VariantRemote))),
		metrics:  o.metrics,
	}
}

// Validate refreshes the key list when stale, then checks key. Refresh
// failures are logged by the cache and validation proceeds against the
// cached list. Expired records are evicted.
func (m *RemoteManager) Validate(ctx context.Context, key, hardwareID string) Outcome {
	start := time.Now()
	m.ensureFresh(ctx)

	var outcome Outcome
	if !m.cache.Contains(key) {
		outcome = OutcomeUnknownKey
	} else {
		outcome = m.store.bind(key, hardwareID, m.clock(), bindPolicy{
			createValidity: m.validity,
			evictExpired:   true,
		})
	}
	elapsed := time.Since(start)

	if outcome == OutcomeExpired {
		m.metrics.recordEviction(ctx)
	}
	m.metrics.recordValidation(ctx, VariantRemote, outcome, elapsed)
	logValidation(ctx, m.logger, key, outcome, elapsed)
	return outcome
}

// AddKey appends key to the cached key list. It reports whether the key was
// new; no record is created.
func (m *RemoteManager) AddKey(ctx context.Context, key string) (bool, error) {
	if strings.TrimSpace(key) == "" {
		return false, ErrEmptyKey
	}

	added := m.cache.Add(key)
	m.metrics.recordKeyAdded(ctx, added)
	m.metrics.recordCacheSize(ctx, m.cache.Len())

	result := "added"
	if !added {
		result = "already_present"
	}
	logAction(ctx, m.logger, slog.LevelInfo, "add_key", result,
		slog.String("license_key", MaskLicenseKey(key)),
	)
	return added, nil
}

// Revoke deactivates the record for key. Keys that were never validated
// have no record and are left alone.
func (m *RemoteManager) Revoke(ctx context.Context, key string) bool {
	found := m.store.Revoke(key)
	m.metrics.recordRevoke(ctx, VariantRemote, found)
	logAction(ctx, m.logger, slog.LevelInfo, "revoke", revokeResult(found),
		slog.String("license_key", MaskLicenseKey(key)),
	)
	return found
}

// ListKeys refreshes the key list when stale and returns a copy of it.
func (m *RemoteManager) ListKeys(ctx context.Context) []string {
	m.ensureFresh(ctx)
	return m.cache.Keys()
}

// Refresh forces a key list fetch.
func (m *RemoteManager) Refresh(ctx context.Context) error {
	return m.cache.Refresh(ctx)
}

// Cache exposes the key cache for health reporting.
func (m *RemoteManager) Cache() *KeyCache {
	return m.cache
}

// Store exposes the activation table for health reporting.
func (m *RemoteManager) Store() *Store {
	return m.store
}

func (m *RemoteManager) ensureFresh(ctx context.Context) {
	err := m.cache.EnsureFresh(ctx)
	if err != nil && errors.Is(err, ErrRefreshThrottled) {
		m.logger.LogAttrs(ctx, slog.LevelDebug, "serving stale key list",
			slog.String("reason", err.Error()),
		)
	}
}
