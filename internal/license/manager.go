package license

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

// Option configures managers and caches.
type Option func(*options)

type options struct {
	clock    Clock
	logger   *slog.Logger
	metrics  *Metrics
	validity time.Duration
}

// WithClock sets the time source.
func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics enables metric recording.
func WithMetrics(metrics *Metrics) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

// WithValidity sets the lifetime of records created lazily by RemoteManager.
func WithValidity(validity time.Duration) Option {
	return func(o *options) {
		if validity > 0 {
			o.validity = validity
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{
		clock:    time.Now,
		logger:   discardLogger(),
		validity: Days(DefaultValidityDays),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Manager implements the static variant: a fixed store seeded at startup,
// extended only through Add.
type Manager struct {
	store   *Store
	clock   Clock
	logger  *slog.Logger
	metrics *Metrics
}

// NewManager creates a static manager over store.
func NewManager(store *Store, opts ...Option) *Manager {
	o := applyOptions(opts)
	if store == nil {
		store = NewStore()
	}
	return &Manager{
		store:   store,
		clock:   o.clock,
		logger:  o.logger.With(slog.String("component", "license_manager"), slog.String("variant", string(VariantStatic))),
		metrics: o.metrics,
	}
}

// Validate checks key against hardwareID, binding the record on first use.
// An unknown key never creates a record.
func (m *Manager) Validate(ctx context.Context, key, hardwareID string) Outcome {
	start := time.Now()
	outcome := m.store.bind(key, hardwareID, m.clock(), bindPolicy{})
	elapsed := time.Since(start)

	m.metrics.recordValidation(ctx, VariantStatic, outcome, elapsed)
	logValidation(ctx, m.logger, key, outcome, elapsed)
	return outcome
}

// Add creates an unbound record valid for daysValid days. A key that is
// already present keeps its existing record and ErrDuplicateKey is returned.
func (m *Manager) Add(ctx context.Context, key string, daysValid int) (Record, error) {
	if strings.TrimSpace(key) == "" {
		m.metrics.recordAdd(ctx, ErrEmptyKey)
		return Record{}, ErrEmptyKey
	}

	rec := NewRecord(key, "", m.clock(), Days(daysValid))
	err := m.store.Insert(rec)
	m.metrics.recordAdd(ctx, err)
	if err != nil {
		level := slog.LevelWarn
		if errors.Is(err, ErrDuplicateKey) {
			level = slog.LevelInfo
		}
		logAction(ctx, m.logger, level, "add", "rejected",
			slog.String("license_key", MaskLicenseKey(key)),
			slog.String("error", err.Error()),
		)
		return Record{}, err
	}

	logAction(ctx, m.logger, slog.LevelInfo, "add", "added",
		slog.String("license_key", MaskLicenseKey(key)),
		slog.Int("days_valid", daysValid),
		slog.Int64("expires_at", rec.ExpiresAt),
	)
	return rec, nil
}

// Revoke deactivates the record for key. It reports whether one existed.
func (m *Manager) Revoke(ctx context.Context, key string) bool {
	found := m.store.Revoke(key)
	m.metrics.recordRevoke(ctx, VariantStatic, found)
	logAction(ctx, m.logger, slog.LevelInfo, "revoke", revokeResult(found),
		slog.String("license_key", MaskLicenseKey(key)),
	)
	return found
}

// Licenses returns a snapshot of all records.
func (m *Manager) Licenses() []Record {
	return m.store.Snapshot()
}

// Store exposes the underlying store for health reporting.
func (m *Manager) Store() *Store {
	return m.store
}

func revokeResult(found bool) string {
	if found {
		return "revoked"
	}
	return "not_found"
}

// SeedRecords builds unbound, active records for keys, each valid for
// validity from now.
func SeedRecords(keys []string, now time.Time, validity time.Duration) []Record {
	out := make([]Record, 0, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		out = append(out, NewRecord(key, "", now, validity))
	}
	return out
}
