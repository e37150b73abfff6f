package license

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	TracerName = "licensegate/license"
	MeterName  = "licensegate/license"
)

// Metrics holds the license-specific OpenTelemetry instruments. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	ValidationAttempts metric.Int64Counter
	ValidationDuration metric.Float64Histogram

	LicensesAdded metric.Int64Counter
	KeysAdded     metric.Int64Counter
	Revocations   metric.Int64Counter
	Evictions     metric.Int64Counter

	KeyRefreshes        metric.Int64Counter
	KeyRefreshDuration  metric.Float64Histogram
	KeyRefreshThrottled metric.Int64Counter
	CachedKeys          metric.Int64Gauge
}

// NewMetrics creates all license instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.ValidationAttempts, err = meter.Int64Counter(
		"license_validations_total",
		metric.WithDescription("License validations by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create validations counter: %w", err)
	}

	m.ValidationDuration, err = meter.Float64Histogram(
		"license_validation_duration_seconds",
		metric.WithDescription("License validation duration in seconds, including any key refresh"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create validation duration histogram: %w", err)
	}

	m.LicensesAdded, err = meter.Int64Counter(
		"license_added_total",
		metric.WithDescription("License records added through the add operation"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create licenses added counter: %w", err)
	}

	m.KeysAdded, err = meter.Int64Counter(
		"license_keys_added_total",
		metric.WithDescription("Keys appended to the cached key list through add-key"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create keys added counter: %w", err)
	}

	m.Revocations, err = meter.Int64Counter(
		"license_revocations_total",
		metric.WithDescription("Revoke requests by whether a record existed"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create revocations counter: %w", err)
	}

	m.Evictions, err = meter.Int64Counter(
		"license_evictions_total",
		metric.WithDescription("Expired records evicted from the activation table"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create evictions counter: %w", err)
	}

	m.KeyRefreshes, err = meter.Int64Counter(
		"license_key_refreshes_total",
		metric.WithDescription("Remote key list refresh attempts by result"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create key refresh counter: %w", err)
	}

	m.KeyRefreshDuration, err = meter.Float64Histogram(
		"license_key_refresh_duration_seconds",
		metric.WithDescription("Remote key list fetch duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create key refresh duration histogram: %w", err)
	}

	m.KeyRefreshThrottled, err = meter.Int64Counter(
		"license_key_refresh_throttled_total",
		metric.WithDescription("Stale-cache refreshes skipped because the last failure was too recent"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create key refresh throttled counter: %w", err)
	}

	m.CachedKeys, err = meter.Int64Gauge(
		"license_cached_keys",
		metric.WithDescription("Number of keys in the cached key list"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cached keys gauge: %w", err)
	}

	return m, nil
}

func (m *Metrics) recordValidation(ctx context.Context, variant Variant, outcome Outcome, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("variant", string(variant)),
		attribute.String("outcome", outcome.String()),
		attribute.Bool("valid", outcome.Valid()),
	)
	m.ValidationAttempts.Add(ctx, 1, attrs)
	m.ValidationDuration.Record(ctx, d.Seconds(), attrs)
}

func (m *Metrics) recordAdd(ctx context.Context, err error) {
	if m == nil {
		return
	}
	result := "added"
	if err != nil {
		result = "rejected"
	}
	m.LicensesAdded.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *Metrics) recordKeyAdded(ctx context.Context, added bool) {
	if m == nil {
		return
	}
	m.KeysAdded.Add(ctx, 1, metric.WithAttributes(attribute.Bool("new", added)))
}

func (m *Metrics) recordRevoke(ctx context.Context, variant Variant, found bool) {
	if m == nil {
		return
	}
	m.Revocations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("variant", string(variant)),
		attribute.Bool("found", found),
	))
}

func (m *Metrics) recordEviction(ctx context.Context) {
	if m == nil {
		return
	}
	m.Evictions.Add(ctx, 1)
}

func (m *Metrics) recordRefresh(ctx context.Context, d time.Duration, keys int, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	attrs := metric.WithAttributes(attribute.String("result", result))
	m.KeyRefreshes.Add(ctx, 1, attrs)
	m.KeyRefreshDuration.Record(ctx, d.Seconds(), attrs)
	if err == nil {
		m.CachedKeys.Record(ctx, int64(keys))
	}
}

func (m *Metrics) recordThrottled(ctx context.Context) {
	if m == nil {
		return
	}
	m.KeyRefreshThrottled.Add(ctx, 1)
}

func (m *Metrics) recordCacheSize(ctx context.Context, keys int) {
	if m == nil {
		return
	}
	m.CachedKeys.Record(ctx, int64(keys))
}
