package license

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newStaticManager(t *testing.T, clock *fakeClock, keys ...string) *Manager {
	t.Helper()
	store := NewStore(SeedRecords(keys, clock.Now(), Days(DefaultValidityDays))...)
	return NewManager(store, WithClock(clock.Now))
}

func TestManagerValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown key is invalid and creates nothing", func(t *testing.T) {
		clock := newFakeClock()
		m := newStaticManager(t, clock, "ABCD-EFGH-IJKL-MNOP")

		assert.Equal(t, OutcomeUnknownKey, m.Validate(ctx, "NOPE", "H"))
		assert.Len(t, m.Licenses(), 1)
	})

	t.Run("first bind then mismatch then original hardware", func(t *testing.T) {
		clock := newFakeClock()
		m := newStaticManager(t, clock, "ABCD-EFGH-IJKL-MNOP")

		assert.Equal(t, OutcomeBound, m.Validate(ctx, "ABCD-EFGH-IJKL-MNOP", "H"))
		assert.Equal(t, OutcomeHardwareMismatch, m.Validate(ctx, "ABCD-EFGH-IJKL-MNOP", "H2"))
		assert.Equal(t, OutcomeValid, m.Validate(ctx, "ABCD-EFGH-IJKL-MNOP", "H"))
	})

	t.Run("revoked key stays invalid", func(t *testing.T) {
		clock := newFakeClock()
		m := newStaticManager(t, clock, "K")

		assert.True(t, m.Validate(ctx, "K", "H").Valid())
		assert.True(t, m.Revoke(ctx, "K"))
		assert.Equal(t, OutcomeRevoked, m.Validate(ctx, "K", "H"))
		assert.Equal(t, OutcomeRevoked, m.Validate(ctx, "K", "OTHER"))
	})

	t.Run("expired key is invalid but kept", func(t *testing.T) {
		clock := newFakeClock()
		m := newStaticManager(t, clock, "K")

		clock.Advance(Days(DefaultValidityDays) + time.Second)
		assert.Equal(t, OutcomeExpired, m.Validate(ctx, "K", "H"))
		assert.Len(t, m.Licenses(), 1)
	})
}

func TestManagerAdd(t *testing.T) {
	ctx := context.Background()

	t.Run("adds unbound record", func(t *testing.T) {
		clock := newFakeClock()
		m := newStaticManager(t, clock)

		rec, err := m.Add(ctx, "NEW-KEY", 7)
		require.NoError(t, err)
		assert.Equal(t, "NEW-KEY", rec.Key)
		assert.Empty(t, rec.HardwareID)
		assert.True(t, rec.IsActive)
		assert.Equal(t, clock.Now().Add(Days(7)).Unix(), rec.ExpiresAt)

		assert.Equal(t, OutcomeBound, m.Validate(ctx, "NEW-KEY", "H"))
	})

	t.Run("zero days expires after the current second", func(t *testing.T) {
		clock := newFakeClock()
		m := newStaticManager(t, clock)

		_, err := m.Add(ctx, "SHORT", 0)
		require.NoError(t, err)
		assert.Equal(t, OutcomeBound, m.Validate(ctx, "SHORT", "H"))

		clock.Advance(time.Second)
		assert.Equal(t, OutcomeExpired, m.Validate(ctx, "SHORT", "H"))
	})

	t.Run("duplicate key keeps earliest record", func(t *testing.T) {
		clock := newFakeClock()
		m := newStaticManager(t, clock, "K")
		require.Equal(t, OutcomeBound, m.Validate(ctx, "K", "H"))

		_, err := m.Add(ctx, "K", 365)
		assert.ErrorIs(t, err, ErrDuplicateKey)

		recs := m.Licenses()
		require.Len(t, recs, 1)
		assert.Equal(t, "H", recs[0].HardwareID)
		assert.Equal(t, OutcomeHardwareMismatch, m.Validate(ctx, "K", "H2"))
	})

	t.Run("blank key rejected", func(t *testing.T) {
		m := newStaticManager(t, newFakeClock())

		_, err := m.Add(ctx, " ", 30)
		assert.ErrorIs(t, err, ErrEmptyKey)
		assert.Empty(t, m.Licenses())
	})
}

func TestManagerRevokeUnknown(t *testing.T) {
	m := newStaticManager(t, newFakeClock(), "K")

	assert.False(t, m.Revoke(context.Background(), "MISSING"))
	assert.Len(t, m.Licenses(), 1)
	assert.Equal(t, OutcomeUnknownKey, m.Validate(context.Background(), "MISSING", "H"))
}

func TestManagerMetrics(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })

	metrics, err := NewMetrics(provider.Meter(MeterName))
	require.NoError(t, err)

	clock := newFakeClock()
	store := NewStore(SeedRecords([]string{"K"}, clock.Now(), Days(1))...)
	m := NewManager(store, WithClock(clock.Now), WithMetrics(metrics))

	m.Validate(ctx, "K", "H")
	m.Validate(ctx, "K", "H2")
	m.Validate(ctx, "NOPE", "H")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	total := int64(0)
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if md.Name != "license_validations_total" {
				continue
			}
			sum, ok := md.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	assert.Equal(t, int64(3), total)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		ctx := context.Background()
		m.recordValidation(ctx, VariantStatic, OutcomeValid, time.Millisecond)
		m.recordAdd(ctx, nil)
		m.recordRefresh(ctx, time.Millisecond, 3, nil)
		m.recordThrottled(ctx)
	})
}

func TestMaskLicenseKey(t *testing.T) {
	assert.Equal(t, "ABCD****MNOP", MaskLicenseKey("ABCD-EFGH-IJKL-MNOP"))
	assert.Equal(t, "****", MaskLicenseKey("SHORT"))
	assert.Equal(t, "****", MaskLicenseKey(""))
}

func TestSeedRecords(t *testing.T) {
	recs := SeedRecords([]string{"A", " ", " B "}, testEpoch, Days(30))
	require.Len(t, recs, 2)
	assert.Equal(t, "A", recs[0].Key)
	assert.Equal(t, "B", recs[1].Key)
	assert.Equal(t, testEpoch.Add(Days(30)).Unix(), recs[1].ExpiresAt)
}
