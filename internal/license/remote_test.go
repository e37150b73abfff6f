package license

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newRemote(t *testing.T, clock *fakeClock, source *stubSource) *RemoteManager {
	t.Helper()
	cache := NewKeyCache(source, KeyCacheConfig{
		Interval:         5 * time.Minute,
		MinRetryInterval: 30 * time.Second,
		FetchTimeout:     time.Second,
	}, WithClock(clock.Now))
	return NewRemoteManager(cache, nil, WithClock(clock.Now))
}

func TestRemoteValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("key outside the list creates nothing", func(t *testing.T) {
		clock := newFakeClock()
		m := newRemote(t, clock, newStubSource("LISTED"))

		assert.Equal(t, OutcomeUnknownKey, m.Validate(ctx, "OTHER", "H"))
		assert.Zero(t, m.Store().Len())
	})

	t.Run("first validation of listed key creates bound record", func(t *testing.T) {
		clock := newFakeClock()
		m := newRemote(t, clock, newStubSource("LISTED"))

		assert.Equal(t, OutcomeCreated, m.Validate(ctx, "LISTED", "H"))
		rec, ok := m.Store().Get("LISTED")
		require.True(t, ok)
		assert.Equal(t, "H", rec.HardwareID)
		assert.Equal(t, clock.Now().Add(Days(30)).Unix(), rec.ExpiresAt)

		assert.Equal(t, OutcomeValid, m.Validate(ctx, "LISTED", "H"))
		assert.Equal(t, OutcomeHardwareMismatch, m.Validate(ctx, "LISTED", "H2"))
		assert.Equal(t, OutcomeValid, m.Validate(ctx, "LISTED", "H"))
	})

	t.Run("expired record is evicted", func(t *testing.T) {
		clock := newFakeClock()
		source := newStubSource("LISTED")
		m := newRemote(t, clock, source)
		require.Equal(t, OutcomeCreated, m.Validate(ctx, "LISTED", "H"))

		clock.Advance(Days(30) + time.Second)
		assert.Equal(t, OutcomeExpired, m.Validate(ctx, "LISTED", "H"))
		assert.Zero(t, m.Store().Len())

		// Still listed, so the next validation activates a new record.
		assert.Equal(t, OutcomeCreated, m.Validate(ctx, "LISTED", "H2"))
	})

	t.Run("revoked record stays invalid", func(t *testing.T) {
		clock := newFakeClock()
		m := newRemote(t, clock, newStubSource("LISTED"))
		require.Equal(t, OutcomeCreated, m.Validate(ctx, "LISTED", "H"))

		assert.True(t, m.Revoke(ctx, "LISTED"))
		assert.Equal(t, OutcomeRevoked, m.Validate(ctx, "LISTED", "H"))
	})

	t.Run("revoke before first validation is a no-op", func(t *testing.T) {
		clock := newFakeClock()
		m := newRemote(t, clock, newStubSource("LISTED"))

		assert.False(t, m.Revoke(ctx, "LISTED"))
		assert.Zero(t, m.Store().Len())
		assert.Equal(t, OutcomeCreated, m.Validate(ctx, "LISTED", "H"))
	})

	t.Run("custom validity", func(t *testing.T) {
		clock := newFakeClock()
		cache := NewKeyCache(newStubSource("K"), DefaultKeyCacheConfig(), WithClock(clock.Now))
		m := NewRemoteManager(cache, nil, WithClock(clock.Now), WithValidity(time.Hour))

		require.Equal(t, OutcomeCreated, m.Validate(ctx, "K", "H"))
		rec, _ := m.Store().Get("K")
		assert.Equal(t, clock.Now().Add(time.Hour).Unix(), rec.ExpiresAt)
	})
}

func TestRemoteAddKey(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	m := newRemote(t, clock, newStubSource("LISTED"))
	require.NoError(t, m.Refresh(ctx))

	added, err := m.AddKey(ctx, "NEW")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Zero(t, m.Store().Len(), "add-key never creates a record")

	added, err = m.AddKey(ctx, "NEW")
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, []string{"LISTED", "NEW"}, m.ListKeys(ctx))

	assert.Equal(t, OutcomeCreated, m.Validate(ctx, "NEW", "FRESH-HW"))

	_, err = m.AddKey(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestRemoteAddedKeyReplacedByRefresh(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	m := newRemote(t, clock, newStubSource("LISTED"))
	require.NoError(t, m.Refresh(ctx))

	_, err := m.AddKey(ctx, "LOCAL")
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)
	assert.Equal(t, []string{"LISTED"}, m.ListKeys(ctx))
}

func TestRemoteFailedRefreshKeepsState(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	source := newStubSource("A", "B", "A")
	m := newRemote(t, clock, source)

	before := m.ListKeys(ctx)
	require.Equal(t, []string{"A", "B", "A"}, before)
	require.Equal(t, OutcomeCreated, m.Validate(ctx, "A", "H"))

	source.set([]string{"C"}, errSourceDown)
	clock.Advance(6 * time.Minute)

	assert.Equal(t, OutcomeValid, m.Validate(ctx, "A", "H"))
	assert.Equal(t, OutcomeCreated, m.Validate(ctx, "B", "H"))
	assert.Equal(t, OutcomeUnknownKey, m.Validate(ctx, "C", "H"))
	assert.Equal(t, before, m.ListKeys(ctx))

	state := m.Cache().State()
	assert.True(t, state.Stale)
	assert.Contains(t, state.LastError, errSourceDown.Error())
	assert.Equal(t, testEpoch, state.RefreshedAt)
}

func TestRemoteConcurrentValidate(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	source := newStubSource("K")
	m := newRemote(t, clock, source)

	const workers = 20
	var g errgroup.Group
	outcomes := make([]Outcome, workers)
	for i := 0; i < workers; i++ {
		i := i
		g.Go(func() error {
			outcomes[i] = m.Validate(ctx, "K", "H")
			return nil
		})
	}
	require.NoError(t, g.Wait())

	created := 0
	for _, o := range outcomes {
		if o == OutcomeCreated {
			created++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, m.Store().Len())
	assert.Equal(t, 1, source.Calls(), "concurrent stale callers share one fetch")
}

func TestRemoteHealth(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	source := newStubSource("K")
	m := newRemote(t, clock, source)

	report := m.Health(ctx)
	assert.Equal(t, HealthStatusUnhealthy, report.Status)
	assert.False(t, report.Ready())

	require.NoError(t, m.Refresh(ctx))
	report = m.Health(ctx)
	assert.Equal(t, HealthStatusHealthy, report.Status)
	require.NotNil(t, report.Cache)
	assert.Equal(t, 1, report.Cache.Keys)

	source.set(nil, errSourceDown)
	clock.Advance(10 * time.Minute)
	m.ListKeys(ctx)
	report = m.Health(ctx)
	assert.Equal(t, HealthStatusDegraded, report.Status)
	assert.True(t, report.Ready())
}

func TestStaticHealth(t *testing.T) {
	m := newStaticManager(t, newFakeClock(), "A", "B")
	report := m.Health(context.Background())

	assert.Equal(t, HealthStatusHealthy, report.Status)
	assert.Equal(t, VariantStatic, report.Variant)
	assert.Equal(t, 2, report.Records)
	assert.Nil(t, report.Cache)
}
