package configresolver

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalForge/internal/domain/models"
	"SignalForge/internal/strategy"
)

func newTestResolver(t *testing.T, primary, fallback *fakeStore, clock *fakeClock, opts ...Option) *Resolver {
	t.Helper()
	all := []Option{WithClock(clock.Now), WithStoreTimeout(50 * time.Millisecond)}
	if fallback != nil {
		all = append(all, WithFallback(fallback))
	}
	all = append(all, opts...)

	var r *Resolver
	if primary != nil {
		r = New(primary, testSchemas(), all...)
	} else {
		r = New(nil, testSchemas(), all...)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestCascade_SymbolOverrideWins(t *testing.T) {
	primary, fallback := newFakeStore("redis"), newFakeStore("clickhouse")
	primary.put("x", "", models.Parameters{"threshold": 10.0}, 3)
	primary.put("x", "BTCUSDT", models.Parameters{"threshold": 40.0}, 7)
	r := newTestResolver(t, primary, fallback, newFakeClock())

	eff := r.GetEffectiveParameters(context.Background(), "x", "BTCUSDT")
	assert.Equal(t, models.SourceSymbolPrimary, eff.Source)
	assert.Equal(t, int64(7), eff.Version)
	assert.Equal(t, 40.0, eff.Parameters.Float("threshold", 0))
	// missing keys are filled from the defaults
	assert.Equal(t, 14, eff.Parameters.Int("period", 0))

	global := r.GetEffectiveParameters(context.Background(), "x", "ETHUSDT")
	assert.Equal(t, models.SourceGlobalPrimary, global.Source)
	assert.Equal(t, 10.0, global.Parameters.Float("threshold", 0))
}

func TestCascade_FallbackTiers(t *testing.T) {
	primary, fallback := newFakeStore("redis"), newFakeStore("clickhouse")
	fallback.put("x", "BTCUSDT", models.Parameters{"threshold": 33.0}, 2)
	fallback.put("y", "", models.Parameters{"threshold": 5.0}, 1)
	r := newTestResolver(t, primary, fallback, newFakeClock())

	eff := r.GetEffectiveParameters(context.Background(), "x", "BTCUSDT")
	assert.Equal(t, models.SourceSymbolFallback, eff.Source)
	assert.Equal(t, 33.0, eff.Parameters.Float("threshold", 0))

	eff = r.GetEffectiveParameters(context.Background(), "y", "BTCUSDT")
	assert.Equal(t, models.SourceGlobalFallback, eff.Source)
	assert.Equal(t, 5.0, eff.Parameters.Float("threshold", 0))
}

func TestCascade_DefaultPersistedOnce(t *testing.T) {
	primary := newFakeStore("redis")
	clock := newFakeClock()
	r := newTestResolver(t, primary, nil, clock)
	ctx := context.Background()

	eff := r.GetEffectiveParameters(ctx, "x", "BTCUSDT")
	require.Equal(t, models.SourceDefault, eff.Source)
	assert.Equal(t, 25.0, eff.Parameters.Float("threshold", 0))

	_, upserts, audits := primary.counts()
	assert.Equal(t, 1, upserts)
	assert.Equal(t, 1, audits)
	assert.Equal(t, models.AuditAutoDefault, primary.audits[0].Operation)

	// the persisted default is now the global primary entry
	clock.Advance(2 * DefaultTTL)
	eff = r.GetEffectiveParameters(ctx, "x", "BTCUSDT")
	assert.Equal(t, models.SourceGlobalPrimary, eff.Source)
	assert.Equal(t, int64(1), eff.Version)

	// removed behind the resolver's back; the default is served but not written again
	primary.remove("x", "")
	clock.Advance(2 * DefaultTTL)
	eff = r.GetEffectiveParameters(ctx, "x", "")
	assert.Equal(t, models.SourceDefault, eff.Source)
	_, upserts, _ = primary.counts()
	assert.Equal(t, 1, upserts)
}

func TestCascade_ConcurrentFirstLookupPersistsOnce(t *testing.T) {
	primary := newFakeStore("redis")
	primary.delay = 5 * time.Millisecond
	r := newTestResolver(t, primary, nil, newFakeClock())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			eff := r.GetEffectiveParameters(context.Background(), "y", "")
			assert.True(t, eff.Resolved())
		}()
	}
	wg.Wait()

	_, upserts, _ := primary.counts()
	assert.Equal(t, 1, upserts)
}

func TestCascade_PrimaryErrorSkipsPersist(t *testing.T) {
	primary, fallback := newFakeStore("redis"), newFakeStore("clickhouse")
	primary.failGet = true
	r := newTestResolver(t, primary, fallback, newFakeClock())

	eff := r.GetEffectiveParameters(context.Background(), "x", "")
	assert.Equal(t, models.SourceDefault, eff.Source)
	_, upserts, _ := primary.counts()
	assert.Zero(t, upserts)
}

func TestCascade_TimeoutFallsThrough(t *testing.T) {
	primary, fallback := newFakeStore("redis"), newFakeStore("clickhouse")
	primary.delay = time.Second
	fallback.put("x", "", models.Parameters{"threshold": 12.0}, 4)
	r := newTestResolver(t, primary, fallback, newFakeClock(), WithStoreTimeout(20*time.Millisecond))

	start := time.Now()
	eff := r.GetEffectiveParameters(context.Background(), "x", "")
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, models.SourceGlobalFallback, eff.Source)
	assert.Equal(t, 12.0, eff.Parameters.Float("threshold", 0))
}

func TestCascade_UnknownStrategyIsNone(t *testing.T) {
	primary := newFakeStore("redis")
	r := newTestResolver(t, primary, nil, newFakeClock())

	eff := r.GetEffectiveParameters(context.Background(), "nope", "")
	assert.Equal(t, models.SourceNone, eff.Source)
	assert.False(t, eff.Resolved())

	// unresolved results are not cached
	gets, _, _ := primary.counts()
	r.GetEffectiveParameters(context.Background(), "nope", "")
	again, _, _ := primary.counts()
	assert.Greater(t, again, gets)
}

// Scenario D: cached within the TTL, refreshed after it.
func TestCache_TTL(t *testing.T) {
	primary := newFakeStore("redis")
	primary.put("x", "", models.Parameters{"threshold": 30.0}, 2)
	clock := newFakeClock()
	r := newTestResolver(t, primary, nil, clock)
	ctx := context.Background()

	first := r.GetEffectiveParameters(ctx, "x", "")
	assert.False(t, first.CacheHit)
	assert.Equal(t, first.ResolvedAt.Add(DefaultTTL), first.ExpiresAt)
	gets, _, _ := primary.counts()

	clock.Advance(10 * time.Second)
	second := r.GetEffectiveParameters(ctx, "x", "")
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Parameters, second.Parameters)
	after, _, _ := primary.counts()
	assert.Equal(t, gets, after)

	clock.Advance(51 * time.Second)
	third := r.GetEffectiveParameters(ctx, "x", "")
	assert.False(t, third.CacheHit)
	after, _, _ = primary.counts()
	assert.Greater(t, after, gets)
}

func TestCache_ReturnedParametersAreCopies(t *testing.T) {
	primary := newFakeStore("redis")
	primary.put("x", "", models.Parameters{"threshold": 30.0}, 2)
	r := newTestResolver(t, primary, nil, newFakeClock())
	ctx := context.Background()

	eff := r.GetEffectiveParameters(ctx, "x", "")
	eff.Parameters["threshold"] = 1.0

	again := r.GetEffectiveParameters(ctx, "x", "")
	assert.True(t, again.CacheHit)
	assert.Equal(t, 30.0, again.Parameters.Float("threshold", 0))
}

// Scenario C: out of range value in validate-only mode.
func TestSet_ValidateOnlyRejectsOutOfRange(t *testing.T) {
	primary := newFakeStore("redis")
	r := newTestResolver(t, primary, nil, newFakeClock())

	res := r.SetParameters(context.Background(), SetRequest{
		StrategyID:   "x",
		Parameters:   models.Parameters{"threshold": 999.0},
		Actor:        "alice",
		ValidateOnly: true,
	})
	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, CodeMax, res.Errors[0].Code)
	assert.Equal(t, "threshold", res.Errors[0].Field)

	_, upserts, audits := primary.counts()
	assert.Zero(t, upserts)
	assert.Zero(t, audits)
}

func TestSet_ValidateOnlyAcceptsWithoutWriting(t *testing.T) {
	primary := newFakeStore("redis")
	r := newTestResolver(t, primary, nil, newFakeClock())

	res := r.SetParameters(context.Background(), SetRequest{
		StrategyID:   "x",
		Parameters:   models.Parameters{"threshold": 20.0},
		ValidateOnly: true,
	})
	assert.True(t, res.Success)
	assert.True(t, res.ValidateOnly)
	_, upserts, _ := primary.counts()
	assert.Zero(t, upserts)
}

func TestSet_FieldErrors(t *testing.T) {
	r := newTestResolver(t, newFakeStore("redis"), nil, newFakeClock())

	tests := []struct {
		name   string
		params models.Parameters
		code   string
		field  string
	}{
		{"unknown", models.Parameters{"bogus": 1}, CodeUnknownParam, "bogus"},
		{"below min", models.Parameters{"threshold": -1.0}, CodeMin, "threshold"},
		{"not an int", models.Parameters{"period": 2.5}, CodeType, "period"},
		{"string for number", models.Parameters{"period": "ten"}, CodeType, "period"},
		{"not a bool", models.Parameters{"enabled": "yes"}, CodeType, "enabled"},
		{"not allowed", models.Parameters{"mode": "turbo"}, CodeOneOf, "mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.SetParameters(context.Background(), SetRequest{StrategyID: "x", Parameters: tt.params})
			assert.False(t, res.Success)
			require.Len(t, res.Errors, 1)
			assert.Equal(t, tt.code, res.Errors[0].Code)
			assert.Equal(t, tt.field, res.Errors[0].Field)
		})
	}

	res := r.SetParameters(context.Background(), SetRequest{StrategyID: "zzz", Parameters: models.Parameters{}})
	assert.False(t, res.Success)
	assert.Equal(t, CodeUnknownStrategy, res.Errors[0].Code)
}

func TestSet_WritesBothStoresAndInvalidatesOnlyAffectedKey(t *testing.T) {
	primary, fallback := newFakeStore("redis"), newFakeStore("clickhouse")
	primary.put("x", "", models.Parameters{"threshold": 30.0}, 2)
	primary.put("x", "ETHUSDT", models.Parameters{"threshold": 31.0}, 1)
	r := newTestResolver(t, primary, fallback, newFakeClock())
	ctx := context.Background()

	r.GetEffectiveParameters(ctx, "x", "")
	r.GetEffectiveParameters(ctx, "x", "ETHUSDT")

	res := r.SetParameters(ctx, SetRequest{
		StrategyID: "x",
		Parameters: models.Parameters{"threshold": 45.0, "mode": "slow"},
		Actor:      "alice",
		Reason:     "tighter",
	})
	require.True(t, res.Success, "errors: %v", res.Errors)
	assert.Equal(t, int64(3), res.Version)
	assert.Equal(t, []string{"redis", "clickhouse"}, res.StoresWritten)
	assert.NotEmpty(t, res.AuditID)

	require.Len(t, primary.audits, 1)
	rec := primary.audits[0]
	assert.Equal(t, models.AuditSet, rec.Operation)
	assert.Equal(t, "alice", rec.Actor)
	assert.Equal(t, 30.0, rec.OldParameters.Float("threshold", 0))
	assert.Equal(t, 45.0, rec.NewParameters.Float("threshold", 0))
	assert.Empty(t, fallback.audits)

	global := r.GetEffectiveParameters(ctx, "x", "")
	assert.False(t, global.CacheHit)
	assert.Equal(t, 45.0, global.Parameters.Float("threshold", 0))
	assert.Equal(t, "slow", global.Parameters.String("mode", ""))

	other := r.GetEffectiveParameters(ctx, "x", "ETHUSDT")
	assert.True(t, other.CacheHit)
}

func TestSet_FallbackOnlyStillSucceeds(t *testing.T) {
	primary, fallback := newFakeStore("redis"), newFakeStore("clickhouse")
	primary.failWrite = true
	r := newTestResolver(t, primary, fallback, newFakeClock())

	res := r.SetParameters(context.Background(), SetRequest{
		StrategyID: "y",
		Symbol:     "BTCUSDT",
		Parameters: models.Parameters{"threshold": 2.0},
		Actor:      "bob",
	})
	require.True(t, res.Success)
	assert.Equal(t, []string{"clickhouse"}, res.StoresWritten)
	assert.Equal(t, int64(1), res.Version)
	assert.Len(t, fallback.audits, 1)

	eff := r.GetEffectiveParameters(context.Background(), "y", "BTCUSDT")
	assert.Equal(t, models.SourceSymbolFallback, eff.Source)
}

func TestSet_AllStoresDown(t *testing.T) {
	primary, fallback := newFakeStore("redis"), newFakeStore("clickhouse")
	primary.failWrite, fallback.failWrite = true, true
	r := newTestResolver(t, primary, fallback, newFakeClock())

	res := r.SetParameters(context.Background(), SetRequest{StrategyID: "y", Parameters: models.Parameters{"threshold": 2.0}})
	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, CodeStoreUnavailable, res.Errors[0].Code)
}

func TestDelete(t *testing.T) {
	primary, fallback := newFakeStore("redis"), newFakeStore("clickhouse")
	primary.put("x", "BTCUSDT", models.Parameters{"threshold": 40.0}, 4)
	primary.put("x", "", models.Parameters{"threshold": 10.0}, 1)
	r := newTestResolver(t, primary, fallback, newFakeClock())
	ctx := context.Background()

	require.Equal(t, models.SourceSymbolPrimary, r.GetEffectiveParameters(ctx, "x", "BTCUSDT").Source)

	res := r.DeleteParameters(ctx, DeleteRequest{StrategyID: "x", Symbol: "BTCUSDT", Actor: "alice"})
	require.True(t, res.Success)
	assert.Equal(t, int64(5), res.Version)
	require.Len(t, primary.audits, 1)
	assert.Equal(t, models.AuditDelete, primary.audits[0].Operation)

	eff := r.GetEffectiveParameters(ctx, "x", "BTCUSDT")
	assert.Equal(t, models.SourceGlobalPrimary, eff.Source)

	res = r.DeleteParameters(ctx, DeleteRequest{StrategyID: "x", Symbol: "BTCUSDT"})
	assert.False(t, res.Success)
	assert.Equal(t, CodeNotFound, res.Errors[0].Code)
}

func TestApplicationConfig(t *testing.T) {
	primary := newFakeStore("redis")
	r := newTestResolver(t, primary, nil, newFakeClock())
	ctx := context.Background()

	app := r.GetApplicationConfig(ctx)
	assert.Equal(t, []string{"x", "y"}, app.EnabledStrategies)
	assert.Equal(t, 0.0, app.MinConfidence)
	assert.Equal(t, 1.0, app.MaxConfidence)
	assert.Equal(t, models.SourceDefault, app.Source)

	res := r.SetParameters(ctx, SetRequest{
		StrategyID: ApplicationID,
		Parameters: models.Parameters{"enabled_strategies": []string{"y"}, "min_confidence": 0.6},
		Actor:      "alice",
	})
	require.True(t, res.Success, "errors: %v", res.Errors)

	app = r.GetApplicationConfig(ctx)
	assert.Equal(t, []string{"y"}, app.EnabledStrategies)
	assert.True(t, app.Enabled("y"))
	assert.False(t, app.Enabled("x"))
	assert.True(t, app.InBand(0.6))
	assert.False(t, app.InBand(0.59))
}

func TestApplicationConfig_Validation(t *testing.T) {
	r := newTestResolver(t, newFakeStore("redis"), nil, newFakeClock())
	ctx := context.Background()

	res := r.SetParameters(ctx, SetRequest{
		StrategyID: ApplicationID,
		Parameters: models.Parameters{"min_confidence": 0.9, "max_confidence": 0.5},
	})
	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, CodeRange, res.Errors[0].Code)

	res = r.SetParameters(ctx, SetRequest{
		StrategyID: ApplicationID,
		Parameters: models.Parameters{"enabled_strategies": []string{"x", "ghost"}},
	})
	assert.False(t, res.Success)
	assert.Equal(t, CodeOneOf, res.Errors[0].Code)

	res = r.SetParameters(ctx, SetRequest{
		StrategyID: ApplicationID,
		Symbol:     "BTCUSDT",
		Parameters: models.Parameters{"min_confidence": 0.5},
	})
	assert.False(t, res.Success)
	assert.Equal(t, CodeScope, res.Errors[0].Code)
}

func TestIntrospection(t *testing.T) {
	reg := strategy.NewDefaultRegistry()
	r := New(nil, reg)
	t.Cleanup(func() { _ = r.Close() })

	list := r.ListStrategies()
	require.Len(t, list, len(reg.IDs())+1)
	assert.Equal(t, ApplicationID, list[0].ID)
	assert.Equal(t, "macd_momentum", list[1].ID)

	info, err := r.DescribeStrategy("macd_momentum")
	require.NoError(t, err)
	assert.NotEmpty(t, info.Parameters)

	_, err = r.DescribeStrategy("nope")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestWithoutStoresServesDefaults(t *testing.T) {
	r := New(nil, strategy.NewDefaultRegistry())
	t.Cleanup(func() { _ = r.Close() })

	eff := r.GetEffectiveParameters(context.Background(), "rsi2_extreme_oversold", "BTCUSDT")
	assert.Equal(t, models.SourceDefault, eff.Source)
	assert.NotEmpty(t, eff.Parameters)
}

func TestApplicationConfig_ValidationDoesNotWrite(t *testing.T) {
	primary, fallback := newFakeStore("redis"), newFakeStore("clickhouse")
	r := newTestResolver(t, primary, fallback, newFakeClock())
	ctx := context.Background()

	res := r.SetParameters(ctx, SetRequest{
		StrategyID:   ApplicationID,
		Parameters:   models.Parameters{"min_confidence": 0.4},
		ValidateOnly: true,
	})
	require.True(t, res.Success, "errors: %v", res.Errors)
	assert.True(t, res.ValidateOnly)

	res = r.SetParameters(ctx, SetRequest{
		StrategyID: ApplicationID,
		Parameters: models.Parameters{"min_confidence": 0.9, "max_confidence": 0.1},
	})
	require.False(t, res.Success)
	assert.Equal(t, CodeRange, res.Errors[0].Code)

	for _, s := range []*fakeStore{primary, fallback} {
		_, upserts, audits := s.counts()
		assert.Zero(t, upserts, s.name)
		assert.Zero(t, audits, s.name)
	}
}

func TestApplicationConfig_RangeCheckUsesStoredBound(t *testing.T) {
	primary := newFakeStore("redis")
	primary.put(ApplicationID, "", models.Parameters{"max_confidence": 0.7}, 1)
	r := newTestResolver(t, primary, nil, newFakeClock())

	res := r.SetParameters(context.Background(), SetRequest{
		StrategyID:   ApplicationID,
		Parameters:   models.Parameters{"min_confidence": 0.8},
		ValidateOnly: true,
	})
	require.False(t, res.Success)
	assert.Equal(t, CodeRange, res.Errors[0].Code)
}

func TestCascade_CancelledCallerDoesNotPoisonCache(t *testing.T) {
	primary := newFakeStore("redis")
	primary.delay = time.Millisecond
	primary.put("x", "", models.Parameters{"threshold": 10.0}, 2)
	r := newTestResolver(t, primary, nil, newFakeClock())

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	eff := r.GetEffectiveParameters(cancelled, "x", "")
	assert.Equal(t, models.SourceGlobalPrimary, eff.Source)

	eff = r.GetEffectiveParameters(context.Background(), "x", "")
	assert.True(t, eff.CacheHit)
	assert.Equal(t, models.SourceGlobalPrimary, eff.Source)
	assert.Equal(t, 10.0, eff.Parameters.Float("threshold", 0))
}

func TestCache_DegradedResultExpiresEarly(t *testing.T) {
	primary, fallback := newFakeStore("redis"), newFakeStore("clickhouse")
	primary.failGet = true
	fallback.put("x", "", models.Parameters{"threshold": 12.0}, 1)
	clock := newFakeClock()
	r := newTestResolver(t, primary, fallback, clock)
	ctx := context.Background()

	eff := r.GetEffectiveParameters(ctx, "x", "")
	require.Equal(t, models.SourceGlobalFallback, eff.Source)
	assert.Equal(t, eff.ResolvedAt.Add(DegradedTTL), eff.ExpiresAt)

	primary.mu.Lock()
	primary.failGet = false
	primary.mu.Unlock()
	primary.put("x", "", models.Parameters{"threshold": 20.0}, 2)

	clock.Advance(DegradedTTL + time.Second)
	eff = r.GetEffectiveParameters(ctx, "x", "")
	assert.False(t, eff.CacheHit)
	assert.Equal(t, models.SourceGlobalPrimary, eff.Source)
	assert.Equal(t, 20.0, eff.Parameters.Float("threshold", 0))
}

func TestSymbolIsCaseFolded(t *testing.T) {
	primary := newFakeStore("redis")
	primary.put("x", "", models.Parameters{"threshold": 10.0}, 1)
	r := newTestResolver(t, primary, nil, newFakeClock())
	ctx := context.Background()

	res := r.SetParameters(ctx, SetRequest{
		StrategyID: "x",
		Symbol:     " btcusdt ",
		Parameters: models.Parameters{"threshold": 33.0},
	})
	require.True(t, res.Success, "errors: %v", res.Errors)

	primary.mu.Lock()
	_, stored := primary.entries[storeKey("x", "BTCUSDT")]
	primary.mu.Unlock()
	assert.True(t, stored)

	for _, sym := range []string{"BTCUSDT", "btcusdt", "BtcUsdt "} {
		eff := r.GetEffectiveParameters(ctx, "x", sym)
		assert.Equal(t, models.SourceSymbolPrimary, eff.Source, sym)
		assert.Equal(t, "BTCUSDT", eff.Symbol, sym)
		assert.Equal(t, 33.0, eff.Parameters.Float("threshold", 0), sym)
	}

	res = r.DeleteParameters(ctx, DeleteRequest{StrategyID: "x", Symbol: "btcusdt"})
	require.True(t, res.Success, "errors: %v", res.Errors)
	assert.Equal(t, models.SourceGlobalPrimary, r.GetEffectiveParameters(ctx, "x", "BTCUSDT").Source)
}
