package usecase

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalForge/internal/assembler"
	"SignalForge/internal/confidence"
	"SignalForge/internal/configresolver"
	"SignalForge/internal/domain/models"
	"SignalForge/internal/indicator"
	"SignalForge/internal/strategy"
	"SignalForge/internal/testutil"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// countingEngine wraps an engine (or a fixed set) and counts computations.
type countingEngine struct {
	mu    sync.Mutex
	calls int
	set   *indicator.Set
	real  *indicator.Engine
}

func (e *countingEngine) Compute(w models.Window, tf string) *indicator.Set {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.real != nil {
		return e.real.Compute(w, tf)
	}
	return e.set
}

// staticConfig serves fixed application settings and resolves every
// strategy to empty parameters unless marked unresolved.
type staticConfig struct {
	app        models.ApplicationConfig
	unresolved map[string]bool
	params     map[string]models.Parameters
	lookups    int
}

func (c *staticConfig) GetEffectiveParameters(_ context.Context, id, symbol string) models.EffectiveConfig {
	c.lookups++
	if c.unresolved[id] {
		return models.EffectiveConfig{StrategyID: id, Symbol: symbol, Source: models.SourceNone}
	}
	return models.EffectiveConfig{StrategyID: id, Symbol: symbol, Parameters: c.params[id], Source: models.SourceDefault}
}

func (c *staticConfig) GetApplicationConfig(context.Context) models.ApplicationConfig {
	c.lookups++
	return c.app
}

func allEnabled(ids ...string) models.ApplicationConfig {
	return models.ApplicationConfig{EnabledStrategies: ids, MinConfidence: 0, MaxConfidence: 1}
}

// stubEvaluator proposes a buy at the last close, or fails as configured.
type stubEvaluator struct {
	id      string
	min     int
	fail    error
	panics  bool
	decline bool
	calls   int
}

func (s *stubEvaluator) ID() string                 { return s.id }
func (s *stubEvaluator) Family() string             { return "test" }
func (s *stubEvaluator) Description() string        { return "stub " + s.id }
func (s *stubEvaluator) MinCandles() int            { return s.min }
func (s *stubEvaluator) Params() []models.ParamSpec { return nil }

func (s *stubEvaluator) Evaluate(w models.Window, _ *indicator.Set, _ models.Parameters) (optional.Option[models.DraftSignal], error) {
	s.calls++
	if s.panics {
		panic("stub exploded")
	}
	if s.fail != nil {
		return optional.None[models.DraftSignal](), s.fail
	}
	if s.decline {
		return optional.None[models.DraftSignal](), nil
	}
	return optional.Some(models.DraftSignal{
		Action: models.ActionBuy,
		Price:  w.Last().Close,
		Reason: s.id,
	}), nil
}

// fixedScorer returns a per-strategy confidence, 0.5 otherwise.
type fixedScorer map[string]float64

func (f fixedScorer) Score(id string, _ map[string]float64) float64 {
	if v, ok := f[id]; ok {
		return v
	}
	return 0.5
}

type countingMetrics struct {
	signals, failures, drops int
}

func (m *countingMetrics) RecordSignal(string, models.Action)           { m.signals++ }
func (m *countingMetrics) RecordEvaluatorFailure(string)                { m.failures++ }
func (m *countingMetrics) RecordValidationDrop(string)                  { m.drops++ }
func (m *countingMetrics) RecordConfigLookup(models.ConfigSource, bool) {}
func (m *countingMetrics) RecordError(string)                           {}
func (m *countingMetrics) RecordLatency(string, float64)                {}

func stubRegistry(t *testing.T, evals ...*stubEvaluator) *strategy.Registry {
	t.Helper()
	list := make([]strategy.Evaluator, len(evals))
	for i, e := range evals {
		list[i] = e
	}
	reg, err := strategy.NewRegistry(list)
	require.NoError(t, err)
	return reg
}

func ids(evals ...*stubEvaluator) []string {
	out := make([]string, len(evals))
	for i, e := range evals {
		out[i] = e.id
	}
	return out
}

func emptySet(n int) *indicator.Set {
	e := indicator.Empty()
	return &indicator.Set{
		Len: n, RSI14: e, RSI2: e, MACD: e, MACDSignal: e, MACDHist: e,
		ADX14: e, PlusDI: e, MinusDI: e, ATR14: e, EMA21: e, EMA50: e, EMA200: e,
		BBUpper: e, BBMiddle: e, BBLower: e, BBWidth: e, VWAP: e, VolumeSMA20: e,
		OBV: e, MFI14: e, UpperWick: e, LowerWick: e, BodyRatio: e, LogReturns: e,
		Volatility: math.NaN(),
	}
}

func tail(n int, vals ...float64) indicator.Series {
	out := make(indicator.Series, n)
	for i := range out {
		out[i] = math.NaN()
	}
	copy(out[n-len(vals):], vals)
	return out
}

func TestAnalyze_ShortWindowDoesNoWork(t *testing.T) {
	engine := &countingEngine{set: emptySet(49)}
	stub := &stubEvaluator{id: "a", min: 20}
	cfg := &staticConfig{app: allEnabled("a")}
	p := NewPipeline(engine, stubRegistry(t, stub), fixedScorer{}, assembler.New(), cfg)

	got, err := p.Analyze(context.Background(), testutil.Flat(49, 100), "BTCUSDT", "15m")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, engine.calls)
	assert.Zero(t, cfg.lookups)
	assert.Zero(t, stub.calls)
}

func TestAnalyze_MalformedInput(t *testing.T) {
	engine := &countingEngine{set: emptySet(60)}
	cfg := &staticConfig{app: allEnabled("a")}
	p := NewPipeline(engine, stubRegistry(t, &stubEvaluator{id: "a"}), fixedScorer{}, assembler.New(), cfg)
	ctx := context.Background()

	_, err := p.Analyze(ctx, testutil.Flat(60, 100), "", "15m")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = p.Analyze(ctx, testutil.Flat(60, 100), "BTCUSDT", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	w := testutil.Flat(60, 100)
	w[10].Low = -1
	_, err = p.Analyze(ctx, w, "BTCUSDT", "15m")
	assert.ErrorIs(t, err, ErrInvalidWindow)

	w = testutil.Flat(60, 100)
	w[20].Time = w[19].Time
	_, err = p.Analyze(ctx, w, "BTCUSDT", "15m")
	assert.ErrorIs(t, err, ErrInvalidWindow)
	assert.Zero(t, engine.calls)
}

func TestAnalyze_FailureIsolation(t *testing.T) {
	first := &stubEvaluator{id: "first", min: 20}
	panicky := &stubEvaluator{id: "panicky", min: 20, panics: true}
	failing := &stubEvaluator{id: "failing", min: 20, fail: errors.New("division by zero")}
	last := &stubEvaluator{id: "last", min: 20}
	evals := []*stubEvaluator{first, panicky, failing, last}

	metrics := &countingMetrics{}
	engine := &countingEngine{set: emptySet(60)}
	p := NewPipeline(engine, stubRegistry(t, evals...), fixedScorer{}, assembler.New(),
		&staticConfig{app: allEnabled(ids(evals...)...)}, WithPipelineMetrics(metrics), WithPipelineClock(fixedClock))

	got, err := p.Analyze(context.Background(), testutil.Flat(60, 100), "BTCUSDT", "15m")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].StrategyID)
	assert.Equal(t, "last", got[1].StrategyID)
	assert.Equal(t, 2, metrics.failures)
	assert.Equal(t, 2, metrics.signals)
	assert.Equal(t, 1, engine.calls)
}

func TestAnalyze_ValidationGate(t *testing.T) {
	good := &stubEvaluator{id: "good", min: 20}
	over := &stubEvaluator{id: "overconfident", min: 20}
	nan := &stubEvaluator{id: "nan", min: 20}
	evals := []*stubEvaluator{good, over, nan}

	metrics := &countingMetrics{}
	scorer := fixedScorer{"overconfident": 1.7, "nan": math.NaN()}
	p := NewPipeline(&countingEngine{set: emptySet(60)}, stubRegistry(t, evals...), scorer, assembler.New(),
		&staticConfig{app: allEnabled(ids(evals...)...)}, WithPipelineMetrics(metrics))

	got, err := p.Analyze(context.Background(), testutil.Flat(60, 100), "BTCUSDT", "15m")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "good", got[0].StrategyID)
	assert.Equal(t, 2, metrics.drops)
}

func TestAnalyze_ConfidenceBand(t *testing.T) {
	low := &stubEvaluator{id: "low", min: 20}
	mid := &stubEvaluator{id: "mid", min: 20}
	high := &stubEvaluator{id: "high", min: 20}
	evals := []*stubEvaluator{low, mid, high}

	app := models.ApplicationConfig{EnabledStrategies: ids(evals...), MinConfidence: 0.6, MaxConfidence: 0.9}
	scorer := fixedScorer{"low": 0.59, "mid": 0.6, "high": 0.95}
	p := NewPipeline(&countingEngine{set: emptySet(60)}, stubRegistry(t, evals...), scorer, assembler.New(),
		&staticConfig{app: app})

	got, err := p.Analyze(context.Background(), testutil.Flat(60, 100), "BTCUSDT", "15m")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "mid", got[0].StrategyID)
}

func TestAnalyze_SkipsDisabledUnresolvedAndShortHistory(t *testing.T) {
	disabled := &stubEvaluator{id: "disabled", min: 20}
	unresolved := &stubEvaluator{id: "unresolved", min: 20}
	hungry := &stubEvaluator{id: "hungry", min: 200}
	declines := &stubEvaluator{id: "declines", min: 20, decline: true}
	runs := &stubEvaluator{id: "runs", min: 20}

	cfg := &staticConfig{
		app:        allEnabled("unresolved", "hungry", "declines", "runs"),
		unresolved: map[string]bool{"unresolved": true},
	}
	p := NewPipeline(&countingEngine{set: emptySet(60)},
		stubRegistry(t, disabled, unresolved, hungry, declines, runs), fixedScorer{}, assembler.New(), cfg)

	got, err := p.Analyze(context.Background(), testutil.Flat(60, 100), "BTCUSDT", "15m")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "runs", got[0].StrategyID)

	assert.Zero(t, disabled.calls)
	assert.Zero(t, unresolved.calls)
	assert.Zero(t, hungry.calls)
	assert.Equal(t, 1, declines.calls)
}

// Scenario A: MACD histogram turns positive with RSI 58 and EMA21 above EMA50.
func TestAnalyze_MACDMomentumEndToEnd(t *testing.T) {
	const n = 100
	w := testutil.Trend(n, 100, 0.1)
	px := w.Last().Close
	ind := emptySet(n)
	ind.MACDHist = tail(n, -0.001, 0.001)
	ind.RSI14 = tail(n, 58)
	ind.ADX14 = tail(n, 25)
	ind.EMA21 = tail(n, px-1)
	ind.EMA50 = tail(n, px-2)
	ind.ATR14 = tail(n, 0.5)
	ind.Volatility = 0.3

	reg := strategy.NewDefaultRegistry()
	cfg := &staticConfig{app: allEnabled("macd_momentum")}
	p := NewPipeline(&countingEngine{set: ind}, reg, confidence.NewCalculator(), assembler.New(), cfg,
		WithPipelineClock(fixedClock))

	got, err := p.Analyze(context.Background(), w, " btcusdt", "15m")
	require.NoError(t, err)
	require.Len(t, got, 1)

	sig := got[0]
	assert.Equal(t, "macd_momentum", sig.StrategyID)
	assert.Equal(t, models.ActionBuy, sig.Action)
	assert.Equal(t, 0.8, sig.Confidence)
	assert.Equal(t, "BTCUSDT", sig.Symbol)
	assert.Equal(t, "15m", sig.Timeframe)
	assert.InDelta(t, px, sig.Price, 1e-9)
	assert.InDelta(t, px, sig.CurrentPrice, 1e-9)
	require.NotNil(t, sig.StopLoss)
	require.NotNil(t, sig.TakeProfit)
	assert.InDelta(t, px-1.0, *sig.StopLoss, 1e-9)
	assert.InDelta(t, px+1.5, *sig.TakeProfit, 1e-9)
	assert.Equal(t, 0.3, sig.Metadata["realized_vol"])
	assert.Equal(t, fixedNow, sig.Timestamp)
	assert.Equal(t, assembler.SignalID("BTCUSDT", "15m", "macd_momentum", fixedNow), sig.ID)
}

func wavyWindow(n int) models.Window {
	w := testutil.Trend(n, 100, 0)
	for i := range w {
		shift := 10 * math.Sin(float64(i)/7)
		w[i].Open += shift
		w[i].Close += shift + math.Cos(float64(i))
		w[i].High = math.Max(w[i].Open, w[i].Close) + 0.7
		w[i].Low = math.Min(w[i].Open, w[i].Close) - 0.7
		w[i].Volume = 1000 + 400*math.Sin(float64(i)/3)
	}
	return w
}

func TestAnalyze_Deterministic(t *testing.T) {
	reg := strategy.NewDefaultRegistry()
	resolver := configresolver.New(nil, reg)
	t.Cleanup(func() { _ = resolver.Close() })

	p := NewPipeline(&countingEngine{real: indicator.NewEngine()}, reg, confidence.NewCalculator(), assembler.New(),
		resolver, WithPipelineClock(fixedClock))

	w := wavyWindow(300)
	first, err := p.Analyze(context.Background(), w, "ETHUSDT", "1h")
	require.NoError(t, err)
	second, err := p.Analyze(context.Background(), w, "ETHUSDT", "1h")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	for _, sig := range first {
		assert.GreaterOrEqual(t, sig.Confidence, 0.0)
		assert.LessOrEqual(t, sig.Confidence, 1.0)
	}
}
