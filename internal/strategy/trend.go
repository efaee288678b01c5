package strategy

import (
	"fmt"
	"math"

	"github.com/moznion/go-optional"

	"SignalForge/internal/confidence"
	"SignalForge/internal/domain/models"
	"SignalForge/internal/indicator"
)

// emaTrendAlignment signals when price and EMA(21/50/200) become fully stacked.
type emaTrendAlignment struct{ base }

func newEMATrendAlignment() *emaTrendAlignment {
	return &emaTrendAlignment{base{
		id:          "ema_trend_alignment",
		family:      confidence.FamilyTrend,
		description: "Close and EMA(21) > EMA(50) > EMA(200) stacked in one direction",
		minCandles:  205,
		params: withRisk(
			boolParam("require_fresh", true, "only fire on the bar where the alignment first appears"),
			floatParam("min_adx", 20, 0, 100, "minimum ADX(14); 0 disables the filter"),
		),
	}}
}

// stacked returns +1 for bullish alignment, -1 for bearish, 0 otherwise.
func stacked(px, fast, mid, slow float64) int {
	if !indicator.AllFinite(px, fast, mid, slow) {
		return 0
	}
	switch {
	case px > fast && fast > mid && mid > slow:
		return 1
	case px < fast && fast < mid && mid < slow:
		return -1
	default:
		return 0
	}
}

func (s *emaTrendAlignment) Evaluate(w models.Window, ind *indicator.Set, p models.Parameters) (optional.Option[models.DraftSignal], error) {
	if w.Len() < 2 {
		return none(), nil
	}
	now := stacked(w.Last().Close, ind.EMA21.Last(), ind.EMA50.Last(), ind.EMA200.Last())
	if now == 0 {
		return none(), nil
	}
	if p.Bool("require_fresh", true) {
		before := stacked(w[w.Len()-2].Close, ind.EMA21.Prev(), ind.EMA50.Prev(), ind.EMA200.Prev())
		if before == now {
			return none(), nil
		}
	}
	adx := ind.ADX14.Last()
	if minADX := p.Float("min_adx", 20); minADX > 0 && (!indicator.Finite(adx) || adx < minADX) {
		return none(), nil
	}

	factors := map[string]float64{
		confidence.FactorADX:         adx,
		confidence.FactorRSI:         ind.RSI14.Last(),
		confidence.FactorVolumeRatio: volumeRatio(w, ind),
	}
	d := draft(sideOf(now > 0), w, ind, p, "price and EMA(21/50/200) aligned", factors)
	return some(d), nil
}

// emaCross is the golden cross (EMA50 over EMA200) or its bearish mirror.
type emaCross struct {
	base
	golden bool
}

func newGoldenCross() *emaCross {
	return &emaCross{
		base: base{
			id:          "golden_cross",
			family:      confidence.FamilyTrend,
			description: "EMA(50) crosses above EMA(200)",
			minCandles:  205,
			params: withRisk(
				floatParam("confirm_volume_ratio", 0, 0, 20, "minimum volume ratio on the cross bar; 0 disables"),
			),
		},
		golden: true,
	}
}

func newDeathCross() *emaCross {
	return &emaCross{
		base: base{
			id:          "death_cross",
			family:      confidence.FamilyTrend,
			description: "EMA(50) crosses below EMA(200)",
			minCandles:  205,
			params: withRisk(
				floatParam("confirm_volume_ratio", 0, 0, 20, "minimum volume ratio on the cross bar; 0 disables"),
			),
		},
	}
}

func (s *emaCross) Evaluate(w models.Window, ind *indicator.Set, p models.Parameters) (optional.Option[models.DraftSignal], error) {
	crossed := crossedBelow(ind.EMA50, ind.EMA200)
	if s.golden {
		crossed = crossedAbove(ind.EMA50, ind.EMA200)
	}
	if !crossed {
		return none(), nil
	}
	vr := volumeRatio(w, ind)
	if minVR := p.Float("confirm_volume_ratio", 0); minVR > 0 && (!indicator.Finite(vr) || vr < minVR) {
		return none(), nil
	}

	factors := map[string]float64{
		confidence.FactorVolumeRatio: vr,
		confidence.FactorADX:         ind.ADX14.Last(),
	}
	d := draft(sideOf(s.golden), w, ind, p,
		fmt.Sprintf("EMA(50) %.4f crossed EMA(200) %.4f", ind.EMA50.Last(), ind.EMA200.Last()), factors)
	return some(d), nil
}

// mtfContinuation enters pullbacks to EMA(21) in the direction of a
// higher-timeframe trend, where the higher timeframe is built by resampling.
type mtfContinuation struct{ base }

func newMTFContinuation() *mtfContinuation {
	return &mtfContinuation{base{
		id:          "mtf_continuation",
		family:      confidence.FamilyMultiTimeframe,
		description: "Pullback to EMA(21) resolving in the direction of the higher-timeframe trend",
		minCandles:  100,
		params: withRisk(
			intParam("htf_factor", 4, 2, 24, "number of candles per higher-timeframe candle"),
			intParam("htf_period", 10, 3, 50, "SMA period on the higher timeframe"),
			floatParam("pullback_tolerance_pct", 0.5, 0, 5, "how close to EMA(21) the pullback must reach"),
		),
	}}
}

func (s *mtfContinuation) Evaluate(w models.Window, ind *indicator.Set, p models.Parameters) (optional.Option[models.DraftSignal], error) {
	htf := indicator.Resample(w, p.Int("htf_factor", 4))
	sma := indicator.SMA(htf.Closes(), p.Int("htf_period", 10))
	if !sma.Available(2) {
		return none(), nil
	}
	htfClose := htf.Last().Close
	up := htfClose > sma.Last() && sma.Last() > sma.Prev()
	down := htfClose < sma.Last() && sma.Last() < sma.Prev()
	if !up && !down {
		return none(), nil
	}

	ema21 := ind.EMA21.Last()
	if !indicator.Finite(ema21) {
		return none(), nil
	}
	c := w.Last()
	tol := p.Float("pullback_tolerance_pct", 0.5) / 100
	switch {
	case up && c.Low <= ema21*(1+tol) && c.Close > ema21 && c.Close > c.Open:
	case down && c.High >= ema21*(1-tol) && c.Close < ema21 && c.Close < c.Open:
	default:
		return none(), nil
	}

	factors := map[string]float64{
		confidence.FactorHTFStrength: math.Abs(htfClose-sma.Last()) / sma.Last() * 100,
		confidence.FactorADX:         ind.ADX14.Last(),
		confidence.FactorRSI:         ind.RSI14.Last(),
	}
	d := draft(sideOf(up), w, ind, p,
		fmt.Sprintf("higher-timeframe trend continuation from EMA(21) %.4f", ema21), factors)
	d.Metadata["htf_factor"] = p.Int("htf_factor", 4)
	return some(d), nil
}
