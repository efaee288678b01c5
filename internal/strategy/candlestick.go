package strategy

import (
	"fmt"
	"math"

	"github.com/moznion/go-optional"

	"SignalForge/internal/confidence"
	"SignalForge/internal/domain/models"
	"SignalForge/internal/indicator"
)

// priorMove reports whether the close before the latest bar is below (falling)
// or above (rising) the close `bars` earlier.
func priorMove(w models.Window, bars int, falling bool) bool {
	n := w.Len()
	if bars <= 0 || n < bars+2 {
		return false
	}
	before, then := w[n-2].Close, w[n-2-bars].Close
	if falling {
		return before < then
	}
	return before > then
}

// pinBar is the hammer or the shooting star: a long rejection wick with a
// small body at the other end of the candle.
type pinBar struct {
	base
	hammer bool
}

func pinBarParams() []models.ParamSpec {
	return withRisk(
		floatParam("min_wick", 0.6, 0, 1, "rejection wick as a fraction of the candle range"),
		floatParam("max_body", 0.35, 0, 1, "body as a fraction of the candle range"),
		floatParam("max_opposite_wick", 0.15, 0, 1, "opposite wick as a fraction of the candle range"),
		intParam("trend_bars", 5, 0, 50, "bars of prior move required against the signal; 0 disables"),
	)
}

func newHammerReversal() *pinBar {
	return &pinBar{
		base: base{
			id:          "hammer_reversal",
			family:      confidence.FamilyCandlestick,
			description: "Hammer candle after a decline",
			minCandles:  25,
			params:      pinBarParams(),
		},
		hammer: true,
	}
}

func newShootingStarReversal() *pinBar {
	return &pinBar{
		base: base{
			id:          "shooting_star_reversal",
			family:      confidence.FamilyCandlestick,
			description: "Shooting star candle after a rally",
			minCandles:  25,
			params:      pinBarParams(),
		},
	}
}

func (s *pinBar) Evaluate(w models.Window, ind *indicator.Set, p models.Parameters) (optional.Option[models.DraftSignal], error) {
	upper, lower, body := ind.UpperWick.Last(), ind.LowerWick.Last(), ind.BodyRatio.Last()
	if !indicator.AllFinite(upper, lower, body) {
		return none(), nil
	}
	wick, opposite := upper, lower
	if s.hammer {
		wick, opposite = lower, upper
	}
	if wick < p.Float("min_wick", 0.6) || body > p.Float("max_body", 0.35) || opposite > p.Float("max_opposite_wick", 0.15) {
		return none(), nil
	}
	if bars := p.Int("trend_bars", 5); bars > 0 && !priorMove(w, bars, s.hammer) {
		return none(), nil
	}

	factors := map[string]float64{
		confidence.FactorWickRatio:   wick,
		confidence.FactorBodyRatio:   body,
		confidence.FactorRSI:         ind.RSI14.Last(),
		confidence.FactorVolumeRatio: volumeRatio(w, ind),
	}
	name := "shooting star"
	if s.hammer {
		name = "hammer"
	}
	d := draft(sideOf(s.hammer), w, ind, p, fmt.Sprintf("%s with %.0f%% rejection wick", name, wick*100), factors)
	return some(d), nil
}

// engulfing is a two-candle reversal where the latest body engulfs the previous one.
type engulfing struct {
	base
	bullish bool
}

func engulfingParams() []models.ParamSpec {
	return withRisk(
		floatParam("min_body_multiple", 1, 1, 10, "latest body relative to the engulfed body"),
		intParam("trend_bars", 3, 0, 50, "bars of prior move required against the signal; 0 disables"),
	)
}

func newBullishEngulfing() *engulfing {
	return &engulfing{
		base: base{
			id:          "bullish_engulfing",
			family:      confidence.FamilyCandlestick,
			description: "Bullish candle whose body engulfs the previous bearish body",
			minCandles:  20,
			params:      engulfingParams(),
		},
		bullish: true,
	}
}

func newBearishEngulfing() *engulfing {
	return &engulfing{
		base: base{
			id:          "bearish_engulfing",
			family:      confidence.FamilyCandlestick,
			description: "Bearish candle whose body engulfs the previous bullish body",
			minCandles:  20,
			params:      engulfingParams(),
		},
	}
}

func (s *engulfing) Evaluate(w models.Window, ind *indicator.Set, p models.Parameters) (optional.Option[models.DraftSignal], error) {
	n := w.Len()
	if n < 2 {
		return none(), nil
	}
	prev, cur := w[n-2], w[n-1]
	prevBody, curBody := math.Abs(prev.Close-prev.Open), math.Abs(cur.Close-cur.Open)
	if prevBody == 0 || curBody < prevBody*p.Float("min_body_multiple", 1) {
		return none(), nil
	}

	if s.bullish {
		if !(prev.Close < prev.Open && cur.Close > cur.Open && cur.Open <= prev.Close && cur.Close >= prev.Open) {
			return none(), nil
		}
	} else {
		if !(prev.Close > prev.Open && cur.Close < cur.Open && cur.Open >= prev.Close && cur.Close <= prev.Open) {
			return none(), nil
		}
	}
	if bars := p.Int("trend_bars", 3); bars > 0 && !priorMove(w, bars, s.bullish) {
		return none(), nil
	}

	factors := map[string]float64{
		confidence.FactorBodyRatio:   ind.BodyRatio.Last(),
		confidence.FactorRSI:         ind.RSI14.Last(),
		confidence.FactorVolumeRatio: volumeRatio(w, ind),
	}
	d := draft(sideOf(s.bullish), w, ind, p,
		fmt.Sprintf("engulfing body %.4f vs %.4f", curBody, prevBody), factors)
	return some(d), nil
}
