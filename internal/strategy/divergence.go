package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"

	"SignalForge/internal/confidence"
	"SignalForge/internal/domain/models"
	"SignalForge/internal/indicator"
)

// rsiDivergence detects price making a new extreme that RSI(14) does not confirm.
type rsiDivergence struct {
	base
	bullish bool
}

func divergenceParams(bullish bool) []models.ParamSpec {
	rsiLimit := floatParam("rsi_max", 40, 0, 100, "latest RSI(14) must be below this level")
	if !bullish {
		rsiLimit = floatParam("rsi_min", 60, 0, 100, "latest RSI(14) must be above this level")
	}
	return withRisk(
		intParam("lookback", 30, 10, 100, "bars searched for the previous swing"),
		intParam("pivot_gap", 3, 1, 10, "most recent bars excluded from the swing search"),
		floatParam("min_strength", 0, 0, 50, "minimum RSI difference between the two swings"),
		rsiLimit,
	)
}

func newRSIBullishDivergence() *rsiDivergence {
	return &rsiDivergence{
		base: base{
			id:          "rsi_bullish_divergence",
			family:      confidence.FamilyDivergence,
			description: "Lower low in price with a higher low in RSI(14)",
			minCandles:  50,
			params:      divergenceParams(true),
		},
		bullish: true,
	}
}

func newRSIBearishDivergence() *rsiDivergence {
	return &rsiDivergence{
		base: base{
			id:          "rsi_bearish_divergence",
			family:      confidence.FamilyDivergence,
			description: "Higher high in price with a lower high in RSI(14)",
			minCandles:  50,
			params:      divergenceParams(false),
		},
	}
}

func (s *rsiDivergence) Evaluate(w models.Window, ind *indicator.Set, p models.Parameters) (optional.Option[models.DraftSignal], error) {
	n := w.Len()
	lookback, gap := p.Int("lookback", 30), p.Int("pivot_gap", 3)
	start, end := n-lookback, n-gap
	if start < 0 || end <= start || ind.RSI14.Len() != n {
		return none(), nil
	}

	swing := start
	for i := start + 1; i < end; i++ {
		if (s.bullish && w[i].Low < w[swing].Low) || (!s.bullish && w[i].High > w[swing].High) {
			swing = i
		}
	}
	rsiSwing, rsiNow := ind.RSI14[swing], ind.RSI14.Last()
	if !indicator.AllFinite(rsiSwing, rsiNow) {
		return none(), nil
	}

	last := w.Last()
	var strength float64
	if s.bullish {
		if last.Low >= w[swing].Low || rsiNow >= p.Float("rsi_max", 40) {
			return none(), nil
		}
		strength = rsiNow - rsiSwing
	} else {
		if last.High <= w[swing].High || rsiNow <= p.Float("rsi_min", 60) {
			return none(), nil
		}
		strength = rsiSwing - rsiNow
	}
	if strength <= p.Float("min_strength", 0) {
		return none(), nil
	}

	factors := map[string]float64{
		confidence.FactorDivergence: strength,
		confidence.FactorRSI:        rsiNow,
	}
	d := draft(sideOf(s.bullish), w, ind, p,
		fmt.Sprintf("RSI divergence against swing %d bars ago (RSI %.1f -> %.1f)", n-1-swing, rsiSwing, rsiNow), factors)
	d.Metadata["swing_time"] = w[swing].Time
	return some(d), nil
}
