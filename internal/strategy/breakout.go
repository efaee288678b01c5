package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"

	"SignalForge/internal/confidence"
	"SignalForge/internal/domain/models"
	"SignalForge/internal/indicator"
)

// rangeBreak trades a close beyond the high/low of the preceding range.
type rangeBreak struct {
	base
	up bool
}

func rangeParams() []models.ParamSpec {
	return withRisk(
		intParam("lookback", 20, 5, 200, "bars forming the range (latest bar excluded)"),
		floatParam("buffer_pct", 0, 0, 5, "close must clear the range by this percentage"),
		floatParam("min_volume_ratio", 1.2, 0, 20, "latest volume relative to its 20-bar average; 0 disables"),
	)
}

func newRangeBreakout() *rangeBreak {
	return &rangeBreak{
		base: base{
			id:          "range_breakout",
			family:      confidence.FamilyBreakout,
			description: "Close above the prior range high on expanding volume",
			minCandles:  30,
			params:      rangeParams(),
		},
		up: true,
	}
}

func newRangeBreakdown() *rangeBreak {
	return &rangeBreak{
		base: base{
			id:          "range_breakdown",
			family:      confidence.FamilyBreakout,
			description: "Close below the prior range low on expanding volume",
			minCandles:  30,
			params:      rangeParams(),
		},
	}
}

func (s *rangeBreak) Evaluate(w models.Window, ind *indicator.Set, p models.Parameters) (optional.Option[models.DraftSignal], error) {
	lookback := p.Int("lookback", 20)
	buffer := p.Float("buffer_pct", 0) / 100
	px := w.Last().Close

	var level, pct float64
	if s.up {
		level = indicator.Highest(w.Highs(), lookback)
		if !indicator.Finite(level) || px <= level*(1+buffer) {
			return none(), nil
		}
		pct = (px - level) / level * 100
	} else {
		level = indicator.Lowest(w.Lows(), lookback)
		if !indicator.Finite(level) || px >= level*(1-buffer) {
			return none(), nil
		}
		pct = (level - px) / level * 100
	}

	vr := volumeRatio(w, ind)
	if minVR := p.Float("min_volume_ratio", 1.2); minVR > 0 && (!indicator.Finite(vr) || vr < minVR) {
		return none(), nil
	}

	factors := map[string]float64{
		confidence.FactorVolumeRatio: vr,
		confidence.FactorBreakout:    pct,
		confidence.FactorADX:         ind.ADX14.Last(),
	}
	d := draft(sideOf(s.up), w, ind, p, fmt.Sprintf("close %.4f broke %d-bar range level %.4f", px, lookback, level), factors)
	d.Metadata["range_level"] = level
	return some(d), nil
}

// squeezeBreakout trades the first close outside the Bollinger bands after
// the band width contracted to its lookback minimum.
type squeezeBreakout struct{ base }

func newSqueezeBreakout() *squeezeBreakout {
	return &squeezeBreakout{base{
		id:          "squeeze_breakout",
		family:      confidence.FamilyBreakout,
		description: "Bollinger band squeeze resolving with a close outside the bands",
		minCandles:  60,
		params: withRisk(
			intParam("squeeze_lookback", 30, 10, 200, "bars over which the squeeze minimum is measured"),
			floatParam("squeeze_tolerance", 0.1, 0, 1, "previous width may exceed the minimum by this fraction"),
		),
	}}
}

func (s *squeezeBreakout) Evaluate(w models.Window, ind *indicator.Set, p models.Parameters) (optional.Option[models.DraftSignal], error) {
	lookback := p.Int("squeeze_lookback", 30)
	width := ind.BBWidth
	if !width.Available(lookback + 1) {
		return none(), nil
	}
	minWidth := width.At(1)
	for i := 2; i <= lookback; i++ {
		minWidth = min(minWidth, width.At(i))
	}
	if width.Prev() > minWidth*(1+p.Float("squeeze_tolerance", 0.1)) {
		return none(), nil
	}

	px := w.Last().Close
	upper, lower := ind.BBUpper.Last(), ind.BBLower.Last()
	var bullish bool
	switch {
	case px > upper:
		bullish = true
	case px < lower:
		bullish = false
	default:
		return none(), nil
	}

	factors := map[string]float64{
		confidence.FactorVolumeRatio: volumeRatio(w, ind),
		confidence.FactorADX:         ind.ADX14.Last(),
		confidence.FactorBBWidth:     width.Prev(),
	}
	d := draft(sideOf(bullish), w, ind, p, fmt.Sprintf("squeeze breakout, band width %.4f", width.Prev()), factors)
	return some(d), nil
}

// yearlyHighBreakout buys a close above the highest high of roughly one
// trading year of bars.
type yearlyHighBreakout struct{ base }

func newYearlyHighBreakout() *yearlyHighBreakout {
	return &yearlyHighBreakout{base{
		id:          "yearly_high_breakout",
		family:      confidence.FamilyBreakout,
		description: "Close above the 52-week (252-bar) high",
		minCandles:  265,
		params: withRisk(
			intParam("lookback", 252, 50, 260, "bars defining the yearly high"),
			floatParam("min_volume_ratio", 0, 0, 20, "latest volume relative to its 20-bar average; 0 disables"),
		),
	}}
}

func (s *yearlyHighBreakout) Evaluate(w models.Window, ind *indicator.Set, p models.Parameters) (optional.Option[models.DraftSignal], error) {
	high := indicator.Highest(w.Highs(), p.Int("lookback", 252))
	px := w.Last().Close
	if !indicator.Finite(high) || px <= high {
		return none(), nil
	}
	vr := volumeRatio(w, ind)
	if minVR := p.Float("min_volume_ratio", 0); minVR > 0 && (!indicator.Finite(vr) || vr < minVR) {
		return none(), nil
	}
	ema200 := ind.EMA200.Last()

	factors := map[string]float64{
		confidence.FactorVolumeRatio:  vr,
		confidence.FactorTrendAligned: confidence.Flag(indicator.Finite(ema200) && px > ema200),
		confidence.FactorBreakout:     (px - high) / high * 100,
	}
	d := draft(models.ActionBuy, w, ind, p, fmt.Sprintf("close %.4f above yearly high %.4f", px, high), factors)
	d.Metadata["yearly_high"] = high
	return some(d), nil
}
