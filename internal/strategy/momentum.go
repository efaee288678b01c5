package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"

	"SignalForge/internal/confidence"
	"SignalForge/internal/domain/models"
	"SignalForge/internal/indicator"
)

// macdMomentum buys when the MACD histogram turns positive with RSI not yet
// overbought and enough trend strength.
type macdMomentum struct{ base }

func newMACDMomentum() *macdMomentum {
	return &macdMomentum{base{
		id:          "macd_momentum",
		family:      confidence.FamilyMomentum,
		description: "MACD histogram crosses above zero with RSI headroom and ADX trend strength",
		minCandles:  50,
		params: withRisk(
			floatParam("min_histogram", 0, 0, 1000, "histogram must exceed this value after the cross"),
			floatParam("rsi_max", 70, 0, 100, "skip when RSI(14) is at or above this level"),
			floatParam("min_adx", 20, 0, 100, "minimum ADX(14); 0 disables the filter"),
			boolParam("require_close_above_ema", true, "close must be above EMA(21)"),
		),
	}}
}

func (s *macdMomentum) Evaluate(w models.Window, ind *indicator.Set, p models.Parameters) (optional.Option[models.DraftSignal], error) {
	hist := ind.MACDHist
	if !hist.Available(2) {
		return none(), nil
	}
	if !(hist.Prev() < 0 && hist.Last() > p.Float("min_histogram", 0)) {
		return none(), nil
	}

	rsi := ind.RSI14.Last()
	if !indicator.Finite(rsi) || rsi >= p.Float("rsi_max", 70) {
		return none(), nil
	}

	adx := ind.ADX14.Last()
	if minADX := p.Float("min_adx", 20); minADX > 0 && (!indicator.Finite(adx) || adx < minADX) {
		return none(), nil
	}

	px := w.Last().Close
	ema21, ema50 := ind.EMA21.Last(), ind.EMA50.Last()
	if p.Bool("require_close_above_ema", true) && (!indicator.Finite(ema21) || px <= ema21) {
		return none(), nil
	}

	factors := map[string]float64{
		confidence.FactorRSI:        rsi,
		confidence.FactorADX:        adx,
		confidence.FactorEMAAligned: confidence.Flag(indicator.AllFinite(ema21, ema50) && ema21 > ema50),
	}
	d := draft(models.ActionBuy, w, ind, p,
		fmt.Sprintf("MACD histogram crossed above zero (%.4f -> %.4f), RSI %.1f", hist.Prev(), hist.Last(), rsi),
		factors)
	d.Metadata["macd_histogram"] = hist.Last()
	return some(d), nil
}

// adxDirectional follows a +DI/-DI cross while ADX is strong and rising.
type adxDirectional struct{ base }

func newADXDirectional() *adxDirectional {
	return &adxDirectional{base{
		id:          "adx_directional",
		family:      confidence.FamilyMomentum,
		description: "+DI/-DI crossover confirmed by a strong, rising ADX",
		minCandles:  40,
		params: withRisk(
			floatParam("min_adx", 25, 0, 100, "minimum ADX(14)"),
			boolParam("require_cross", true, "require a fresh DI crossover on the latest bar"),
			boolParam("require_rising_adx", true, "ADX must be higher than on the previous bar"),
		),
	}}
}

func (s *adxDirectional) Evaluate(w models.Window, ind *indicator.Set, p models.Parameters) (optional.Option[models.DraftSignal], error) {
	if !ind.ADX14.Available(2) || !ind.PlusDI.Available(2) || !ind.MinusDI.Available(2) {
		return none(), nil
	}
	adx := ind.ADX14.Last()
	if adx < p.Float("min_adx", 25) {
		return none(), nil
	}
	if p.Bool("require_rising_adx", true) && adx <= ind.ADX14.Prev() {
		return none(), nil
	}

	plus, minus := ind.PlusDI.Last(), ind.MinusDI.Last()
	var bullish bool
	if p.Bool("require_cross", true) {
		switch {
		case crossedAbove(ind.PlusDI, ind.MinusDI):
			bullish = true
		case crossedBelow(ind.PlusDI, ind.MinusDI):
			bullish = false
		default:
			return none(), nil
		}
	} else {
		if plus == minus {
			return none(), nil
		}
		bullish = plus > minus
	}

	spread := plus - minus
	if !bullish {
		spread = -spread
	}
	factors := map[string]float64{
		confidence.FactorADX:      adx,
		confidence.FactorDISpread: spread,
	}
	d := draft(sideOf(bullish), w, ind, p,
		fmt.Sprintf("ADX %.1f rising, +DI %.1f / -DI %.1f", adx, plus, minus), factors)
	return some(d), nil
}
