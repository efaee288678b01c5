package strategy

import (
	"SignalForge/internal/domain/models"
	"SignalForge/internal/indicator"
)

// draft builds a DraftSignal at the latest close, attaching ATR based stop
// loss and take profit for buy/sell actions when ATR is available. The
// window's annualized realized volatility is recorded when known.
func draft(action models.Action, w models.Window, ind *indicator.Set, p models.Parameters, reason string, factors map[string]float64) models.DraftSignal {
	price := w.Last().Close
	d := models.DraftSignal{
		Action:   action,
		Price:    price,
		Reason:   reason,
		Factors:  factors,
		Metadata: map[string]any{},
	}
	if indicator.Finite(ind.Volatility) {
		d.Metadata["realized_vol"] = ind.Volatility
	}
	atr := ind.ATR14.Last()
	if !indicator.Finite(atr) || atr <= 0 {
		return d
	}
	d.Metadata["atr"] = atr

	stopMult := p.Float(paramStopATR, defaultStopATR)
	targetMult := p.Float(paramTargetATR, defaultTargetATR)
	switch action {
	case models.ActionBuy:
		d.StopLoss = level(price-stopMult*atr, stopMult)
		d.TakeProfit = level(price+targetMult*atr, targetMult)
	case models.ActionSell:
		d.StopLoss = level(price+stopMult*atr, stopMult)
		d.TakeProfit = level(price-targetMult*atr, targetMult)
	}
	return d
}

// level returns nil when the multiplier disables the level or the level is not positive.
func level(v, mult float64) *float64 {
	if mult <= 0 || v <= 0 {
		return nil
	}
	return &v
}

// sideOf maps a signed direction to an action.
func sideOf(bullish bool) models.Action {
	if bullish {
		return models.ActionBuy
	}
	return models.ActionSell
}

// crossedAbove reports a crossing of a over b between the previous and latest bar.
func crossedAbove(a, b indicator.Series) bool {
	ap, al, bp, bl := a.Prev(), a.Last(), b.Prev(), b.Last()
	if !indicator.AllFinite(ap, al, bp, bl) {
		return false
	}
	return ap <= bp && al > bl
}

func crossedBelow(a, b indicator.Series) bool {
	return crossedAbove(b, a)
}

func volumeRatio(w models.Window, ind *indicator.Set) float64 {
	return ind.VolumeRatio(w.Last().Volume)
}
