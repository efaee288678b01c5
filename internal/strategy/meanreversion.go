package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"

	"SignalForge/internal/confidence"
	"SignalForge/internal/domain/models"
	"SignalForge/internal/indicator"
)

// rsi2Extreme fades a very short-term RSI extreme.
type rsi2Extreme struct {
	base
	oversold bool
}

func newRSI2Oversold() *rsi2Extreme {
	return &rsi2Extreme{
		base: base{
			id:          "rsi2_extreme_oversold",
			family:      confidence.FamilyExtremeRSI,
			description: "RSI(2) deeply oversold; buy the snap-back",
			minCandles:  60,
			params: withRisk(
				floatParam("entry_threshold", 25, 0, 50, "buy when RSI(2) is below this level"),
				boolParam("trend_filter", false, "only buy above EMA(200) when it is available"),
			),
		},
		oversold: true,
	}
}

func newRSI2Overbought() *rsi2Extreme {
	return &rsi2Extreme{
		base: base{
			id:          "rsi2_extreme_overbought",
			family:      confidence.FamilyExtremeRSI,
			description: "RSI(2) deeply overbought; sell the snap-back",
			minCandles:  60,
			params: withRisk(
				floatParam("entry_threshold", 75, 50, 100, "sell when RSI(2) is above this level"),
				boolParam("trend_filter", false, "only sell below EMA(200) when it is available"),
			),
		},
	}
}

func (s *rsi2Extreme) Evaluate(w models.Window, ind *indicator.Set, p models.Parameters) (optional.Option[models.DraftSignal], error) {
	rsi2 := ind.RSI2.Last()
	if !indicator.Finite(rsi2) {
		return none(), nil
	}

	px := w.Last().Close
	ema200 := ind.EMA200.Last()
	trendFilter := p.Bool("trend_filter", false) && indicator.Finite(ema200)

	var extremity float64
	if s.oversold {
		if rsi2 >= p.Float("entry_threshold", 25) || (trendFilter && px <= ema200) {
			return none(), nil
		}
		extremity = rsi2
	} else {
		if rsi2 <= p.Float("entry_threshold", 75) || (trendFilter && px >= ema200) {
			return none(), nil
		}
		extremity = 100 - rsi2
	}

	factors := map[string]float64{confidence.FactorRSI2Extremity: extremity}
	d := draft(sideOf(s.oversold), w, ind, p, fmt.Sprintf("RSI(2) at %.2f", rsi2), factors)
	d.Metadata["rsi2"] = rsi2
	return some(d), nil
}

// bollingerFade fades a wick through a Bollinger band that closes back inside.
type bollingerFade struct {
	base
	lower bool
}

func newBollingerFadeLower() *bollingerFade {
	return &bollingerFade{
		base: base{
			id:          "bollinger_fade_lower",
			family:      confidence.FamilyMeanReversion,
			description: "Low pierces the lower Bollinger band and the candle closes back inside",
			minCandles:  25,
			params: withRisk(
				floatParam("tolerance_pct", 0, 0, 5, "treat lows within this percentage above the band as touches"),
				floatParam("rsi_max", 40, 0, 100, "RSI(14) must be below this level"),
			),
		},
		lower: true,
	}
}

func newBollingerFadeUpper() *bollingerFade {
	return &bollingerFade{
		base: base{
			id:          "bollinger_fade_upper",
			family:      confidence.FamilyMeanReversion,
			description: "High pierces the upper Bollinger band and the candle closes back inside",
			minCandles:  25,
			params: withRisk(
				floatParam("tolerance_pct", 0, 0, 5, "treat highs within this percentage below the band as touches"),
				floatParam("rsi_min", 60, 0, 100, "RSI(14) must be above this level"),
			),
		},
	}
}

func (s *bollingerFade) Evaluate(w models.Window, ind *indicator.Set, p models.Parameters) (optional.Option[models.DraftSignal], error) {
	upper, middle, lower := ind.BBUpper.Last(), ind.BBMiddle.Last(), ind.BBLower.Last()
	rsi := ind.RSI14.Last()
	if !indicator.AllFinite(upper, middle, lower, rsi) {
		return none(), nil
	}
	c := w.Last()
	tol := p.Float("tolerance_pct", 0) / 100

	var penetration, wick float64
	if s.lower {
		if c.Low > lower*(1+tol) || c.Close <= lower || rsi >= p.Float("rsi_max", 40) {
			return none(), nil
		}
		penetration = (lower - c.Low) / lower * 100
		wick = ind.LowerWick.Last()
	} else {
		if c.High < upper*(1-tol) || c.Close >= upper || rsi <= p.Float("rsi_min", 60) {
			return none(), nil
		}
		penetration = (c.High - upper) / upper * 100
		wick = ind.UpperWick.Last()
	}

	factors := map[string]float64{
		confidence.FactorRSI:         rsi,
		confidence.FactorPenetration: penetration,
		confidence.FactorWickRatio:   wick,
		confidence.FactorVolumeRatio: volumeRatio(w, ind),
	}
	d := draft(sideOf(s.lower), w, ind, p,
		fmt.Sprintf("Bollinger band fade, close %.4f back inside [%.4f, %.4f]", c.Close, lower, upper), factors)
	// the middle band is the natural mean-reversion target
	if (s.lower && middle > c.Close) || (!s.lower && middle < c.Close) {
		target := middle
		d.TakeProfit = &target
	}
	return some(d), nil
}

// vwapCross trades a close crossing back over VWAP.
type vwapCross struct {
	base
	reclaim bool
}

func newVWAPReclaim() *vwapCross {
	return &vwapCross{
		base: base{
			id:          "vwap_reclaim",
			family:      confidence.FamilyMeanReversion,
			description: "Close reclaims VWAP from below",
			minCandles:  30,
			params: withRisk(
				floatParam("min_volume_ratio", 1, 0, 20, "latest volume relative to its 20-bar average"),
				intParam("obv_lookback", 5, 1, 50, "bars over which OBV must confirm the move"),
			),
		},
		reclaim: true,
	}
}

func newVWAPRejection() *vwapCross {
	return &vwapCross{
		base: base{
			id:          "vwap_rejection",
			family:      confidence.FamilyMeanReversion,
			description: "Close loses VWAP from above",
			minCandles:  30,
			params: withRisk(
				floatParam("min_volume_ratio", 1, 0, 20, "latest volume relative to its 20-bar average"),
				intParam("obv_lookback", 5, 1, 50, "bars over which OBV must confirm the move"),
			),
		},
	}
}

func (s *vwapCross) Evaluate(w models.Window, ind *indicator.Set, p models.Parameters) (optional.Option[models.DraftSignal], error) {
	if !ind.VWAP.Available(2) || w.Len() < 2 {
		return none(), nil
	}
	prevClose, px := w[w.Len()-2].Close, w.Last().Close
	prevVWAP, vwap := ind.VWAP.Prev(), ind.VWAP.Last()

	if s.reclaim && !(prevClose < prevVWAP && px > vwap) {
		return none(), nil
	}
	if !s.reclaim && !(prevClose > prevVWAP && px < vwap) {
		return none(), nil
	}

	vr := volumeRatio(w, ind)
	if minVR := p.Float("min_volume_ratio", 1); minVR > 0 && (!indicator.Finite(vr) || vr < minVR) {
		return none(), nil
	}

	lookback := p.Int("obv_lookback", 5)
	obvNow, obvThen := ind.OBV.Last(), ind.OBV.At(lookback)
	confirm := false
	if indicator.AllFinite(obvNow, obvThen) {
		confirm = (s.reclaim && obvNow > obvThen) || (!s.reclaim && obvNow < obvThen)
	}

	factors := map[string]float64{
		confidence.FactorVolumeRatio: vr,
		confidence.FactorOBVConfirm:  confidence.Flag(confirm),
	}
	d := draft(sideOf(s.reclaim), w, ind, p, fmt.Sprintf("close %.4f crossed VWAP %.4f", px, vwap), factors)
	d.Metadata["vwap"] = vwap
	return some(d), nil
}
