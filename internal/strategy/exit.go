package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"

	"SignalForge/internal/confidence"
	"SignalForge/internal/domain/models"
	"SignalForge/internal/indicator"
)

// macdExit closes long exposure when MACD momentum rolls over.
type macdExit struct{ base }

func newMACDExit() *macdExit {
	return &macdExit{base{
		id:          "macd_exit",
		family:      confidence.FamilyExit,
		description: "MACD histogram crosses below zero; close long positions",
		minCandles:  50,
		params: []models.ParamSpec{
			floatParam("min_prior_histogram", 0, 0, 1000, "histogram on the previous bar must exceed this value"),
		},
	}}
}

func (s *macdExit) Evaluate(w models.Window, ind *indicator.Set, p models.Parameters) (optional.Option[models.DraftSignal], error) {
	hist := ind.MACDHist
	if !hist.Available(2) {
		return none(), nil
	}
	if !(hist.Prev() > p.Float("min_prior_histogram", 0) && hist.Last() < 0) {
		return none(), nil
	}
	factors := map[string]float64{
		confidence.FactorRSI: ind.RSI14.Last(),
		confidence.FactorMFI: ind.MFI14.Last(),
	}
	d := draft(models.ActionClose, w, ind, p,
		fmt.Sprintf("MACD histogram crossed below zero (%.4f -> %.4f)", hist.Prev(), hist.Last()), factors)
	d.Metadata["position"] = "long"
	return some(d), nil
}

// rangeHold advises holding while the market is directionless.
type rangeHold struct{ base }

func newRangeHold() *rangeHold {
	return &rangeHold{base{
		id:          "range_hold",
		family:      confidence.FamilyRange,
		description: "Weak ADX and narrow Bollinger bands; hold",
		minCandles:  40,
		params: []models.ParamSpec{
			floatParam("max_adx", 20, 0, 100, "ADX(14) must be below this level"),
			floatParam("max_bb_width", 0.05, 0, 1, "Bollinger band width must be below this value"),
		},
	}}
}

func (s *rangeHold) Evaluate(w models.Window, ind *indicator.Set, p models.Parameters) (optional.Option[models.DraftSignal], error) {
	adx, width := ind.ADX14.Last(), ind.BBWidth.Last()
	if !indicator.AllFinite(adx, width) {
		return none(), nil
	}
	if adx >= p.Float("max_adx", 20) || width >= p.Float("max_bb_width", 0.05) {
		return none(), nil
	}
	factors := map[string]float64{
		confidence.FactorADX:     adx,
		confidence.FactorBBWidth: width,
	}
	d := draft(models.ActionHold, w, ind, p, fmt.Sprintf("range: ADX %.1f, band width %.4f", adx, width), factors)
	return some(d), nil
}
