package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"

	"SignalForge/internal/confidence"
	"SignalForge/internal/domain/models"
	"SignalForge/internal/indicator"
)

// volumeClimaxReversal looks for exhaustion: a volume spike on a candle that
// rejects the prior move with a long wick.
type volumeClimaxReversal struct{ base }

func newVolumeClimaxReversal() *volumeClimaxReversal {
	return &volumeClimaxReversal{base{
		id:          "volume_climax_reversal",
		family:      confidence.FamilyOrderFlow,
		description: "Volume spike with a rejection wick against the prior move",
		minCandles:  30,
		params: withRisk(
			floatParam("climax_ratio", 3, 1, 50, "latest volume relative to its 20-bar average"),
			floatParam("min_wick", 0.5, 0, 1, "rejection wick as a fraction of the candle range"),
			intParam("trend_bars", 5, 1, 50, "bars of prior move to be exhausted"),
		),
	}}
}

func (s *volumeClimaxReversal) Evaluate(w models.Window, ind *indicator.Set, p models.Parameters) (optional.Option[models.DraftSignal], error) {
	vr := volumeRatio(w, ind)
	if !indicator.Finite(vr) || vr < p.Float("climax_ratio", 3) {
		return none(), nil
	}
	upper, lower := ind.UpperWick.Last(), ind.LowerWick.Last()
	if !indicator.AllFinite(upper, lower) {
		return none(), nil
	}

	minWick, bars := p.Float("min_wick", 0.5), p.Int("trend_bars", 5)
	var bullish bool
	var wick float64
	switch {
	case lower >= minWick && lower > upper && priorMove(w, bars, true):
		bullish, wick = true, lower
	case upper >= minWick && upper > lower && priorMove(w, bars, false):
		bullish, wick = false, upper
	default:
		return none(), nil
	}

	factors := map[string]float64{
		confidence.FactorVolumeRatio: vr,
		confidence.FactorWickRatio:   wick,
		confidence.FactorMFI:         ind.MFI14.Last(),
	}
	d := draft(sideOf(bullish), w, ind, p, fmt.Sprintf("volume climax %.1fx average with %.0f%% wick", vr, wick*100), factors)
	return some(d), nil
}
