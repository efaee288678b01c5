package confidence

// Factor names shared between evaluators (which fill DraftSignal.Factors)
// and the scoring profiles.
const (
	FactorRSI           = "rsi"
	FactorRSI2Extremity = "rsi2_extremity" // oversold reading; overbought is mirrored as 100-rsi2
	FactorEMAAligned    = "ema_aligned"    // 1 when EMA ordering agrees with the signal direction
	FactorADX           = "adx"
	FactorVolumeRatio   = "volume_ratio"
	FactorWickRatio     = "wick_ratio"
	FactorBodyRatio     = "body_ratio"
	FactorBBWidth       = "bb_width"
	FactorPenetration   = "penetration_pct"
	FactorDivergence    = "divergence_strength"
	FactorBreakout      = "breakout_pct"
	FactorTrendAligned  = "trend_aligned" // 1 when price is on the signal's side of EMA200
	FactorDISpread      = "di_spread"
	FactorHTFStrength   = "htf_strength"
	FactorOBVConfirm    = "obv_confirm"
	FactorMFI           = "mfi"
)

// Flag converts a condition into the 0/1 encoding used by boolean factors.
func Flag(cond bool) float64 {
	if cond {
		return 1
	}
	return 0
}
