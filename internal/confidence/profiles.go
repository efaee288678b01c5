package confidence

// Strategy families and their base confidence.
const (
	FamilyMomentum       = "momentum"
	FamilyMeanReversion  = "mean_reversion"
	FamilyExtremeRSI     = "extreme_rsi"
	FamilyTrend          = "trend"
	FamilyDivergence     = "divergence"
	FamilyBreakout       = "breakout"
	FamilyCandlestick    = "candlestick"
	FamilyOrderFlow      = "order_flow"
	FamilyMultiTimeframe = "multi_timeframe"
	FamilyExit           = "exit"
	FamilyRange          = "range"
)

var familyBase = map[string]float64{
	FamilyMomentum:       0.60,
	FamilyMeanReversion:  0.58,
	FamilyExtremeRSI:     0.62,
	FamilyTrend:          0.60,
	FamilyDivergence:     0.60,
	FamilyBreakout:       0.60,
	FamilyCandlestick:    0.55,
	FamilyOrderFlow:      0.55,
	FamilyMultiTimeframe: 0.60,
	FamilyExit:           0.60,
	FamilyRange:          0.50,
}

// FamilyBase returns the base confidence of a family, or Neutral.
func FamilyBase(family string) float64 {
	if b, ok := familyBase[family]; ok {
		return b
	}
	return Neutral
}

func profile(family string, bonuses ...Bonus) Profile {
	return Profile{Family: family, Base: FamilyBase(family), Bonuses: bonuses}
}

// DefaultProfiles returns the built-in scoring profiles keyed by strategy id.
// The returned map is a fresh copy.
func DefaultProfiles() map[string]Profile {
	volume := Bonus{Factor: FactorVolumeRatio, Op: AtLeast, Threshold: 1.5, Amount: 0.05}
	strongTrend := Bonus{Factor: FactorADX, Op: AtLeast, Threshold: 30, Amount: 0.05}

	return map[string]Profile{
		"macd_momentum": profile(FamilyMomentum,
			Bonus{Factor: FactorRSI, Op: Below, Threshold: 60, Amount: 0.1},
			Bonus{Factor: FactorEMAAligned, Op: AtLeast, Threshold: 1, Amount: 0.1},
			strongTrend,
		),
		"rsi2_extreme_oversold": profile(FamilyExtremeRSI,
			Bonus{Factor: FactorRSI2Extremity, Op: Below, Threshold: 25, Amount: 0.1},
			Bonus{Factor: FactorRSI2Extremity, Op: Below, Threshold: 5, Amount: 0.1},
		),
		"rsi2_extreme_overbought": profile(FamilyExtremeRSI,
			Bonus{Factor: FactorRSI2Extremity, Op: Below, Threshold: 25, Amount: 0.1},
			Bonus{Factor: FactorRSI2Extremity, Op: Below, Threshold: 5, Amount: 0.1},
		),
		"bollinger_fade_lower": profile(FamilyMeanReversion,
			Bonus{Factor: FactorRSI, Op: Below, Threshold: 30, Amount: 0.1},
			Bonus{Factor: FactorWickRatio, Op: AtLeast, Threshold: 0.5, Amount: 0.05},
			volume,
		),
		"bollinger_fade_upper": profile(FamilyMeanReversion,
			Bonus{Factor: FactorRSI, Op: Above, Threshold: 70, Amount: 0.1},
			Bonus{Factor: FactorWickRatio, Op: AtLeast, Threshold: 0.5, Amount: 0.05},
			volume,
		),
		"ema_trend_alignment": profile(FamilyTrend,
			Bonus{Factor: FactorADX, Op: AtLeast, Threshold: 25, Amount: 0.1},
			Bonus{Factor: FactorVolumeRatio, Op: AtLeast, Threshold: 1.2, Amount: 0.05},
		),
		"golden_cross": profile(FamilyTrend,
			Bonus{Factor: FactorVolumeRatio, Op: AtLeast, Threshold: 1.2, Amount: 0.1},
			strongTrend,
		),
		"death_cross": profile(FamilyTrend,
			Bonus{Factor: FactorVolumeRatio, Op: AtLeast, Threshold: 1.2, Amount: 0.1},
			strongTrend,
		),
		"rsi_bullish_divergence": profile(FamilyDivergence,
			Bonus{Factor: FactorDivergence, Op: AtLeast, Threshold: 5, Amount: 0.1},
			Bonus{Factor: FactorRSI, Op: Below, Threshold: 30, Amount: 0.05},
		),
		"rsi_bearish_divergence": profile(FamilyDivergence,
			Bonus{Factor: FactorDivergence, Op: AtLeast, Threshold: 5, Amount: 0.1},
			Bonus{Factor: FactorRSI, Op: Above, Threshold: 70, Amount: 0.05},
		),
		"range_breakout": profile(FamilyBreakout,
			Bonus{Factor: FactorVolumeRatio, Op: AtLeast, Threshold: 2, Amount: 0.1},
			Bonus{Factor: FactorADX, Op: AtLeast, Threshold: 25, Amount: 0.05},
		),
		"range_breakdown": profile(FamilyBreakout,
			Bonus{Factor: FactorVolumeRatio, Op: AtLeast, Threshold: 2, Amount: 0.1},
			Bonus{Factor: FactorADX, Op: AtLeast, Threshold: 25, Amount: 0.05},
		),
		"hammer_reversal": profile(FamilyCandlestick,
			Bonus{Factor: FactorWickRatio, Op: AtLeast, Threshold: 0.7, Amount: 0.1},
			Bonus{Factor: FactorRSI, Op: Below, Threshold: 35, Amount: 0.05},
			volume,
		),
		"shooting_star_reversal": profile(FamilyCandlestick,
			Bonus{Factor: FactorWickRatio, Op: AtLeast, Threshold: 0.7, Amount: 0.1},
			Bonus{Factor: FactorRSI, Op: Above, Threshold: 65, Amount: 0.05},
			volume,
		),
		"bullish_engulfing": profile(FamilyCandlestick,
			Bonus{Factor: FactorBodyRatio, Op: AtLeast, Threshold: 0.7, Amount: 0.1},
			Bonus{Factor: FactorRSI, Op: Below, Threshold: 40, Amount: 0.05},
			volume,
		),
		"bearish_engulfing": profile(FamilyCandlestick,
			Bonus{Factor: FactorBodyRatio, Op: AtLeast, Threshold: 0.7, Amount: 0.1},
			Bonus{Factor: FactorRSI, Op: Above, Threshold: 60, Amount: 0.05},
			volume,
		),
		"volume_climax_reversal": profile(FamilyOrderFlow,
			Bonus{Factor: FactorVolumeRatio, Op: AtLeast, Threshold: 5, Amount: 0.1},
			Bonus{Factor: FactorWickRatio, Op: AtLeast, Threshold: 0.6, Amount: 0.05},
		),
		"vwap_reclaim": profile(FamilyMeanReversion,
			Bonus{Factor: FactorOBVConfirm, Op: AtLeast, Threshold: 1, Amount: 0.1},
			volume,
		),
		"vwap_rejection": profile(FamilyMeanReversion,
			Bonus{Factor: FactorOBVConfirm, Op: AtLeast, Threshold: 1, Amount: 0.1},
			volume,
		),
		"mtf_continuation": profile(FamilyMultiTimeframe,
			Bonus{Factor: FactorHTFStrength, Op: AtLeast, Threshold: 1, Amount: 0.1},
			Bonus{Factor: FactorADX, Op: AtLeast, Threshold: 25, Amount: 0.05},
		),
		"squeeze_breakout": profile(FamilyBreakout,
			Bonus{Factor: FactorVolumeRatio, Op: AtLeast, Threshold: 1.5, Amount: 0.1},
			Bonus{Factor: FactorADX, Op: AtLeast, Threshold: 20, Amount: 0.05},
		),
		"adx_directional": profile(FamilyMomentum,
			Bonus{Factor: FactorADX, Op: AtLeast, Threshold: 35, Amount: 0.1},
			Bonus{Factor: FactorDISpread, Op: AtLeast, Threshold: 10, Amount: 0.05},
		),
		"yearly_high_breakout": profile(FamilyBreakout,
			Bonus{Factor: FactorVolumeRatio, Op: AtLeast, Threshold: 1.5, Amount: 0.1},
			Bonus{Factor: FactorTrendAligned, Op: AtLeast, Threshold: 1, Amount: 0.05},
		),
		"macd_exit": profile(FamilyExit,
			Bonus{Factor: FactorRSI, Op: Above, Threshold: 60, Amount: 0.1},
			Bonus{Factor: FactorMFI, Op: Above, Threshold: 80, Amount: 0.05},
		),
		"range_hold": profile(FamilyRange,
			Bonus{Factor: FactorADX, Op: Below, Threshold: 15, Amount: 0.1},
		),
	}
}
