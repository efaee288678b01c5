package indicator

// Set holds every indicator computed for one window. It is built once per
// pipeline invocation and is read-only afterwards; evaluators must not
// modify its series.
type Set struct {
	Len int

	RSI14 Series
	RSI2  Series

	MACD       Series
	MACDSignal Series
	MACDHist   Series

	ADX14   Series
	PlusDI  Series
	MinusDI Series
	ATR14   Series

	EMA21  Series
	EMA50  Series
	EMA200 Series

	BBUpper  Series
	BBMiddle Series
	BBLower  Series
	// BBWidth is (upper-lower)/middle.
	BBWidth Series

	VWAP        Series
	VolumeSMA20 Series
	OBV         Series
	MFI14       Series

	// Candle shape, as fractions of the candle's high-low range.
	UpperWick Series
	LowerWick Series
	BodyRatio Series

	LogReturns Series
	// Volatility is the realized volatility of log returns over the last
	// VolatilityWindow bars, annualized for the window's timeframe. NaN when unavailable.
	Volatility float64
}

// VolumeRatio returns the latest volume divided by its 20-bar average, or NaN.
func (s *Set) VolumeRatio(latestVolume float64) float64 {
	avg := s.VolumeSMA20.Last()
	if !Finite(avg) || avg <= 0 {
		return nan()
	}
	return latestVolume / avg
}
