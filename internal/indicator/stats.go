package indicator

import (
	"math"
	"time"

	"SignalForge/internal/domain/models"
)

func nan() float64 { return math.NaN() }

// LogReturns computes r_t = ln(C_t / C_{t-1}) aligned to the window.
// The first entry is NaN; non-positive closes yield NaN.
func LogReturns(w models.Window) Series {
	if len(w) < 2 {
		return Empty()
	}
	out := nanSeries(len(w))
	for i := 1; i < len(w); i++ {
		prev, cur := w[i-1].Close, w[i].Close
		if prev <= 0 || cur <= 0 {
			continue
		}
		out[i] = math.Log(cur / prev)
	}
	return out
}

// RealizedVolatility computes annualized realized volatility over the last
// `window` finite log returns. Returns NaN if there are not enough.
func RealizedVolatility(logReturns Series, window int, barsPerYear float64) float64 {
	if window <= 1 || logReturns.Len() < window {
		return nan()
	}
	sum, sum2 := 0.0, 0.0
	for i := 0; i < window; i++ {
		r := logReturns.At(i)
		if !Finite(r) {
			return nan()
		}
		sum += r
		sum2 += r * r
	}
	n := float64(window)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance * barsPerYear)
}

// BarsPerYear returns the number of bars per 365-day year for a timeframe.
// Unknown timeframes are treated as the default (15m).
func BarsPerYear(tf string) float64 {
	return float64(365*24*time.Hour) / float64(models.NormalizeTimeframe(tf).Duration())
}

// VWAP computes the cumulative volume-weighted average of the typical price
// over the window. Bars before any volume has traded are NaN.
func VWAP(w models.Window) Series {
	if len(w) == 0 {
		return Empty()
	}
	out := nanSeries(len(w))
	cumPV, cumV := 0.0, 0.0
	for i, c := range w {
		typical := (c.High + c.Low + c.Close) / 3
		cumPV += typical * c.Volume
		cumV += c.Volume
		if cumV > 0 {
			out[i] = cumPV / cumV
		}
	}
	return out
}

// CandleShape returns upper wick, lower wick and body as fractions of each
// candle's range. Zero-range candles are NaN.
func CandleShape(w models.Window) (upper, lower, body Series) {
	if len(w) == 0 {
		return Empty(), Empty(), Empty()
	}
	upper, lower, body = nanSeries(len(w)), nanSeries(len(w)), nanSeries(len(w))
	for i, c := range w {
		rng := c.High - c.Low
		if rng <= 0 {
			continue
		}
		top := math.Max(c.Open, c.Close)
		bottom := math.Min(c.Open, c.Close)
		upper[i] = (c.High - top) / rng
		lower[i] = (bottom - c.Low) / rng
		body[i] = (top - bottom) / rng
	}
	return upper, lower, body
}

// Highest returns the maximum of the `n` values preceding the latest one
// (the latest bar excluded), or NaN when there are not enough.
func Highest(vals []float64, n int) float64 {
	if n <= 0 || len(vals) < n+1 {
		return nan()
	}
	m := math.Inf(-1)
	for _, v := range vals[len(vals)-1-n : len(vals)-1] {
		m = math.Max(m, v)
	}
	return m
}

// Lowest is the counterpart of Highest.
func Lowest(vals []float64, n int) float64 {
	if n <= 0 || len(vals) < n+1 {
		return nan()
	}
	m := math.Inf(1)
	for _, v := range vals[len(vals)-1-n : len(vals)-1] {
		m = math.Min(m, v)
	}
	return m
}
