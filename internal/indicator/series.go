package indicator

import "math"

// Series is a numeric series aligned to a Window. Entries before an
// indicator's lookback are NaN; an empty Series means the window was too
// short to produce anything. Both read as "unavailable".
type Series []float64

// Empty returns a Series with no values.
func Empty() Series { return Series{} }

// Len returns the number of entries.
func (s Series) Len() int { return len(s) }

// At returns the value `back` bars before the latest one (0 = latest).
// Out of range reads return NaN.
func (s Series) At(back int) float64 {
	i := len(s) - 1 - back
	if back < 0 || i < 0 {
		return math.NaN()
	}
	return s[i]
}

// Last returns the latest value or NaN.
func (s Series) Last() float64 { return s.At(0) }

// Prev returns the value one bar before the latest, or NaN.
func (s Series) Prev() float64 { return s.At(1) }

// Available reports whether the latest `n` values are all finite.
func (s Series) Available(n int) bool {
	if n <= 0 || len(s) < n {
		return false
	}
	for i := 0; i < n; i++ {
		if !Finite(s.At(i)) {
			return false
		}
	}
	return true
}

// Tail returns the last n entries (fewer if the series is shorter).
func (s Series) Tail(n int) Series {
	if n >= len(s) {
		return s
	}
	if n <= 0 {
		return Empty()
	}
	return s[len(s)-n:]
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// AllFinite reports whether every value is finite.
func AllFinite(vs ...float64) bool {
	for _, v := range vs {
		if !Finite(v) {
			return false
		}
	}
	return true
}

// mask replaces the first `lookback` entries of a go-talib output with NaN.
// go-talib zero-fills its lookback region, and a zero there is not a value.
func mask(out []float64, lookback int) Series {
	if lookback > len(out) {
		lookback = len(out)
	}
	for i := 0; i < lookback; i++ {
		out[i] = math.NaN()
	}
	return Series(out)
}

// nanSeries returns a series of n NaN values.
func nanSeries(n int) Series {
	out := make(Series, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
