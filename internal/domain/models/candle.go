package models

import (
	"fmt"
	"math"
	"time"
)

// Candle represents one OHLCV bar for a fixed interval.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Window is an ordered (oldest first) sequence of candles for one symbol/timeframe.
type Window []Candle

// Len returns the number of candles.
func (w Window) Len() int { return len(w) }

// Last returns the most recent candle. The window must not be empty.
func (w Window) Last() Candle { return w[len(w)-1] }

// Closes returns the close prices aligned to the window.
func (w Window) Closes() []float64 {
	out := make([]float64, len(w))
	for i, c := range w {
		out[i] = c.Close
	}
	return out
}

// Opens returns the open prices aligned to the window.
func (w Window) Opens() []float64 {
	out := make([]float64, len(w))
	for i, c := range w {
		out[i] = c.Open
	}
	return out
}

// Highs returns the high prices aligned to the window.
func (w Window) Highs() []float64 {
	out := make([]float64, len(w))
	for i, c := range w {
		out[i] = c.High
	}
	return out
}

// Lows returns the low prices aligned to the window.
func (w Window) Lows() []float64 {
	out := make([]float64, len(w))
	for i, c := range w {
		out[i] = c.Low
	}
	return out
}

// Volumes returns the volumes aligned to the window.
func (w Window) Volumes() []float64 {
	out := make([]float64, len(w))
	for i, c := range w {
		out[i] = c.Volume
	}
	return out
}

// Validate checks the shape of the window: finite, positive prices, high >= low,
// non-negative volume and strictly increasing timestamps.
func (w Window) Validate() error {
	for i, c := range w {
		for _, v := range []float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("candle %d: non-finite value", i)
			}
		}
		if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
			return fmt.Errorf("candle %d: prices must be positive", i)
		}
		if c.High < c.Low {
			return fmt.Errorf("candle %d: high %.8f below low %.8f", i, c.High, c.Low)
		}
		if c.Volume < 0 {
			return fmt.Errorf("candle %d: negative volume", i)
		}
		if i > 0 && !c.Time.After(w[i-1].Time) {
			return fmt.Errorf("candle %d: timestamps not strictly increasing", i)
		}
	}
	return nil
}
