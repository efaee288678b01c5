// Package testutil builds candle windows for package tests.
package testutil

import (
	"time"

	"SignalForge/internal/domain/models"
)

// Start is the timestamp of the first candle of every generated window.
var Start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Flat returns n candles of 15 minutes around price with a 1% range.
func Flat(n int, price float64) models.Window {
	return Trend(n, price, 0)
}

// Trend returns n candles whose close moves by step per bar.
func Trend(n int, start, step float64) models.Window {
	w := make(models.Window, n)
	price := start
	for i := 0; i < n; i++ {
		open := price
		closePrice := price + step
		high := max(open, closePrice) * 1.005
		low := min(open, closePrice) * 0.995
		w[i] = models.Candle{
			Time:   Start.Add(time.Duration(i) * 15 * time.Minute),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: 1000,
		}
		price = closePrice
	}
	return w
}

// WithLast returns a copy of w with the final candle replaced by c (its time is kept).
func WithLast(w models.Window, c models.Candle) models.Window {
	out := append(models.Window(nil), w...)
	c.Time = out[len(out)-1].Time
	out[len(out)-1] = c
	return out
}
