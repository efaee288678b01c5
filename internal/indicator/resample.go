package indicator

import (
	talib "github.com/markcheno/go-talib"

	"SignalForge/internal/domain/models"
)

// Resample aggregates every `factor` consecutive candles into one, aligned so
// that the last output candle ends at the last input candle. Leading candles
// that do not fill a complete group are dropped.
func Resample(w models.Window, factor int) models.Window {
	if factor <= 1 {
		return w
	}
	groups := len(w) / factor
	if groups == 0 {
		return models.Window{}
	}
	out := make(models.Window, 0, groups)
	for start := len(w) - groups*factor; start < len(w); start += factor {
		g := w[start : start+factor]
		c := models.Candle{
			Time:  g[0].Time,
			Open:  g[0].Open,
			High:  g[0].High,
			Low:   g[0].Low,
			Close: g[len(g)-1].Close,
		}
		for _, x := range g {
			c.High = max(c.High, x.High)
			c.Low = min(c.Low, x.Low)
			c.Volume += x.Volume
		}
		out = append(out, c)
	}
	return out
}

// SMA is a simple moving average with the lookback masked as NaN. It returns
// an empty Series when vals is shorter than period.
func SMA(vals []float64, period int) Series {
	if period <= 0 || len(vals) < period {
		return Empty()
	}
	return mask(talib.Sma(vals, period), period-1)
}
