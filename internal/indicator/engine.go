package indicator

import (
	talib "github.com/markcheno/go-talib"

	"SignalForge/internal/domain/models"
)

const (
	rsiPeriod       = 14
	rsiFastPeriod   = 2
	macdFast        = 12
	macdSlow        = 26
	macdSignal      = 9
	adxPeriod       = 14
	atrPeriod       = 14
	mfiPeriod       = 14
	bbPeriod        = 20
	bbDeviations    = 2.0
	volumeSMAPeriod = 20

	defaultVolatilityWindow = 20
)

// Lookbacks (number of leading bars without a value) of the go-talib functions used.
const (
	macdLookback = (macdSlow - 1) + (macdSignal - 1)
	adxLookback  = 2*adxPeriod - 1
)

// Engine computes the indicator Set for a window. It holds no per-window
// state and is safe for concurrent use.
type Engine struct {
	volatilityWindow int
}

// Option configures an Engine.
type Option func(*Engine)

// WithVolatilityWindow sets the number of log returns used for realized volatility.
func WithVolatilityWindow(n int) Option {
	return func(e *Engine) {
		if n > 1 {
			e.volatilityWindow = n
		}
	}
}

// NewEngine creates an Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{volatilityWindow: defaultVolatilityWindow}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compute builds the Set for w. It never panics on short input: every
// indicator whose lookback exceeds the window comes back as an empty Series.
func (e *Engine) Compute(w models.Window, timeframe string) *Set {
	n := len(w)
	closes := w.Closes()
	highs := w.Highs()
	lows := w.Lows()
	vols := w.Volumes()

	s := &Set{Len: n}

	s.RSI14 = rsi(closes, rsiPeriod)
	s.RSI2 = rsi(closes, rsiFastPeriod)

	if n > macdLookback {
		line, signal, hist := talib.Macd(closes, macdFast, macdSlow, macdSignal)
		s.MACD = mask(line, macdLookback)
		s.MACDSignal = mask(signal, macdLookback)
		s.MACDHist = mask(hist, macdLookback)
	} else {
		s.MACD, s.MACDSignal, s.MACDHist = Empty(), Empty(), Empty()
	}

	if n > adxLookback {
		s.ADX14 = mask(talib.Adx(highs, lows, closes, adxPeriod), adxLookback)
	} else {
		s.ADX14 = Empty()
	}
	if n > adxPeriod {
		s.PlusDI = mask(talib.PlusDI(highs, lows, closes, adxPeriod), adxPeriod)
		s.MinusDI = mask(talib.MinusDI(highs, lows, closes, adxPeriod), adxPeriod)
	} else {
		s.PlusDI, s.MinusDI = Empty(), Empty()
	}
	if n > atrPeriod {
		s.ATR14 = mask(talib.Atr(highs, lows, closes, atrPeriod), atrPeriod)
	} else {
		s.ATR14 = Empty()
	}
	if n > mfiPeriod {
		s.MFI14 = mask(talib.Mfi(highs, lows, closes, vols, mfiPeriod), mfiPeriod)
	} else {
		s.MFI14 = Empty()
	}

	s.EMA21 = ema(closes, 21)
	s.EMA50 = ema(closes, 50)
	s.EMA200 = ema(closes, 200)

	if n >= bbPeriod {
		upper, middle, lower := talib.BBands(closes, bbPeriod, bbDeviations, bbDeviations, talib.SMA)
		s.BBUpper = mask(upper, bbPeriod-1)
		s.BBMiddle = mask(middle, bbPeriod-1)
		s.BBLower = mask(lower, bbPeriod-1)
		s.BBWidth = bandWidth(s.BBUpper, s.BBMiddle, s.BBLower)
	} else {
		s.BBUpper, s.BBMiddle, s.BBLower, s.BBWidth = Empty(), Empty(), Empty(), Empty()
	}

	s.VolumeSMA20 = SMA(vols, volumeSMAPeriod)
	if n > 0 {
		s.OBV = Series(talib.Obv(closes, vols))
	} else {
		s.OBV = Empty()
	}

	s.VWAP = VWAP(w)
	s.UpperWick, s.LowerWick, s.BodyRatio = CandleShape(w)
	s.LogReturns = LogReturns(w)
	s.Volatility = RealizedVolatility(s.LogReturns, e.volatilityWindow, BarsPerYear(timeframe))

	return s
}

func rsi(closes []float64, period int) Series {
	if len(closes) <= period {
		return Empty()
	}
	return mask(talib.Rsi(closes, period), period)
}

func ema(closes []float64, period int) Series {
	if len(closes) < period {
		return Empty()
	}
	return mask(talib.Ema(closes, period), period-1)
}

func bandWidth(upper, middle, lower Series) Series {
	out := nanSeries(len(middle))
	for i := range middle {
		if Finite(middle[i]) && middle[i] != 0 && Finite(upper[i]) && Finite(lower[i]) {
			out[i] = (upper[i] - lower[i]) / middle[i]
		}
	}
	return out
}
