package ta

import (
	"math"

	talib "github.com/markcheno/go-talib"

	"market-watch-bot/internal/types"
)

// Periods used for the snapshot indicators.
const (
	RSIPeriod    = 14
	ADXPeriod    = 14
	MACDFast     = 12
	MACDSlow     = 26
	MACDSignal   = 9
	BBPeriod     = 20
	BBDeviations = 2.0
	CMFPeriod    = 20
)

// Indicators is the subset of a snapshot derived purely from candles.
type Indicators struct {
	Price, PrevClose        *float64
	RSI, ADX                *float64
	MACD, MACDSignal, Hist  *float64
	SMA10, SMA25, SMA50     *float64
	CMF                     *float64
	BBLow, BBMedium, BBHigh *float64
	VolumeLevel             string
}

// Compute derives every indicator it has enough candles for. Values needing
// a longer window than available are left nil.
func Compute(candles []types.Candle) Indicators {
	var out Indicators
	n := len(candles)
	if n == 0 {
		return out
	}

	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	vols := make([]float64, n)
	for i, c := range candles {
		highs[i], lows[i], closes[i], vols[i] = c.High, c.Low, c.Close, c.Vol
	}

	out.Price = finite(closes[n-1])
	if n >= 2 {
		out.PrevClose = finite(closes[n-2])
	}

	out.SMA10 = SMA(closes, 10)
	out.SMA25 = SMA(closes, 25)
	out.SMA50 = SMA(closes, 50)

	if n > RSIPeriod {
		out.RSI = last(talib.Rsi(closes, RSIPeriod))
	}
	if n >= 2*ADXPeriod {
		out.ADX = last(talib.Adx(highs, lows, closes, ADXPeriod))
	}

	out.MACD, out.MACDSignal, out.Hist = MACD(closes)

	if n >= BBPeriod {
		upper, middle, lower := talib.BBands(closes, BBPeriod, BBDeviations, BBDeviations, talib.SMA)
		out.BBHigh, out.BBMedium, out.BBLow = last(upper), last(middle), last(lower)
	}

	out.CMF = CMF(highs, lows, closes, vols, CMFPeriod)
	out.VolumeLevel = VolumeLevel(out.CMF)
	return out
}

// SMA is the simple moving average of the last period closes.
func SMA(closes []float64, period int) *float64 {
	if period <= 0 || len(closes) < period {
		return nil
	}
	return last(talib.Sma(closes, period))
}

// MACD returns the EMA12-EMA26 line, a 9-period simple average of that line
// as the signal, and their difference.
func MACD(closes []float64) (line, signal, hist *float64) {
	n := len(closes)
	if n < MACDSlow {
		return nil, nil, nil
	}
	fast := talib.Ema(closes, MACDFast)
	slow := talib.Ema(closes, MACDSlow)

	// EMA outputs are zero until their lookback is filled
	start := MACDSlow - 1
	series := make([]float64, 0, n-start)
	for i := start; i < n; i++ {
		series = append(series, fast[i]-slow[i])
	}
	line = finite(series[len(series)-1])

	if len(series) < MACDSignal {
		return line, nil, nil
	}
	signal = last(talib.Sma(series, MACDSignal))
	if line != nil && signal != nil {
		hist = finite(*line - *signal)
	}
	return line, signal, hist
}

// CMF is Chaikin Money Flow over the trailing period.
func CMF(highs, lows, closes, vols []float64, period int) *float64 {
	n := len(closes)
	if period <= 0 || n < period || len(highs) != n || len(lows) != n || len(vols) != n {
		return nil
	}
	var mfv, vol float64
	for i := n - period; i < n; i++ {
		rng := highs[i] - lows[i]
		if rng > 0 {
			mfm := ((closes[i] - lows[i]) - (highs[i] - closes[i])) / rng
			mfv += mfm * vols[i]
		}
		vol += vols[i]
	}
	if vol == 0 {
		return nil
	}
	return finite(mfv / vol)
}

// VolumeLevel buckets CMF into a human label.
func VolumeLevel(cmf *float64) string {
	switch {
	case cmf == nil:
		return "unknown"
	case *cmf > 0.1:
		return "high"
	case *cmf < -0.1:
		return "low"
	default:
		return "moderate"
	}
}

func last(series []float64) *float64 {
	if len(series) == 0 {
		return nil
	}
	return finite(series[len(series)-1])
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
