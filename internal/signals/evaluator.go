package signals

import (
	"market-watch-bot/internal/store"
	"market-watch-bot/internal/types"
)

// Verdict is the outcome of evaluating one directional signal kind.
type Verdict int

const (
	// Unknown means required inputs were missing.
	Unknown Verdict = iota
	// NoSignal means inputs were known but no branch matched.
	NoSignal
	Long
	Short
)

func (v Verdict) String() string {
	switch v {
	case NoSignal:
		return "no-signal"
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "unknown"
	}
}

// IsDirection reports whether v is Long or Short.
func (v Verdict) IsDirection() bool {
	return v == Long || v == Short
}

// Kind names a signal kind.
type Kind string

const (
	KindCross     Kind = "cross"
	KindConfirmed Kind = "confirmed"
	KindReversion Kind = "reversion"
	KindSqueeze   Kind = "squeeze"
)

// DirectionalKinds lists the kinds gated by last-direction, in notification order.
var DirectionalKinds = []Kind{KindCross, KindConfirmed, KindReversion}

// Thresholds holds the tunable constants of the evaluator.
type Thresholds struct {
	ConfirmedRSI    float64
	ConfirmedADX    float64
	ReversionBand   float64
	ReversionRSIHi  float64
	ReversionRSILo  float64
	ReversionADX    float64
	SqueezeMaxWidth float64
}

// DefaultThresholds are the contractual heuristic constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ConfirmedRSI:    50,
		ConfirmedADX:    20,
		ReversionBand:   0.02,
		ReversionRSIHi:  68,
		ReversionRSILo:  40,
		ReversionADX:    30,
		SqueezeMaxWidth: 0.02,
	}
}

// ThresholdsFromConfig maps the configured values onto Thresholds.
func ThresholdsFromConfig(c store.SignalThresholds) Thresholds {
	return Thresholds{
		ConfirmedRSI:    c.ConfirmedRSI,
		ConfirmedADX:    c.ConfirmedADX,
		ReversionBand:   c.ReversionBand,
		ReversionRSIHi:  c.ReversionRSIHi,
		ReversionRSILo:  c.ReversionRSILo,
		ReversionADX:    c.ReversionADX,
		SqueezeMaxWidth: c.SqueezeMaxWidth,
	}
}

// Squeeze is the volatility squeeze verdict. Known is false when inputs were missing.
type Squeeze struct {
	Active    bool
	Known     bool
	Bandwidth float64
}

// Evaluation holds one verdict per kind, each computed independently.
type Evaluation struct {
	Cross     Verdict
	Confirmed Verdict
	Reversion Verdict
	Squeeze   Squeeze
}

// Verdict returns the directional verdict for kind.
func (e Evaluation) Verdict(kind Kind) Verdict {
	switch kind {
	case KindCross:
		return e.Cross
	case KindConfirmed:
		return e.Confirmed
	case KindReversion:
		return e.Reversion
	default:
		return Unknown
	}
}

// Evaluate computes every signal verdict for s. It has no side effects.
func Evaluate(s types.Snapshot, th Thresholds) Evaluation {
	return Evaluation{
		Cross:     evalCross(s),
		Confirmed: evalConfirmed(s, th),
		Reversion: evalReversion(s, th),
		Squeeze:   evalSqueeze(s, th),
	}
}

func known(vs ...*float64) bool {
	for _, v := range vs {
		if v == nil {
			return false
		}
	}
	return true
}

func evalCross(s types.Snapshot) Verdict {
	if !known(s.MACD, s.MACDSignal) {
		return Unknown
	}
	if *s.MACD > *s.MACDSignal {
		return Long
	}
	return Short
}

func evalConfirmed(s types.Snapshot, th Thresholds) Verdict {
	if !known(s.MACD, s.MACDSignal, s.RSI, s.ADX, s.SMA10, s.SMA25) {
		return Unknown
	}
	macd, sig, rsi, adx := *s.MACD, *s.MACDSignal, *s.RSI, *s.ADX
	sma10, sma25 := *s.SMA10, *s.SMA25

	trendUp := sma10 > sma25 || (s.SMA50 != nil && sma25 > *s.SMA50)
	trendDown := sma10 < sma25 || (s.SMA50 != nil && sma25 < *s.SMA50)

	switch {
	case macd > sig && rsi > th.ConfirmedRSI && adx > th.ConfirmedADX && trendUp:
		return Long
	case macd < sig && rsi < th.ConfirmedRSI && adx < th.ConfirmedADX && trendDown:
		return Short
	default:
		return NoSignal
	}
}

func evalReversion(s types.Snapshot, th Thresholds) Verdict {
	if !known(s.BBHigh, s.BBLow, s.Price, s.RSI, s.ADX) {
		return Unknown
	}
	price, rsi, adx := *s.Price, *s.RSI, *s.ADX

	switch {
	case price >= *s.BBHigh*(1-th.ReversionBand) && rsi >= th.ReversionRSIHi && adx > th.ReversionADX:
		return Short
	case price <= *s.BBLow*(1+th.ReversionBand) && rsi <= th.ReversionRSILo && adx < th.ReversionADX:
		return Long
	default:
		return NoSignal
	}
}

func evalSqueeze(s types.Snapshot, th Thresholds) Squeeze {
	if !known(s.BBHigh, s.BBLow, s.Price) || *s.Price == 0 {
		return Squeeze{}
	}
	width := (*s.BBHigh - *s.BBLow) / *s.Price
	return Squeeze{Active: width < th.SqueezeMaxWidth, Known: true, Bandwidth: width}
}
