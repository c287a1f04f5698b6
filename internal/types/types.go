package types

import (
	"fmt"
	"time"
)

type Candle struct {
	Ts                          int64
	Open, High, Low, Close, Vol float64
}

// Snapshot is one immutable bundle of indicator values for a symbol/timeframe.
// A nil field is unknown and must never be treated as zero when deciding.
type Snapshot struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	At        time.Time `json:"at"`

	Price        *float64 `json:"price,omitempty"`
	PrevClose    *float64 `json:"prev_close,omitempty"`
	RSI          *float64 `json:"rsi,omitempty"`
	ADX          *float64 `json:"adx,omitempty"`
	MACD         *float64 `json:"macd,omitempty"`
	MACDSignal   *float64 `json:"macd_signal,omitempty"`
	Hist         *float64 `json:"hist,omitempty"`
	SMA10        *float64 `json:"sma_10,omitempty"`
	SMA25        *float64 `json:"sma_25,omitempty"`
	SMA50        *float64 `json:"sma_50,omitempty"`
	CMF          *float64 `json:"cmf,omitempty"`
	BBLow        *float64 `json:"bb_low,omitempty"`
	BBMedium     *float64 `json:"bb_medium,omitempty"`
	BBHigh       *float64 `json:"bb_high,omitempty"`
	BTCDominance *float64 `json:"btc_dominance,omitempty"`

	VolumeLevel string `json:"volume_level,omitempty"`
}

// F returns a pointer to v. Handy for building snapshots.
func F(v float64) *float64 {
	return &v
}

// Fmt formats an optional value for display, "N/D" when unknown.
func Fmt(v *float64, decimals int) string {
	if v == nil {
		return "N/D"
	}
	return fmt.Sprintf("%.*f", decimals, *v)
}

// Or returns *v, or def when v is unknown. Display only.
func Or(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// Quote is a market-wide figure set for one asset.
type Quote struct {
	Symbol    string
	Price     float64
	MarketCap float64
	Volume24h float64
	Change24h float64
}

// Mover is one entry of the top gainers/losers list.
type Mover struct {
	Symbol    string
	Name      string
	Price     float64
	Change24h float64
}

// Headline is one news item ready for display.
type Headline struct {
	Title       string
	URL         string
	Source      string
	PublishedAt time.Time
	Summary     string `json:",omitempty"`
}

// Photo is an image to deliver, either by URL or raw bytes.
type Photo struct {
	URL     string
	Data    []byte
	Caption string
}
