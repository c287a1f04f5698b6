package market

import (
	"context"
	"fmt"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"market-watch-bot/internal/interfaces"
	"market-watch-bot/internal/types"
)

var kiteIntervals = map[string]struct {
	name string
	step time.Duration
}{
	"1m":  {"minute", time.Minute},
	"5m":  {"5minute", 5 * time.Minute},
	"15m": {"15minute", 15 * time.Minute},
	"1h":  {"60minute", time.Hour},
	"1d":  {"day", 24 * time.Hour},
}

// historicalClient is the part of kiteconnect.Client the candle source uses.
type historicalClient interface {
	GetHistoricalData(instrumentToken int, interval string, fromDate time.Time, toDate time.Time, continuous bool, OI bool) ([]kiteconnect.HistoricalData, error)
}

// Kite serves candles from the Zerodha Kite Connect historical API. Symbols
// are resolved to instrument tokens through a configured map.
type Kite struct {
	kc          historicalClient
	instruments map[string]int
	now         func() time.Time
}

var _ interfaces.CandleSource = (*Kite)(nil)

func NewKite(apiKey, accessToken string, instruments map[string]int) *Kite {
	kc := kiteconnect.New(apiKey)
	kc.SetAccessToken(accessToken)
	return &Kite{kc: kc, instruments: instruments, now: time.Now}
}

func (k *Kite) Candles(_ context.Context, symbol, timeframe string, limit int) ([]types.Candle, error) {
	token, ok := k.instruments[symbol]
	if !ok {
		return nil, fmt.Errorf("no kite instrument token for %s", symbol)
	}
	iv, ok := kiteIntervals[timeframe]
	if !ok {
		return nil, fmt.Errorf("timeframe %q not served by kite", timeframe)
	}
	if limit <= 0 {
		limit = 100
	}

	// Exchange sessions leave gaps, so ask for three times the span and trim.
	to := k.now()
	from := to.Add(-3 * time.Duration(limit) * iv.step)

	rows, err := k.kc.GetHistoricalData(token, iv.name, from, to, false, false)
	if err != nil {
		return nil, fmt.Errorf("kite historical %s: %w", symbol, err)
	}

	out := make([]types.Candle, 0, len(rows))
	for _, r := range rows {
		out = append(out, types.Candle{
			Ts:    r.Date.Time.Unix(),
			Open:  r.Open,
			High:  r.High,
			Low:   r.Low,
			Close: r.Close,
			Vol:   float64(r.Volume),
		})
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}
