package market

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"market-watch-bot/internal/api"
	"market-watch-bot/internal/interfaces"
	"market-watch-bot/internal/types"
)

const coinbaseBaseURL = "https://api.exchange.coinbase.com"

// coinbase only serves these granularities, in seconds.
var granularities = map[string]int{
	"1m":  60,
	"5m":  300,
	"15m": 900,
	"1h":  3600,
	"6h":  21600,
	"1d":  86400,
}

// Coinbase fetches OHLCV candles from the Coinbase Exchange public API.
type Coinbase struct {
	client *api.Client
	retry  *api.RetryConfig
}

var _ interfaces.CandleSource = (*Coinbase)(nil)

// NewCoinbase retries each fetch up to attempts times, wait apart.
func NewCoinbase(attempts int, wait time.Duration, opts ...api.ClientOption) *Coinbase {
	opts = append([]api.ClientOption{api.WithBaseURL(coinbaseBaseURL), api.WithTimeout(15 * time.Second)}, opts...)
	return &Coinbase{
		client: api.NewClient(opts...),
		retry:  api.FixedRetry(attempts, wait),
	}
}

// ProductID maps "BTC/USDT" to "BTC-USDT".
func ProductID(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "/", "-"))
}

// Candles returns up to limit candles, oldest first.
func (c *Coinbase) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]types.Candle, error) {
	g, ok := granularities[timeframe]
	if !ok {
		return nil, fmt.Errorf("unsupported timeframe %q", timeframe)
	}

	path := fmt.Sprintf("/products/%s/candles?granularity=%d", ProductID(symbol), g)
	req := api.NewRequest(http.MethodGet, path).
		WithContext(ctx).
		WithHeader("User-Agent", "market-watch-bot")

	resp, err := c.client.DoWithRetry(req, c.retry)
	if err != nil {
		return nil, fmt.Errorf("coinbase candles %s %s: %w", symbol, timeframe, err)
	}

	// [time, low, high, open, close, volume], newest first
	var rows [][]float64
	if err := resp.ParseJSON(&rows); err != nil {
		return nil, err
	}

	out := make([]types.Candle, 0, len(rows))
	for _, r := range rows {
		if len(r) < 6 {
			continue
		}
		out = append(out, types.Candle{
			Ts:    int64(r[0]),
			Low:   r[1],
			High:  r[2],
			Open:  r[3],
			Close: r[4],
			Vol:   r[5],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ts < out[j].Ts })

	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}
