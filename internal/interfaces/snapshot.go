package interfaces

import (
	"context"

	"market-watch-bot/internal/types"
)

// SnapshotProvider returns the latest indicator snapshot for symbol/timeframe.
// A returned error means no data this tick.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, symbol, timeframe string) (types.Snapshot, error)
}

// CandleSource fetches the most recent OHLCV candles, oldest first.
type CandleSource interface {
	Candles(ctx context.Context, symbol, timeframe string, limit int) ([]types.Candle, error)
}

// DominanceSource reports the current BTC market dominance percentage.
type DominanceSource interface {
	Dominance(ctx context.Context) (float64, error)
}

// MarketData covers the market-wide figures used by the calendar reports.
type MarketData interface {
	Quote(ctx context.Context, symbol string) (types.Quote, error)
	TopMovers(ctx context.Context, n int) (gainers, losers []types.Mover, err error)
}
