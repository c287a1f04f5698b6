package marketobs

import (
	"context"

	"market-watch-bot/internal/interfaces"
	"market-watch-bot/internal/logger"
	"market-watch-bot/internal/trace"
	"market-watch-bot/internal/types"
)

// observableProvider wraps a SnapshotProvider with observability (logging & tracing)
type observableProvider struct {
	provider interfaces.SnapshotProvider
}

var _ interfaces.SnapshotProvider = (*observableProvider)(nil)

// WrapProvider wraps a snapshot provider with observability middleware
func WrapProvider(p interfaces.SnapshotProvider) interfaces.SnapshotProvider {
	return &observableProvider{provider: p}
}

func (o *observableProvider) Snapshot(ctx context.Context, symbol, timeframe string) (types.Snapshot, error) {
	ctx, span := trace.StartSpan(ctx, "market.Snapshot")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching snapshot", "symbol", symbol, "timeframe", timeframe)

	snap, err := o.provider.Snapshot(ctx, symbol, timeframe)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch snapshot", err, "symbol", symbol, "timeframe", timeframe)
		return types.Snapshot{}, err
	}

	logger.DebugSkip(ctx, 1, "Snapshot fetched",
		"symbol", symbol,
		"price", types.Fmt(snap.Price, 2),
		"rsi", types.Fmt(snap.RSI, 2),
		"dominance", types.Fmt(snap.BTCDominance, 2),
	)
	return snap, nil
}

// observableCandles wraps a CandleSource with observability
type observableCandles struct {
	source interfaces.CandleSource
	name   string
}

var _ interfaces.CandleSource = (*observableCandles)(nil)

// WrapCandles wraps a candle source; name labels the upstream in logs.
func WrapCandles(src interfaces.CandleSource, name string) interfaces.CandleSource {
	return &observableCandles{source: src, name: name}
}

func (o *observableCandles) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]types.Candle, error) {
	ctx, span := trace.StartSpan(ctx, "market.Candles")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching candles", "source", o.name, "symbol", symbol, "timeframe", timeframe, "limit", limit)

	candles, err := o.source.Candles(ctx, symbol, timeframe, limit)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch candles", err, "source", o.name, "symbol", symbol)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Candles fetched", "source", o.name, "symbol", symbol, "count", len(candles))
	return candles, nil
}
