package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"market-watch-bot/internal/interfaces"
	"market-watch-bot/internal/logger"
	"market-watch-bot/internal/ta"
	"market-watch-bot/internal/types"
)

// ErrNoData means no snapshot could be built this tick.
var ErrNoData = errors.New("no market data")

// Provider builds indicator snapshots from a candle source plus the cached
// dominance figure.
type Provider struct {
	Candles   interfaces.CandleSource
	Dominance interfaces.DominanceSource
	Limit     int
	Clock     interfaces.Clock
}

var _ interfaces.SnapshotProvider = (*Provider)(nil)

func (p *Provider) Snapshot(ctx context.Context, symbol, timeframe string) (types.Snapshot, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 100
	}
	candles, err := p.Candles.Candles(ctx, symbol, timeframe, limit)
	if err != nil {
		return types.Snapshot{}, fmt.Errorf("%w: %v", ErrNoData, err)
	}
	if len(candles) == 0 {
		return types.Snapshot{}, fmt.Errorf("%w: empty candle set for %s %s", ErrNoData, symbol, timeframe)
	}

	ind := ta.Compute(candles)
	snap := types.Snapshot{
		Symbol:      symbol,
		Timeframe:   timeframe,
		At:          p.now(),
		Price:       ind.Price,
		PrevClose:   ind.PrevClose,
		RSI:         ind.RSI,
		ADX:         ind.ADX,
		MACD:        ind.MACD,
		MACDSignal:  ind.MACDSignal,
		Hist:        ind.Hist,
		SMA10:       ind.SMA10,
		SMA25:       ind.SMA25,
		SMA50:       ind.SMA50,
		CMF:         ind.CMF,
		BBLow:       ind.BBLow,
		BBMedium:    ind.BBMedium,
		BBHigh:      ind.BBHigh,
		VolumeLevel: ind.VolumeLevel,
	}

	if p.Dominance != nil {
		d, err := p.Dominance.Dominance(ctx)
		if err != nil {
			logger.Warn(ctx, "BTC dominance unavailable", "error", err)
		} else {
			snap.BTCDominance = types.F(d)
		}
	}
	return snap, nil
}

func (p *Provider) now() time.Time {
	if p.Clock == nil {
		return time.Now()
	}
	return p.Clock.Now()
}
