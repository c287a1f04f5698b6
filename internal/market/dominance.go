package market

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"market-watch-bot/internal/cache"
	"market-watch-bot/internal/interfaces"
	"market-watch-bot/internal/logger"
)

const dominanceKey = "btc_dominance"

// DominanceCache serves BTC dominance from a cache refreshed on its own period,
// so the signal loop does not call the upstream on every tick.
type DominanceCache struct {
	Source interfaces.DominanceSource
	Cache  cache.Cache
	TTL    time.Duration
}

var _ interfaces.DominanceSource = (*DominanceCache)(nil)

// Dominance returns the cached value, fetching it on a miss.
func (d *DominanceCache) Dominance(ctx context.Context) (float64, error) {
	b, ok, err := d.Cache.GetBytes(ctx, dominanceKey)
	if err != nil {
		logger.Warn(ctx, "Dominance cache read failed", "error", err)
	}
	if ok {
		v, perr := strconv.ParseFloat(string(b), 64)
		if perr == nil {
			return v, nil
		}
		logger.Warn(ctx, "Discarding malformed cached dominance", "value", string(b))
	}
	return d.refresh(ctx)
}

// Refresh fetches and stores a fresh value.
func (d *DominanceCache) Refresh(ctx context.Context) error {
	_, err := d.refresh(ctx)
	return err
}

func (d *DominanceCache) refresh(ctx context.Context) (float64, error) {
	v, err := d.Source.Dominance(ctx)
	if err != nil {
		return 0, fmt.Errorf("refresh dominance: %w", err)
	}
	if err := d.Cache.SetBytes(ctx, dominanceKey, []byte(strconv.FormatFloat(v, 'f', -1, 64)), d.TTL); err != nil {
		logger.Warn(ctx, "Dominance cache write failed", "error", err)
	}
	logger.Debug(ctx, "BTC dominance refreshed", "dominance", v)
	return v, nil
}
