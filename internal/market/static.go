package market

import (
	"context"
	"math"
	"math/rand"
	"time"

	"market-watch-bot/internal/interfaces"
	"market-watch-bot/internal/types"
)

// Static generates a synthetic random-walk series for offline runs and demos.
type Static struct {
	Base float64
	Seed int64
	Now  func() time.Time
}

var _ interfaces.CandleSource = (*Static)(nil)

func (s *Static) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]types.Candle, error) {
	step := time.Duration(granularities[timeframe]) * time.Second
	if step == 0 {
		step = time.Hour
	}
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	base := s.Base
	if base == 0 {
		base = 30000
	}
	rng := rand.New(rand.NewSource(s.Seed))

	cs := make([]types.Candle, 0, limit)
	price := base
	end := now.Truncate(step)
	for i := limit; i > 0; i-- {
		open := price
		price = math.Max(1, price*(1+(rng.Float64()-0.5)*0.01))
		hi := math.Max(open, price) * (1 + rng.Float64()*0.002)
		lo := math.Min(open, price) * (1 - rng.Float64()*0.002)
		cs = append(cs, types.Candle{
			Ts:    end.Add(-time.Duration(i-1) * step).Unix(),
			Open:  open,
			High:  hi,
			Low:   lo,
			Close: price,
			Vol:   100 + rng.Float64()*1000,
		})
	}
	return cs, nil
}
