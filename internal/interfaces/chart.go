package interfaces

import (
	"context"

	"market-watch-bot/internal/types"
)

// ChartRenderer renders a candlestick chart and returns a deliverable photo.
type ChartRenderer interface {
	Render(ctx context.Context, title string, candles []types.Candle) (types.Photo, error)
}
