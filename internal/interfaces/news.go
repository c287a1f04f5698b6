package interfaces

import (
	"context"

	"market-watch-bot/internal/types"
)

type HeadlineSource interface {
	Headlines(ctx context.Context, limit int) ([]types.Headline, error)
}
