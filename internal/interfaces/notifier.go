package interfaces

import (
	"context"

	"market-watch-bot/internal/types"
)

// Channel selects a destination topic on the messaging endpoint.
type Channel string

const (
	ChannelGeneral   Channel = "general"
	ChannelSignals   Channel = "signals"
	ChannelAssistant Channel = "assistant"
)

// Notifier delivers messages. Callers log failures and move on.
type Notifier interface {
	Send(ctx context.Context, channel Channel, text string) error
	SendPhoto(ctx context.Context, channel Channel, photo types.Photo) error
}
