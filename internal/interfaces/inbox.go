package interfaces

import (
	"context"
	"time"
)

// Inbound is one user message received from the messaging endpoint.
// Channel is empty for messages outside the configured threads.
type Inbound struct {
	UpdateID int64
	Channel  Channel
	Username string
	Text     string
	SentAt   time.Time
}

// Inbox yields the messages received since the previous Poll.
type Inbox interface {
	Poll(ctx context.Context) ([]Inbound, error)
}
