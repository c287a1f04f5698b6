package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"market-watch-bot/internal/interfaces"
	"market-watch-bot/internal/types"
)

// Console prints messages instead of delivering them. Used when Telegram is
// disabled and for dry runs.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

var _ interfaces.Notifier = (*Console)(nil)

func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{out: out}
}

func (c *Console) Send(ctx context.Context, channel interfaces.Channel, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "[%s] %s\n", channel, text)
	return err
}

func (c *Console) SendPhoto(ctx context.Context, channel interfaces.Channel, photo types.Photo) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	src := photo.URL
	if src == "" {
		src = fmt.Sprintf("<%d bytes>", len(photo.Data))
	}
	_, err := fmt.Fprintf(c.out, "[%s] photo %s %s\n", channel, src, photo.Caption)
	return err
}
