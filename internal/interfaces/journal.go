package interfaces

import "context"

// Journal keeps a record of what the bot said and to whom.
type Journal interface {
	Record(ctx context.Context, username, content string) error
}
