package interfaces

import "context"

// Reasoner turns a prompt into a free-text answer.
type Reasoner interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
