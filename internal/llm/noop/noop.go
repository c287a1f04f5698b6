package noop

import (
	"context"

	"market-watch-bot/internal/logger"
)

// Reasoner is the fallback used when no LLM provider is configured. It echoes
// the prompt back so scheduled tasks still complete and are visible.
type Reasoner struct{}

func NewReasoner() *Reasoner {
	return &Reasoner{}
}

func (r *Reasoner) Complete(ctx context.Context, prompt string) (string, error) {
	logger.Debug(ctx, "Noop reasoner called", "prompt_len", len(prompt))
	return "Reminder: " + prompt, nil
}
