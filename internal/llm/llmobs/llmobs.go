package llmobs

import (
	"context"

	"market-watch-bot/internal/interfaces"
	"market-watch-bot/internal/logger"
	"market-watch-bot/internal/trace"
)

// observableReasoner wraps a Reasoner with observability (logging & tracing)
type observableReasoner struct {
	reasoner interfaces.Reasoner
	provider string
}

var _ interfaces.Reasoner = (*observableReasoner)(nil)

// Wrap wraps a reasoner with observability middleware
func Wrap(reasoner interfaces.Reasoner, provider string) interfaces.Reasoner {
	return &observableReasoner{reasoner: reasoner, provider: provider}
}

func (o *observableReasoner) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Complete")
	defer span.End()

	// Skip(1) reports the actual caller, not this wrapper
	logger.DebugSkip(ctx, 1, "Requesting completion", "provider", o.provider, "prompt_len", len(prompt))

	timer := logger.StartOperation(ctx, "llm.Complete", "provider", o.provider)
	answer, err := o.reasoner.Complete(ctx, prompt)
	if err != nil {
		timer.EndWithError(err)
		logger.ErrorWithErrSkip(ctx, 1, "Completion failed", err, "provider", o.provider)
		return "", err
	}
	d := timer.End()

	logger.InfoSkip(ctx, 1, "Completion received", "provider", o.provider, "answer_len", len(answer), "duration", d)
	return answer, nil
}
