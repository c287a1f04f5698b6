package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"market-watch-bot/internal/api"
	"market-watch-bot/internal/store"
	"market-watch-bot/internal/trace"
)

const defaultEndpoint = "https://api.openai.com/v1/chat/completions"

// Reasoner answers free-text prompts through the chat completions API.
type Reasoner struct {
	cfg      *store.Config
	client   *api.Client
	endpoint string
	apiKey   string
}

func NewReasoner(cfg *store.Config, opts ...api.ClientOption) *Reasoner {
	endpoint := defaultEndpoint
	if ep := os.Getenv("OPENAI_API_ENDPOINT"); ep != "" {
		endpoint = ep
	}
	return &Reasoner{
		cfg:      cfg,
		client:   api.NewClient(opts...),
		endpoint: endpoint,
		apiKey:   os.Getenv("OPENAI_API_KEY"),
	}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (r *Reasoner) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "openai-api-call")
	defer span.End()

	if r.apiKey == "" {
		return "", errors.New("OPENAI_API_KEY missing")
	}

	body := map[string]any{
		"model": r.cfg.LLM.Model,
		"messages": []map[string]string{
			{"role": "system", "content": r.cfg.LLM.System},
			{"role": "user", "content": prompt},
		},
		"temperature": r.cfg.LLM.Temperature,
		"max_tokens":  r.cfg.LLM.MaxTokens,
	}

	resp, err := r.client.POST(ctx, r.endpoint, body, map[string]string{
		"Authorization": "Bearer " + r.apiKey,
	})
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}

	var out chatResponse
	if err := resp.ParseJSON(&out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", errors.New("openai: no choices")
	}
	answer := strings.TrimSpace(out.Choices[0].Message.Content)
	if answer == "" {
		return "", errors.New("openai: empty answer")
	}
	return answer, nil
}
