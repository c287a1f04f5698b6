package claude

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"market-watch-bot/internal/api"
	"market-watch-bot/internal/store"
	"market-watch-bot/internal/trace"
)

const (
	defaultEndpoint = "https://api.anthropic.com/v1/messages"
	apiVersion      = "2023-06-01"
)

// Reasoner answers free-text prompts through the Anthropic Messages API.
type Reasoner struct {
	cfg      *store.Config
	client   *api.Client
	endpoint string
	apiKey   string
}

func NewReasoner(cfg *store.Config, opts ...api.ClientOption) *Reasoner {
	// default messages endpoint (public Anthropic)
	endpoint := defaultEndpoint
	// If you use a proxy, set endpoint via CLAUDE_API_ENDPOINT env var
	if ep := os.Getenv("CLAUDE_API_ENDPOINT"); ep != "" {
		endpoint = ep
	}
	return &Reasoner{
		cfg:      cfg,
		client:   api.NewClient(opts...),
		endpoint: endpoint,
		apiKey:   os.Getenv("CLAUDE_API_KEY"),
	}
}

func (r *Reasoner) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "claude-api-call")
	defer span.End()

	if r.apiKey == "" {
		return "", errors.New("CLAUDE_API_KEY missing")
	}

	reqBody := map[string]any{
		"model":  r.cfg.LLM.Model,
		"system": r.cfg.LLM.System,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens":  r.cfg.LLM.MaxTokens,
		"temperature": r.cfg.LLM.Temperature,
	}

	resp, err := r.client.POST(ctx, r.endpoint, reqBody, map[string]string{
		"x-api-key":         r.apiKey,
		"anthropic-version": apiVersion,
	})
	if err != nil {
		return "", fmt.Errorf("claude request: %w", err)
	}

	answer := extractText(resp.Body)
	if answer == "" {
		return "", errors.New("claude: empty answer")
	}
	return answer, nil
}

// extractText pulls the assistant text out of a Messages API response. Proxies
// that reshape the payload are tolerated; anything unparseable is used verbatim.
func extractText(body []byte) string {
	var msg struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Completion string `json:"completion"`
	}
	if err := json.Unmarshal(body, &msg); err != nil {
		return strings.TrimSpace(string(body))
	}

	var b strings.Builder
	for _, c := range msg.Content {
		if c.Type == "text" || c.Type == "" {
			b.WriteString(c.Text)
		}
	}
	if b.Len() > 0 {
		return strings.TrimSpace(b.String())
	}
	return strings.TrimSpace(msg.Completion)
}
