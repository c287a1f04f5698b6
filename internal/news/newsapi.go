package news

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"market-watch-bot/internal/api"
	"market-watch-bot/internal/types"
)

const newsAPIBaseURL = "https://newsapi.org"

// NewsAPI queries newsapi.org for recent articles matching a query.
type NewsAPI struct {
	client *api.Client
	apiKey string
	query  string
}

func NewNewsAPI(apiKey, query string, opts ...api.ClientOption) *NewsAPI {
	if query == "" {
		query = "bitcoin OR crypto"
	}
	opts = append([]api.ClientOption{api.WithBaseURL(newsAPIBaseURL), api.WithTimeout(15 * time.Second)}, opts...)
	return &NewsAPI{client: api.NewClient(opts...), apiKey: apiKey, query: query}
}

func (n *NewsAPI) Headlines(ctx context.Context, limit int) ([]types.Headline, error) {
	if n.apiKey == "" {
		return nil, errors.New("NEWS_API_KEY missing")
	}
	if limit <= 0 {
		limit = 10
	}
	q := url.Values{}
	q.Set("q", n.query)
	q.Set("language", "en")
	q.Set("sortBy", "publishedAt")
	q.Set("pageSize", fmt.Sprint(limit))

	resp, err := n.client.GET(ctx, "/v2/everything?"+q.Encode(), map[string]string{"X-Api-Key": n.apiKey})
	if err != nil {
		return nil, fmt.Errorf("newsapi: %w", err)
	}

	var body struct {
		Status   string `json:"status"`
		Message  string `json:"message"`
		Articles []struct {
			Title       string    `json:"title"`
			URL         string    `json:"url"`
			Description string    `json:"description"`
			PublishedAt time.Time `json:"publishedAt"`
			Source      struct {
				Name string `json:"name"`
			} `json:"source"`
		} `json:"articles"`
	}
	if err := resp.ParseJSON(&body); err != nil {
		return nil, err
	}
	if body.Status != "ok" {
		return nil, fmt.Errorf("newsapi: %s", body.Message)
	}

	out := make([]types.Headline, 0, len(body.Articles))
	for _, a := range body.Articles {
		out = append(out, types.Headline{
			Title:       a.Title,
			URL:         a.URL,
			Source:      a.Source.Name,
			PublishedAt: a.PublishedAt,
			Summary:     truncate(a.Description, 200),
		})
	}
	return out, nil
}
