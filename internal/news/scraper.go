package news

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"market-watch-bot/internal/logger"
	"market-watch-bot/internal/types"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultKeywords keep a headline when its title mentions any of them.
var DefaultKeywords = []string{"bitcoin", "btc", "crypto", "ethereum", "eth", "etf", "fed", "sec", "stablecoin", "blockchain"}

// Scraper reads headlines from RSS feeds.
type Scraper struct {
	feeds    []string
	keywords []string
	timeout  time.Duration
}

// NewScraper creates a scraper over feeds. An empty keyword list keeps every item.
func NewScraper(feeds, keywords []string, timeout time.Duration) *Scraper {
	return &Scraper{feeds: feeds, keywords: keywords, timeout: timeout}
}

// Headlines collects items from every feed, keeps those matching the keywords
// and returns the newest first. A failing feed is logged and skipped.
func (s *Scraper) Headlines(ctx context.Context, limit int) ([]types.Headline, error) {
	logger.Debug(ctx, "Starting headline scrape", "feeds", len(s.feeds))

	var all []types.Headline
	var errs []string
	for _, feed := range s.feeds {
		items, err := s.scrapeFeed(ctx, feed)
		if err != nil {
			logger.ErrorWithErr(ctx, "Failed to scrape feed", err, "feed", feed)
			errs = append(errs, err.Error())
			continue
		}
		all = append(all, items...)
	}
	if len(all) == 0 && len(errs) > 0 {
		return nil, fmt.Errorf("all feeds failed: %s", strings.Join(errs, "; "))
	}

	out := Select(all, s.keywords, limit)
	logger.Debug(ctx, "Headline scrape completed", "items", len(all), "selected", len(out))
	return out, nil
}

func (s *Scraper) scrapeFeed(ctx context.Context, feed string) ([]types.Headline, error) {
	var (
		mu    sync.Mutex
		items []types.Headline
	)
	source := sourceName(feed)

	c := colly.NewCollector(colly.MaxDepth(1))
	c.SetRequestTimeout(s.timeout)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", userAgent)
	})

	c.OnXML("//item", func(e *colly.XMLElement) {
		title := strings.TrimSpace(e.ChildText("title"))
		if title == "" {
			return
		}
		h := types.Headline{
			Title:  title,
			URL:    strings.TrimSpace(e.ChildText("link")),
			Source: source,
		}
		if ts, err := parseFeedTime(e.ChildText("pubDate")); err == nil {
			h.PublishedAt = ts
		}
		mu.Lock()
		items = append(items, h)
		mu.Unlock()
	})

	var visitErr error
	c.OnError(func(r *colly.Response, err error) {
		visitErr = err
	})

	done := make(chan error, 1)
	go func() { done <- c.Visit(feed) }()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("failed to visit %s: %w", feed, err)
		}
	}
	if visitErr != nil {
		return nil, fmt.Errorf("feed %s: %w", feed, visitErr)
	}
	return items, nil
}

// ArticleText fetches a page and returns its paragraph text, capped at max runes.
func (s *Scraper) ArticleText(ctx context.Context, articleURL string, max int) (string, error) {
	c := colly.NewCollector()
	c.SetRequestTimeout(s.timeout)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", userAgent)
	})

	var body []byte
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	if err := c.Visit(articleURL); err != nil {
		return "", fmt.Errorf("fetch article %s: %w", articleURL, err)
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	return extractParagraphs(body, max)
}

func extractParagraphs(html []byte, max int) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse article: %w", err)
	}

	root := doc.Find("article, div.article-body, div.content-body, div.story-content").First()
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	var paragraphs []string
	root.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := strings.Join(strings.Fields(p.Text()), " ")
		if len(text) > 20 {
			paragraphs = append(paragraphs, text)
		}
	})
	return truncate(strings.Join(paragraphs, " "), max), nil
}

func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max])) + "…"
}

var feedTimeLayouts = []string{time.RFC1123Z, time.RFC1123, time.RFC3339, "Mon, 2 Jan 2006 15:04:05 -0700"}

func parseFeedTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range feedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized feed time %q", s)
}

// sourceName turns "https://www.coindesk.com/arc/..." into "coindesk".
func sourceName(feed string) string {
	u, err := url.Parse(feed)
	if err != nil || u.Hostname() == "" {
		return feed
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	if i := strings.Index(host, "."); i > 0 {
		return host[:i]
	}
	return host
}
