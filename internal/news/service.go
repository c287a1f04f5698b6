package news

import (
	"context"
	"fmt"
	"time"

	"market-watch-bot/internal/cache"
	"market-watch-bot/internal/interfaces"
	"market-watch-bot/internal/logger"
	"market-watch-bot/internal/store"
	"market-watch-bot/internal/types"
)

const headlinesKey = "headlines"

// Service provides filtered crypto headlines with caching
type Service struct {
	scraper  *Scraper
	fallback interfaces.HeadlineSource
	cache    cache.Cache
	cfg      *ServiceConfig
}

var _ interfaces.HeadlineSource = (*Service)(nil)

// ServiceConfig configures the headline service
type ServiceConfig struct {
	MaxArticles    int           // Headlines kept per refresh
	CacheDuration  time.Duration // How long to cache headlines
	ScraperTimeout time.Duration // Timeout for each feed request
	SummaryCount   int           // Leading headlines enriched with article text
	SummaryLength  int           // Max runes of article text per summary
	Keywords       []string
}

// DefaultServiceConfig returns default configuration
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		MaxArticles:    15,
		CacheDuration:  30 * time.Minute,
		ScraperTimeout: 20 * time.Second,
		SummaryCount:   1,
		SummaryLength:  200,
		Keywords:       DefaultKeywords,
	}
}

// NewService creates a headline service over the configured feeds. fallback
// (may be nil) is queried when the feeds yield nothing.
func NewService(botCfg *store.Config, serviceCfg *ServiceConfig, c cache.Cache, fallback interfaces.HeadlineSource) *Service {
	if serviceCfg == nil {
		serviceCfg = DefaultServiceConfig()
	}
	if c == nil {
		c = cache.NewMemory(10 * time.Minute)
	}
	return &Service{
		scraper:  NewScraper(botCfg.News.Feeds, serviceCfg.Keywords, serviceCfg.ScraperTimeout),
		fallback: fallback,
		cache:    c,
		cfg:      serviceCfg,
	}
}

// Headlines returns up to limit headlines, cached or fresh.
func (s *Service) Headlines(ctx context.Context, limit int) ([]types.Headline, error) {
	var cached []types.Headline
	if ok, err := cache.GetJSON(ctx, s.cache, headlinesKey, &cached); err != nil {
		logger.Warn(ctx, "Headline cache read failed", "error", err)
	} else if ok {
		logger.Debug(ctx, "Using cached headlines", "count", len(cached))
		return head(cached, limit), nil
	}

	fresh, err := s.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	return head(fresh, limit), nil
}

// Refresh bypasses the cache and stores the new result.
func (s *Service) Refresh(ctx context.Context) ([]types.Headline, error) {
	items, err := s.scraper.Headlines(ctx, s.cfg.MaxArticles)
	if err != nil {
		logger.ErrorWithErr(ctx, "Feed scraping failed", err)
	}
	if len(items) == 0 && s.fallback != nil {
		logger.Info(ctx, "No headlines from feeds, trying fallback source")
		fb, ferr := s.fallback.Headlines(ctx, s.cfg.MaxArticles*2)
		if ferr != nil {
			logger.ErrorWithErr(ctx, "Fallback headline source failed", ferr)
		} else {
			items, err = Select(fb, s.cfg.Keywords, s.cfg.MaxArticles), nil
		}
	}
	if len(items) == 0 && err != nil {
		return nil, fmt.Errorf("headlines: %w", err)
	}

	s.enrich(ctx, items)

	if err := cache.SetJSON(ctx, s.cache, headlinesKey, items, s.cfg.CacheDuration); err != nil {
		logger.Warn(ctx, "Headline cache write failed", "error", err)
	}
	return items, nil
}

// enrich adds a short article excerpt to the leading headlines.
func (s *Service) enrich(ctx context.Context, items []types.Headline) {
	for i := 0; i < len(items) && i < s.cfg.SummaryCount; i++ {
		if items[i].Summary != "" || items[i].URL == "" {
			continue
		}
		text, err := s.scraper.ArticleText(ctx, items[i].URL, s.cfg.SummaryLength)
		if err != nil {
			logger.Debug(ctx, "Article excerpt unavailable", "url", items[i].URL, "error", err)
			continue
		}
		items[i].Summary = text
	}
}

func head(items []types.Headline, limit int) []types.Headline {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
