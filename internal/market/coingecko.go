package market

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"market-watch-bot/internal/api"
	"market-watch-bot/internal/types"
)

const coinGeckoBaseURL = "https://api.coingecko.com"

// CoinGecko ranks the top-100 coins by 24h change.
type CoinGecko struct {
	client *api.Client
}

func NewCoinGecko(opts ...api.ClientOption) *CoinGecko {
	opts = append([]api.ClientOption{api.WithBaseURL(coinGeckoBaseURL), api.WithTimeout(15 * time.Second)}, opts...)
	return &CoinGecko{client: api.NewClient(opts...)}
}

type geckoCoin struct {
	Symbol    string   `json:"symbol"`
	Name      string   `json:"name"`
	Price     float64  `json:"current_price"`
	Change24h *float64 `json:"price_change_percentage_24h"`
}

// TopMovers returns the n biggest gainers (descending) and losers (ascending).
func (g *CoinGecko) TopMovers(ctx context.Context, n int) ([]types.Mover, []types.Mover, error) {
	resp, err := g.client.GET(ctx,
		"/api/v3/coins/markets?vs_currency=usd&order=market_cap_desc&per_page=100&page=1",
		api.BrowserHeaders())
	if err != nil {
		return nil, nil, fmt.Errorf("coingecko markets: %w", err)
	}
	var coins []geckoCoin
	if err := resp.ParseJSON(&coins); err != nil {
		return nil, nil, err
	}

	movers := make([]types.Mover, 0, len(coins))
	for _, c := range coins {
		if c.Change24h == nil {
			continue
		}
		movers = append(movers, types.Mover{
			Symbol:    strings.ToUpper(c.Symbol),
			Name:      c.Name,
			Price:     c.Price,
			Change24h: *c.Change24h,
		})
	}
	return rankMovers(movers, n)
}

func rankMovers(movers []types.Mover, n int) ([]types.Mover, []types.Mover, error) {
	if len(movers) == 0 {
		return nil, nil, fmt.Errorf("no movers with 24h change")
	}
	sorted := append([]types.Mover(nil), movers...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Change24h > sorted[j].Change24h })

	if n > len(sorted) {
		n = len(sorted)
	}
	gainers := append([]types.Mover(nil), sorted[:n]...)
	losers := make([]types.Mover, 0, n)
	for i := len(sorted) - 1; i >= len(sorted)-n; i-- {
		losers = append(losers, sorted[i])
	}
	return gainers, losers, nil
}

// Stats joins the quote and movers sources into the calendar's market data view.
type Stats struct {
	Quotes *CoinMarketCap
	Movers *CoinGecko
}

func (s *Stats) Quote(ctx context.Context, symbol string) (types.Quote, error) {
	return s.Quotes.Quote(ctx, symbol)
}

func (s *Stats) TopMovers(ctx context.Context, n int) ([]types.Mover, []types.Mover, error) {
	return s.Movers.TopMovers(ctx, n)
}
