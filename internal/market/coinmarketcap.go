package market

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"market-watch-bot/internal/api"
	"market-watch-bot/internal/interfaces"
	"market-watch-bot/internal/types"
)

const coinMarketCapBaseURL = "https://pro-api.coinmarketcap.com"

// CoinMarketCap reads BTC dominance and per-asset quotes.
type CoinMarketCap struct {
	client *api.Client
	apiKey string
}

var _ interfaces.DominanceSource = (*CoinMarketCap)(nil)

func NewCoinMarketCap(apiKey string, opts ...api.ClientOption) *CoinMarketCap {
	opts = append([]api.ClientOption{
		api.WithBaseURL(coinMarketCapBaseURL),
		api.WithTimeout(15 * time.Second),
		api.WithHeader("Accept", "application/json"),
	}, opts...)
	return &CoinMarketCap{client: api.NewClient(opts...), apiKey: apiKey}
}

func (c *CoinMarketCap) headers() (map[string]string, error) {
	if c.apiKey == "" {
		return nil, errors.New("COINMARKETCAP_API_KEY missing")
	}
	return map[string]string{"X-CMC_PRO_API_KEY": c.apiKey}, nil
}

// Dominance returns the BTC share of total market cap, in percent.
func (c *CoinMarketCap) Dominance(ctx context.Context) (float64, error) {
	h, err := c.headers()
	if err != nil {
		return 0, err
	}
	resp, err := c.client.GET(ctx, "/v1/global-metrics/quotes/latest", h)
	if err != nil {
		return 0, fmt.Errorf("coinmarketcap global metrics: %w", err)
	}
	var body struct {
		Data struct {
			BTCDominance *float64 `json:"btc_dominance"`
		} `json:"data"`
	}
	if err := resp.ParseJSON(&body); err != nil {
		return 0, err
	}
	if body.Data.BTCDominance == nil {
		return 0, errors.New("coinmarketcap: btc_dominance missing")
	}
	return *body.Data.BTCDominance, nil
}

// Quote returns USD market figures for the base asset of symbol.
func (c *CoinMarketCap) Quote(ctx context.Context, symbol string) (types.Quote, error) {
	h, err := c.headers()
	if err != nil {
		return types.Quote{}, err
	}
	asset := BaseAsset(symbol)
	resp, err := c.client.GET(ctx, "/v1/cryptocurrency/quotes/latest?symbol="+url.QueryEscape(asset), h)
	if err != nil {
		return types.Quote{}, fmt.Errorf("coinmarketcap quote %s: %w", asset, err)
	}

	var body struct {
		Data map[string]struct {
			Quote map[string]struct {
				Price            float64 `json:"price"`
				MarketCap        float64 `json:"market_cap"`
				Volume24h        float64 `json:"volume_24h"`
				PercentChange24h float64 `json:"percent_change_24h"`
			} `json:"quote"`
		} `json:"data"`
	}
	if err := resp.ParseJSON(&body); err != nil {
		return types.Quote{}, err
	}
	entry, ok := body.Data[asset]
	if !ok {
		return types.Quote{}, fmt.Errorf("coinmarketcap: no quote for %s", asset)
	}
	usd, ok := entry.Quote["USD"]
	if !ok {
		return types.Quote{}, fmt.Errorf("coinmarketcap: no USD quote for %s", asset)
	}
	return types.Quote{
		Symbol:    asset,
		Price:     usd.Price,
		MarketCap: usd.MarketCap,
		Volume24h: usd.Volume24h,
		Change24h: usd.PercentChange24h,
	}, nil
}

// BaseAsset returns "BTC" for "BTC/USDT".
func BaseAsset(symbol string) string {
	if i := strings.IndexAny(symbol, "/-"); i > 0 {
		return strings.ToUpper(symbol[:i])
	}
	return strings.ToUpper(symbol)
}
