package chart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"market-watch-bot/internal/api"
	"market-watch-bot/internal/interfaces"
	"market-watch-bot/internal/types"
)

const quickChartBaseURL = "https://quickchart.io"

// QuickChart renders candlestick charts through the QuickChart short-URL API,
// so the notifier can send them by URL.
type QuickChart struct {
	client        *api.Client
	width, height int
}

var _ interfaces.ChartRenderer = (*QuickChart)(nil)

func NewQuickChart(opts ...api.ClientOption) *QuickChart {
	opts = append([]api.ClientOption{api.WithBaseURL(quickChartBaseURL), api.WithTimeout(20 * time.Second)}, opts...)
	return &QuickChart{client: api.NewClient(opts...), width: 800, height: 450}
}

type ohlc struct {
	X int64   `json:"x"`
	O float64 `json:"o"`
	H float64 `json:"h"`
	L float64 `json:"l"`
	C float64 `json:"c"`
}

// Config builds the chart.js candlestick definition for candles.
func Config(title string, candles []types.Candle) map[string]any {
	points := make([]ohlc, 0, len(candles))
	for _, c := range candles {
		points = append(points, ohlc{X: c.Ts * 1000, O: c.Open, H: c.High, L: c.Low, C: c.Close})
	}
	return map[string]any{
		"type": "candlestick",
		"data": map[string]any{
			"datasets": []map[string]any{{
				"label": title,
				"data":  points,
			}},
		},
		"options": map[string]any{
			"title":  map[string]any{"display": true, "text": title},
			"legend": map[string]any{"display": false},
		},
	}
}

func (q *QuickChart) Render(ctx context.Context, title string, candles []types.Candle) (types.Photo, error) {
	if len(candles) == 0 {
		return types.Photo{}, errors.New("no candles to chart")
	}
	body := map[string]any{
		"version":         "2",
		"backgroundColor": "white",
		"width":           q.width,
		"height":          q.height,
		"chart":           Config(title, candles),
	}
	resp, err := q.client.POST(ctx, "/chart/create", body)
	if err != nil {
		return types.Photo{}, fmt.Errorf("quickchart: %w", err)
	}
	var out struct {
		Success bool   `json:"success"`
		URL     string `json:"url"`
	}
	if err := resp.ParseJSON(&out); err != nil {
		return types.Photo{}, err
	}
	if !out.Success || out.URL == "" {
		return types.Photo{}, fmt.Errorf("quickchart: render failed: %s", string(resp.Body))
	}
	return types.Photo{URL: out.URL, Caption: title}, nil
}
