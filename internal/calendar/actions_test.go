package calendar

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-watch-bot/internal/interfaces"
	"market-watch-bot/internal/types"
)

type capture struct {
	texts  []string
	photos []types.Photo
}

func (c *capture) Send(ctx context.Context, ch interfaces.Channel, text string) error {
	c.texts = append(c.texts, text)
	return nil
}

func (c *capture) SendPhoto(ctx context.Context, ch interfaces.Channel, p types.Photo) error {
	c.photos = append(c.photos, p)
	return nil
}

type stubSnapshots struct{ snap types.Snapshot }

func (s stubSnapshots) Snapshot(ctx context.Context, symbol, timeframe string) (types.Snapshot, error) {
	return s.snap, nil
}

type stubCandles struct{ err error }

func (s stubCandles) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]types.Candle, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []types.Candle{{Close: 100}, {Close: 110}}, nil
}

type stubCharts struct{}

func (stubCharts) Render(ctx context.Context, title string, candles []types.Candle) (types.Photo, error) {
	return types.Photo{URL: "https://charts.example/" + strings.ReplaceAll(title, " ", "_")}, nil
}

type stubMarket struct{}

func (stubMarket) Quote(ctx context.Context, symbol string) (types.Quote, error) {
	return types.Quote{Symbol: symbol, MarketCap: 1.9e12, Volume24h: 35e9}, nil
}

func (stubMarket) TopMovers(ctx context.Context, n int) ([]types.Mover, []types.Mover, error) {
	return []types.Mover{{Symbol: "sol", Price: 150, Change24h: 12.5}},
		[]types.Mover{{Symbol: "doge", Price: 0.1, Change24h: -8}}, nil
}

type stubNews struct{}

func (stubNews) Headlines(ctx context.Context, limit int) ([]types.Headline, error) {
	return []types.Headline{{Title: "Bitcoin ETF inflows rise", Source: "CoinDesk"}}, nil
}

type memJournal struct{ entries []string }

func (j *memJournal) Record(ctx context.Context, user, content string) error {
	j.entries = append(j.entries, user+": "+content)
	return nil
}

func newReports(n *capture, j *memJournal) *Reports {
	return &Reports{
		Symbol:    "BTC/USDT",
		Timeframe: "1h",
		Notifier:  n,
		Snapshots: stubSnapshots{snap: types.Snapshot{Price: types.F(110), BTCDominance: types.F(61.234)}},
		Candles:   stubCandles{},
		Charts:    stubCharts{},
		Market:    stubMarket{},
		News:      stubNews{},
		Journal:   j,
	}
}

func TestGreetingSendsGreetingAnalysisAndHeadlines(t *testing.T) {
	n, j := &capture{}, &memJournal{}
	r := newReports(n, j)

	require.NoError(t, r.Actions().MarketOpen(context.Background(), time.Date(2025, 3, 10, 4, 0, 0, 0, time.UTC)))

	require.Len(t, n.texts, 3)
	assert.Contains(t, n.texts[0], "London")
	assert.Contains(t, n.texts[1], "Price: $110.00")
	assert.Contains(t, n.texts[1], "RSI: N/D")
	assert.Contains(t, n.texts[1], "BTC dominance: 61.23%")
	assert.Contains(t, n.texts[2], "Bitcoin ETF inflows rise (CoinDesk)")
	assert.Len(t, j.entries, 1)
}

func TestWeekendMorningSendsHeadlinesOnly(t *testing.T) {
	n, j := &capture{}, &memJournal{}
	require.NoError(t, newReports(n, j).WeekendMorning(context.Background(), time.Now()))
	require.Len(t, n.texts, 1)
	assert.Contains(t, n.texts[0], "Happy weekend")
}

func TestSixHourCloseSendsChartWithCaption(t *testing.T) {
	n, j := &capture{}, &memJournal{}
	require.NoError(t, newReports(n, j).SixHourClose(context.Background(), time.Now()))

	require.Len(t, n.photos, 1)
	assert.Contains(t, n.photos[0].Caption, "Price: $110.00 +10.00%")
	assert.Contains(t, n.photos[0].Caption, "Dominance: 61.23%")
	assert.Contains(t, n.photos[0].Caption, "#BTC")
}

func TestDailyReportIsCompoundWithTopMovers(t *testing.T) {
	n, j := &capture{}, &memJournal{}
	require.NoError(t, newReports(n, j).DailyReport(context.Background(), time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)))

	require.Len(t, n.texts, 2)
	assert.Contains(t, n.texts[0], "Market cap: $1.90T")
	assert.Contains(t, n.texts[0], "Volume 24h: $35.00B")
	assert.Contains(t, n.texts[1], "1. SOL")
	assert.Contains(t, n.texts[1], "1. DOGE")
	assert.Len(t, n.photos, 1)
}

func TestDailyReportStillSendsMoversWhenCandlesFail(t *testing.T) {
	n, j := &capture{}, &memJournal{}
	r := newReports(n, j)
	r.Candles = stubCandles{err: errors.New("timeout")}

	err := r.DailyReport(context.Background(), time.Now())
	assert.Error(t, err)
	require.Len(t, n.texts, 1)
	assert.Contains(t, n.texts[0], "Top gainers")
}

func TestSentimentImageBustsCache(t *testing.T) {
	n, j := &capture{}, &memJournal{}
	now := time.Date(2025, 3, 10, 19, 40, 0, 0, time.UTC)
	require.NoError(t, newReports(n, j).SentimentImage(context.Background(), now))

	require.Len(t, n.photos, 1)
	assert.Equal(t, "https://alternative.me/crypto/fear-and-greed-index.png?ts=1741635600", n.photos[0].URL)
}

func TestFormatUSD(t *testing.T) {
	assert.Equal(t, "$1.50T", FormatUSD(1.5e12))
	assert.Equal(t, "$2.00B", FormatUSD(2e9))
	assert.Equal(t, "$3.10M", FormatUSD(3.1e6))
	assert.Equal(t, "$12.00", FormatUSD(12))
}
