package market

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
	"github.com/zerodha/gokiteconnect/v4/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-watch-bot/internal/api"
	"market-watch-bot/internal/cache"
	"market-watch-bot/internal/types"
)

func TestCoinbaseCandles_OrdersOldestFirstAndTrims(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/BTC-USDT/candles", r.URL.Path)
		assert.Equal(t, "3600", r.URL.Query().Get("granularity"))
		io.WriteString(w, `[[3000,9,12,10,11,5],[2000,8,11,9,10,4],[1000,7,10,8,9,3]]`)
	}))
	defer srv.Close()

	cb := NewCoinbase(1, time.Millisecond, api.WithBaseURL(srv.URL))
	got, err := cb.Candles(context.Background(), "BTC/USDT", "1h", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2000), got[0].Ts)
	assert.Equal(t, int64(3000), got[1].Ts)
	assert.Equal(t, 11.0, got[1].Close)
	assert.Equal(t, 9.0, got[1].Low)
	assert.Equal(t, 12.0, got[1].High)
}

func TestCoinbaseCandles_RetriesTransientFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, `[[1000,7,10,8,9,3]]`)
	}))
	defer srv.Close()

	cb := NewCoinbase(3, time.Millisecond, api.WithBaseURL(srv.URL))
	got, err := cb.Candles(context.Background(), "BTC/USDT", "6h", 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestCoinbaseCandles_UnsupportedTimeframe(t *testing.T) {
	_, err := NewCoinbase(1, 0).Candles(context.Background(), "BTC/USDT", "2h", 10)
	assert.Error(t, err)
}

type fakeHistorical struct {
	interval string
	rows     []kiteconnect.HistoricalData
}

func (f *fakeHistorical) GetHistoricalData(token int, interval string, from, to time.Time, continuous, oi bool) ([]kiteconnect.HistoricalData, error) {
	f.interval = interval
	if token != 256265 {
		return nil, errors.New("unknown token")
	}
	return f.rows, nil
}

func TestKiteCandles(t *testing.T) {
	base := time.Date(2024, 1, 2, 9, 15, 0, 0, time.UTC)
	fh := &fakeHistorical{}
	for i := 0; i < 5; i++ {
		fh.rows = append(fh.rows, kiteconnect.HistoricalData{
			Date:   models.Time{Time: base.Add(time.Duration(i) * time.Hour)},
			Open:   100, High: 102, Low: 99, Close: 100 + float64(i), Volume: 10,
		})
	}
	k := &Kite{kc: fh, instruments: map[string]int{"NIFTY 50": 256265}, now: func() time.Time { return base.Add(5 * time.Hour) }}

	got, err := k.Candles(context.Background(), "NIFTY 50", "1h", 3)
	require.NoError(t, err)
	assert.Equal(t, "60minute", fh.interval)
	require.Len(t, got, 3)
	assert.Equal(t, 104.0, got[2].Close)
	assert.Equal(t, 10.0, got[2].Vol)

	_, err = k.Candles(context.Background(), "UNKNOWN", "1h", 3)
	assert.Error(t, err)
	_, err = k.Candles(context.Background(), "NIFTY 50", "6h", 3)
	assert.Error(t, err)
}

func TestStaticCandlesDeterministic(t *testing.T) {
	now := func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }
	a, err := (&Static{Seed: 7, Now: now}).Candles(context.Background(), "BTC/USDT", "1h", 80)
	require.NoError(t, err)
	b, err := (&Static{Seed: 7, Now: now}).Candles(context.Background(), "BTC/USDT", "1h", 80)
	require.NoError(t, err)
	require.Len(t, a, 80)
	assert.Equal(t, a, b)
	for i := 1; i < len(a); i++ {
		assert.Equal(t, int64(3600), a[i].Ts-a[i-1].Ts)
		assert.GreaterOrEqual(t, a[i].High, a[i].Low)
	}
}

type stubCandles struct {
	candles []types.Candle
	err     error
}

func (s stubCandles) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]types.Candle, error) {
	return s.candles, s.err
}

type stubDominance struct {
	v     float64
	err   error
	calls int
}

func (s *stubDominance) Dominance(ctx context.Context) (float64, error) {
	s.calls++
	return s.v, s.err
}

func TestProviderSnapshot(t *testing.T) {
	candles, err := (&Static{Seed: 1}).Candles(context.Background(), "BTC/USDT", "1h", 100)
	require.NoError(t, err)

	p := &Provider{Candles: stubCandles{candles: candles}, Dominance: &stubDominance{v: 52.5}}
	snap, err := p.Snapshot(context.Background(), "BTC/USDT", "1h")
	require.NoError(t, err)
	require.NotNil(t, snap.Price)
	assert.Equal(t, candles[len(candles)-1].Close, *snap.Price)
	assert.NotNil(t, snap.RSI)
	assert.NotNil(t, snap.MACD)
	assert.NotNil(t, snap.SMA50)
	require.NotNil(t, snap.BTCDominance)
	assert.Equal(t, 52.5, *snap.BTCDominance)
}

func TestProviderSnapshot_DominanceFailureLeavesUnknown(t *testing.T) {
	candles, _ := (&Static{Seed: 1}).Candles(context.Background(), "BTC/USDT", "1h", 100)
	p := &Provider{Candles: stubCandles{candles: candles}, Dominance: &stubDominance{err: errors.New("quota")}}
	snap, err := p.Snapshot(context.Background(), "BTC/USDT", "1h")
	require.NoError(t, err)
	assert.Nil(t, snap.BTCDominance)
}

func TestProviderSnapshot_NoData(t *testing.T) {
	p := &Provider{Candles: stubCandles{err: errors.New("exchange down")}}
	_, err := p.Snapshot(context.Background(), "BTC/USDT", "1h")
	assert.ErrorIs(t, err, ErrNoData)

	p = &Provider{Candles: stubCandles{}}
	_, err = p.Snapshot(context.Background(), "BTC/USDT", "1h")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestDominanceCache(t *testing.T) {
	ctx := context.Background()
	src := &stubDominance{v: 54.1}
	d := &DominanceCache{Source: src, Cache: cache.NewMemory(0), TTL: time.Minute}

	v, err := d.Dominance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 54.1, v)

	src.v = 60
	v, err = d.Dominance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 54.1, v, "served from cache")
	assert.Equal(t, 1, src.calls)

	require.NoError(t, d.Refresh(ctx))
	v, err = d.Dominance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 60.0, v)
}

func TestCoinMarketCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.Header.Get("X-CMC_PRO_API_KEY"))
		switch r.URL.Path {
		case "/v1/global-metrics/quotes/latest":
			io.WriteString(w, `{"data":{"btc_dominance":53.27}}`)
		case "/v1/cryptocurrency/quotes/latest":
			assert.Equal(t, "BTC", r.URL.Query().Get("symbol"))
			io.WriteString(w, `{"data":{"BTC":{"quote":{"USD":{"price":64000.5,"market_cap":1.2e12,"volume_24h":3.1e10,"percent_change_24h":-1.5}}}}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cmc := NewCoinMarketCap("k", api.WithBaseURL(srv.URL))
	d, err := cmc.Dominance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 53.27, d)

	q, err := cmc.Quote(context.Background(), "BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, "BTC", q.Symbol)
	assert.Equal(t, 64000.5, q.Price)
	assert.Equal(t, -1.5, q.Change24h)

	_, err = NewCoinMarketCap("").Dominance(context.Background())
	assert.ErrorContains(t, err, "COINMARKETCAP_API_KEY")
}

func TestCoinGeckoTopMovers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var parts []string
		changes := []string{"5", "-8", "12", "null", "-2", "30"}
		for i, c := range changes {
			parts = append(parts, fmt.Sprintf(`{"symbol":"c%d","name":"Coin %d","current_price":1,"price_change_percentage_24h":%s}`, i, i, c))
		}
		io.WriteString(w, "["+strings.Join(parts, ",")+"]")
	}))
	defer srv.Close()

	g := NewCoinGecko(api.WithBaseURL(srv.URL))
	gainers, losers, err := g.TopMovers(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, gainers, 3)
	require.Len(t, losers, 3)
	assert.Equal(t, []string{"C5", "C2", "C0"}, []string{gainers[0].Symbol, gainers[1].Symbol, gainers[2].Symbol})
	assert.Equal(t, []string{"C1", "C4", "C0"}, []string{losers[0].Symbol, losers[1].Symbol, losers[2].Symbol})
}

func TestBaseAsset(t *testing.T) {
	assert.Equal(t, "BTC", BaseAsset("BTC/USDT"))
	assert.Equal(t, "ETH", BaseAsset("eth-usd"))
	assert.Equal(t, "SOL", BaseAsset("SOL"))
}
