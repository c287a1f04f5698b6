package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"market-watch-bot/internal/interfaces"
	"market-watch-bot/internal/logger"
	"market-watch-bot/internal/signallog"
	"market-watch-bot/internal/types"
)

const (
	journalUser        = "Scheduler"
	defaultSentiment   = "https://alternative.me/crypto/fear-and-greed-index.png"
	defaultTopMoversN  = 3
	reportChartCandles = 60
)

// Reports implements the calendar actions on top of the external collaborators.
// Every collaborator except Notifier is optional; a missing one degrades the
// message rather than failing the event.
type Reports struct {
	Symbol    string
	Timeframe string
	NewsLimit int

	Notifier  interfaces.Notifier
	Snapshots interfaces.SnapshotProvider
	Candles   interfaces.CandleSource
	Charts    interfaces.ChartRenderer
	Market    interfaces.MarketData
	News      interfaces.HeadlineSource
	Journal   interfaces.Journal
	SignalLog *signallog.Log

	// SentimentURL is the Fear & Greed image; a timestamp query busts caches.
	SentimentURL string
}

// Actions exposes the report methods as calendar actions.
func (r *Reports) Actions() Actions {
	return Actions{
		SixHourClose:   r.SixHourClose,
		DailyReport:    r.DailyReport,
		MarketOpen:     r.greeting("Good morning, agents! ☀️ Monitoring is live. London opens in minutes, stay tuned for the report."),
		WeekdayMorning: r.greeting("Hello agents, how is the morning going? 🥪☕️ Wall Street opens shortly, report coming up."),
		WeekdayEvening: r.greeting("Good evening agents! 🌙 Still watching. Monitoring resumes for the Asia open, stay tuned."),
		WeekendMorning: r.WeekendMorning,
		SentimentImage: r.SentimentImage,
	}
}

func (r *Reports) greeting(text string) Action {
	return func(ctx context.Context, now time.Time) error {
		if err := r.Notifier.Send(ctx, interfaces.ChannelGeneral, text); err != nil {
			logger.ErrorWithErr(ctx, "Failed to send greeting", err)
		}
		r.sendAnalysis(ctx)
		r.sendHeadlines(ctx, "🗞 Top headlines right now:")
		r.record(ctx, fmt.Sprintf("Greeting sent (%s)", now.Format("15:04")))
		return nil
	}
}

// WeekendMorning sends the weekend greeting with headlines only.
func (r *Reports) WeekendMorning(ctx context.Context, now time.Time) error {
	r.sendHeadlines(ctx, "Good morning agents! ☕️ Happy weekend. Here is the news that matters:")
	r.record(ctx, "Weekend greeting sent (09:00)")
	return nil
}

func (r *Reports) sendAnalysis(ctx context.Context) {
	if r.Snapshots == nil {
		return
	}
	snap, err := r.Snapshots.Snapshot(ctx, r.Symbol, r.Timeframe)
	if err != nil {
		logger.ErrorWithErr(ctx, "Analysis skipped, no snapshot", err)
		return
	}
	if err := r.Notifier.Send(ctx, interfaces.ChannelGeneral, FormatAnalysis(r.Symbol, snap)); err != nil {
		logger.ErrorWithErr(ctx, "Failed to send analysis", err)
	}
}

// FormatAnalysis renders the market analysis message. Unknown values print as N/D.
func FormatAnalysis(symbol string, s types.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📟 Analysis complete - %s\n", symbol)
	fmt.Fprintf(&b, "Price: $%s\n", types.Fmt(s.Price, 2))
	fmt.Fprintf(&b, "RSI: %s\n", types.Fmt(s.RSI, 2))
	fmt.Fprintf(&b, "MACD: %s (signal %s)\n", types.Fmt(s.MACD, 2), types.Fmt(s.MACDSignal, 2))
	fmt.Fprintf(&b, "ADX: %s\n", types.Fmt(s.ADX, 2))
	fmt.Fprintf(&b, "SMA: %s | %s | %s\n", types.Fmt(s.SMA10, 2), types.Fmt(s.SMA25, 2), types.Fmt(s.SMA50, 2))
	fmt.Fprintf(&b, "Volume: %s (CMF %s)\n\n", s.VolumeLevel, types.Fmt(s.CMF, 2))
	dominance := "N/D"
	if s.BTCDominance != nil {
		dominance = fmt.Sprintf("%.2f%%", *s.BTCDominance)
	}
	fmt.Fprintf(&b, "BTC dominance: %s", dominance)
	return b.String()
}

func (r *Reports) sendHeadlines(ctx context.Context, header string) {
	if r.News == nil {
		return
	}
	limit := r.NewsLimit
	if limit <= 0 {
		limit = 4
	}
	items, err := r.News.Headlines(ctx, limit)
	if err != nil {
		logger.ErrorWithErr(ctx, "Headlines unavailable", err)
		return
	}
	if len(items) == 0 {
		logger.Info(ctx, "No headlines matched, skipping news message")
		return
	}
	if err := r.Notifier.Send(ctx, interfaces.ChannelGeneral, FormatHeadlines(header, items)); err != nil {
		logger.ErrorWithErr(ctx, "Failed to send headlines", err)
	}
}

func FormatHeadlines(header string, items []types.Headline) string {
	var b strings.Builder
	b.WriteString(header)
	for _, h := range items {
		b.WriteString("\n• ")
		b.WriteString(h.Title)
		if h.Source != "" {
			fmt.Fprintf(&b, " (%s)", h.Source)
		}
		if h.Summary != "" {
			b.WriteString("\n  ")
			b.WriteString(h.Summary)
		}
		if h.URL != "" {
			b.WriteString("\n  ")
			b.WriteString(h.URL)
		}
	}
	return b.String()
}

// SixHourClose reports the just-closed 6h candle with a chart.
func (r *Reports) SixHourClose(ctx context.Context, now time.Time) error {
	candles, err := r.fetchCandles(ctx, "6h")
	if err != nil {
		return err
	}
	price, pct := closeChange(candles)
	dominance := r.dominance(ctx)

	caption := fmt.Sprintf("🦉 6h close report\n\n📋 👑 #%s\nPrice: $%.2f %+.2f%%\nDominance: %s",
		baseAsset(r.Symbol), price, pct, dominance)
	r.sendChart(ctx, fmt.Sprintf("%s 6h", r.Symbol), candles, caption)
	r.record(ctx, fmt.Sprintf("6h report sent: price %.2f, pct %+.2f, dom %s", price, pct, dominance))
	return nil
}

// DailyReport sends the 1D summary and then, in sequence, the top movers. Both
// share one period key.
func (r *Reports) DailyReport(ctx context.Context, now time.Time) error {
	var errs []error
	if err := r.dailySummary(ctx, now); err != nil {
		errs = append(errs, err)
	}
	if err := r.TopMovers(ctx, now); err != nil {
		errs = append(errs, err)
	}
	r.summarizeSignals(ctx, now.AddDate(0, 0, -1))
	return errors.Join(errs...)
}

func (r *Reports) dailySummary(ctx context.Context, now time.Time) error {
	candles, err := r.fetchCandles(ctx, "1d")
	if err != nil {
		return err
	}
	price, pct := closeChange(candles)
	dominance := r.dominance(ctx)

	var b strings.Builder
	fmt.Fprintf(&b, "🗓 Daily close (1D) %s\n\n", now.AddDate(0, 0, -1).Format("02-01-2006"))
	fmt.Fprintf(&b, "👑 #%s\nPrice: $%.2f %+.2f%%\nDominance: %s\n", baseAsset(r.Symbol), price, pct, dominance)
	if r.Market != nil {
		q, err := r.Market.Quote(ctx, baseAsset(r.Symbol))
		if err != nil {
			logger.Warn(ctx, "Quote unavailable for daily report", "error", err)
		} else {
			fmt.Fprintf(&b, "Market cap: %s\nVolume 24h: %s", FormatUSD(q.MarketCap), FormatUSD(q.Volume24h))
		}
	}
	text := strings.TrimRight(b.String(), "\n")

	if err := r.Notifier.Send(ctx, interfaces.ChannelGeneral, text); err != nil {
		logger.ErrorWithErr(ctx, "Failed to send daily report", err)
	}
	r.sendChart(ctx, fmt.Sprintf("%s 1D", r.Symbol), candles, "")
	r.record(ctx, fmt.Sprintf("Daily report sent: price %.2f, pct %+.2f", price, pct))
	return nil
}

// TopMovers sends the top gainers and losers of the last 24h.
func (r *Reports) TopMovers(ctx context.Context, now time.Time) error {
	if r.Market == nil {
		return nil
	}
	gainers, losers, err := r.Market.TopMovers(ctx, defaultTopMoversN)
	if err != nil {
		return fmt.Errorf("top movers: %w", err)
	}
	var b strings.Builder
	b.WriteString("🚀 Top gainers 24h")
	for i, m := range gainers {
		fmt.Fprintf(&b, "\n%d. %s $%.4f %+.2f%%", i+1, strings.ToUpper(m.Symbol), m.Price, m.Change24h)
	}
	b.WriteString("\n\n📉 Top losers 24h")
	for i, m := range losers {
		fmt.Fprintf(&b, "\n%d. %s $%.4f %+.2f%%", i+1, strings.ToUpper(m.Symbol), m.Price, m.Change24h)
	}
	if err := r.Notifier.Send(ctx, interfaces.ChannelGeneral, b.String()); err != nil {
		logger.ErrorWithErr(ctx, "Failed to send top movers", err)
	}
	r.record(ctx, "Top movers sent")
	return nil
}

// SentimentImage sends the Fear & Greed index image.
func (r *Reports) SentimentImage(ctx context.Context, now time.Time) error {
	base := r.SentimentURL
	if base == "" {
		base = defaultSentiment
	}
	photo := types.Photo{
		URL:     fmt.Sprintf("%s?ts=%d", base, now.Unix()),
		Caption: fmt.Sprintf("📊 Fear & Greed Index (as of %s)", now.Format("02-01-2006 15:04")),
	}
	if err := r.Notifier.SendPhoto(ctx, interfaces.ChannelGeneral, photo); err != nil {
		logger.ErrorWithErr(ctx, "Failed to send sentiment image", err)
	}
	r.record(ctx, "Fear & Greed index sent (19:40)")
	return nil
}

func (r *Reports) fetchCandles(ctx context.Context, timeframe string) ([]types.Candle, error) {
	if r.Candles == nil {
		return nil, fmt.Errorf("no candle source configured")
	}
	candles, err := r.Candles.Candles(ctx, r.Symbol, timeframe, reportChartCandles)
	if err != nil {
		return nil, fmt.Errorf("fetch %s candles: %w", timeframe, err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("no %s candles", timeframe)
	}
	return candles, nil
}

func (r *Reports) sendChart(ctx context.Context, title string, candles []types.Candle, caption string) {
	if r.Charts == nil {
		if caption != "" {
			if err := r.Notifier.Send(ctx, interfaces.ChannelGeneral, caption); err != nil {
				logger.ErrorWithErr(ctx, "Failed to send report text", err)
			}
		}
		return
	}
	photo, err := r.Charts.Render(ctx, title, candles)
	if err != nil {
		logger.Warn(ctx, "Chart render failed, sending text only", "error", err)
		if caption != "" {
			_ = r.Notifier.Send(ctx, interfaces.ChannelGeneral, caption)
		}
		return
	}
	if caption != "" {
		photo.Caption = caption
	}
	if err := r.Notifier.SendPhoto(ctx, interfaces.ChannelGeneral, photo); err != nil {
		logger.ErrorWithErr(ctx, "Failed to send chart", err)
	}
}

func (r *Reports) dominance(ctx context.Context) string {
	if r.Snapshots == nil {
		return "N/D"
	}
	snap, err := r.Snapshots.Snapshot(ctx, r.Symbol, r.Timeframe)
	if err != nil || snap.BTCDominance == nil {
		return "N/D"
	}
	return fmt.Sprintf("%.2f%%", *snap.BTCDominance)
}

func (r *Reports) summarizeSignals(ctx context.Context, day time.Time) {
	if r.SignalLog == nil {
		return
	}
	path, err := r.SignalLog.SummarizeDay(day)
	if err != nil {
		logger.Warn(ctx, "Signal summary failed", "error", err)
		return
	}
	if path != "" {
		logger.Info(ctx, "Signal summary written", "path", path)
	}
}

func (r *Reports) record(ctx context.Context, content string) {
	if r.Journal == nil {
		return
	}
	if err := r.Journal.Record(ctx, journalUser, content); err != nil {
		logger.Warn(ctx, "Failed to record journal entry", "error", err)
	}
}

// closeChange returns the last close and its percent change from the previous close.
func closeChange(candles []types.Candle) (price, pct float64) {
	n := len(candles)
	if n == 0 {
		return 0, 0
	}
	price = candles[n-1].Close
	if n >= 2 && candles[n-2].Close != 0 {
		prev := candles[n-2].Close
		pct = (price - prev) / prev * 100
	}
	return price, pct
}

func baseAsset(symbol string) string {
	if i := strings.IndexAny(symbol, "/-"); i > 0 {
		return symbol[:i]
	}
	return symbol
}

// FormatUSD abbreviates large dollar amounts.
func FormatUSD(v float64) string {
	switch {
	case v >= 1e12:
		return fmt.Sprintf("$%.2fT", v/1e12)
	case v >= 1e9:
		return fmt.Sprintf("$%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("$%.2fM", v/1e6)
	default:
		return fmt.Sprintf("$%.2f", v)
	}
}
