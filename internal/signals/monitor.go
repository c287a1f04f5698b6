package signals

import (
	"context"
	"fmt"
	"strings"

	"market-watch-bot/internal/interfaces"
	"market-watch-bot/internal/logger"
	"market-watch-bot/internal/signallog"
	"market-watch-bot/internal/types"
)

// Monitor drives the signal loop. It owns the dedup and whale-hunt state and must
// be ticked from a single goroutine.
type Monitor struct {
	Symbol     string
	Timeframe  string
	Thresholds Thresholds

	Provider interfaces.SnapshotProvider
	Notifier interfaces.Notifier
	Metrics  interfaces.Metrics

	// Optional: chart sent along with a cross signal.
	Candles interfaces.CandleSource
	Charts  interfaces.ChartRenderer

	// Optional firing journal.
	Log *signallog.Log

	state DedupState
	whale whaleState
}

type whaleState struct {
	price, dominance *float64
}

// State returns a copy of the current dedup state.
func (m *Monitor) State() DedupState {
	return m.state
}

// Tick runs one fetch, evaluate, gate and notify cycle. A fetch error skips the
// tick entirely. Delivery failures are logged and do not roll back state.
func (m *Monitor) Tick(ctx context.Context) error {
	snap, err := m.Provider.Snapshot(ctx, m.Symbol, m.Timeframe)
	if err != nil {
		logger.ErrorWithErr(ctx, "No data this tick, skipping signal evaluation", err, "symbol", m.Symbol)
		return fmt.Errorf("fetch snapshot: %w", err)
	}

	ev := Evaluate(snap, m.Thresholds)
	logger.Debug(ctx, "Signals evaluated",
		"cross", ev.Cross.String(),
		"confirmed", ev.Confirmed.String(),
		"reversion", ev.Reversion.String(),
		"squeeze_known", ev.Squeeze.Known,
		"bandwidth", ev.Squeeze.Bandwidth,
	)

	var firings []Firing
	firings, m.state = Gate(ev, m.state)

	for _, fr := range firings {
		m.deliver(ctx, snap, fr)
	}

	m.checkWhaleHunt(ctx, snap)
	return nil
}

func (m *Monitor) deliver(ctx context.Context, snap types.Snapshot, fr Firing) {
	verdict := fr.Verdict.String()
	if fr.Kind == KindSqueeze {
		verdict = "ACTIVE"
	}
	logger.Signal(ctx, m.Symbol, string(fr.Kind), verdict, "price", types.Or(snap.Price, 0))
	m.metrics().SignalFired(string(fr.Kind), verdict)

	err := m.Notifier.Send(ctx, interfaces.ChannelSignals, FormatFiring(m.Symbol, snap, fr))
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to deliver signal", err, "kind", fr.Kind)
	}

	if m.Log != nil {
		entry := signallog.Entry{
			Symbol:  m.Symbol,
			Kind:    string(fr.Kind),
			Verdict: verdict,
			Price:   types.Or(snap.Price, 0),
			Values:  snapshotValues(snap),
			Sent:    err == nil,
		}
		if lerr := m.Log.Append(entry); lerr != nil {
			logger.Warn(ctx, "Failed to append signal log", "error", lerr)
		}
	}

	if fr.Kind == KindCross {
		m.sendCrossChart(ctx, fr)
	}
}

func (m *Monitor) sendCrossChart(ctx context.Context, fr Firing) {
	if m.Candles == nil || m.Charts == nil {
		return
	}
	candles, err := m.Candles.Candles(ctx, m.Symbol, "1h", 48)
	if err != nil {
		logger.Warn(ctx, "Cross chart skipped, candles unavailable", "error", err)
		return
	}
	photo, err := m.Charts.Render(ctx, fmt.Sprintf("%s 1h - MACD cross %s", m.Symbol, fr.Verdict), candles)
	if err != nil {
		logger.Warn(ctx, "Cross chart skipped, render failed", "error", err)
		return
	}
	if err := m.Notifier.SendPhoto(ctx, interfaces.ChannelSignals, photo); err != nil {
		logger.ErrorWithErr(ctx, "Failed to deliver cross chart", err)
	}
}

// checkWhaleHunt alerts when price falls while dominance rises between two
// consecutive ticks. It is not deduplicated.
func (m *Monitor) checkWhaleHunt(ctx context.Context, snap types.Snapshot) {
	prev := m.whale
	if snap.Price != nil {
		m.whale.price = snap.Price
	}
	if snap.BTCDominance != nil {
		m.whale.dominance = snap.BTCDominance
	}
	if prev.price == nil || prev.dominance == nil || snap.Price == nil || snap.BTCDominance == nil {
		return
	}
	if !(*snap.Price < *prev.price && *snap.BTCDominance > *prev.dominance) {
		return
	}

	logger.Signal(ctx, m.Symbol, "whale_hunt", "ALERT",
		"price", *snap.Price, "prev_price", *prev.price,
		"dominance", *snap.BTCDominance, "prev_dominance", *prev.dominance)
	m.metrics().SignalFired("whale_hunt", "ALERT")

	msg := fmt.Sprintf("🐋 Whale hunt on %s\nPrice %.2f → %.2f while BTC dominance %.2f%% → %.2f%%",
		m.Symbol, *prev.price, *snap.Price, *prev.dominance, *snap.BTCDominance)
	if err := m.Notifier.Send(ctx, interfaces.ChannelSignals, msg); err != nil {
		logger.ErrorWithErr(ctx, "Failed to deliver whale hunt alert", err)
	}
}

func (m *Monitor) metrics() interfaces.Metrics {
	if m.Metrics == nil {
		return interfaces.NopMetrics{}
	}
	return m.Metrics
}

var kindTitles = map[Kind]string{
	KindCross:     "MACD cross",
	KindConfirmed: "Confirmed trend",
	KindReversion: "Mean reversion",
	KindSqueeze:   "Volatility squeeze",
}

// FormatFiring renders the notification text for one firing. Unknown values print as N/D.
func FormatFiring(symbol string, s types.Snapshot, fr Firing) string {
	var b strings.Builder
	switch fr.Kind {
	case KindSqueeze:
		fmt.Fprintf(&b, "⚠️ %s on %s: Bollinger bands are tight, expect a large move\n", kindTitles[fr.Kind], symbol)
	default:
		icon := "🟢"
		if fr.Verdict == Short {
			icon = "🔴"
		}
		fmt.Fprintf(&b, "%s %s %s on %s\n", icon, kindTitles[fr.Kind], fr.Verdict, symbol)
	}
	fmt.Fprintf(&b, "- Price: %s\n", types.Fmt(s.Price, 2))
	fmt.Fprintf(&b, "- RSI: %s  ADX: %s\n", types.Fmt(s.RSI, 2), types.Fmt(s.ADX, 2))
	fmt.Fprintf(&b, "- MACD: %s  Signal: %s  Hist: %s\n", types.Fmt(s.MACD, 2), types.Fmt(s.MACDSignal, 2), types.Fmt(s.Hist, 2))
	switch fr.Kind {
	case KindConfirmed:
		fmt.Fprintf(&b, "- SMA10: %s  SMA25: %s  SMA50: %s\n", types.Fmt(s.SMA10, 2), types.Fmt(s.SMA25, 2), types.Fmt(s.SMA50, 2))
	case KindReversion, KindSqueeze:
		fmt.Fprintf(&b, "- BB: %s / %s / %s\n", types.Fmt(s.BBLow, 2), types.Fmt(s.BBMedium, 2), types.Fmt(s.BBHigh, 2))
	}
	fmt.Fprintf(&b, "- BTC dominance: %s%%", types.Fmt(s.BTCDominance, 2))
	return b.String()
}

func snapshotValues(s types.Snapshot) map[string]float64 {
	out := map[string]float64{}
	add := func(k string, v *float64) {
		if v != nil {
			out[k] = *v
		}
	}
	add("rsi", s.RSI)
	add("adx", s.ADX)
	add("macd", s.MACD)
	add("macd_signal", s.MACDSignal)
	add("bb_low", s.BBLow)
	add("bb_high", s.BBHigh)
	add("btc_dominance", s.BTCDominance)
	return out
}
