package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"market-watch-bot/internal/cache"
	"market-watch-bot/internal/calendar"
	"market-watch-bot/internal/chart"
	"market-watch-bot/internal/db"
	"market-watch-bot/internal/httpapi"
	"market-watch-bot/internal/interfaces"
	"market-watch-bot/internal/journal"
	"market-watch-bot/internal/llm/claude"
	"market-watch-bot/internal/llm/llmobs"
	"market-watch-bot/internal/llm/noop"
	"market-watch-bot/internal/llm/openai"
	"market-watch-bot/internal/logger"
	"market-watch-bot/internal/market"
	"market-watch-bot/internal/market/marketobs"
	"market-watch-bot/internal/metrics"
	"market-watch-bot/internal/news"
	"market-watch-bot/internal/notify"
	"market-watch-bot/internal/notify/notifyobs"
	"market-watch-bot/internal/runner"
	"market-watch-bot/internal/signallog"
	"market-watch-bot/internal/signals"
	"market-watch-bot/internal/store"
	"market-watch-bot/internal/tasks"
	"market-watch-bot/internal/trace"
)

// app holds every long-lived component built at startup.
type app struct {
	cfg      *store.Config
	db       *sqlx.DB
	cache    cache.Cache
	registry *prometheus.Registry
	metrics  *metrics.Recorder

	runner *runner.Runner
	http   *httpapi.Server

	monitor   *signals.Monitor
	calendar  *calendar.Engine
	drainer   *tasks.Drainer
	intake    *tasks.Intake
	dominance *market.DominanceCache
	news      *news.Service
	signalLog *signallog.Log
}

// initializeSystem loads the environment, logger and tracer
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

// loadConfig loads and returns the configuration
func loadConfig(ctx context.Context) (*store.Config, error) {
	path := os.Getenv("MONITOR_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// compressOldLogs gzips signal journals older than MONITOR_LOG_RETENTION_DAYS
func compressOldLogs(ctx context.Context, log *signallog.Log) {
	v := os.Getenv("MONITOR_LOG_RETENTION_DAYS")
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn(ctx, "Ignoring invalid MONITOR_LOG_RETENTION_DAYS", "value", v)
		return
	}
	if err := log.CompressOlder(n); err != nil {
		logger.Warn(ctx, "Failed to compress old logs", "error", err)
	}
}

// initializeCache returns the memory or redis cache. A redis backend that does
// not answer at startup falls back to memory.
func initializeCache(ctx context.Context, cfg *store.Config) cache.Cache {
	if cfg.Cache.Backend != "redis" {
		return cache.NewMemory(10 * time.Minute)
	}
	rc := cache.NewRedis(cache.RedisConfig{
		Addr:     cfg.Cache.RedisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       cfg.Cache.RedisDB,
		Prefix:   "monitor:",
	})
	if err := rc.Ping(ctx); err != nil {
		logger.Warn(ctx, "Redis unavailable, using in-memory cache", "addr", cfg.Cache.RedisAddr, "error", err)
		_ = rc.Close()
		return cache.NewMemory(10 * time.Minute)
	}
	logger.Info(ctx, "Using redis cache", "addr", cfg.Cache.RedisAddr)
	return rc
}

// initializeCandles selects the candle source with observability
func initializeCandles(ctx context.Context, cfg *store.Config) interfaces.CandleSource {
	var src interfaces.CandleSource
	switch cfg.DataSource {
	case "KITE":
		logger.Info(ctx, "Using LIVE candle data from Zerodha Kite")
		src = market.NewKite(os.Getenv("KITE_API_KEY"), os.Getenv("KITE_ACCESS_TOKEN"), cfg.Kite.Instruments)
	case "STATIC":
		logger.Info(ctx, "Using STATIC mock candle data for testing")
		src = &market.Static{Seed: time.Now().UnixNano()}
	default:
		logger.Info(ctx, "Using LIVE candle data from Coinbase")
		src = market.NewCoinbase(cfg.Fetch.MaxRetries, cfg.Fetch.RetryWait)
	}
	return marketobs.WrapCandles(src, cfg.DataSource)
}

// initializeNotifier returns Telegram, or the console when delivery is disabled.
// The inbox is nil unless Telegram is live.
func initializeNotifier(ctx context.Context, cfg *store.Config, m interfaces.Metrics) (interfaces.Notifier, interfaces.Inbox) {
	var n interfaces.Notifier = notify.NewConsole(os.Stdout)
	var inbox interfaces.Inbox
	if cfg.Telegram.Enabled {
		tg, err := notify.NewTelegram(notify.TelegramConfig{
			Token:  os.Getenv("TELEGRAM_TOKEN"),
			ChatID: cfg.Telegram.ChatID,
			Threads: map[interfaces.Channel]int{
				interfaces.ChannelGeneral:   cfg.Telegram.GeneralThread,
				interfaces.ChannelSignals:   cfg.Telegram.SignalsThread,
				interfaces.ChannelAssistant: cfg.Telegram.AssistantThread,
			},
			MinSendInterval: cfg.Telegram.MinSendInterval,
		})
		switch {
		case err == nil:
			n = tg
			inbox = tg
		case errors.Is(err, notify.ErrDisabled):
			logger.Warn(ctx, "Telegram disabled, printing notifications to stdout", "reason", err)
		default:
			logger.ErrorWithErr(ctx, "Telegram setup failed, printing notifications to stdout", err)
		}
	} else {
		logger.Info(ctx, "Telegram disabled in config, printing notifications to stdout")
	}
	return notifyobs.Wrap(n, m), inbox
}

// initializeReasoner initializes and returns the LLM reasoner with observability
func initializeReasoner(ctx context.Context, cfg *store.Config) interfaces.Reasoner {
	var r interfaces.Reasoner

	switch cfg.LLM.Provider {
	case "OPENAI":
		r = openai.NewReasoner(cfg)
	case "CLAUDE":
		r = claude.NewReasoner(cfg)
	default:
		r = noop.NewReasoner()
		logger.Warn(ctx, "No LLM provider configured - scheduled tasks are echoed back as reminders")
	}

	return llmobs.Wrap(r, cfg.LLM.Provider)
}

// initializeNews builds the headline service with NewsAPI as fallback when a key is set
func initializeNews(cfg *store.Config, c cache.Cache) *news.Service {
	var fallback interfaces.HeadlineSource
	if key := os.Getenv("NEWS_API_KEY"); key != "" {
		fallback = news.NewNewsAPI(key, "")
	}
	return news.NewService(cfg, news.DefaultServiceConfig(), c, fallback)
}

// buildApp wires the three loops, their collaborators and the admin server.
func buildApp(ctx context.Context, cfg *store.Config) (*app, error) {
	a := &app{cfg: cfg, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.New(a.registry)

	conn, err := db.Open(ctx, cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	a.db = conn
	taskStore := tasks.NewStore(conn, cfg.Location)
	msgs := journal.New(conn)

	a.cache = initializeCache(ctx, cfg)

	candles := initializeCandles(ctx, cfg)
	cmc := market.NewCoinMarketCap(os.Getenv("COINMARKETCAP_API_KEY"))
	a.dominance = &market.DominanceCache{Source: cmc, Cache: a.cache, TTL: 2 * cfg.DominancePeriod()}
	provider := marketobs.WrapProvider(&market.Provider{
		Candles:   candles,
		Dominance: a.dominance,
		Limit:     cfg.Fetch.Limit,
	})

	notifier, inbox := initializeNotifier(ctx, cfg, a.metrics)
	reasoner := initializeReasoner(ctx, cfg)
	a.news = initializeNews(cfg, a.cache)
	charts := chart.NewQuickChart()

	a.signalLog = signallog.New(signallog.DirFromEnv(), cfg.Location)
	compressOldLogs(ctx, a.signalLog)

	a.monitor = &signals.Monitor{
		Symbol:     cfg.Symbol,
		Timeframe:  cfg.Timeframe,
		Thresholds: signals.ThresholdsFromConfig(cfg.Signals),
		Provider:   provider,
		Notifier:   notifier,
		Metrics:    a.metrics,
		Candles:    candles,
		Charts:     charts,
		Log:        a.signalLog,
	}

	reports := &calendar.Reports{
		Symbol:    cfg.Symbol,
		Timeframe: cfg.Timeframe,
		NewsLimit: cfg.News.Limit,
		Notifier:  notifier,
		Snapshots: provider,
		Candles:   candles,
		Charts:    charts,
		Market:    &market.Stats{Quotes: cmc, Movers: market.NewCoinGecko()},
		News:      a.news,
		Journal:   msgs,
		SignalLog: a.signalLog,
	}
	a.calendar = calendar.NewEngine(calendar.DefaultEvents(reports.Actions()), cfg.Location, cfg.Calendar.Cooldown, nil, a.metrics)

	a.drainer = &tasks.Drainer{
		Queue:    taskStore,
		Reasoner: reasoner,
		Notifier: notifier,
		Journal:  msgs,
		Metrics:  a.metrics,
		Location: cfg.Location,
	}

	if inbox != nil {
		a.intake = &tasks.Intake{
			Inbox:    inbox,
			Queue:    taskStore,
			Notifier: notifier,
			Journal:  msgs,
			Metrics:  a.metrics,
			Location: cfg.Location,
			Since:    time.Now(),
		}
	}

	a.runner = runner.New(cfg.Location, a.metrics, nil)
	if cfg.HTTP.Addr == "" {
		logger.Info(ctx, "Admin HTTP server disabled")
		return a, nil
	}
	a.http = httpapi.New(cfg.HTTP.Addr, &httpapi.Handler{
		Tasks:    taskStore,
		Journal:  msgs,
		Location: cfg.Location,
	}, a.registry)

	return a, nil
}

// loops returns the periodic drivers in registration order.
func (a *app) loops() []runner.Loop {
	loops := []runner.Loop{
		{Name: "signal", Interval: a.cfg.SignalPeriod(), Tick: a.monitor.Tick},
		{Name: "calendar", Interval: a.cfg.CalendarPeriod(), Tick: func(ctx context.Context) error {
			_, err := a.calendar.Tick(ctx)
			return err
		}},
		{Name: "tasks", Interval: a.cfg.TasksPeriod(), Tick: func(ctx context.Context) error {
			res, err := a.drainer.DrainOnce(ctx)
			if res.Completed+res.Failed+res.Skipped > 0 {
				logger.Info(ctx, "Task drain finished",
					"completed", res.Completed, "failed", res.Failed,
					"skipped", res.Skipped, "not_due", res.NotDue)
			}
			return err
		}},
		{Name: "dominance", Interval: a.cfg.DominancePeriod(), Tick: a.dominance.Refresh},
		{Name: "news", Interval: news.DefaultServiceConfig().CacheDuration, Tick: func(ctx context.Context) error {
			_, err := a.news.Refresh(ctx)
			return err
		}},
	}
	if a.intake != nil {
		loops = append(loops, runner.Loop{Name: "intake", Interval: a.cfg.IntakePeriod(), Tick: func(ctx context.Context) error {
			res, err := a.intake.PollOnce(ctx)
			if res.Scheduled+res.Rejected > 0 {
				logger.Info(ctx, "Command intake finished", "scheduled", res.Scheduled, "rejected", res.Rejected)
			}
			return err
		}})
	}
	return loops
}

func (a *app) start(ctx context.Context) error {
	for _, l := range a.loops() {
		if err := a.runner.Register(ctx, l); err != nil {
			return err
		}
	}
	a.runner.Start()
	if a.http != nil {
		a.http.Start(ctx)
	}
	return nil
}

// shutdown stops the loops first so no tick writes after the database closes.
func (a *app) shutdown(ctx context.Context) {
	a.runner.Stop()

	if a.http != nil {
		if err := a.http.Stop(ctx); err != nil {
			logger.ErrorWithErr(ctx, "HTTP shutdown failed", err)
		}
	}
	if p, err := a.signalLog.SummarizeDay(time.Now()); err == nil && p != "" {
		logger.Info(ctx, "Signal summary written", "path", p)
	}
	if closer, ok := a.cache.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	if err := a.db.Close(); err != nil {
		logger.ErrorWithErr(ctx, "Database close failed", err)
	}
	if err := trace.Shutdown(ctx); err != nil {
		logger.Warn(ctx, "Tracer shutdown failed", "error", err)
	}
}
