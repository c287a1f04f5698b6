package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"market-watch-bot/internal/logger"
)

func main() {
	if err := initializeSystem(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(ctx)
	if err != nil {
		os.Exit(1)
	}

	a, err := buildApp(ctx, cfg)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to build monitor", err)
		os.Exit(1)
	}

	if err := a.start(ctx); err != nil {
		logger.ErrorWithErr(ctx, "Failed to start loops", err)
		os.Exit(1)
	}
	logger.Info(ctx, "Monitor started",
		"symbol", cfg.Symbol,
		"timeframe", cfg.Timeframe,
		"timezone", cfg.Timezone,
		"data_source", cfg.DataSource,
		"llm", cfg.LLM.Provider,
	)

	<-ctx.Done()
	logger.Info(context.Background(), "Shutting down...")

	shutdownCtx, done := context.WithTimeout(context.Background(), 15*time.Second)
	defer done()
	a.shutdown(shutdownCtx)
}
