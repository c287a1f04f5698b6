package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigAppliesDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("telegram:\n  chat_id: \"-100123\"\n"))
	require.NoError(t, err)

	assert.Equal(t, "BTC/USDT", cfg.Symbol)
	assert.Equal(t, "1h", cfg.Timeframe)
	assert.Equal(t, 30, cfg.Poll.SignalSeconds)
	assert.Equal(t, 10, cfg.Poll.TasksSeconds)
	assert.Equal(t, 3, cfg.Poll.IntakeSeconds)
	assert.Equal(t, 2*time.Minute, cfg.Calendar.Cooldown)
	assert.Equal(t, 2*time.Second, cfg.Telegram.MinSendInterval)
	assert.Equal(t, 32, cfg.Telegram.SignalsThread)
	assert.Equal(t, "America/Caracas", cfg.Location.String())
	assert.NotEmpty(t, cfg.News.Feeds)
}

func TestParseConfigSignalDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("telegram:\n  enabled: false\n"))
	require.NoError(t, err)

	assert.False(t, cfg.Telegram.Enabled, "explicit false must not be overwritten by defaults")
	assert.Equal(t, 50.0, cfg.Signals.ConfirmedRSI)
	assert.Equal(t, 20.0, cfg.Signals.ConfirmedADX)
	assert.Equal(t, 68.0, cfg.Signals.ReversionRSIHi)
	assert.Equal(t, 40.0, cfg.Signals.ReversionRSILo)
	assert.Equal(t, 30.0, cfg.Signals.ReversionADX)
	assert.Equal(t, 0.02, cfg.Signals.SqueezeMaxWidth)
}

func TestParseConfigRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"bad timezone":    "timezone: Mars/Olympus\ntelegram:\n  enabled: false\n",
		"bad provider":    "llm:\n  provider: GEMINI\ntelegram:\n  enabled: false\n",
		"bad data source": "data_source: BINANCE\ntelegram:\n  enabled: false\n",
		"missing chat id": "telegram:\n  enabled: true\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("symbol: ETH/USDT\ntelegram:\n  enabled: false\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "ETH/USDT", cfg.Symbol)
	assert.Equal(t, 30*time.Second, cfg.SignalPeriod())
}
