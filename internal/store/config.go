package store

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Symbol     string `yaml:"symbol" default:"BTC/USDT" validate:"required"`
	Timeframe  string `yaml:"timeframe" default:"1h" validate:"required,oneof=1m 5m 15m 1h 6h 1d"`
	Timezone   string `yaml:"timezone" default:"America/Caracas" validate:"required"`
	DataSource string `yaml:"data_source" default:"COINBASE" validate:"oneof=COINBASE KITE STATIC"`

	Poll struct {
		SignalSeconds    int `yaml:"signal_seconds" default:"30" validate:"gte=1"`
		CalendarSeconds  int `yaml:"calendar_seconds" default:"30" validate:"gte=1"`
		TasksSeconds     int `yaml:"tasks_seconds" default:"10" validate:"gte=1"`
		DominanceSeconds int `yaml:"dominance_seconds" default:"300" validate:"gte=10"`
		IntakeSeconds    int `yaml:"intake_seconds" default:"3" validate:"gte=1"`
	} `yaml:"poll"`

	Fetch struct {
		Limit      int           `yaml:"limit" default:"100" validate:"gte=60"`
		MaxRetries int           `yaml:"max_retries" default:"5" validate:"gte=1"`
		RetryWait  time.Duration `yaml:"retry_wait" default:"1s"`
	} `yaml:"fetch"`

	Signals SignalThresholds `yaml:"signals"`

	Calendar struct {
		Cooldown time.Duration `yaml:"cooldown" default:"2m"`
	} `yaml:"calendar"`

	Telegram struct {
		Enabled         bool          `yaml:"enabled" default:"true"`
		ChatID          string        `yaml:"chat_id"`
		GeneralThread   int           `yaml:"general_thread" default:"24"`
		SignalsThread   int           `yaml:"signals_thread" default:"32"`
		AssistantThread int           `yaml:"assistant_thread" default:"6"`
		MinSendInterval time.Duration `yaml:"min_send_interval" default:"2s"`
	} `yaml:"telegram"`

	LLM struct {
		Provider    string  `yaml:"provider" default:"NOOP" validate:"oneof=OPENAI CLAUDE NOOP"`
		Model       string  `yaml:"model" default:"gpt-4o-mini"`
		MaxTokens   int     `yaml:"max_tokens" default:"500" validate:"gte=1"`
		Temperature float32 `yaml:"temperature" default:"0.7"`
		System      string  `yaml:"system" default:"You are a concise crypto market assistant. Answer in plain text."`
	} `yaml:"llm"`

	Database struct {
		Path string `yaml:"path" default:"data/monitor.db" validate:"required"`
	} `yaml:"database"`

	Cache struct {
		Backend   string `yaml:"backend" default:"memory" validate:"oneof=memory redis"`
		RedisAddr string `yaml:"redis_addr" default:"localhost:6379"`
		RedisDB   int    `yaml:"redis_db"`
	} `yaml:"cache"`

	HTTP struct {
		Addr string `yaml:"addr" default:":8080"`
	} `yaml:"http"`

	News struct {
		Feeds []string `yaml:"feeds"`
		Limit int      `yaml:"limit" default:"4" validate:"gte=1"`
	} `yaml:"news"`

	Kite struct {
		Instruments map[string]int `yaml:"instruments"`
	} `yaml:"kite"`

	Location *time.Location `yaml:"-" validate:"-"`
}

// SignalThresholds are the heuristic constants used by the signal evaluator.
type SignalThresholds struct {
	ConfirmedRSI    float64 `yaml:"confirmed_rsi" default:"50"`
	ConfirmedADX    float64 `yaml:"confirmed_adx" default:"20"`
	ReversionBand   float64 `yaml:"reversion_band" default:"0.02"`
	ReversionRSIHi  float64 `yaml:"reversion_rsi_high" default:"68"`
	ReversionRSILo  float64 `yaml:"reversion_rsi_low" default:"40"`
	ReversionADX    float64 `yaml:"reversion_adx" default:"30"`
	SqueezeMaxWidth float64 `yaml:"squeeze_max_width" default:"0.02" validate:"gt=0"`
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Telegram.Enabled && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return fmt.Errorf("cache.redis_addr is required for the redis backend")
	}
	return nil
}

// Default returns a config populated only from struct defaults.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, err
	}
	if err := c.resolve(); err != nil {
		return nil, err
	}
	return &c, nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(b)
}

// ParseConfig applies defaults, decodes YAML over them and validates.
func ParseConfig(b []byte) (*Config, error) {
	// Defaults first so explicit zero values in the file (enabled: false) survive.
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	if err := c.resolve(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

func (c *Config) resolve() error {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	c.Location = loc
	if len(c.News.Feeds) == 0 {
		c.News.Feeds = []string{
			"https://www.coindesk.com/arc/outboundfeeds/rss/",
			"https://cointelegraph.com/rss",
		}
	}
	return nil
}

func (c *Config) SignalPeriod() time.Duration {
	return time.Duration(c.Poll.SignalSeconds) * time.Second
}

func (c *Config) CalendarPeriod() time.Duration {
	return time.Duration(c.Poll.CalendarSeconds) * time.Second
}

func (c *Config) TasksPeriod() time.Duration {
	return time.Duration(c.Poll.TasksSeconds) * time.Second
}

func (c *Config) DominancePeriod() time.Duration {
	return time.Duration(c.Poll.DominanceSeconds) * time.Second
}

func (c *Config) IntakePeriod() time.Duration {
	return time.Duration(c.Poll.IntakeSeconds) * time.Second
}
