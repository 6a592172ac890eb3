package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		Provider  string   `yaml:"provider" validate:"oneof=yahoo vstrader mock"`
		BaseURL   string   `yaml:"base_url" validate:"required_if=Provider vstrader"`
		APIKey    string   `yaml:"api_key"`
		RateLimit float64  `yaml:"rate_limit" validate:"gt=0"` // requests per second
		Symbols   []string `yaml:"symbols" validate:"min=1"`
	} `yaml:"data_source"`
	Screening struct {
		Benchmark    string `yaml:"benchmark"`
		RSLookback   int    `yaml:"rs_lookback"`
		TrendOffset  int    `yaml:"trend_offset"`
		RangeWindow  int    `yaml:"range_window"`
		VolumePeriod int    `yaml:"volume_period"`
		HistoryDays  int    `yaml:"history_days" validate:"min=200"`
		MinPassed    int    `yaml:"min_passed" validate:"min=0,max=14"`
		TopN         int    `yaml:"top_n" validate:"gt=0"`
	} `yaml:"screening"`
	Signal struct {
		ModelURL     string        `yaml:"model_url"`
		ModelTimeout time.Duration `yaml:"model_timeout"`
	} `yaml:"signal"`
	Workers struct {
		Concurrency int `yaml:"concurrency" validate:"gt=0"`
	} `yaml:"workers"`
	Schedule struct {
		DailyCron string `yaml:"daily_cron" validate:"required"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Cache struct {
		RedisAddr string        `yaml:"redis_addr"`
		TTL       time.Duration `yaml:"ttl"`
	} `yaml:"cache"`
	Telegram struct {
		BotToken string `yaml:"bot_token" validate:"required_with=ChatID"`
		ChatID   string `yaml:"chat_id" validate:"required_with=BotToken"`
	} `yaml:"telegram"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads .env, then the YAML file, then applies environment variable
// overrides and defaults.
func Load(path string) (*Config, error) {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("VSTRADER_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("VSTRADER_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("MODEL_URL"); v != "" {
		cfg.Signal.ModelURL = v
	}
	if v := os.Getenv("SCREENER_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("SCREENER_CONCURRENCY: %w", err)
		}
		cfg.Workers.Concurrency = n
	}
	if v := os.Getenv("SCREENER_SYMBOLS"); v != "" {
		cfg.DataSource.Symbols = splitSymbols(v)
	}
	if v := os.Getenv("CRON_DAILY"); v != "" {
		cfg.Schedule.DailyCron = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DataSource.Provider == "" {
		if c.DataSource.BaseURL != "" {
			c.DataSource.Provider = "vstrader"
		} else {
			c.DataSource.Provider = "yahoo"
		}
	}
	if c.DataSource.RateLimit == 0 {
		c.DataSource.RateLimit = 2
	}
	if c.Screening.Benchmark == "" {
		c.Screening.Benchmark = "SPY"
	}
	if c.Screening.RSLookback == 0 {
		c.Screening.RSLookback = 60
	}
	if c.Screening.TrendOffset == 0 {
		c.Screening.TrendOffset = 20
	}
	if c.Screening.RangeWindow == 0 {
		c.Screening.RangeWindow = 252
	}
	if c.Screening.VolumePeriod == 0 {
		c.Screening.VolumePeriod = 50
	}
	if c.Screening.HistoryDays == 0 {
		c.Screening.HistoryDays = 300
	}
	if c.Screening.MinPassed == 0 {
		c.Screening.MinPassed = 10
	}
	if c.Screening.TopN == 0 {
		c.Screening.TopN = 5
	}
	if c.Signal.ModelTimeout == 0 {
		c.Signal.ModelTimeout = 5 * time.Second
	}
	if c.Workers.Concurrency == 0 {
		c.Workers.Concurrency = 4
	}
	if c.Schedule.DailyCron == "" {
		c.Schedule.DailyCron = "0 30 22 * * 1-5"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/screener.db"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 6 * time.Hour
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9102"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

var validate = validator.New()

// Validate checks that the fields needed to run are set and within range.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// TelegramEnabled reports whether chat notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

func splitSymbols(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
