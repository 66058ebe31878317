package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"TrendSentinel/internal/calculator"
)

// CronParser parses the seconds-resolution schedules used by the scheduler.
var CronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// binanceIntervals are the kline intervals the exchange accepts.
var binanceIntervals = map[string]bool{
	"1m": true, "3m": true, "5m": true, "15m": true, "30m": true,
	"1h": true, "2h": true, "4h": true, "6h": true, "8h": true, "12h": true,
	"1d": true, "3d": true, "1w": true, "1M": true,
}

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken   string `yaml:"bot_token"`
		ChatID     string `yaml:"chat_id"`
		APIURL     string `yaml:"api_url"`
		MaxRetries int    `yaml:"max_retries"`
	} `yaml:"telegram"`
	Binance struct {
		APIKey            string  `yaml:"api_key"`
		APISecret         string  `yaml:"api_secret"`
		BaseURL           string  `yaml:"base_url"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
	} `yaml:"binance"`
	Analysis struct {
		Symbols        []string `yaml:"symbols"`
		Timeframe      string   `yaml:"timeframe"`
		Limit          int      `yaml:"limit"`
		ShortWindow    int      `yaml:"short_window"`
		LongWindow     int      `yaml:"long_window"`
		ExtremaWindow  int      `yaml:"extrema_window"`
		IgnoreLast     int      `yaml:"ignore_last"`
		LookbackWindow string   `yaml:"lookback_window"`
		LevelWindows   []string `yaml:"level_windows"`
		Concurrency    int      `yaml:"concurrency"`
	} `yaml:"analysis"`
	Alerts struct {
		MinPriceChange float64       `yaml:"min_price_change"`
		ProximityPct   float64       `yaml:"proximity_pct"`
		Cooldown       time.Duration `yaml:"cooldown"`
		SendChart      bool          `yaml:"send_chart"`
	} `yaml:"alerts"`
	Schedule struct {
		Cron       string `yaml:"cron"`
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Storage struct {
		SQLitePath string `yaml:"sqlite_path"`
		RedisAddr  string `yaml:"redis_addr"`
	} `yaml:"storage"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	LogLevel  string `yaml:"log_level"`
	// LogFormat is "json" or "console".
	LogFormat string `yaml:"log_format"`
	Proxy     string `yaml:"proxy"`

	// Backtest runs the crossover backtest once instead of the alert loop.
	Backtest bool `yaml:"-"`
}

// Default returns a config populated with the default values.
func Default() *Config {
	cfg := &Config{}
	cfg.Telegram.MaxRetries = 3
	cfg.Binance.RequestsPerSecond = 10
	cfg.Analysis.Symbols = []string{"BTCUSDT"}
	cfg.Analysis.Timeframe = "1h"
	cfg.Analysis.Limit = 100
	cfg.Analysis.ShortWindow = 5
	cfg.Analysis.LongWindow = 20
	cfg.Analysis.ExtremaWindow = calculator.DefaultExtremaWindow
	cfg.Analysis.IgnoreLast = calculator.DefaultIgnoreLast
	cfg.Analysis.LevelWindows = append([]string(nil), calculator.DefaultLevelWindows...)
	cfg.Analysis.Concurrency = 4
	cfg.Alerts.MinPriceChange = 0.10
	cfg.Alerts.ProximityPct = 5
	cfg.Alerts.SendChart = true
	cfg.Schedule.Cron = "0 0 * * * *"
	cfg.Storage.SQLitePath = "data/trendsentinel.db"
	cfg.LogLevel = "info"
	cfg.LogFormat = "json"
	return cfg
}

// Load reads config from a YAML file on top of the defaults, then applies
// environment variable overrides. A .env file next to the process is loaded first
// when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.Analysis.LookbackWindow == "" {
		cfg.Analysis.LookbackWindow = cfg.Analysis.Timeframe
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"TELEGRAM_BOT_TOKEN": &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":   &c.Telegram.ChatID,
		"BINANCE_API_KEY":    &c.Binance.APIKey,
		"BINANCE_API_SECRET": &c.Binance.APISecret,
		"TIMEFRAME":          &c.Analysis.Timeframe,
		"LOOKBACK_WINDOW":    &c.Analysis.LookbackWindow,
		"CRON_SCHEDULE":      &c.Schedule.Cron,
		"SQLITE_PATH":        &c.Storage.SQLitePath,
		"REDIS_ADDR":         &c.Storage.RedisAddr,
		"METRICS_ADDR":       &c.Metrics.Addr,
		"LOG_LEVEL":          &c.LogLevel,
		"LOG_FORMAT":         &c.LogFormat,
		"HTTPS_PROXY":        &c.Proxy,
	}
	for name, dst := range strs {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("TRADING_SYMBOLS"); v != "" {
		c.Analysis.Symbols = splitSymbols(v)
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RUN_ON_START: %w", err)
		}
		c.Schedule.RunOnStart = b
	}
	return nil
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

// Validate asserts the config sane inputs.
func (c *Config) Validate() error {
	var errs error

	if !c.Backtest {
		if c.Telegram.BotToken == "" {
			errs = errors.Join(errs, fmt.Errorf("telegram.bot_token is required"))
		}
		if c.Telegram.ChatID == "" {
			errs = errors.Join(errs, fmt.Errorf("telegram.chat_id is required"))
		}
		if _, err := CronParser.Parse(c.Schedule.Cron); err != nil {
			errs = errors.Join(errs, fmt.Errorf("schedule.cron %q: %w", c.Schedule.Cron, err))
		}
	}

	a := c.Analysis
	if len(a.Symbols) == 0 {
		errs = errors.Join(errs, fmt.Errorf("analysis.symbols cannot be empty"))
	}
	if !binanceIntervals[a.Timeframe] {
		errs = errors.Join(errs, fmt.Errorf("analysis.timeframe %q is not a supported interval", a.Timeframe))
	}
	if a.Limit < 1 || a.Limit > 1000 {
		errs = errors.Join(errs, fmt.Errorf("analysis.limit must be within 1..1000, got %d", a.Limit))
	}
	if a.ShortWindow <= 0 || a.LongWindow <= a.ShortWindow {
		errs = errors.Join(errs, fmt.Errorf("analysis.short_window (%d) must be positive and below long_window (%d)",
			a.ShortWindow, a.LongWindow))
	}
	if a.ExtremaWindow <= 0 {
		errs = errors.Join(errs, fmt.Errorf("analysis.extrema_window must be positive"))
	}
	if a.IgnoreLast < 0 {
		errs = errors.Join(errs, fmt.Errorf("analysis.ignore_last cannot be negative"))
	}
	if _, err := calculator.ParseLookback(a.LookbackWindow); err != nil {
		errs = errors.Join(errs, fmt.Errorf("analysis.lookback_window: %w", err))
	}
	for _, w := range a.LevelWindows {
		if _, err := calculator.ParseLookback(w); err != nil {
			errs = errors.Join(errs, fmt.Errorf("analysis.level_windows: %w", err))
		}
	}
	if a.Concurrency < 1 {
		errs = errors.Join(errs, fmt.Errorf("analysis.concurrency must be at least 1"))
	}

	if c.Alerts.MinPriceChange < 0 {
		errs = errors.Join(errs, fmt.Errorf("alerts.min_price_change cannot be negative"))
	}
	if c.Alerts.ProximityPct < 0 {
		errs = errors.Join(errs, fmt.Errorf("alerts.proximity_pct cannot be negative"))
	}
	if c.Alerts.Cooldown < 0 {
		errs = errors.Join(errs, fmt.Errorf("alerts.cooldown cannot be negative"))
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		errs = errors.Join(errs, fmt.Errorf("log_format must be json or console, got %q", c.LogFormat))
	}

	return errs
}
