package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"

	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/chart"
	"TrendSentinel/internal/collector"
	"TrendSentinel/internal/config"
	"TrendSentinel/internal/metrics"
	"TrendSentinel/internal/notifier"
	"TrendSentinel/internal/recorder"
	"TrendSentinel/internal/scheduler"
	"TrendSentinel/internal/strategy"
)

func main() {
	backtest := flag.Bool("backtest", false, "run the SMA crossover backtest once and exit")
	flag.Parse()

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	logger := log.With().Str("service", "trendsentinel").Logger()

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal().Msgf("load config: %v", err)
	}
	cfg.Backtest = *backtest
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Msgf("config validation: %v", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Fatal().Msgf("log level %q: %v", cfg.LogLevel, err)
	}
	logger = logger.Level(level)
	if cfg.LogFormat == "console" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	logger.Info().Msg("TrendSentinel starting...")

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := collector.NewBinanceFetcher(&collector.BinanceConfig{
		APIKey:            cfg.Binance.APIKey,
		APISecret:         cfg.Binance.APISecret,
		BaseURL:           cfg.Binance.BaseURL,
		ProxyURL:          cfg.Proxy,
		RequestsPerSecond: cfg.Binance.RequestsPerSecond,
		Logger:            &logger,
	})
	logger.Info().Msgf("data source: %s", fetcher.Name())

	col := collector.NewCollector(&collector.Config{
		Fetcher:     fetcher,
		Timeframe:   cfg.Analysis.Timeframe,
		Limit:       cfg.Analysis.Limit,
		Lookback:    cfg.Analysis.LookbackWindow,
		ShortWindow: cfg.Analysis.ShortWindow,
		LongWindow:  cfg.Analysis.LongWindow,
		Trendline: calculator.TrendlineOptions{
			ExtremaWindow: cfg.Analysis.ExtremaWindow,
			IgnoreLast:    cfg.Analysis.IgnoreLast,
		},
		LevelWindows: cfg.Analysis.LevelWindows,
		Logger:       &logger,
	})

	tn := notifier.NewTelegramNotifier(&notifier.TelegramConfig{
		BotToken: cfg.Telegram.BotToken,
		ChatID:   cfg.Telegram.ChatID,
		APIURL:   cfg.Telegram.APIURL,
		ProxyURL: cfg.Proxy,
		Logger:   &logger,
	})

	var rec recorder.Recorder
	if cfg.Storage.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Storage.SQLitePath, &logger)
		if err != nil {
			logger.Warn().Msgf("init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}
	defer rec.Close()

	var cooldown strategy.CooldownStore = notifier.NewMemoryCooldown()
	if cfg.Storage.RedisAddr != "" {
		rc := notifier.NewRedisCooldown(cfg.Storage.RedisAddr)
		if err := rc.Ping(ctx); err != nil {
			logger.Warn().Msgf("redis cooldown unavailable, using memory: %v", err)
			_ = rc.Close()
		} else {
			cooldown = rc
			defer rc.Close()
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	health := metrics.NewHealthStatus(healthMaxAge(cfg.Schedule.Cron))

	var renderer scheduler.Renderer
	if cfg.Alerts.SendChart {
		renderer = chart.NewRenderer()
	}

	sched := scheduler.NewScheduler(ctx, &scheduler.Config{
		Collector: col,
		Notifier:  tn,
		Recorder:  rec,
		Renderer:  renderer,
		Cooldown:  cooldown,
		Policy: strategy.Policy{
			MinPriceChange: cfg.Alerts.MinPriceChange,
			ProximityPct:   cfg.Alerts.ProximityPct,
			Cooldown:       cfg.Alerts.Cooldown,
		},
		Metrics:     metrics.NewMetrics(reg),
		Health:      health,
		Symbols:     cfg.Analysis.Symbols,
		Timeframe:   cfg.Analysis.Timeframe,
		CronSpec:    cfg.Schedule.Cron,
		ShortWindow: cfg.Analysis.ShortWindow,
		LongWindow:  cfg.Analysis.LongWindow,
		Concurrency: cfg.Analysis.Concurrency,
		MaxRetries:  cfg.Telegram.MaxRetries,
		Logger:      &logger,
	})

	if cfg.Backtest {
		results := sched.RunBacktest(ctx)
		if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
			if err := tn.SendText(ctx, notifier.FormatBacktest(results), cfg.Telegram.MaxRetries); err != nil {
				logger.Error().Msgf("send backtest summary: %v", err)
			}
		}
		return
	}

	if err := sched.Register(); err != nil {
		logger.Fatal().Msgf("register cron task: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	var srv *metrics.Server
	if cfg.Metrics.Addr != "" {
		srv = metrics.NewServer(cfg.Metrics.Addr, reg, health, &logger)
		srv.Start()
	}

	sched.SendStart(ctx)

	go tn.StartPolling(ctx, sched.HandleCommand)
	logger.Info().Msg("telegram polling started")

	if cfg.Schedule.RunOnStart {
		logger.Info().Msg("run on start enabled, analysing now")
		go sched.RunNow()
	}

	logger.Info().Msg("TrendSentinel is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutdown signal received, stopping...")
	cancel()
	if srv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Error().Msgf("stop metrics server: %v", err)
		}
	}
	logger.Info().Msg("TrendSentinel stopped")
}

// healthMaxAge allows three missed cycles of the schedule before the health
// endpoint reports degraded.
func healthMaxAge(spec string) time.Duration {
	sched, err := config.CronParser.Parse(spec)
	if err != nil {
		return 0
	}
	next := sched.Next(time.Now())
	return 3 * sched.Next(next).Sub(next)
}
