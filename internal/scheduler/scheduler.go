package scheduler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/collector"
	"TrendSentinel/internal/metrics"
	"TrendSentinel/internal/model"
	"TrendSentinel/internal/notifier"
	"TrendSentinel/internal/recorder"
	"TrendSentinel/internal/strategy"
)

const helpText = "Available commands:\n" +
	"• /check SYMBOL - analyse a symbol now\n" +
	"• /symbols - list watched symbols\n" +
	"• /status - last run summary\n" +
	"• /backtest SYMBOL - SMA crossover backtest"

// Notifier delivers alerts.
type Notifier interface {
	SendText(ctx context.Context, text string, maxRetries int) error
	SendChart(ctx context.Context, caption string, png []byte, maxRetries int) error
}

// Renderer draws an analysis chart.
type Renderer interface {
	Render(a *model.Analysis, timeframe string) ([]byte, error)
}

// Config represents the scheduler configuration.
type Config struct {
	Collector *collector.Collector
	Notifier  Notifier
	Recorder  recorder.Recorder
	// Renderer draws alert charts. Nil disables charts.
	Renderer Renderer
	// Cooldown suppresses repeat alerts. Nil disables it.
	Cooldown strategy.CooldownStore
	Policy   strategy.Policy
	Metrics  *metrics.Metrics
	// Health is updated after every run when set.
	Health *metrics.HealthStatus

	Symbols     []string
	Timeframe   string
	CronSpec    string
	ShortWindow int
	LongWindow  int
	Concurrency int
	MaxRetries  int

	// Logger represents the scheduler logger.
	Logger *zerolog.Logger
}

// Scheduler runs the analysis cycle on a cron schedule and serves commands.
type Scheduler struct {
	cfg  *Config
	Cron *cron.Cron
	Ctx  context.Context

	mu      sync.Mutex
	lastRun *model.RunSummary
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, cfg *Config) *Scheduler {
	if cfg.Logger == nil {
		nop := zerolog.Nop()
		cfg.Logger = &nop
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	cl := cronLogger{cfg.Logger}
	return &Scheduler{
		cfg:  cfg,
		Cron: cron.New(cron.WithSeconds(), cron.WithLogger(cl), cron.WithChain(cron.SkipIfStillRunning(cl))),
		Ctx:  ctx,
	}
}

// Register registers the analysis cycle.
func (s *Scheduler) Register() error {
	if _, err := s.Cron.AddFunc(s.cfg.CronSpec, s.RunNow); err != nil {
		return fmt.Errorf("register analysis task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.cfg.Logger.Info().Msgf("scheduler started with schedule %q", s.cfg.CronSpec)
}

// Stop stops the cron scheduler and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.cfg.Logger.Info().Msg("scheduler stopped")
}

// RunNow runs an analysis cycle immediately, outside the schedule.
func (s *Scheduler) RunNow() {
	s.RunOnce(s.Ctx)
}

// LastRun returns the summary of the most recent cycle, or nil before the first.
func (s *Scheduler) LastRun() *model.RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// SendStart announces the bot and its watch list.
func (s *Scheduler) SendStart(ctx context.Context) {
	s.trySend(ctx, notifier.FormatStart(s.cfg.Symbols, s.cfg.Timeframe, s.cfg.CronSpec))
}

// RunOnce processes every symbol with bounded concurrency. A failing symbol is
// logged, recorded and counted without affecting the others.
func (s *Scheduler) RunOnce(ctx context.Context) *model.RunSummary {
	summary := &model.RunSummary{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Symbols:   len(s.cfg.Symbols),
		Outcomes:  make(map[string]int),
	}
	log := s.cfg.Logger.With().Str("run", summary.ID).Logger()
	log.Info().Msgf("running analysis for %d symbols", len(s.cfg.Symbols))

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for _, symbol := range s.cfg.Symbols {
		g.Go(func() error {
			outcome, alerted := s.processSymbol(ctx, summary.ID, symbol)
			mu.Lock()
			summary.Outcomes[outcome]++
			if alerted {
				summary.Alerts++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	summary.Duration = time.Since(summary.StartedAt)
	s.cfg.Metrics.ObserveCycle(summary.Duration, time.Now())
	if s.cfg.Health != nil {
		if failed := summary.Outcomes[collector.OutcomeFetchError]; failed > 0 && failed == summary.Symbols {
			s.cfg.Health.MarkFailure(errors.New("every symbol failed to fetch"))
		} else {
			s.cfg.Health.MarkSuccess(time.Now())
		}
	}

	s.mu.Lock()
	s.lastRun = summary
	s.mu.Unlock()

	log.Info().Dur("duration", summary.Duration).Int("alerts", summary.Alerts).Msg("analysis run complete")
	return summary
}

// analyze fetches and analyses one symbol, timing the fetch.
func (s *Scheduler) analyze(ctx context.Context, symbol string) (*model.Analysis, error) {
	start := time.Now()
	series, err := s.cfg.Collector.Fetch(ctx, symbol)
	s.cfg.Metrics.FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return s.cfg.Collector.AnalyzeSeries(symbol, series)
}

// processSymbol runs the full cycle for one symbol and returns its outcome and
// whether an alert was delivered.
func (s *Scheduler) processSymbol(ctx context.Context, runID, symbol string) (string, bool) {
	log := s.cfg.Logger.With().Str("run", runID).Str("symbol", symbol).Logger()

	a, err := s.analyze(ctx, symbol)
	if err == nil && len(a.Trendlines.ResistanceFull) == 0 {
		err = fmt.Errorf("no trendlines for %s: %w", symbol, calculator.ErrInsufficientData)
	}
	outcome := collector.Outcome(err)
	s.cfg.Metrics.ObserveAnalysis(outcome)
	if err != nil {
		if outcome == collector.OutcomeFetchError {
			log.Error().Msgf("analysis failed: %v", err)
		} else {
			log.Warn().Msgf("skipping symbol: %v", err)
		}
		if rerr := s.cfg.Recorder.RecordSkip(&recorder.SkipEvent{
			RunID: runID, Symbol: symbol, Outcome: outcome, Reason: err.Error(),
		}); rerr != nil {
			log.Error().Msgf("record skip: %v", rerr)
		}
		return outcome, false
	}

	decision, err := strategy.Evaluate(ctx, a, s.cfg.Policy, s.cfg.Cooldown)
	if err != nil {
		log.Warn().Msgf("alert policy: %v", err)
	}

	sent := false
	if decision.Notify {
		sent = s.sendAlert(ctx, a, decision.Marker)
		if sent && s.cfg.Cooldown != nil && s.cfg.Policy.Cooldown > 0 {
			if err := s.cfg.Cooldown.Mark(ctx, symbol, s.cfg.Policy.Cooldown); err != nil {
				log.Warn().Msgf("start cooldown: %v", err)
			}
		}
	} else {
		s.cfg.Metrics.ObserveAlert(metrics.AlertSuppressed)
		log.Info().Msgf("no alert: %s", decision.Reason)
	}

	if err := s.cfg.Recorder.RecordAnalysis(&recorder.AnalysisRecord{
		RunID: runID, Analysis: a, Decision: decision, Sent: sent,
	}); err != nil {
		log.Error().Msgf("record analysis: %v", err)
	}
	return outcome, sent
}

// sendAlert delivers the alert text followed by the chart, if enabled.
func (s *Scheduler) sendAlert(ctx context.Context, a *model.Analysis, marker string) bool {
	log := s.cfg.Logger.With().Str("symbol", a.Symbol).Logger()

	text := notifier.FormatAlert(a, marker, s.cfg.Timeframe, time.Now())
	if err := s.cfg.Notifier.SendText(ctx, text, s.cfg.MaxRetries); err != nil {
		s.cfg.Metrics.ObserveAlert(metrics.AlertFailed)
		log.Error().Msgf("send alert: %v", err)
		return false
	}
	s.cfg.Metrics.ObserveAlert(metrics.AlertSent)
	log.Info().Msg("alert sent")

	if s.cfg.Renderer == nil {
		return true
	}
	png, err := s.cfg.Renderer.Render(a, s.cfg.Timeframe)
	if err != nil {
		log.Error().Msgf("render chart: %v", err)
		return true
	}
	if err := s.cfg.Notifier.SendChart(ctx, a.Symbol+marker, png, s.cfg.MaxRetries); err != nil {
		log.Error().Msgf("send chart: %v", err)
	}
	return true
}

// RunBacktest runs the crossover backtest for every symbol. Symbols that fail
// are logged and left out of the results.
func (s *Scheduler) RunBacktest(ctx context.Context) []*model.BacktestResult {
	var results []*model.BacktestResult
	for _, symbol := range s.cfg.Symbols {
		res, err := s.backtest(ctx, symbol)
		if err != nil {
			s.cfg.Logger.Error().Str("symbol", symbol).Msgf("backtest failed: %v", err)
			continue
		}
		results = append(results, res)
	}
	return results
}

func (s *Scheduler) backtest(ctx context.Context, symbol string) (*model.BacktestResult, error) {
	series, err := s.cfg.Collector.Fetch(ctx, symbol)
	if err != nil {
		return nil, err
	}
	res, err := calculator.Backtest(symbol, series, s.cfg.ShortWindow, s.cfg.LongWindow)
	if err != nil {
		return nil, fmt.Errorf("backtesting %s: %w", symbol, err)
	}

	log := s.cfg.Logger.With().Str("symbol", symbol).Logger()
	tail := res.Rows[max(0, len(res.Rows)-5):]
	for _, row := range tail {
		log.Info().
			Time("time", row.Time).
			Float64("close", row.Close).
			Float64("strategy_return", row.StrategyReturn).
			Msg("backtest row")
	}
	log.Info().Int("trades", res.Trades).Float64("total_return", res.TotalReturn).Msg("backtest complete")

	if err := s.cfg.Recorder.RecordBacktest(res); err != nil {
		log.Error().Msgf("record backtest: %v", err)
	}
	return res, nil
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	// Commands in groups arrive as /cmd@BotName.
	cmd, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")
	var arg string
	if len(fields) > 1 {
		arg = strings.ToUpper(fields[1])
	}

	switch cmd {
	case "/check":
		if arg == "" {
			return "Usage: /check SYMBOL"
		}
		a, err := s.analyze(ctx, arg)
		if err != nil {
			return fmt.Sprintf("❌ %s analysis failed: %s", html.EscapeString(arg), html.EscapeString(err.Error()))
		}
		s.sendAlert(ctx, a, strategy.Marker(a.Metrics, s.cfg.Policy.ProximityPct))
		return ""
	case "/symbols":
		symbols := append([]string(nil), s.cfg.Symbols...)
		sort.Strings(symbols)
		return "👀 Watching: " + strings.Join(symbols, ", ")
	case "/status":
		return notifier.FormatStatus(s.LastRun(), s.cfg.Symbols)
	case "/backtest":
		if arg == "" {
			return "Usage: /backtest SYMBOL"
		}
		res, err := s.backtest(ctx, arg)
		if err != nil {
			return fmt.Sprintf("❌ %s backtest failed: %s", html.EscapeString(arg), html.EscapeString(err.Error()))
		}
		return notifier.FormatBacktest([]*model.BacktestResult{res})
	default:
		return helpText
	}
}

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if err := s.cfg.Notifier.SendText(ctx, text, s.cfg.MaxRetries); err != nil {
		s.cfg.Logger.Error().Msgf("send notification: %v", err)
	}
}

// cronLogger adapts zerolog to the cron logger interface.
type cronLogger struct {
	logger *zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
