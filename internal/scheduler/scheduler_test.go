package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/peterldowns/testy/assert"
	"github.com/prometheus/client_golang/prometheus"

	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/collector"
	"TrendSentinel/internal/metrics"
	"TrendSentinel/internal/model"
	"TrendSentinel/internal/notifier"
	"TrendSentinel/internal/recorder"
	"TrendSentinel/internal/strategy"
)

// symbolFetcher serves fixed candles per symbol.
type symbolFetcher struct {
	candles map[string][]model.Candle
	errs    map[string]error
}

func (f *symbolFetcher) Name() string { return "test" }

func (f *symbolFetcher) FetchCandles(_ context.Context, symbol, _ string, _ int) (model.Series, error) {
	if err, ok := f.errs[symbol]; ok {
		return model.Series{}, err
	}
	candles, ok := f.candles[symbol]
	if !ok {
		return model.Series{}, errors.New("unknown symbol")
	}
	return model.NewSeries(candles)
}

type fakeNotifier struct {
	mu     sync.Mutex
	texts  []string
	charts []string
	err    error
}

func (n *fakeNotifier) setErr(err error) {
	n.mu.Lock()
	n.err = err
	n.mu.Unlock()
}

func (n *fakeNotifier) SendText(_ context.Context, text string, _ int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.texts = append(n.texts, text)
	return nil
}

func (n *fakeNotifier) SendChart(_ context.Context, caption string, _ []byte, _ int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.charts = append(n.charts, caption)
	return nil
}

type fakeRenderer struct{}

func (fakeRenderer) Render(_ *model.Analysis, _ string) ([]byte, error) {
	return []byte("png"), nil
}

// fakeRecorder keeps records in memory.
type fakeRecorder struct {
	recorder.NoopRecorder
	mu        sync.Mutex
	analyses  []*recorder.AnalysisRecord
	skips     []*recorder.SkipEvent
	backtests []*model.BacktestResult
}

func (r *fakeRecorder) RecordAnalysis(rec *recorder.AnalysisRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyses = append(r.analyses, rec)
	return nil
}

func (r *fakeRecorder) RecordSkip(evt *recorder.SkipEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skips = append(r.skips, evt)
	return nil
}

func (r *fakeRecorder) RecordBacktest(res *model.BacktestResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backtests = append(r.backtests, res)
	return nil
}

// swingCandles has two peaks and three troughs before a final rally. changePct
// sets the last candle's close-to-open move.
func swingCandles(changePct float64) []model.Candle {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	highs := []float64{1, 2, 5, 2, 1, 2, 6, 2, 1, 7, 8}
	candles := make([]model.Candle, len(highs))
	for i, h := range highs {
		candles[i] = model.Candle{
			Time:                start.Add(time.Duration(i) * time.Hour),
			Open:                h - 0.25,
			High:                h,
			Low:                 h - 0.5,
			Close:               h - 0.25,
			TakerBuyBaseVolume:  10,
			TakerBuyQuoteVolume: 5,
		}
	}
	last := &candles[len(candles)-1]
	last.Close = last.Open * (1 + changePct/100)
	return candles
}

type harness struct {
	fetcher  *symbolFetcher
	sched    *Scheduler
	notifier *fakeNotifier
	recorder *fakeRecorder
	health   *metrics.HealthStatus
}

func newHarness(t *testing.T, candles map[string][]model.Candle, symbols ...string) *harness {
	t.Helper()
	h := &harness{
		fetcher:  &symbolFetcher{candles: candles, errs: make(map[string]error)},
		notifier: &fakeNotifier{},
		recorder: &fakeRecorder{},
		health:   metrics.NewHealthStatus(time.Hour),
	}
	coll := collector.NewCollector(&collector.Config{
		Fetcher:      h.fetcher,
		Timeframe:    "1h",
		Limit:        11,
		Lookback:     "4h",
		ShortWindow:  2,
		LongWindow:   4,
		Trendline:    calculator.TrendlineOptions{ExtremaWindow: 2, IgnoreLast: 2},
		LevelWindows: []string{"1h"},
	})
	policy := strategy.DefaultPolicy()
	policy.Cooldown = time.Hour
	h.sched = NewScheduler(context.Background(), &Config{
		Collector:   coll,
		Notifier:    h.notifier,
		Recorder:    h.recorder,
		Renderer:    fakeRenderer{},
		Cooldown:    notifier.NewMemoryCooldown(),
		Policy:      policy,
		Metrics:     metrics.NewMetrics(prometheus.NewRegistry()),
		Health:      h.health,
		Symbols:     symbols,
		Timeframe:   "1h",
		CronSpec:    "0 */5 * * * *",
		ShortWindow: 2,
		LongWindow:  4,
		Concurrency: 2,
		MaxRetries:  1,
	})
	return h
}

func TestRunOnce(t *testing.T) {
	h := newHarness(t, map[string][]model.Candle{
		"BTCUSDT": swingCandles(1),
		"ETHUSDT": swingCandles(0),
		"SOLUSDT": swingCandles(1)[:3],
	}, "BTCUSDT", "ETHUSDT", "SOLUSDT", "XRPUSDT")

	summary := h.sched.RunOnce(context.Background())
	assert.Equal(t, summary.Symbols, 4)
	assert.Equal(t, summary.Alerts, 1)
	assert.Equal(t, summary.Outcomes[collector.OutcomeOK], 2)
	assert.Equal(t, summary.Outcomes[collector.OutcomeInsufficientData], 1)
	assert.Equal(t, summary.Outcomes[collector.OutcomeFetchError], 1)
	assert.Equal(t, h.sched.LastRun(), summary)

	// Ensure only the mover was alerted, with its chart.
	assert.Equal(t, len(h.notifier.texts), 1)
	assert.True(t, strings.Contains(h.notifier.texts[0], "BTCUSDT"))
	assert.Equal(t, len(h.notifier.charts), 1)

	// Ensure analyses and skips were recorded.
	assert.Equal(t, len(h.recorder.analyses), 2)
	assert.Equal(t, len(h.recorder.skips), 2)
	for _, rec := range h.recorder.analyses {
		assert.Equal(t, rec.RunID, summary.ID)
		assert.Equal(t, rec.Sent, rec.Analysis.Symbol == "BTCUSDT")
	}

	// Ensure the cooldown suppresses the repeat alert.
	summary = h.sched.RunOnce(context.Background())
	assert.Equal(t, summary.Alerts, 0)
	assert.Equal(t, len(h.notifier.texts), 1)
}

func TestRunOnceSendFailure(t *testing.T) {
	h := newHarness(t, map[string][]model.Candle{"BTCUSDT": swingCandles(-2)}, "BTCUSDT")
	h.notifier.err = errors.New("telegram down")

	summary := h.sched.RunOnce(context.Background())
	assert.Equal(t, summary.Alerts, 0)
	assert.Equal(t, summary.Outcomes[collector.OutcomeOK], 1)
	assert.Equal(t, len(h.recorder.analyses), 1)
	assert.True(t, h.recorder.analyses[0].Decision.Notify)
	assert.False(t, h.recorder.analyses[0].Sent)
	assert.Equal(t, len(h.notifier.charts), 0)
}

func TestRunOnceCooldownStartsAfterDelivery(t *testing.T) {
	h := newHarness(t, map[string][]model.Candle{"BTCUSDT": swingCandles(1)}, "BTCUSDT")
	ctx := context.Background()

	// Ensure a failed delivery does not start the cooldown.
	h.notifier.setErr(errors.New("telegram down"))
	summary := h.sched.RunOnce(ctx)
	assert.Equal(t, summary.Alerts, 0)

	h.notifier.setErr(nil)
	summary = h.sched.RunOnce(ctx)
	assert.Equal(t, summary.Alerts, 1)
	assert.Equal(t, len(h.notifier.texts), 1)

	// Ensure the delivered alert starts it.
	summary = h.sched.RunOnce(ctx)
	assert.Equal(t, summary.Alerts, 0)
	last := h.recorder.analyses[len(h.recorder.analyses)-1]
	assert.Equal(t, last.Decision.Reason, "cooling down for 1h0m0s")
}

func TestRunOnceAllFailed(t *testing.T) {
	h := newHarness(t, nil, "BTCUSDT")
	h.sched.RunOnce(context.Background())
	assert.True(t, h.health.LastSuccess.IsZero())
	assert.Equal(t, h.health.LastError, "every symbol failed to fetch")
}

func TestRunBacktest(t *testing.T) {
	h := newHarness(t, map[string][]model.Candle{"BTCUSDT": swingCandles(1)}, "BTCUSDT", "XRPUSDT")

	results := h.sched.RunBacktest(context.Background())
	assert.Equal(t, len(results), 1)
	assert.Equal(t, results[0].Symbol, "BTCUSDT")
	assert.Equal(t, len(results[0].Rows), 11)
	assert.Equal(t, len(h.recorder.backtests), 1)
}

func TestHandleCommand(t *testing.T) {
	h := newHarness(t, map[string][]model.Candle{"BTCUSDT": swingCandles(0)}, "ETHUSDT", "BTCUSDT")
	ctx := context.Background()

	assert.Equal(t, h.sched.HandleCommand(ctx, "/symbols"), "👀 Watching: BTCUSDT, ETHUSDT")
	assert.Equal(t, h.sched.HandleCommand(ctx, "/unknown"), helpText)
	assert.Equal(t, h.sched.HandleCommand(ctx, ""), helpText)
	assert.Equal(t, h.sched.HandleCommand(ctx, "/check"), "Usage: /check SYMBOL")

	// Ensure /check alerts regardless of the price change threshold.
	assert.Equal(t, h.sched.HandleCommand(ctx, "/check@TrendSentinelBot btcusdt"), "")
	assert.Equal(t, len(h.notifier.texts), 1)
	assert.Equal(t, len(h.notifier.charts), 1)

	reply := h.sched.HandleCommand(ctx, "/check XRPUSDT")
	assert.True(t, strings.HasPrefix(reply, "❌ XRPUSDT analysis failed"))

	// Ensure exchange errors are escaped for HTML replies.
	h.fetcher.errs["FOOUSDT"] = &common.APIError{Code: -1121, Message: "Invalid symbol."}
	reply = h.sched.HandleCommand(ctx, "/check FOOUSDT")
	assert.True(t, strings.Contains(reply, "&lt;APIError&gt; code=-1121"))
	assert.False(t, strings.Contains(reply, "<APIError>"))
	reply = h.sched.HandleCommand(ctx, "/backtest <b>")
	assert.True(t, strings.HasPrefix(reply, "❌ &lt;B&gt; backtest failed"))

	reply = h.sched.HandleCommand(ctx, "/backtest BTCUSDT")
	assert.True(t, strings.Contains(reply, "BTCUSDT"))

	h.sched.RunOnce(ctx)
	reply = h.sched.HandleCommand(ctx, "/status")
	assert.Equal(t, reply, notifier.FormatStatus(h.sched.LastRun(), []string{"ETHUSDT", "BTCUSDT"}))
}

func TestRegister(t *testing.T) {
	h := newHarness(t, nil)
	assert.NoError(t, h.sched.Register())
	assert.Equal(t, len(h.sched.Cron.Entries()), 1)

	h.sched.cfg.CronSpec = "not a schedule"
	assert.Error(t, h.sched.Register())
}
