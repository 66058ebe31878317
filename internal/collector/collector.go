package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/model"
)

// Analysis outcomes, used as log fields and metric labels.
const (
	OutcomeOK               = "ok"
	OutcomeInsufficientData = "insufficient_data"
	OutcomeInvalidNumeric   = "invalid_numeric"
	OutcomeConfiguration    = "configuration"
	OutcomeFetchError       = "fetch_error"
)

// ErrFetch wraps failures to retrieve market data.
var ErrFetch = errors.New("fetch failed")

// Outcome classifies an analysis error into its outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrFetch):
		return OutcomeFetchError
	case errors.Is(err, calculator.ErrInsufficientData):
		return OutcomeInsufficientData
	case errors.Is(err, calculator.ErrInvalidNumeric):
		return OutcomeInvalidNumeric
	case errors.Is(err, calculator.ErrConfiguration):
		return OutcomeConfiguration
	default:
		return OutcomeFetchError
	}
}

// Config represents the collector configuration.
type Config struct {
	// Fetcher retrieves candles.
	Fetcher Fetcher
	// Timeframe is the candle interval, e.g. "1h".
	Timeframe string
	// Limit is the number of candles fetched per analysis.
	Limit int
	// Lookback bounds the window high and low used for the metrics.
	Lookback string
	// ShortWindow and LongWindow are the crossover moving-average periods.
	ShortWindow int
	LongWindow  int
	// Trendline configures extremum detection.
	Trendline calculator.TrendlineOptions
	// LevelWindows are the lookbacks reported as horizontal levels.
	LevelWindows []string
	// Logger represents the collector logger.
	Logger *zerolog.Logger
}

// Collector orchestrates data fetching and the analysis pipeline.
type Collector struct {
	cfg *Config
	now func() time.Time
}

// NewCollector creates a new Collector.
func NewCollector(cfg *Config) *Collector {
	if cfg.Logger == nil {
		nop := zerolog.Nop()
		cfg.Logger = &nop
	}
	return &Collector{cfg: cfg, now: time.Now}
}

// Fetch retrieves the configured candle window for symbol.
func (c *Collector) Fetch(ctx context.Context, symbol string) (model.Series, error) {
	series, err := c.cfg.Fetcher.FetchCandles(ctx, symbol, c.cfg.Timeframe, c.cfg.Limit)
	if err != nil {
		return model.Series{}, fmt.Errorf("%s via %s: %w: %w", symbol, c.cfg.Fetcher.Name(), ErrFetch, err)
	}
	return series, nil
}

// Analyze fetches candles for symbol and runs the full analysis over them.
func (c *Collector) Analyze(ctx context.Context, symbol string) (*model.Analysis, error) {
	series, err := c.Fetch(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return c.AnalyzeSeries(symbol, series)
}

// AnalyzeSeries runs trendline detection, classification, metrics, levels and the
// crossover signals over series. Only an unusable series fails the analysis;
// trendlines, levels and signals that cannot be computed are left empty.
func (c *Collector) AnalyzeSeries(symbol string, series model.Series) (*model.Analysis, error) {
	log := c.cfg.Logger.With().Str("symbol", symbol).Logger()

	metrics, err := calculator.ComputeMetrics(series, c.cfg.Lookback)
	if err != nil {
		return nil, fmt.Errorf("computing %s metrics: %w", symbol, err)
	}
	for _, w := range metrics.Warnings {
		log.Warn().Msgf("metric skipped: %s", w)
	}

	a := &model.Analysis{
		Symbol:     symbol,
		Timeframe:  c.cfg.Timeframe,
		Series:     series,
		Metrics:    metrics,
		ComputedAt: c.now().UTC(),
	}

	lines, err := calculator.DetectTrendlines(series, c.cfg.Trendline)
	switch {
	case err == nil:
		a.Trendlines = lines
		a.Classification = calculator.Classify(series.Closes(), lines.ResistanceFull, lines.SupportFull)
	case calculator.Absent(err):
		a.Trendlines = lines
		log.Debug().Msgf("no trendlines: %v", err)
	default:
		return nil, fmt.Errorf("detecting %s trendlines: %w", symbol, err)
	}

	levels, skipped := calculator.Levels(series, c.cfg.LevelWindows)
	a.Levels = levels
	for _, err := range skipped {
		log.Warn().Msgf("level skipped: %v", err)
	}

	if c.cfg.ShortWindow > 0 && c.cfg.LongWindow > 0 {
		signals, err := calculator.GenerateSignals(series, c.cfg.ShortWindow, c.cfg.LongWindow)
		if err != nil {
			log.Warn().Msgf("crossover signals skipped: %v", err)
		} else {
			a.Signals = signals
			for _, x := range signals.Crossovers {
				log.Debug().Msgf("%s crossover at %s, price %.8g", x.Side, x.Time.Format(time.RFC3339), x.Price)
			}
		}
	}

	log.Info().
		Int("candles", series.Len()).
		Int("breakouts", len(a.Classification.Breakout)).
		Int("breakdowns", len(a.Classification.Breakdown)).
		Int("touches", len(a.Classification.Touching)).
		Msg("analysis complete")
	return a, nil
}
