package model

import "time"

// Classification holds the series positions where the close crossed above
// resistance, fell below support, or sat exactly on either line.
type Classification struct {
	Breakout  []int
	Breakdown []int
	Touching  []int
}

// Empty reports whether no position was classified.
func (c Classification) Empty() bool {
	return len(c.Breakout) == 0 && len(c.Breakdown) == 0 && len(c.Touching) == 0
}

// CrossoverSide is the direction of a moving-average crossover.
type CrossoverSide string

const (
	CrossoverBuy  CrossoverSide = "BUY"
	CrossoverSell CrossoverSide = "SELL"
)

// Crossover is a moving-average crossover event.
type Crossover struct {
	Position int
	Time     time.Time
	Price    float64
	Side     CrossoverSide
}

// Signals is the output of the moving-average crossover generator.
type Signals struct {
	ShortSMA   []float64
	LongSMA    []float64
	Signal     []int
	Positions  []int
	Crossovers []Crossover
}

// BacktestRow is one bar of a crossover backtest.
type BacktestRow struct {
	Time           time.Time
	Close          float64
	Position       int
	Return         float64
	StrategyReturn float64
}

// BacktestResult summarises a crossover backtest.
type BacktestResult struct {
	Symbol      string
	Rows        []BacktestRow
	Trades      int
	TotalReturn float64
}

// Analysis is everything computed for one symbol in one run.
type Analysis struct {
	Symbol         string
	Timeframe      string
	Series         Series
	Trendlines     Trendlines
	Classification Classification
	Metrics        *Metrics
	Levels         []Level
	Signals        *Signals
	ComputedAt     time.Time
}

// AlertDecision is the outcome of the alert policy for one analysis.
type AlertDecision struct {
	Notify bool
	Reason string
	Marker string
}

// RunSummary describes one scheduled pass over the watched symbols.
type RunSummary struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	Symbols   int
	Alerts    int
	// Outcomes counts symbols per analysis outcome.
	Outcomes map[string]int
}
