package calculator

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"TrendSentinel/internal/model"
)

// SMA computes the simple moving average of prices over period. Positions before
// the first full window are NaN.
func SMA(prices []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("sma period %d: %w", period, ErrConfiguration)
	}
	out := make([]float64, len(prices))
	if len(prices) < period {
		for i := range out {
			out[i] = math.NaN()
		}
		return out, nil
	}

	copy(out, talib.Sma(prices, period))
	for i := 0; i < period-1; i++ {
		out[i] = math.NaN()
	}
	return out, nil
}

// GenerateSignals computes the short/long moving-average crossover. The signal is
// 1 while the short average is above the long one, from position short onward, and
// positions holds its change from the previous bar.
func GenerateSignals(series model.Series, short, long int) (*model.Signals, error) {
	if short <= 0 || long <= 0 || short >= long {
		return nil, fmt.Errorf("short window %d must be positive and below long window %d: %w", short, long, ErrConfiguration)
	}
	if series.Empty() {
		return nil, fmt.Errorf("empty series: %w", ErrInsufficientData)
	}

	closes := series.Closes()
	shortSMA, err := SMA(closes, short)
	if err != nil {
		return nil, err
	}
	longSMA, err := SMA(closes, long)
	if err != nil {
		return nil, err
	}

	n := len(closes)
	s := &model.Signals{
		ShortSMA:  shortSMA,
		LongSMA:   longSMA,
		Signal:    make([]int, n),
		Positions: make([]int, n),
	}
	for i := short; i < n; i++ {
		if shortSMA[i] > longSMA[i] {
			s.Signal[i] = 1
		}
	}
	for i := 1; i < n; i++ {
		s.Positions[i] = s.Signal[i] - s.Signal[i-1]
		switch s.Positions[i] {
		case 1:
			s.Crossovers = append(s.Crossovers, crossover(series, i, model.CrossoverBuy))
		case -1:
			s.Crossovers = append(s.Crossovers, crossover(series, i, model.CrossoverSell))
		}
	}
	return s, nil
}

func crossover(series model.Series, i int, side model.CrossoverSide) model.Crossover {
	c := series.At(i)
	return model.Crossover{Position: i, Time: c.Time, Price: c.Close, Side: side}
}

// Backtest replays the crossover positions over the series. Each bar's strategy
// return is its close-to-close return scaled by the previous bar's position. The
// first bar has no return and carries NaN, as does any bar whose return is not a
// finite number; such bars leave the compounded total unchanged.
func Backtest(symbol string, series model.Series, short, long int) (*model.BacktestResult, error) {
	signals, err := GenerateSignals(series, short, long)
	if err != nil {
		return nil, err
	}

	res := &model.BacktestResult{
		Symbol: symbol,
		Rows:   make([]model.BacktestRow, series.Len()),
		Trades: len(signals.Crossovers),
	}
	equity := 1.0
	for i := range series.Len() {
		c := series.At(i)
		row := model.BacktestRow{
			Time:           c.Time,
			Close:          c.Close,
			Position:       signals.Positions[i],
			Return:         math.NaN(),
			StrategyReturn: math.NaN(),
		}
		if i > 0 {
			row.Return = c.Close/series.At(i-1).Close - 1
			row.StrategyReturn = row.Return * float64(signals.Positions[i-1])
		}
		if model.Defined(row.StrategyReturn) {
			equity *= 1 + row.StrategyReturn
		}
		res.Rows[i] = row
	}
	res.TotalReturn = equity - 1
	return res, nil
}
