package calculator

import (
	"errors"
	"math"
	"testing"

	"github.com/peterldowns/testy/assert"

	"TrendSentinel/internal/model"
)

func TestSMA(t *testing.T) {
	sma, err := SMA([]float64{1, 2, 3, 4, 5}, 3)
	assert.NoError(t, err)
	assert.True(t, math.IsNaN(sma[0]))
	assert.True(t, math.IsNaN(sma[1]))
	assert.Equal(t, sma[2:], []float64{2, 3, 4})

	// Ensure a window longer than the data is all NaN.
	sma, err = SMA([]float64{1, 2}, 3)
	assert.NoError(t, err)
	assert.Equal(t, len(sma), 2)
	assert.True(t, math.IsNaN(sma[1]))

	_, err = SMA([]float64{1}, 0)
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestGenerateSignals(t *testing.T) {
	series := seriesFromCloses(t, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})

	signals, err := GenerateSignals(series, 3, 5)
	assert.NoError(t, err)
	assert.Equal(t, signals.LongSMA[4:], []float64{3, 4, 5, 6, 7, 8})
	assert.Equal(t, signals.Signal, []int{0, 0, 0, 0, 1, 1, 1, 1, 1, 1})
	assert.Equal(t, signals.Positions, []int{0, 0, 0, 0, 1, 0, 0, 0, 0, 0})
	assert.Equal(t, len(signals.Crossovers), 1)
	assert.Equal(t, signals.Crossovers[0].Side, model.CrossoverBuy)
	assert.Equal(t, signals.Crossovers[0].Price, 5.0)

	// Ensure a falling market after the rise produces a sell.
	series = seriesFromCloses(t, []float64{1, 2, 3, 4, 5, 6, 5, 4, 3, 2})
	signals, err = GenerateSignals(series, 2, 4)
	assert.NoError(t, err)
	assert.Equal(t, signals.Crossovers[len(signals.Crossovers)-1].Side, model.CrossoverSell)

	_, err = GenerateSignals(series, 5, 3)
	assert.True(t, errors.Is(err, ErrConfiguration))
	_, err = GenerateSignals(model.Series{}, 3, 5)
	assert.True(t, errors.Is(err, ErrInsufficientData))
}

func TestBacktest(t *testing.T) {
	series := seriesFromCloses(t, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})

	res, err := Backtest("BTCUSDT", series, 3, 5)
	assert.NoError(t, err)
	assert.Equal(t, res.Symbol, "BTCUSDT")
	assert.Equal(t, len(res.Rows), 10)
	assert.Equal(t, res.Trades, 1)

	// Ensure the first bar has no return.
	assert.True(t, math.IsNaN(res.Rows[0].Return))
	assert.True(t, math.IsNaN(res.Rows[0].StrategyReturn))
	assert.True(t, math.Abs(res.Rows[1].Return-1) < 1e-12)

	// Ensure only the bar after the entry carries a strategy return.
	for i, row := range res.Rows[1:] {
		if i+1 == 5 {
			assert.True(t, math.Abs(row.StrategyReturn-0.2) < 1e-12)
			continue
		}
		assert.Equal(t, row.StrategyReturn, 0.0)
	}
	assert.True(t, math.Abs(res.TotalReturn-0.2) < 1e-12)

	// Ensure a zero close yields an undefined return that the total skips.
	series = seriesFromCloses(t, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	res, err = Backtest("BTCUSDT", series, 3, 5)
	assert.NoError(t, err)
	assert.True(t, math.IsInf(res.Rows[1].Return, 1))
	assert.True(t, math.IsNaN(res.Rows[1].StrategyReturn))
	assert.True(t, math.Abs(res.TotalReturn-0.25) < 1e-12)
}
