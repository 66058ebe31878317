package calculator

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"

	"TrendSentinel/internal/model"
)

var testStart = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// seriesFromHighsLows builds an hourly series with the given highs and lows and
// closes halfway between them.
func seriesFromHighsLows(t *testing.T, highs, lows []float64) model.Series {
	t.Helper()
	candles := make([]model.Candle, len(highs))
	for i := range highs {
		mid := (highs[i] + lows[i]) / 2
		candles[i] = model.Candle{
			Time:  testStart.Add(time.Duration(i) * time.Hour),
			Open:  mid,
			High:  highs[i],
			Low:   lows[i],
			Close: mid,
		}
	}
	series, err := model.NewSeries(candles)
	assert.NoError(t, err)
	return series
}

// seriesFromCloses builds an hourly series where every price field equals the close.
func seriesFromCloses(t *testing.T, closes []float64) model.Series {
	t.Helper()
	return seriesFromHighsLows(t, closes, closes)
}

// swingSeries has peaks at 2 and 6 and troughs at 0, 4 and 8 for a window of 2,
// followed by two unconfirmed candles.
func swingSeries(t *testing.T) model.Series {
	t.Helper()
	highs := []float64{1, 2, 5, 2, 1, 2, 6, 2, 1, 0, 0}
	lows := make([]float64, len(highs))
	for i, h := range highs {
		lows[i] = h - 0.5
	}
	return seriesFromHighsLows(t, highs, lows)
}
