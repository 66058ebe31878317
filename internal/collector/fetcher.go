package collector

import (
	"context"
	"math"
	"sync"
	"time"

	"TrendSentinel/internal/model"
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// FetchCandles returns the most recent limit candles of symbol at timeframe,
	// oldest first.
	FetchCandles(ctx context.Context, symbol, timeframe string, limit int) (model.Series, error)
	Name() string
}

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price   float64
	Candles []model.Candle
	Err     error

	// Calls counts FetchCandles invocations.
	Calls int
	mu    sync.Mutex
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchCandles(_ context.Context, _ string, _ string, limit int) (model.Series, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.Err != nil {
		return model.Series{}, m.Err
	}
	if m.Candles != nil {
		return model.NewSeries(m.Candles)
	}
	return model.NewSeries(generateMockCandles(m.Price, limit))
}

// generateMockCandles produces an hourly sine wave around basePrice so the mock
// data has swings to fit trendlines through.
func generateMockCandles(basePrice float64, count int) []model.Candle {
	start := time.Now().Truncate(time.Hour).Add(-time.Duration(count) * time.Hour)
	candles := make([]model.Candle, count)
	for i := range count {
		p := basePrice * (1 + 0.02*math.Sin(float64(i)/4))
		candles[i] = model.Candle{
			Time:                start.Add(time.Duration(i) * time.Hour),
			Open:                p * 0.999,
			High:                p * 1.005,
			Low:                 p * 0.995,
			Close:               p,
			Volume:              1000,
			TakerBuyBaseVolume:  600,
			TakerBuyQuoteVolume: 600 * p,
		}
	}
	return candles
}
