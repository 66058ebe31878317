package model

import (
	"fmt"
	"time"
)

// Candle represents a single candlestick bar. Exchange fields that could not be
// parsed are carried as NaN.
type Candle struct {
	Time                time.Time
	Open                float64
	High                float64
	Low                 float64
	Close               float64
	Volume              float64
	TakerBuyBaseVolume  float64
	TakerBuyQuoteVolume float64
}

// Series is an ordered, read-only sequence of candles. Timestamps are strictly
// ascending. The zero value is an empty series.
type Series struct {
	candles []Candle
}

// NewSeries copies the provided candles into a series, rejecting unordered or
// duplicate timestamps.
func NewSeries(candles []Candle) (Series, error) {
	for i := 1; i < len(candles); i++ {
		if !candles[i].Time.After(candles[i-1].Time) {
			return Series{}, fmt.Errorf("candle %d at %s is not after candle %d at %s",
				i, candles[i].Time.Format(time.RFC3339), i-1, candles[i-1].Time.Format(time.RFC3339))
		}
	}
	c := make([]Candle, len(candles))
	copy(c, candles)
	return Series{candles: c}, nil
}

// Len returns the number of candles.
func (s Series) Len() int { return len(s.candles) }

// Empty reports whether the series holds no candles.
func (s Series) Empty() bool { return len(s.candles) == 0 }

// At returns the candle at position i.
func (s Series) At(i int) Candle { return s.candles[i] }

// Last returns the most recent candle. ok is false for an empty series.
func (s Series) Last() (c Candle, ok bool) {
	if len(s.candles) == 0 {
		return Candle{}, false
	}
	return s.candles[len(s.candles)-1], true
}

// Truncate returns a series without the last k candles. Truncating more candles
// than exist yields an empty series.
func (s Series) Truncate(k int) Series {
	if k <= 0 {
		return s
	}
	n := len(s.candles) - k
	if n <= 0 {
		return Series{}
	}
	return Series{candles: s.candles[:n:n]}
}

// Since returns the candles whose time is at or after from.
func (s Series) Since(from time.Time) Series {
	for i, c := range s.candles {
		if !c.Time.Before(from) {
			return Series{candles: s.candles[i:]}
		}
	}
	return Series{}
}

// Opens returns the open prices.
func (s Series) Opens() []float64 { return s.column(func(c Candle) float64 { return c.Open }) }

// Highs returns the high prices.
func (s Series) Highs() []float64 { return s.column(func(c Candle) float64 { return c.High }) }

// Lows returns the low prices.
func (s Series) Lows() []float64 { return s.column(func(c Candle) float64 { return c.Low }) }

// Closes returns the close prices.
func (s Series) Closes() []float64 { return s.column(func(c Candle) float64 { return c.Close }) }

// Times returns the candle timestamps.
func (s Series) Times() []time.Time {
	out := make([]time.Time, len(s.candles))
	for i, c := range s.candles {
		out[i] = c.Time
	}
	return out
}

// TimestampsAsSeconds returns the candle timestamps as unix seconds, the domain
// trendlines are fitted in.
func (s Series) TimestampsAsSeconds() []int64 {
	out := make([]int64, len(s.candles))
	for i, c := range s.candles {
		out[i] = c.Time.Unix()
	}
	return out
}

func (s Series) column(f func(Candle) float64) []float64 {
	out := make([]float64, len(s.candles))
	for i, c := range s.candles {
		out[i] = f(c)
	}
	return out
}
