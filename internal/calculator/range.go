package calculator

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"TrendSentinel/internal/model"
)

// DefaultLevelWindows are the lookback windows reported as horizontal levels.
var DefaultLevelWindows = []string{"30m", "1h", "4h", "1d"}

// ParseLookback parses a lookback window such as "30m", "1h", "30h", "1d", "1w" or
// "1M". Units are case-sensitive; a month is 30 days.
func ParseLookback(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return 0, fmt.Errorf("lookback %q: use a form like 30m, 1h, 1d or 1w: %w", s, ErrConfiguration)
	}

	var unit time.Duration
	switch s[len(s)-1] {
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = 24 * time.Hour
	case 'w':
		unit = 7 * 24 * time.Hour
	case 'M':
		unit = 30 * 24 * time.Hour
	default:
		return 0, fmt.Errorf("lookback %q: unknown unit: %w", s, ErrConfiguration)
	}

	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("lookback %q: invalid count: %w", s, ErrConfiguration)
	}
	return time.Duration(n) * unit, nil
}

// WindowRange returns the highest high and lowest low of the candles within
// lookback of the last candle, inclusive at both ends.
func WindowRange(series model.Series, lookback string) (high, low float64, err error) {
	last, ok := series.Last()
	if !ok {
		return 0, 0, fmt.Errorf("empty series: %w", ErrInsufficientData)
	}
	d, err := ParseLookback(lookback)
	if err != nil {
		return 0, 0, err
	}

	recent := series.Since(last.Time.Add(-d))
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := range recent.Len() {
		c := recent.At(i)
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	if math.IsInf(high, 0) || math.IsInf(low, 0) {
		return 0, 0, fmt.Errorf("no candles within %s: %w", lookback, ErrInsufficientData)
	}
	return high, low, nil
}

// Levels computes the window range for each lookback. Windows that cannot be
// computed are reported in skipped rather than failing the whole set.
func Levels(series model.Series, windows []string) (levels []model.Level, skipped []error) {
	for _, w := range windows {
		high, low, err := WindowRange(series, w)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("level %s: %w", w, err))
			continue
		}
		levels = append(levels, model.Level{Window: w, High: high, Low: low})
	}
	return levels, skipped
}
