package calculator

import (
	"errors"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

func TestParseLookback(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"minutes", "30m", 30 * time.Minute, false},
		{"hours", "4h", 4 * time.Hour, false},
		{"days", "1d", 24 * time.Hour, false},
		{"weeks", "1w", 7 * 24 * time.Hour, false},
		{"months", "1M", 30 * 24 * time.Hour, false},
		{"padded", " 2h ", 2 * time.Hour, false},
		{"unknown unit", "3y", 0, true},
		{"missing count", "h", 0, true},
		{"zero count", "0h", 0, true},
		{"garbage", "abc", 0, true},
	}

	for _, test := range tests {
		got, err := ParseLookback(test.input)
		if test.wantErr {
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("%s: expected a configuration error, got %v", test.name, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error %v", test.name, err)
			continue
		}
		if got != test.want {
			t.Errorf("%s: expected %v, got %v", test.name, test.want, got)
		}
	}
}

func TestWindowRange(t *testing.T) {
	series := seriesFromHighsLows(t,
		[]float64{20, 12, 11, 13, 14},
		[]float64{1, 9, 8, 10, 11},
	)

	// Ensure the window includes the candle exactly lookback before the last one.
	high, low, err := WindowRange(series, "2h")
	assert.NoError(t, err)
	assert.Equal(t, high, 14.0)
	assert.Equal(t, low, 8.0)

	// Ensure a wide window covers the whole series.
	high, low, err = WindowRange(series, "1d")
	assert.NoError(t, err)
	assert.Equal(t, high, 20.0)
	assert.Equal(t, low, 1.0)

	// Ensure malformed windows and empty series fail.
	_, _, err = WindowRange(series, "2x")
	assert.True(t, errors.Is(err, ErrConfiguration))
	_, _, err = WindowRange(seriesFromCloses(t, nil), "1h")
	assert.True(t, errors.Is(err, ErrInsufficientData))
}

func TestLevels(t *testing.T) {
	series := seriesFromHighsLows(t,
		[]float64{20, 12, 11, 13, 14},
		[]float64{1, 9, 8, 10, 11},
	)

	levels, skipped := Levels(series, []string{"30m", "1h", "bad", "1d"})
	assert.Equal(t, len(skipped), 1)
	assert.True(t, errors.Is(skipped[0], ErrConfiguration))
	assert.Equal(t, len(levels), 3)
	assert.Equal(t, levels[0].Window, "30m")
	assert.Equal(t, levels[0].High, 14.0)
	assert.Equal(t, levels[1].Low, 10.0)
	assert.Equal(t, levels[2].High, 20.0)
}
