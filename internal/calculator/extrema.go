package calculator

import "TrendSentinel/internal/model"

const (
	// DefaultExtremaWindow is the neighbourhood half-width used to confirm an extremum.
	DefaultExtremaWindow = 10
	// DefaultIgnoreLast is the number of recent candles excluded from extremum search.
	DefaultIgnoreLast = 5
)

// FindExtrema returns the positions whose high (for peaks) or low (for troughs) is
// the extreme value of the neighbourhood [i-window, i+window] clipped to the series
// bounds. Ties count as extrema. A series shorter than 2*window+1 has no extrema.
func FindExtrema(series model.Series, window int, kind model.ExtremumKind) []model.Extremum {
	n := series.Len()
	if window <= 0 || n < 2*window+1 {
		return nil
	}

	var values []float64
	var better func(a, b float64) bool
	switch kind {
	case model.Peak:
		values = series.Highs()
		better = func(a, b float64) bool { return a >= b }
	case model.Trough:
		values = series.Lows()
		better = func(a, b float64) bool { return a <= b }
	default:
		return nil
	}

	var out []model.Extremum
	for i := range n {
		lo := max(i-window, 0)
		hi := min(i+window, n-1)
		ok := true
		for j := lo; j <= hi; j++ {
			if !better(values[i], values[j]) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, model.Extremum{Position: i, Value: values[i], Kind: kind})
		}
	}
	return out
}
