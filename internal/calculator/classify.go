package calculator

import "TrendSentinel/internal/model"

// Classify compares each close against the padded resistance and support values.
// A close above resistance is a breakout, below support a breakdown, and exactly
// equal to either line a touch. Positions where either side is NaN are skipped, and
// if either line is absent all sets are empty.
//
// Touch detection uses exact float equality, so real closes rarely land on it.
func Classify(closes, resistance, support []float64) model.Classification {
	var out model.Classification
	if len(resistance) == 0 || len(support) == 0 {
		return out
	}

	for i, c := range closes {
		if !model.Defined(c) {
			continue
		}

		var touching bool
		if i < len(resistance) && model.Defined(resistance[i]) {
			if c > resistance[i] {
				out.Breakout = append(out.Breakout, i)
			}
			touching = c == resistance[i]
		}
		if i < len(support) && model.Defined(support[i]) {
			if c < support[i] {
				out.Breakdown = append(out.Breakdown, i)
			}
			touching = touching || c == support[i]
		}
		if touching {
			out.Touching = append(out.Touching, i)
		}
	}
	return out
}
