package calculator

import (
	"errors"
	"fmt"
	"math"

	"TrendSentinel/internal/model"
)

// TrendlineOptions configures trendline detection.
type TrendlineOptions struct {
	// ExtremaWindow is the neighbourhood half-width used to confirm an extremum.
	ExtremaWindow int
	// IgnoreLast is the number of recent candles excluded from extremum search,
	// since they cannot be confirmed against bars that have not happened yet.
	IgnoreLast int
}

// DefaultTrendlineOptions returns the default detection options.
func DefaultTrendlineOptions() TrendlineOptions {
	return TrendlineOptions{
		ExtremaWindow: DefaultExtremaWindow,
		IgnoreLast:    DefaultIgnoreLast,
	}
}

// FitTrendline fits the line through the two most recent extrema. Only the last
// two are used, giving a line that reacts to the latest swing.
func FitTrendline(extrema []model.Extremum, domain []int64) (model.Trendline, error) {
	if len(extrema) < 2 {
		return model.Trendline{}, fmt.Errorf("%d extrema found, need 2: %w", len(extrema), ErrInsufficientData)
	}

	a, b := extrema[len(extrema)-2], extrema[len(extrema)-1]
	if a.Position < 0 || b.Position < 0 || a.Position >= len(domain) || b.Position >= len(domain) {
		return model.Trendline{}, fmt.Errorf("extremum position outside domain of %d: %w", len(domain), ErrInsufficientData)
	}

	from := model.Point{X: domain[a.Position], Y: a.Value}
	to := model.Point{X: domain[b.Position], Y: b.Value}
	if !model.Defined(from.Y) || !model.Defined(to.Y) {
		return model.Trendline{}, fmt.Errorf("extremum values %v, %v: %w", from.Y, to.Y, ErrInvalidNumeric)
	}
	if from.X == to.X {
		return model.Trendline{}, fmt.Errorf("extrema share timestamp %d: %w", from.X, ErrInvalidNumeric)
	}

	slope := (to.Y - from.Y) / float64(to.X-from.X)
	return model.Trendline{
		Slope:     slope,
		Intercept: from.Y - slope*float64(from.X),
		From:      from,
		To:        to,
	}, nil
}

// RightAlignPad places values at the end of a NaN-filled slice of fullLength.
// When values is longer than fullLength only its last fullLength entries are kept.
func RightAlignPad(values []float64, fullLength int) []float64 {
	if fullLength <= 0 {
		return []float64{}
	}
	out := make([]float64, fullLength)
	for i := range out {
		out[i] = math.NaN()
	}
	if len(values) > fullLength {
		values = values[len(values)-fullLength:]
	}
	copy(out[fullLength-len(values):], values)
	return out
}

// DetectTrendlines fits resistance over peaks and support over troughs of the
// series with the last opts.IgnoreLast candles removed. The fitted values cover the
// truncated series and are right-aligned into slices the length of the full series,
// so the NaN padding sits at the front.
func DetectTrendlines(series model.Series, opts TrendlineOptions) (model.Trendlines, error) {
	if series.Empty() {
		return model.Trendlines{}, fmt.Errorf("empty series: %w", ErrInsufficientData)
	}

	valid := series.Truncate(opts.IgnoreLast)
	domain := valid.TimestampsAsSeconds()

	peaks := FindExtrema(valid, opts.ExtremaWindow, model.Peak)
	troughs := FindExtrema(valid, opts.ExtremaWindow, model.Trough)
	if len(peaks) < 2 || len(troughs) < 2 {
		return model.Trendlines{Peaks: peaks, Troughs: troughs},
			fmt.Errorf("%d peaks and %d troughs: %w", len(peaks), len(troughs), ErrInsufficientData)
	}

	resistance, err := FitTrendline(peaks, domain)
	if err != nil {
		return model.Trendlines{}, fmt.Errorf("fitting resistance: %w", err)
	}
	support, err := FitTrendline(troughs, domain)
	if err != nil {
		return model.Trendlines{}, fmt.Errorf("fitting support: %w", err)
	}

	return model.Trendlines{
		Resistance:     resistance,
		Support:        support,
		ResistanceFull: RightAlignPad(resistance.Evaluate(domain), series.Len()),
		SupportFull:    RightAlignPad(support.Evaluate(domain), series.Len()),
		Peaks:          peaks,
		Troughs:        troughs,
	}, nil
}

// Absent reports whether err means a trendline could not be produced, as opposed
// to an unexpected failure.
func Absent(err error) bool {
	return errors.Is(err, ErrInsufficientData) || errors.Is(err, ErrInvalidNumeric)
}
