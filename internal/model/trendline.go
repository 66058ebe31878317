package model

import "math"

// ExtremumKind distinguishes local maxima of highs from local minima of lows.
type ExtremumKind int

const (
	Peak ExtremumKind = iota
	Trough
)

// String stringifies the extremum kind.
func (k ExtremumKind) String() string {
	switch k {
	case Peak:
		return "peak"
	case Trough:
		return "trough"
	default:
		return "unknown"
	}
}

// Extremum is a local peak or trough at a series position.
type Extremum struct {
	Position int
	Value    float64
	Kind     ExtremumKind
}

// Point is a trendline control point in (unix seconds, price) space.
type Point struct {
	X int64
	Y float64
}

// Trendline is the line through two control points.
type Trendline struct {
	Slope     float64
	Intercept float64
	From      Point
	To        Point
}

// At returns the fitted price at unix second x. The two-point form keeps the
// line exact at its control points.
func (t Trendline) At(x int64) float64 {
	dx := float64(t.To.X - t.From.X)
	wFrom := float64(t.To.X-x) / dx
	wTo := float64(x-t.From.X) / dx
	return t.From.Y*wFrom + t.To.Y*wTo
}

// Evaluate returns the fitted price for every entry of the domain.
func (t Trendline) Evaluate(domain []int64) []float64 {
	out := make([]float64, len(domain))
	for i, x := range domain {
		out[i] = t.At(x)
	}
	return out
}

// Trendlines holds the fitted resistance and support lines together with their
// values padded to the full series length. Padded entries are NaN.
type Trendlines struct {
	Resistance     Trendline
	Support        Trendline
	ResistanceFull []float64
	SupportFull    []float64
	Peaks          []Extremum
	Troughs        []Extremum
}

// Defined reports whether v is a usable number.
func Defined(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
