// Package chart renders analysis charts for alerts.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"TrendSentinel/internal/model"
)

var (
	closeColor      = drawing.ColorFromHex("1f77b4")
	resistanceColor = drawing.ColorFromHex("d62728")
	supportColor    = drawing.ColorFromHex("2ca02c")
	breakoutColor   = drawing.ColorFromHex("17becf")
	breakdownColor  = drawing.ColorFromHex("9467bd")
	touchColor      = drawing.ColorFromHex("ff7f0e")
	levelColor      = drawing.ColorFromHex("7f7f7f")
)

// Renderer renders analyses as PNG charts.
type Renderer struct {
	Width  int
	Height int
}

// NewRenderer creates a renderer with the default chart size.
func NewRenderer() *Renderer {
	return &Renderer{Width: 1400, Height: 700}
}

// Render draws the closes, trendlines, classified positions and levels of the
// analysis as a PNG image, annotated with the last candle's volumes and price
// change.
func (r *Renderer) Render(a *model.Analysis, timeframe string) ([]byte, error) {
	if a.Series.Len() < 2 {
		return nil, errors.New("at least two candles are required to render a chart")
	}

	times := a.Series.Times()
	closes := a.Series.Closes()

	series := []gochart.Series{
		gochart.TimeSeries{
			Name:    "Close",
			XValues: times,
			YValues: closes,
			Style:   gochart.Style{StrokeColor: closeColor, StrokeWidth: 1.5},
		},
	}
	series = appendLine(series, "Resistance", times, a.Trendlines.ResistanceFull, resistanceColor)
	series = appendLine(series, "Support", times, a.Trendlines.SupportFull, supportColor)
	series = appendMarkers(series, "Breakout", times, closes, a.Classification.Breakout, breakoutColor)
	series = appendMarkers(series, "Breakdown", times, closes, a.Classification.Breakdown, breakdownColor)
	series = appendMarkers(series, "Touching", times, closes, a.Classification.Touching, touchColor)

	first, last := times[0], times[len(times)-1]
	for _, lvl := range a.Levels {
		series = append(series,
			levelLine(fmt.Sprintf("High %s", lvl.Window), first, last, lvl.High),
			levelLine(fmt.Sprintf("Low %s", lvl.Window), first, last, lvl.Low),
		)
	}

	if ann, ok := metricsAnnotation(a.Metrics, first, closes); ok {
		series = append(series, ann)
	}

	graph := gochart.Chart{
		Title:  fmt.Sprintf("%s Trendlines (%s)", a.Symbol, timeframe),
		Width:  r.Width,
		Height: r.Height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: gochart.XAxis{
			ValueFormatter: gochart.TimeValueFormatterWithFormat("01-02 15:04"),
		},
		YAxis: gochart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.4g", f)
				}
				return ""
			},
		},
		Series: series,
	}
	graph.Elements = []gochart.Renderable{gochart.LegendLeft(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("rendering %s chart: %w", a.Symbol, err)
	}
	return buf.Bytes(), nil
}

// appendLine adds the defined points of a padded trendline.
func appendLine(series []gochart.Series, name string, times []time.Time, values []float64, color drawing.Color) []gochart.Series {
	var xs []time.Time
	var ys []float64
	for i, v := range values {
		if i < len(times) && model.Defined(v) {
			xs = append(xs, times[i])
			ys = append(ys, v)
		}
	}
	if len(xs) == 0 {
		return series
	}
	return append(series, gochart.TimeSeries{
		Name:    name,
		XValues: xs,
		YValues: ys,
		Style:   gochart.Style{StrokeColor: color, StrokeWidth: 1.5, StrokeDashArray: []float64{6, 4}},
	})
}

// appendMarkers adds dots at the closes of the given positions.
func appendMarkers(series []gochart.Series, name string, times []time.Time, closes []float64, positions []int, color drawing.Color) []gochart.Series {
	var xs []time.Time
	var ys []float64
	for _, p := range positions {
		if p >= 0 && p < len(times) {
			xs = append(xs, times[p])
			ys = append(ys, closes[p])
		}
	}
	if len(xs) == 0 {
		return series
	}
	return append(series, gochart.TimeSeries{
		Name:    name,
		XValues: xs,
		YValues: ys,
		Style: gochart.Style{
			StrokeColor: drawing.ColorTransparent,
			DotColor:    color,
			DotWidth:    4,
		},
	})
}

// metricsAnnotation labels the chart with the volume and price change metrics,
// anchored at the first candle and the highest close.
func metricsAnnotation(m *model.Metrics, first time.Time, closes []float64) (gochart.AnnotationSeries, bool) {
	if m == nil {
		return gochart.AnnotationSeries{}, false
	}
	top := math.Inf(-1)
	for _, c := range closes {
		if model.Defined(c) && c > top {
			top = c
		}
	}
	if math.IsInf(top, -1) {
		return gochart.AnnotationSeries{}, false
	}
	return gochart.AnnotationSeries{
		Name: "Metrics",
		Annotations: []gochart.Value2{{
			XValue: gochart.TimeToFloat64(first),
			YValue: top,
			Label:  metricsLabel(m),
		}},
	}, true
}

func metricsLabel(m *model.Metrics) string {
	change := "n/a"
	if m.PriceChangePct != nil {
		change = fmt.Sprintf("%+.2f%%", *m.PriceChangePct)
	}
	return fmt.Sprintf("Buy %.2f | Sell %.2f | Diff %.2f | Change %s",
		m.BuyVolume, m.SellVolume, m.VolumeDifference, change)
}

func levelLine(name string, from, to time.Time, price float64) gochart.TimeSeries {
	return gochart.TimeSeries{
		Name:    name,
		XValues: []time.Time{from, to},
		YValues: []float64{price, price},
		Style: gochart.Style{
			StrokeColor:     levelColor.WithAlpha(160),
			StrokeWidth:     1,
			StrokeDashArray: []float64{2, 3},
		},
	}
}
