package calculator

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"TrendSentinel/internal/model"
)

// LastCandleVolume returns the buy and sell volume of the last candle. Buy volume
// is the taker buy base volume and sell volume the taker buy quote volume; the two
// are in different units. NaN volumes are reported as 0.
func LastCandleVolume(series model.Series) (buy, sell float64) {
	last, ok := series.Last()
	if !ok {
		return 0, 0
	}
	return zeroIfNaN(last.TakerBuyBaseVolume), zeroIfNaN(last.TakerBuyQuoteVolume)
}

// PriceChange returns the last candle's close-to-open change in percent, rounded
// to two decimal places.
func PriceChange(series model.Series) (float64, error) {
	last, ok := series.Last()
	if !ok {
		return 0, fmt.Errorf("empty series: %w", ErrInsufficientData)
	}
	if !model.Defined(last.Open) || !model.Defined(last.Close) || last.Open == 0 {
		return 0, fmt.Errorf("open %v, close %v: %w", last.Open, last.Close, ErrInvalidNumeric)
	}
	return round2((last.Close - last.Open) / last.Open * 100), nil
}

// DistanceFrom returns how far price is from level in percent of level. ok is
// false when level is not positive.
func DistanceFrom(price, level float64) (pct float64, ok bool) {
	if !(level > 0) {
		return 0, false
	}
	return (price - level) / level * 100, true
}

// ComputeMetrics derives the metrics bundle for the series. lookback bounds the
// window high and low. An empty series yields ErrInsufficientData and no bundle;
// any other failure only leaves the affected metric unset and adds a warning.
func ComputeMetrics(series model.Series, lookback string) (*model.Metrics, error) {
	last, ok := series.Last()
	if !ok {
		return nil, fmt.Errorf("empty series: %w", ErrInsufficientData)
	}

	m := &model.Metrics{CurrentPrice: last.Close}

	high, low, err := WindowRange(series, lookback)
	if err != nil {
		m.Warnings = append(m.Warnings, fmt.Sprintf("window range: %v", err))
	} else {
		m.WindowHigh = model.Float(high)
		m.WindowLow = model.Float(low)
	}

	m.BuyVolume, m.SellVolume = LastCandleVolume(series)
	m.VolumeDifference = m.BuyVolume - m.SellVolume
	m.VolumeInQuoteUnits = m.BuyVolume * m.CurrentPrice
	if total := m.BuyVolume + m.SellVolume; total != 0 {
		m.VolumePercentage = m.VolumeInQuoteUnits / total * 100
	}

	m.Support = m.WindowLow
	m.Resistance = m.WindowHigh
	if m.Support != nil {
		if d, ok := DistanceFrom(m.CurrentPrice, *m.Support); ok {
			m.DistanceFromSupport = model.Float(d)
		}
	}
	if m.Resistance != nil {
		if d, ok := DistanceFrom(m.CurrentPrice, *m.Resistance); ok {
			m.DistanceFromResistance = model.Float(d)
		}
	}

	pct, err := PriceChange(series)
	if err != nil {
		m.Warnings = append(m.Warnings, fmt.Sprintf("price change: %v", err))
	} else {
		m.PriceChangePct = model.Float(pct)
	}

	return m, nil
}

func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

func zeroIfNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
