package model

// Metrics holds the derived trading metrics for one run. Optional values are nil
// when they could not be computed.
type Metrics struct {
	CurrentPrice           float64
	WindowHigh             *float64
	WindowLow              *float64
	BuyVolume              float64
	SellVolume             float64
	VolumeDifference       float64
	VolumeInQuoteUnits     float64
	VolumePercentage       float64
	Support                *float64
	Resistance             *float64
	DistanceFromSupport    *float64
	DistanceFromResistance *float64
	PriceChangePct         *float64

	// Warnings lists computations that were skipped, e.g. a malformed lookback.
	Warnings []string
}

// Level is the high/low range for a named lookback window.
type Level struct {
	Window string
	High   float64
	Low    float64
}

// Float returns a pointer to v, for populating optional metrics.
func Float(v float64) *float64 { return &v }
