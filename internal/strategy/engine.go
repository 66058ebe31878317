package strategy

import (
	"context"
	"fmt"
	"math"
	"time"

	"TrendSentinel/internal/model"
)

// Proximity markers appended to the symbol in alerts.
const (
	MarkerNearSupport    = "🟢"
	MarkerNearResistance = "🔴"
)

// CooldownStore suppresses repeat alerts for a symbol. Cooling reports whether the
// symbol is inside a cooldown. Mark starts a cooldown of ttl and is called once an
// alert has been delivered.
type CooldownStore interface {
	Cooling(ctx context.Context, symbol string) (bool, error)
	Mark(ctx context.Context, symbol string, ttl time.Duration) error
}

// Policy configures alert gating.
type Policy struct {
	// MinPriceChange is the absolute candle change, in percent, an alert must exceed.
	MinPriceChange float64
	// ProximityPct is the distance, in percent, that counts as near a window extreme.
	ProximityPct float64
	// Cooldown is the minimum interval between alerts for a symbol. Zero disables it.
	Cooldown time.Duration
}

// DefaultPolicy returns the default alert policy.
func DefaultPolicy() Policy {
	return Policy{MinPriceChange: 0.10, ProximityPct: 5}
}

// Marker returns the proximity marker for the analysis, or "" when price is not
// near either window extreme.
func Marker(m *model.Metrics, proximityPct float64) string {
	if m == nil {
		return ""
	}
	near := func(level *float64) bool {
		if level == nil || *level == 0 {
			return false
		}
		lv := *level
		return math.Abs(m.CurrentPrice-lv)/lv*100 <= proximityPct
	}
	switch {
	case near(m.WindowLow):
		return MarkerNearSupport
	case near(m.WindowHigh):
		return MarkerNearResistance
	default:
		return ""
	}
}

// Evaluate decides whether the analysis warrants an alert. The cooldown is only
// consulted once the price change threshold is met, and is never started here;
// the caller marks it after a successful delivery. A failing cooldown store does
// not block the alert; its error is returned alongside a positive decision.
func Evaluate(ctx context.Context, a *model.Analysis, p Policy, cooldown CooldownStore) (model.AlertDecision, error) {
	d := model.AlertDecision{Marker: Marker(a.Metrics, p.ProximityPct)}

	if a.Metrics == nil || a.Metrics.PriceChangePct == nil {
		d.Reason = "price change unavailable"
		return d, nil
	}
	change := *a.Metrics.PriceChangePct
	if !(math.Abs(change) > p.MinPriceChange) {
		d.Reason = fmt.Sprintf("price change %.2f%% within ±%.2f%%", change, p.MinPriceChange)
		return d, nil
	}

	if cooldown != nil && p.Cooldown > 0 {
		cooling, err := cooldown.Cooling(ctx, a.Symbol)
		if err != nil {
			d.Notify = true
			d.Reason = fmt.Sprintf("price change %.2f%%", change)
			return d, fmt.Errorf("checking %s cooldown: %w", a.Symbol, err)
		}
		if cooling {
			d.Reason = fmt.Sprintf("cooling down for %s", p.Cooldown)
			return d, nil
		}
	}

	d.Notify = true
	d.Reason = fmt.Sprintf("price change %.2f%%", change)
	return d, nil
}
