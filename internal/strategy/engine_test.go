package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"

	"TrendSentinel/internal/model"
)

type stubCooldown struct {
	cooling bool
	err     error
	calls   int
	marks   int
}

func (s *stubCooldown) Cooling(context.Context, string) (bool, error) {
	s.calls++
	return s.cooling, s.err
}

func (s *stubCooldown) Mark(context.Context, string, time.Duration) error {
	s.marks++
	return nil
}

func analysisWithChange(change *float64, price, low, high float64) *model.Analysis {
	return &model.Analysis{
		Symbol: "BTCUSDT",
		Metrics: &model.Metrics{
			CurrentPrice:   price,
			WindowLow:      model.Float(low),
			WindowHigh:     model.Float(high),
			PriceChangePct: change,
		},
	}
}

func TestEvaluate_Threshold(t *testing.T) {
	ctx := context.Background()
	p := DefaultPolicy()

	// Ensure moves beyond the threshold in either direction notify.
	d, err := Evaluate(ctx, analysisWithChange(model.Float(0.5), 100, 50, 200), p, nil)
	assert.NoError(t, err)
	assert.True(t, d.Notify)

	d, err = Evaluate(ctx, analysisWithChange(model.Float(-0.5), 100, 50, 200), p, nil)
	assert.NoError(t, err)
	assert.True(t, d.Notify)

	// Ensure a move exactly at the threshold does not notify.
	d, err = Evaluate(ctx, analysisWithChange(model.Float(0.10), 100, 50, 200), p, nil)
	assert.NoError(t, err)
	assert.False(t, d.Notify)

	// Ensure a missing price change does not notify.
	d, err = Evaluate(ctx, analysisWithChange(nil, 100, 50, 200), p, nil)
	assert.NoError(t, err)
	assert.False(t, d.Notify)
	assert.Equal(t, d.Reason, "price change unavailable")
}

func TestEvaluate_Cooldown(t *testing.T) {
	ctx := context.Background()
	p := DefaultPolicy()
	p.Cooldown = time.Hour

	// Ensure a cooling symbol is suppressed.
	store := &stubCooldown{cooling: true}
	d, err := Evaluate(ctx, analysisWithChange(model.Float(1), 100, 50, 200), p, store)
	assert.NoError(t, err)
	assert.False(t, d.Notify)
	assert.Equal(t, store.calls, 1)

	// Ensure evaluating never starts a cooldown.
	store = &stubCooldown{}
	d, err = Evaluate(ctx, analysisWithChange(model.Float(1), 100, 50, 200), p, store)
	assert.NoError(t, err)
	assert.True(t, d.Notify)
	assert.Equal(t, store.marks, 0)

	// Ensure the cooldown is not consulted below the threshold.
	store = &stubCooldown{}
	_, err = Evaluate(ctx, analysisWithChange(model.Float(0.01), 100, 50, 200), p, store)
	assert.NoError(t, err)
	assert.Equal(t, store.calls, 0)

	// Ensure a store failure still lets the alert through.
	store = &stubCooldown{err: errors.New("redis down")}
	d, err = Evaluate(ctx, analysisWithChange(model.Float(1), 100, 50, 200), p, store)
	assert.Error(t, err)
	assert.True(t, d.Notify)

	// Ensure a zero cooldown skips the store.
	p.Cooldown = 0
	store = &stubCooldown{cooling: true}
	d, err = Evaluate(ctx, analysisWithChange(model.Float(1), 100, 50, 200), p, store)
	assert.NoError(t, err)
	assert.True(t, d.Notify)
	assert.Equal(t, store.calls, 0)
}

func TestMarker(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		low   float64
		high  float64
		want  string
	}{
		{"near low", 102, 100, 200, MarkerNearSupport},
		{"near high", 195, 100, 200, MarkerNearResistance},
		{"near both prefers low", 100, 98, 101, MarkerNearSupport},
		{"far from both", 150, 100, 200, ""},
		{"zero low", 150, 0, 200, ""},
	}
	for _, test := range tests {
		got := Marker(&model.Metrics{
			CurrentPrice: test.price,
			WindowLow:    model.Float(test.low),
			WindowHigh:   model.Float(test.high),
		}, 5)
		if got != test.want {
			t.Errorf("%s: expected %q, got %q", test.name, test.want, got)
		}
	}

	assert.Equal(t, Marker(nil, 5), "")
	assert.Equal(t, Marker(&model.Metrics{CurrentPrice: 1}, 5), "")
}
