package recorder

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"

	"TrendSentinel/internal/model"
)

func testRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	logger := zerolog.Nop()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"), &logger)
	assert.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRecordAnalysis(t *testing.T) {
	r := testRecorder(t)

	a := &model.Analysis{
		Symbol:     "BTCUSDT",
		Timeframe:  "1h",
		ComputedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Metrics: &model.Metrics{
			CurrentPrice:   64000,
			WindowHigh:     model.Float(65000),
			PriceChangePct: model.Float(0.25),
		},
		Classification: model.Classification{Breakout: []int{3, 4}},
	}
	err := r.RecordAnalysis(&AnalysisRecord{
		RunID:    "run-1",
		Analysis: a,
		Decision: model.AlertDecision{Notify: true, Reason: "price change 0.25%", Marker: "🔴"},
		Sent:     true,
	})
	assert.NoError(t, err)

	var (
		symbol    string
		high      float64
		low       sql.NullFloat64
		breakouts int
		sent      bool
		ts        int64
	)
	row := r.db.QueryRow(`SELECT symbol, window_high, window_low, breakouts, sent, timestamp FROM analyses WHERE run_id = ?`, "run-1")
	assert.NoError(t, row.Scan(&symbol, &high, &low, &breakouts, &sent, &ts))
	assert.Equal(t, symbol, "BTCUSDT")
	assert.Equal(t, high, 65000.0)

	// Ensure absent metrics are stored as NULL.
	assert.False(t, low.Valid)
	assert.Equal(t, breakouts, 2)
	assert.True(t, sent)
	assert.Equal(t, ts, a.ComputedAt.Unix())
}

func TestRecordSkipAndBacktest(t *testing.T) {
	r := testRecorder(t)

	assert.NoError(t, r.RecordSkip(&SkipEvent{RunID: "run-1", Symbol: "ETHUSDT", Outcome: "fetch_error", Reason: "timeout"}))
	assert.NoError(t, r.RecordSkip(&SkipEvent{RunID: "run-1", Symbol: "SOLUSDT", Outcome: "insufficient_data"}))
	assert.NoError(t, r.RecordBacktest(&model.BacktestResult{Symbol: "BTCUSDT", Trades: 1, TotalReturn: 0.2}))

	var skips, backtests int
	assert.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM skips`).Scan(&skips))
	assert.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM backtests`).Scan(&backtests))
	assert.Equal(t, skips, 2)
	assert.Equal(t, backtests, 1)

	// Ensure record ids are unique uuids.
	var distinct int
	assert.NoError(t, r.db.QueryRow(`SELECT COUNT(DISTINCT id) FROM skips`).Scan(&distinct))
	assert.Equal(t, distinct, 2)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	assert.NoError(t, r.RecordAnalysis(&AnalysisRecord{}))
	assert.NoError(t, r.RecordSkip(&SkipEvent{}))
	assert.NoError(t, r.Close())
}
