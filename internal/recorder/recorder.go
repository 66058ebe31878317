package recorder

import "TrendSentinel/internal/model"

// AnalysisRecord holds a completed analysis and what was done with it.
type AnalysisRecord struct {
	RunID    string
	Analysis *model.Analysis
	Decision model.AlertDecision
	// Sent reports whether the alert was delivered.
	Sent bool
}

// SkipEvent records a symbol that produced no usable analysis in a run.
type SkipEvent struct {
	RunID   string
	Symbol  string
	Outcome string
	Reason  string
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordAnalysis(rec *AnalysisRecord) error
	RecordSkip(evt *SkipEvent) error
	RecordBacktest(res *model.BacktestResult) error
	Close() error
}
