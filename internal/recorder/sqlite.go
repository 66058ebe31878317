package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"TrendSentinel/internal/model"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info().Msgf("sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analyses (
			id                       TEXT PRIMARY KEY,
			run_id                   TEXT,
			timestamp                INTEGER NOT NULL,
			symbol                   TEXT NOT NULL,
			timeframe                TEXT,
			candles                  INTEGER,
			current_price            REAL,
			window_high              REAL,
			window_low               REAL,
			buy_volume               REAL,
			sell_volume              REAL,
			volume_difference        REAL,
			volume_quote             REAL,
			volume_percentage        REAL,
			distance_from_support    REAL,
			distance_from_resistance REAL,
			price_change_pct         REAL,
			resistance_slope         REAL,
			support_slope            REAL,
			breakouts                INTEGER,
			breakdowns               INTEGER,
			touches                  INTEGER,
			notify                   INTEGER,
			reason                   TEXT,
			marker                   TEXT,
			sent                     INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_symbol_ts ON analyses(symbol, timestamp)`,

		`CREATE TABLE IF NOT EXISTS skips (
			id        TEXT PRIMARY KEY,
			run_id    TEXT,
			timestamp INTEGER NOT NULL,
			symbol    TEXT NOT NULL,
			outcome   TEXT,
			reason    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_skips_ts ON skips(timestamp)`,

		`CREATE TABLE IF NOT EXISTS backtests (
			id           TEXT PRIMARY KEY,
			timestamp    INTEGER NOT NULL,
			symbol       TEXT NOT NULL,
			bars         INTEGER,
			trades       INTEGER,
			total_return REAL
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordAnalysis(rec *AnalysisRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := rec.Analysis
	m := a.Metrics
	if m == nil {
		m = &model.Metrics{}
	}

	var resSlope, supSlope *float64
	if len(a.Trendlines.ResistanceFull) > 0 {
		resSlope = model.Float(a.Trendlines.Resistance.Slope)
		supSlope = model.Float(a.Trendlines.Support.Slope)
	}

	_, err := r.db.Exec(`INSERT INTO analyses
		(id, run_id, timestamp, symbol, timeframe, candles,
		 current_price, window_high, window_low,
		 buy_volume, sell_volume, volume_difference, volume_quote, volume_percentage,
		 distance_from_support, distance_from_resistance, price_change_pct,
		 resistance_slope, support_slope, breakouts, breakdowns, touches,
		 notify, reason, marker, sent)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		uuid.NewString(), rec.RunID, a.ComputedAt.Unix(), a.Symbol, a.Timeframe, a.Series.Len(),
		m.CurrentPrice, m.WindowHigh, m.WindowLow,
		m.BuyVolume, m.SellVolume, m.VolumeDifference, m.VolumeInQuoteUnits, m.VolumePercentage,
		m.DistanceFromSupport, m.DistanceFromResistance, m.PriceChangePct,
		resSlope, supSlope,
		len(a.Classification.Breakout), len(a.Classification.Breakdown), len(a.Classification.Touching),
		rec.Decision.Notify, rec.Decision.Reason, rec.Decision.Marker, rec.Sent,
	)
	return err
}

func (r *SQLiteRecorder) RecordSkip(evt *SkipEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO skips
		(id, run_id, timestamp, symbol, outcome, reason)
		VALUES (?,?,?,?,?,?)`,
		uuid.NewString(), evt.RunID, time.Now().Unix(), evt.Symbol, evt.Outcome, evt.Reason,
	)
	return err
}

func (r *SQLiteRecorder) RecordBacktest(res *model.BacktestResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO backtests
		(id, timestamp, symbol, bars, trades, total_return)
		VALUES (?,?,?,?,?,?)`,
		uuid.NewString(), time.Now().Unix(), res.Symbol, len(res.Rows), res.Trades, res.TotalReturn,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
