package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"HKQuant/internal/model"
)

var _ Recorder = (*SQLiteRecorder)(nil)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log *zap.Logger) (*SQLiteRecorder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the dashboard read while scheduled jobs write.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log.Named("recorder")}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analysis_snapshots (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp       INTEGER NOT NULL,
			symbol          TEXT NOT NULL,
			current_price   REAL,
			ma200           REAL,
			ma20w           REAL,
			ma50w           REAL,
			weekly_rsi      REAL,
			daily_rsi       REAL,
			high_52w        REAL,
			low_52w         REAL,
			position_52w    REAL,
			factor1_score   REAL,
			factor2_score   REAL,
			factor3_score   REAL,
			factor4_score   REAL,
			factor5_score   REAL,
			total_score     REAL,
			tier_label      TEXT,
			tier_multiplier REAL,
			rating          TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_symbol_ts ON analysis_snapshots(symbol, timestamp)`,

		`CREATE TABLE IF NOT EXISTS optimizations (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			symbol       TEXT NOT NULL,
			strategy     TEXT NOT NULL,
			params_json  TEXT NOT NULL,
			sharpe       REAL,
			total_return REAL,
			max_drawdown REAL,
			candidates   INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_opt_symbol_ts ON optimizations(symbol, timestamp)`,

		`CREATE TABLE IF NOT EXISTS hibor_rates (
			date      TEXT PRIMARY KEY,
			overnight REAL,
			week_1    REAL,
			month_1   REAL,
			month_3   REAL,
			month_6   REAL,
			month_12  REAL
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordAnalysis(snap *AnalysisSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ind := snap.Indicators
	sig := snap.Signal
	ts := ind.AsOf
	if ts.IsZero() {
		ts = time.Now()
	}

	// Extract per-factor weighted scores (up to 5).
	factors := make([]float64, 5)
	for i := 0; i < len(sig.Factors) && i < 5; i++ {
		factors[i] = sig.Factors[i].Weighted
	}

	_, err := r.db.Exec(`INSERT INTO analysis_snapshots
		(timestamp, symbol, current_price, ma200, ma20w, ma50w, weekly_rsi, daily_rsi,
		 high_52w, low_52w, position_52w,
		 factor1_score, factor2_score, factor3_score, factor4_score, factor5_score,
		 total_score, tier_label, tier_multiplier, rating)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		ts.Unix(), ind.Symbol, ind.CurrentPrice, ind.MA200, ind.MA20w, ind.MA50w,
		ind.WeeklyRSI, ind.DailyRSI, ind.High52w, ind.Low52w, ind.Position52w,
		factors[0], factors[1], factors[2], factors[3], factors[4],
		sig.TotalScore, sig.Tier.Label, sig.Tier.Multiplier, snap.Rating,
	)
	return err
}

// nullable stores non-finite values as NULL.
func nullable(v float64) sql.NullFloat64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func (r *SQLiteRecorder) RecordOptimization(rec *OptimizationRecord) error {
	params, err := json.Marshal(rec.Params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	ts := rec.RecordedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, err = r.db.Exec(`INSERT INTO optimizations
		(timestamp, symbol, strategy, params_json, sharpe, total_return, max_drawdown, candidates)
		VALUES (?,?,?,?,?,?,?,?)`,
		ts.UnixNano(), rec.Symbol, rec.Strategy, string(params),
		nullable(rec.Sharpe), rec.TotalReturn, rec.MaxDrawdown, rec.Candidates,
	)
	return err
}

// RecordHibor upserts rates keyed by fixing date.
func (r *SQLiteRecorder) RecordHibor(rates []model.HiborRate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO hibor_rates
		(date, overnight, week_1, month_1, month_3, month_6, month_12)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(date) DO UPDATE SET
			overnight = excluded.overnight,
			week_1    = excluded.week_1,
			month_1   = excluded.month_1,
			month_3   = excluded.month_3,
			month_6   = excluded.month_6,
			month_12  = excluded.month_12`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, h := range rates {
		if _, err := stmt.Exec(h.Date.Format("2006-01-02"),
			h.Overnight, h.Week1, h.Month1, h.Month3, h.Month6, h.Month12); err != nil {
			return fmt.Errorf("upsert %s: %w", h.Date.Format("2006-01-02"), err)
		}
	}
	return tx.Commit()
}

// RecentOptimizations returns the latest n results for symbol, newest first.
func (r *SQLiteRecorder) RecentOptimizations(symbol string, n int) ([]OptimizationRecord, error) {
	if n <= 0 {
		n = 10
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT timestamp, symbol, strategy, params_json, sharpe,
		total_return, max_drawdown, candidates
		FROM optimizations WHERE symbol = ? ORDER BY timestamp DESC, id DESC LIMIT ?`, symbol, n)
	if err != nil {
		return nil, fmt.Errorf("query optimizations: %w", err)
	}
	defer rows.Close()

	var out []OptimizationRecord
	for rows.Next() {
		var rec OptimizationRecord
		var ts int64
		var params string
		var sharpe sql.NullFloat64
		if err := rows.Scan(&ts, &rec.Symbol, &rec.Strategy, &params, &sharpe,
			&rec.TotalReturn, &rec.MaxDrawdown, &rec.Candidates); err != nil {
			return nil, fmt.Errorf("scan optimization: %w", err)
		}
		if err := json.Unmarshal([]byte(params), &rec.Params); err != nil {
			return nil, fmt.Errorf("decode params: %w", err)
		}
		rec.RecordedAt = time.Unix(0, ts)
		rec.Sharpe = math.Inf(-1)
		if sharpe.Valid {
			rec.Sharpe = sharpe.Float64
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// HiborHistory returns the latest n stored fixings, newest first.
func (r *SQLiteRecorder) HiborHistory(n int) ([]model.HiborRate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT date, overnight, week_1, month_1, month_3, month_6, month_12
		FROM hibor_rates ORDER BY date DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query hibor: %w", err)
	}
	defer rows.Close()

	var out []model.HiborRate
	for rows.Next() {
		var h model.HiborRate
		var date string
		if err := rows.Scan(&date, &h.Overnight, &h.Week1, &h.Month1, &h.Month3, &h.Month6, &h.Month12); err != nil {
			return nil, fmt.Errorf("scan hibor: %w", err)
		}
		h.Date, _ = time.Parse("2006-01-02", date)
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
