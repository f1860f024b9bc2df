package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"BTCForecaster/internal/model"
)

// SQLiteRecorder persists prediction history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while a run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS predictions (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id          TEXT NOT NULL,
			recorded_at     INTEGER NOT NULL,
			as_of           INTEGER NOT NULL,
			prediction      REAL,
			close           REAL,
			delta           REAL,
			trend           TEXT,
			risk            TEXT,
			rsi             REAL,
			ema_short       REAL,
			ema_long        REAL,
			atr_percentage  REAL,
			market_context  REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_ts ON predictions(recorded_at)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordPrediction(rec *PredictionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var mc sql.NullFloat64
	if rec.MarketContext != nil {
		mc = sql.NullFloat64{Float64: *rec.MarketContext, Valid: true}
	}
	_, err := r.db.Exec(`INSERT INTO predictions
		(run_id, recorded_at, as_of, prediction, close, delta, trend, risk,
		 rsi, ema_short, ema_long, atr_percentage, market_context)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.RunID, rec.RecordedAt.UnixMicro(), rec.AsOf.Unix(),
		rec.Prediction, rec.Close, rec.Delta, string(rec.Trend), string(rec.Risk),
		rec.RSI, rec.EMAShort, rec.EMALong, rec.ATRPercent, mc,
	)
	return err
}

// Recent returns up to limit records, newest first.
func (r *SQLiteRecorder) Recent(limit int) ([]PredictionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT run_id, recorded_at, as_of, prediction, close, delta, trend, risk,
		rsi, ema_short, ema_long, atr_percentage, market_context
		FROM predictions ORDER BY recorded_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PredictionRecord
	for rows.Next() {
		var (
			rec         PredictionRecord
			recAt, asOf int64
			trend, risk string
			mc          sql.NullFloat64
		)
		if err := rows.Scan(&rec.RunID, &recAt, &asOf, &rec.Prediction, &rec.Close, &rec.Delta,
			&trend, &risk, &rec.RSI, &rec.EMAShort, &rec.EMALong, &rec.ATRPercent, &mc); err != nil {
			return nil, err
		}
		rec.RecordedAt = time.UnixMicro(recAt).UTC()
		rec.AsOf = time.Unix(asOf, 0).UTC()
		rec.Trend = model.Trend(trend)
		rec.Risk = model.Risk(risk)
		if mc.Valid {
			v := mc.Float64
			rec.MarketContext = &v
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
