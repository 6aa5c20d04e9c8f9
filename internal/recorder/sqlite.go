package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ProfitSentinel/internal/db"
)

// SQLiteRecorder persists forecast runs to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *logrus.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(path string, log *logrus.Logger) (*SQLiteRecorder, error) {
	conn, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	r := &SQLiteRecorder{db: conn, log: log}
	if err := r.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.WithField("path", path).Info("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS forecast_runs (
			id           TEXT PRIMARY KEY,
			timestamp    INTEGER NOT NULL,
			metric       TEXT NOT NULL,
			horizon      INTEGER NOT NULL,
			start_period TEXT,
			end_period   TEXT,
			warnings     INTEGER,
			records      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON forecast_runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS forecast_points (
			run_id         TEXT NOT NULL,
			period         TEXT NOT NULL,
			actual         REAL,
			forecast       REAL,
			forecast_lower REAL,
			forecast_upper REAL,
			PRIMARY KEY (run_id, period)
		)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores a run and its merged rows. A missing ID or timestamp is
// filled in on the passed run.
func (r *SQLiteRecorder) RecordRun(run *ForecastRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	records, err := json.Marshal(run.Records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO forecast_runs
		(id, timestamp, metric, horizon, start_period, end_period, warnings, records)
		VALUES (?,?,?,?,?,?,?,?)`,
		run.ID, run.CreatedAt.Unix(), string(run.Metric), run.Horizon,
		run.Start.String(), run.End.String(), run.Warnings, string(records),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	for _, rec := range run.Records {
		if _, err := tx.Exec(`INSERT INTO forecast_points
			(run_id, period, actual, forecast, forecast_lower, forecast_upper)
			VALUES (?,?,?,?,?,?)`,
			run.ID, rec.Period, nullable(rec.Actual), nullable(rec.Forecast),
			nullable(rec.ForecastLower), nullable(rec.ForecastUpper),
		); err != nil {
			return fmt.Errorf("insert point %s: %w", rec.Period, err)
		}
	}
	return tx.Commit()
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
