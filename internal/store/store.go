// Package store persists a history of backtest runs in SQLite so past
// results can be compared across parameter changes.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/replaykit/replay/internal/backtest"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id            TEXT PRIMARY KEY,
    strategy      TEXT     NOT NULL,
    symbol        TEXT     NOT NULL,
    start_date    DATETIME NOT NULL,
    end_date      DATETIME NOT NULL,
    created_at    DATETIME NOT NULL,
    bars          INTEGER  NOT NULL DEFAULT 0,
    switches      INTEGER  NOT NULL DEFAULT 0,
    clips         INTEGER  NOT NULL DEFAULT 0,
    total_return  REAL     NOT NULL DEFAULT 0,
    annual_return REAL     NOT NULL DEFAULT 0,
    volatility    REAL     NOT NULL DEFAULT 0,
    sharpe        REAL     NOT NULL DEFAULT 0,
    max_drawdown  REAL     NOT NULL DEFAULT 0,
    trade_count   INTEGER  NOT NULL DEFAULT 0,
    win_rate      REAL     NOT NULL DEFAULT 0,
    report        TEXT     NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_symbol  ON runs(symbol, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);
`

// Row is one persisted run summary.
type Row struct {
	ID          string
	Strategy    string
	Symbol      string
	Start       time.Time
	End         time.Time
	CreatedAt   time.Time
	TotalReturn float64
	Sharpe      float64
	MaxDrawdown float64
	TradeCount  int
	WinRate     float64
}

// RunStore is a SQLite-backed run history.
type RunStore struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*RunStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store.Open %q: %w", path, err)
	}
	// SQLite is single-writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store.Open: apply schema: %w", err)
	}
	return &RunStore{db: db}, nil
}

// Close closes the underlying database.
func (s *RunStore) Close() error { return s.db.Close() }

// SaveRun inserts one finished run. The full metric map is kept as JSON
// alongside the indexed summary columns.
func (s *RunStore) SaveRun(ctx context.Context, res *backtest.Result) error {
	report, err := json.Marshal(res.Report.Map())
	if err != nil {
		return fmt.Errorf("store.SaveRun: encode report: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (
			id, strategy, symbol, start_date, end_date, created_at,
			bars, switches, clips,
			total_return, annual_return, volatility, sharpe, max_drawdown,
			trade_count, win_rate, report
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID, res.Strategy, res.Symbol, res.Start, res.End, time.Now().UTC(),
		res.Bars, res.Switches, res.Clips,
		res.Report.TotalReturn, res.Report.AnnualReturn, res.Report.AnnualVolatility,
		res.Report.SharpeRatio, res.Report.MaxDrawdown,
		res.Report.TradeCount, res.Report.WinRate, string(report),
	)
	if err != nil {
		return fmt.Errorf("store.SaveRun: insert %s: %w", res.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs, optionally filtered by symbol.
func (s *RunStore) ListRuns(ctx context.Context, symbol string, limit int) ([]Row, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, strategy, symbol, start_date, end_date, created_at,
		       total_return, sharpe, max_drawdown, trade_count, win_rate
		FROM runs`
	args := []any{}
	if symbol != "" {
		query += ` WHERE symbol = ?`
		args = append(args, symbol)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store.ListRuns: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(
			&r.ID, &r.Strategy, &r.Symbol, &r.Start, &r.End, &r.CreatedAt,
			&r.TotalReturn, &r.Sharpe, &r.MaxDrawdown, &r.TradeCount, &r.WinRate,
		); err != nil {
			return nil, fmt.Errorf("store.ListRuns: scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
