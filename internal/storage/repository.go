package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/stockpulse/stockpulse/internal/domain/models"
)

// BarsRepository defines the contract for store operations.
type BarsRepository interface {
	// EnsureSchema creates the daily_bars and etl_runs tables if they do
	// not exist yet. Safe to call on every run.
	EnsureSchema() error

	// UpsertBars writes the batch inside a single transaction: insert when
	// the (symbol, trading_date) key is new, overwrite all value fields
	// when it exists. Returns the number of rows written. On any failure
	// the transaction rolls back entirely.
	UpsertBars(bars []models.DailyBar) (int, error)

	// GetBars returns stored bars for one symbol, most recent first,
	// optionally bounded by an inclusive date range.
	GetBars(symbol string, start, end *time.Time) ([]models.DailyBar, error)

	// GetLatestBar returns the most recent stored bar for a symbol, or
	// (nil, nil) when the symbol has no rows.
	GetLatestBar(symbol string) (*models.DailyBar, error)

	// RecordRun appends one pipeline run summary to the run log.
	RecordRun(run models.RunResult) error
}

type barsRepository struct {
	db     *sql.DB
	driver string // "sqlite3" or "postgres"
}

// NewBarsRepository wraps an open database handle. The driver name selects
// the placeholder style; the SQL itself is shared between both drivers.
func NewBarsRepository(db *sql.DB, driver string) BarsRepository {
	return &barsRepository{db: db, driver: driver}
}

// schemaStatements are executed one by one by EnsureSchema. The column
// types are chosen to be valid for both SQLite and PostgreSQL.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS daily_bars (
		symbol        TEXT      NOT NULL,
		trading_date  DATE      NOT NULL,
		open          NUMERIC   NOT NULL,
		high          NUMERIC   NOT NULL,
		low           NUMERIC   NOT NULL,
		close         NUMERIC   NOT NULL,
		volume        BIGINT    NOT NULL,
		change_pct    NUMERIC,
		fetched_at    TIMESTAMP NOT NULL,
		PRIMARY KEY (symbol, trading_date)
	)`,
	`CREATE TABLE IF NOT EXISTS etl_runs (
		run_id          TEXT      PRIMARY KEY,
		started_at      TIMESTAMP NOT NULL,
		finished_at     TIMESTAMP NOT NULL,
		symbols_ok      INTEGER   NOT NULL,
		symbols_failed  INTEGER   NOT NULL
	)`,
}

const upsertBarQuery = `
	INSERT INTO daily_bars (symbol, trading_date, open, high, low, close, volume, change_pct, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (symbol, trading_date)
	DO UPDATE SET open = excluded.open,
				  high = excluded.high,
				  low = excluded.low,
				  close = excluded.close,
				  volume = excluded.volume,
				  change_pct = excluded.change_pct,
				  fetched_at = excluded.fetched_at`

const selectBarColumns = `symbol, trading_date, open, high, low, close, volume, change_pct, fetched_at`

func (r *barsRepository) EnsureSchema() error {
	for _, stmt := range schemaStatements {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func (r *barsRepository) UpsertBars(bars []models.DailyBar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.Prepare(r.rebind(upsertBarQuery))
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	written := 0
	for _, b := range bars {
		if _, err := stmt.Exec(
			b.Symbol,
			b.TradingDate,
			b.Open,
			b.High,
			b.Low,
			b.Close,
			b.Volume,
			b.ChangePct,
			b.FetchedAt,
		); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return 0, fmt.Errorf("upsert %s %s: %w", b.Symbol, b.TradingDate.Format("2006-01-02"), err)
		}
		written++
	}

	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return written, nil
}

func (r *barsRepository) GetBars(symbol string, start, end *time.Time) ([]models.DailyBar, error) {
	// Build dynamic conditions for the optional date range.
	conditions := "symbol = ?"
	args := []interface{}{symbol}
	if start != nil {
		conditions += " AND trading_date >= ?"
		args = append(args, *start)
	}
	if end != nil {
		conditions += " AND trading_date <= ?"
		args = append(args, *end)
	}

	query := fmt.Sprintf(`SELECT %s FROM daily_bars WHERE %s ORDER BY trading_date DESC`,
		selectBarColumns, conditions)

	rows, err := r.db.Query(r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.DailyBar
	for rows.Next() {
		var b models.DailyBar
		if err := rows.Scan(&b.Symbol, &b.TradingDate, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.ChangePct, &b.FetchedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *barsRepository) GetLatestBar(symbol string) (*models.DailyBar, error) {
	query := fmt.Sprintf(`SELECT %s FROM daily_bars WHERE symbol = ? ORDER BY trading_date DESC LIMIT 1`,
		selectBarColumns)

	var b models.DailyBar
	err := r.db.QueryRow(r.rebind(query), symbol).
		Scan(&b.Symbol, &b.TradingDate, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.ChangePct, &b.FetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *barsRepository) RecordRun(run models.RunResult) error {
	_, err := r.db.Exec(r.rebind(`
		INSERT INTO etl_runs (run_id, started_at, finished_at, symbols_ok, symbols_failed)
		VALUES (?, ?, ?, ?, ?)`),
		run.RunID, run.StartedAt, run.FinishedAt, run.Succeeded(), run.Failed(),
	)
	return err
}

// rebind converts ?-style placeholders to the $N style when the postgres
// driver is in use. SQLite takes ? as-is.
func (r *barsRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}
