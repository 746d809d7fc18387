package storage

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"github.com/stockpulse/stockpulse/internal/domain/models"
)

type dummyErr struct{}

func (dummyErr) Error() string { return "dummy" }

func newMockRepo(t *testing.T) (*barsRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	repo := &barsRepository{db: db, driver: "sqlite3"}
	cleanup := func() { _ = db.Close() }
	return repo, mock, cleanup
}

func sampleBar(day time.Time) models.DailyBar {
	return models.DailyBar{
		Symbol:      "AAPL",
		TradingDate: day,
		Open:        decimal.RequireFromString("185.00"),
		High:        decimal.RequireFromString("186.50"),
		Low:         decimal.RequireFromString("184.25"),
		Close:       decimal.RequireFromString("185.75"),
		Volume:      1000000,
		ChangePct:   decimal.RequireFromString("0.4054"),
		FetchedAt:   time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC),
	}
}

func TestEnsureSchema_SQLMock(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS daily_bars").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS etl_runs").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.EnsureSchema(); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsertBars_SQLMock(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	upsertRegex := `INSERT INTO daily_bars .*ON CONFLICT \(symbol, trading_date\)\s+DO UPDATE SET`

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(upsertRegex)
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	bars := []models.DailyBar{sampleBar(day), sampleBar(day.AddDate(0, 0, 1))}
	n, err := repo.UpsertBars(bars)
	if err != nil {
		t.Fatalf("UpsertBars: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows written, got %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsertBars_Empty(t *testing.T) {
	repo, _, done := newMockRepo(t)
	defer done()

	// No expectations: an empty batch must not touch the database.
	n, err := repo.UpsertBars(nil)
	if err != nil || n != 0 {
		t.Fatalf("expected 0,nil got %d,%v", n, err)
	}
}

func TestUpsertBars_ErrorOnBegin(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectBegin().WillReturnError(dummyErr{})
	if _, err := repo.UpsertBars([]models.DailyBar{sampleBar(time.Now())}); err == nil {
		t.Fatalf("expected error on begin")
	}
}

func TestUpsertBars_RollbackOnExecError(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO daily_bars")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnError(dummyErr{})
	mock.ExpectRollback()

	// Second bar fails: the whole batch must roll back, zero rows reported.
	n, err := repo.UpsertBars([]models.DailyBar{sampleBar(day), sampleBar(day.AddDate(0, 0, 1))})
	if err == nil {
		t.Fatalf("expected error on exec")
	}
	if n != 0 {
		t.Fatalf("expected 0 rows on rollback, got %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetBars_SQLMock(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	selectRegex := regexp.QuoteMeta("SELECT symbol, trading_date, open, high, low, close, volume, change_pct, fetched_at FROM daily_bars WHERE symbol = ?")

	cases := []struct {
		name      string
		start     *time.Time
		end       *time.Time
		wantArgs  []interface{}
		wantQuery string
	}{
		{"no range", nil, nil, []interface{}{"AAPL"}, selectRegex},
		{"with start", &day, nil, []interface{}{"AAPL", day}, selectRegex + regexp.QuoteMeta(" AND trading_date >= ?")},
		{"with range", &day, &day2, []interface{}{"AAPL", day, day2}, selectRegex + regexp.QuoteMeta(" AND trading_date >= ? AND trading_date <= ?")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rows := sqlmock.NewRows([]string{"symbol", "trading_date", "open", "high", "low", "close", "volume", "change_pct", "fetched_at"}).
				AddRow("AAPL", day, "185.00", "186.50", "184.25", "185.75", int64(1000000), "0.41", day)

			ex := mock.ExpectQuery(tc.wantQuery)
			switch len(tc.wantArgs) {
			case 1:
				ex.WithArgs("AAPL")
			case 2:
				ex.WithArgs("AAPL", day)
			case 3:
				ex.WithArgs("AAPL", day, day2)
			}
			ex.WillReturnRows(rows)

			out, err := repo.GetBars("AAPL", tc.start, tc.end)
			if err != nil {
				t.Fatalf("GetBars: %v", err)
			}
			if len(out) != 1 || out[0].Symbol != "AAPL" || out[0].Volume != 1000000 {
				t.Fatalf("unexpected result: %+v", out)
			}
			if !out[0].Open.Equal(decimal.RequireFromString("185.00")) {
				t.Fatalf("unexpected open: %s", out[0].Open)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestGetLatestBar_SQLMock(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	query := regexp.QuoteMeta("ORDER BY trading_date DESC LIMIT 1")

	t.Run("found", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"symbol", "trading_date", "open", "high", "low", "close", "volume", "change_pct", "fetched_at"}).
			AddRow("AAPL", day, "185.00", "186.50", "184.25", "185.75", int64(1000000), "0.41", day)
		mock.ExpectQuery(query).WithArgs("AAPL").WillReturnRows(rows)

		bar, err := repo.GetLatestBar("AAPL")
		if err != nil || bar == nil {
			t.Fatalf("unexpected bar=%+v err=%v", bar, err)
		}
		if !bar.TradingDate.Equal(day) {
			t.Fatalf("unexpected date: %v", bar.TradingDate)
		}
	})

	t.Run("no rows", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("MSFT").
			WillReturnRows(sqlmock.NewRows([]string{"symbol", "trading_date", "open", "high", "low", "close", "volume", "change_pct", "fetched_at"}))

		bar, err := repo.GetLatestBar("MSFT")
		if err != nil || bar != nil {
			t.Fatalf("want nil,nil got bar=%+v err=%v", bar, err)
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecordRun_SQLMock(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	run := models.RunResult{
		RunID:      "run-1",
		StartedAt:  time.Date(2024, 1, 3, 0, 30, 0, 0, time.UTC),
		FinishedAt: time.Date(2024, 1, 3, 0, 30, 5, 0, time.UTC),
		Symbols: []models.SymbolResult{
			{Symbol: "AAPL", Rows: 100},
			{Symbol: "GOOG", ErrKind: "transport", ErrMsg: "dial tcp: timeout"},
		},
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO etl_runs (run_id, started_at, finished_at, symbols_ok, symbols_failed)")).
		WithArgs("run-1", run.StartedAt, run.FinishedAt, 1, 1).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.RecordRun(run); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRebind(t *testing.T) {
	sqliteRepo := &barsRepository{driver: "sqlite3"}
	pgRepo := &barsRepository{driver: "postgres"}

	q := "SELECT * FROM t WHERE a = ? AND b = ?"
	if got := sqliteRepo.rebind(q); got != q {
		t.Fatalf("sqlite rebind changed query: %q", got)
	}
	if got := pgRepo.rebind(q); got != "SELECT * FROM t WHERE a = $1 AND b = $2" {
		t.Fatalf("postgres rebind wrong: %q", got)
	}
}
