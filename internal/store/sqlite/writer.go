package sqlite

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"strategylab/internal/model"
	"strategylab/internal/walkforward"

	_ "github.com/mattn/go-sqlite3"
)

const insertBatchSize = 500

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/strategylab.db"
}

// Writer persists price bars and run results with transaction batching.
type Writer struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New creates a new SQLite Writer, initializes the database with WAL mode and schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single-writer pool
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Writer{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS daily_bars (
			symbol TEXT    NOT NULL,
			date   INTEGER NOT NULL,
			open   REAL    NOT NULL,
			high   REAL    NOT NULL,
			low    REAL    NOT NULL,
			close  REAL    NOT NULL,
			volume REAL,
			PRIMARY KEY (symbol, date)
		);

		CREATE TABLE IF NOT EXISTS wf_records (
			run_id        TEXT    NOT NULL,
			strategy_id   TEXT    NOT NULL,
			combo_label   TEXT    NOT NULL,
			window_id     INTEGER NOT NULL,
			train_return  REAL    NOT NULL,
			test_return   REAL    NOT NULL,
			test_win_rate REAL    NOT NULL,
			test_trades   INTEGER NOT NULL,
			test_max_dd   REAL    NOT NULL,
			test_sharpe   REAL    NOT NULL,
			PRIMARY KEY (run_id, strategy_id, combo_label, window_id)
		);

		CREATE TABLE IF NOT EXISTS trades (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id       TEXT    NOT NULL,
			window_label TEXT    NOT NULL,
			strategy_id  TEXT    NOT NULL,
			combo_label  TEXT    NOT NULL,
			symbol       TEXT    NOT NULL,
			entry_date   INTEGER NOT NULL,
			entry_price  REAL    NOT NULL,
			exit_date    INTEGER NOT NULL,
			exit_price   REAL    NOT NULL,
			return_pct   REAL    NOT NULL,
			win          INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS param_scores (
			run_id         TEXT    NOT NULL,
			strategy_id    TEXT    NOT NULL,
			combo_label    TEXT    NOT NULL,
			test_median    REAL    NOT NULL,
			test_min       REAL    NOT NULL,
			test_stddev    REAL    NOT NULL,
			train_median   REAL    NOT NULL,
			overfit_degree REAL    NOT NULL,
			composite      REAL    NOT NULL,
			rank           INTEGER NOT NULL,
			created_at     INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
			PRIMARY KEY (run_id, strategy_id, combo_label)
		);

		CREATE INDEX IF NOT EXISTS idx_trades_run ON trades (run_id, strategy_id);
	`)
	return err
}

// SaveBars inserts daily bars for one symbol in batched transactions.
// Existing rows for the same (symbol, date) are replaced.
func (w *Writer) SaveBars(series *model.PriceSeries) error {
	for start := 0; start < len(series.Bars); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(series.Bars) {
			end = len(series.Bars)
		}
		if err := w.insertBarBatch(series.Symbol, series.Bars[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) insertBarBatch(symbol string, bars []model.PriceBar) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO daily_bars (symbol, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.Exec(symbol, b.Date.Unix(), b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// SaveRecords persists the per-window walk-forward records of one run.
func (w *Writer) SaveRecords(runID string, records []model.WFRecord) error {
	start := time.Now()
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO wf_records
		(run_id, strategy_id, combo_label, window_id, train_return, test_return, test_win_rate, test_trades, test_max_dd, test_sharpe)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.Exec(runID, rec.StrategyID, rec.ComboLabel, rec.WindowID,
			rec.TrainReturn, rec.TestReturn, rec.TestWinRate, rec.TestTrades, rec.TestMaxDD, rec.TestSharpe)
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Printf("[sqlite] committed %d wf records in %v", len(records), time.Since(start))
	return nil
}

// SaveTrades persists the out-of-sample trades of one run.
func (w *Writer) SaveTrades(runID string, trades []walkforward.TradeRecord) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO trades
		(run_id, window_label, strategy_id, combo_label, symbol, entry_date, entry_price, exit_date, exit_price, return_pct, win)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, tr := range trades {
		win := 0
		if tr.Win {
			win = 1
		}
		_, err := stmt.Exec(runID, tr.WindowLabel, tr.StrategyID, tr.ComboLabel, tr.Symbol,
			tr.Trade.EntryDate.Unix(), tr.Trade.EntryPrice,
			tr.Trade.ExitDate.Unix(), tr.Trade.ExitPrice,
			tr.Trade.ReturnPct, win)
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// SaveScores persists the ranked stability scores of one run.
func (w *Writer) SaveScores(runID string, scores []model.ParamScore) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO param_scores
		(run_id, strategy_id, combo_label, test_median, test_min, test_stddev, train_median, overfit_degree, composite, rank)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, s := range scores {
		_, err := stmt.Exec(runID, s.StrategyID, s.ComboLabel,
			s.TestMedian, s.TestMin, s.TestStdDev, s.TrainMedian, s.OverfitDegree, s.Composite, s.Rank)
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
