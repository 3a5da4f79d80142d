package sqlite

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"strategylab/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Reader provides read-only access to the daily price database.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	log.Printf("[sqlite-reader] opened %s", dbPath)
	return &Reader{db: db}, nil
}

// DB returns the underlying sql.DB for health checks.
func (r *Reader) DB() *sql.DB { return r.db }

// ReadSeries loads every daily bar for one symbol, ordered by date ascending.
// Returns an error if the symbol has no bars at all.
func (r *Reader) ReadSeries(symbol string) (*model.PriceSeries, error) {
	rows, err := r.db.Query(`
		SELECT date, open, high, low, close, volume
		FROM daily_bars
		WHERE symbol = ?
		ORDER BY date ASC
	`, symbol)
	if err != nil {
		return nil, fmt.Errorf("sqlite query daily_bars: %w", err)
	}
	defer rows.Close()

	var bars []model.PriceBar
	for rows.Next() {
		var b model.PriceBar
		var dateUnix int64
		if err := rows.Scan(&dateUnix, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan daily_bars: %w", err)
		}
		b.Date = time.Unix(dateUnix, 0).UTC()
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars stored for symbol %s", symbol)
	}
	return &model.PriceSeries{Symbol: symbol, Bars: bars}, nil
}

// ReadUniverse loads the series for every requested symbol. Symbols with no
// stored bars are skipped with a warning rather than failing the whole load.
func (r *Reader) ReadUniverse(symbols []string) (map[string]*model.PriceSeries, error) {
	out := make(map[string]*model.PriceSeries, len(symbols))
	for _, sym := range symbols {
		series, err := r.ReadSeries(sym)
		if err != nil {
			log.Printf("[sqlite-reader] skipping %s: %v", sym, err)
			continue
		}
		out[sym] = series
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("none of the %d requested symbols had price data", len(symbols))
	}
	return out, nil
}

// Symbols lists every distinct symbol present in the price table.
func (r *Reader) Symbols() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT symbol FROM daily_bars ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query symbols: %w", err)
	}
	defer rows.Close()

	var syms []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		syms = append(syms, s)
	}
	return syms, rows.Err()
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
