package model

import (
	"fmt"
	"time"
)

// WFWindow is one sliding train/test window of the walk-forward plan.
// Windows are generated deterministically from the configured train and
// test year counts and assigned sequential ids starting at 1.
type WFWindow struct {
	ID         int       `json:"id"`
	TrainStart time.Time `json:"train_start"`
	TrainEnd   time.Time `json:"train_end"`
	TestStart  time.Time `json:"test_start"`
	TestEnd    time.Time `json:"test_end"`
}

// Label returns a human-readable window label, e.g. "W3 2018-2020/2021".
func (w WFWindow) Label() string {
	return fmt.Sprintf("W%d %d-%d/%d", w.ID, w.TrainStart.Year(), w.TrainEnd.Year(), w.TestEnd.Year())
}

// WFRecord is the outcome of one (strategy, combo, window) cell,
// aggregated across the instrument universe: medians for rate-style
// metrics, sums for counts.
type WFRecord struct {
	StrategyID  string  `json:"strategy_id"`
	ComboLabel  string  `json:"combo_label"`
	WindowID    int     `json:"window_id"`
	TrainReturn float64 `json:"train_return"` // median total return % across instruments
	TestReturn  float64 `json:"test_return"`  // median total return % across instruments
	TestWinRate float64 `json:"test_win_rate"`
	TestTrades  int     `json:"test_trades"` // summed across instruments
	TestMaxDD   float64 `json:"test_max_dd"`
	TestSharpe  float64 `json:"test_sharpe"` // per-trade-return Sharpe, unannualized
}

// ParamScore is the per-(strategy, combo) aggregate across all windows,
// produced by the stability scorer.
type ParamScore struct {
	StrategyID    string    `json:"strategy_id"`
	ComboLabel    string    `json:"combo_label"`
	TestMedian    float64   `json:"test_median"`
	TestMin       float64   `json:"test_min"`
	TestStdDev    float64   `json:"test_std_dev"`
	TrainMedian   float64   `json:"train_median"`
	OverfitDegree float64   `json:"overfit_degree"` // trainMedian - testMedian
	Composite     float64   `json:"composite"`
	Rank          int       `json:"rank"`
	WindowReturns []float64 `json:"window_returns"` // per-window test returns, window order
}
