// Package backtest turns an aligned signal sequence into round-trip
// trades and summary statistics.
//
// The simulator holds at most one position: a buy observed while flat
// opens it at that bar's close, the next sell observed while holding
// closes it. A buy while holding and a sell while flat are no-ops.
package backtest

import (
	"strategylab/internal/model"
)

// Config controls a simulation run.
type Config struct {
	// InitialCapital frames absolute P&L only; all returns are
	// percentage round trips and position sizing does not exist.
	InitialCapital float64

	// CloseOpenAtEnd force-closes an unmatched trailing buy at the last
	// bar's close so the open position still counts toward statistics.
	// The walk-forward evaluator enables this for test windows.
	CloseOpenAtEnd bool
}

// Result is the outcome of one simulation: the round trips plus the
// derived statistics.
type Result struct {
	Trades []model.Trade
	Stats  Stats
}

// Run simulates the signal sequence over the series.
// Signals must be aligned index-for-index with series.Bars.
func Run(series *model.PriceSeries, signals []model.Signal, cfg Config) Result {
	bars := series.Bars
	n := len(bars)
	if len(signals) < n {
		n = len(signals)
	}

	var trades []model.Trade
	holding := false
	entryIdx := 0

	for i := 0; i < n; i++ {
		switch signals[i] {
		case model.Buy:
			if !holding {
				holding = true
				entryIdx = i
			}
		case model.Sell:
			if holding {
				trades = append(trades, roundTrip(series, entryIdx, i))
				holding = false
			}
		}
	}

	if holding && cfg.CloseOpenAtEnd && n > 0 {
		trades = append(trades, roundTrip(series, entryIdx, n-1))
	}

	return Result{Trades: trades, Stats: ComputeStats(trades, cfg.InitialCapital)}
}

func roundTrip(series *model.PriceSeries, entryIdx, exitIdx int) model.Trade {
	entry := series.Bars[entryIdx]
	exit := series.Bars[exitIdx]
	pct := 0.0
	if entry.Close != 0 {
		pct = (exit.Close/entry.Close - 1) * 100
	}
	return model.Trade{
		Symbol:     series.Symbol,
		EntryIndex: entryIdx,
		EntryDate:  entry.Date,
		EntryPrice: entry.Close,
		ExitIndex:  exitIdx,
		ExitDate:   exit.Date,
		ExitPrice:  exit.Close,
		ReturnPct:  pct,
	}
}
