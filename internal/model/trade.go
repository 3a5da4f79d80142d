package model

import "time"

// Trade is one completed buy-then-sell round trip.
type Trade struct {
	Symbol     string    `json:"symbol"`
	EntryIndex int       `json:"entry_index"`
	EntryDate  time.Time `json:"entry_date"`
	EntryPrice float64   `json:"entry_price"`
	ExitIndex  int       `json:"exit_index"`
	ExitDate   time.Time `json:"exit_date"`
	ExitPrice  float64   `json:"exit_price"`
	ReturnPct  float64   `json:"return_pct"`
}

// Win reports whether the round trip closed at a profit.
func (t *Trade) Win() bool { return t.ReturnPct > 0 }

// HoldingBars returns the holding period in bars.
func (t *Trade) HoldingBars() int { return t.ExitIndex - t.EntryIndex }
