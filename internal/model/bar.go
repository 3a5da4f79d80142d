// Package model defines the core market-data and result types shared by
// every stage of the evaluation pipeline: price bars in, signals, trades
// and walk-forward records out. All entities are computed once and never
// mutated afterwards.
package model

import (
	"encoding/json"
	"time"
)

// PriceBar is one daily OHLCV bar for a single instrument.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// JSON returns the JSON-encoded bar (ignoring errors for hot-path usage).
func (b *PriceBar) JSON() []byte {
	out, _ := json.Marshal(b)
	return out
}

// PriceSeries is the ordered bar history of one instrument.
//
// Precondition: bars are strictly ascending by date with no duplicates.
// The core assumes this and does not re-sort or deduplicate; violating
// callers get undefined behavior.
type PriceSeries struct {
	Symbol string
	Bars   []PriceBar
}

// Len returns the number of bars.
func (s *PriceSeries) Len() int { return len(s.Bars) }

// Closes extracts the close column.
func (s *PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i := range s.Bars {
		out[i] = s.Bars[i].Close
	}
	return out
}

// Volumes extracts the volume column.
func (s *PriceSeries) Volumes() []float64 {
	out := make([]float64, len(s.Bars))
	for i := range s.Bars {
		out[i] = s.Bars[i].Volume
	}
	return out
}

// Slice returns the sub-series with dates in [from, to] (inclusive).
// The backing array is shared; the result must be treated as read-only.
func (s *PriceSeries) Slice(from, to time.Time) *PriceSeries {
	lo := 0
	for lo < len(s.Bars) && s.Bars[lo].Date.Before(from) {
		lo++
	}
	hi := lo
	for hi < len(s.Bars) && !s.Bars[hi].Date.After(to) {
		hi++
	}
	return &PriceSeries{Symbol: s.Symbol, Bars: s.Bars[lo:hi]}
}
