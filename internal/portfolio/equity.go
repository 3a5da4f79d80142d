// Package portfolio combines per-strategy equity curves and studies
// their drawdown and return correlation.
//
// A strategy's equity on a date is the per-strategy capital scaled by
// the average cumulative return rate across the instruments that have a
// recorded value on that date. Combination assumes equal capital
// allocation across strategies.
package portfolio

import (
	"sort"
	"time"

	"strategylab/internal/model"
)

// DateRate is one instrument's cumulative return rate (fraction) as of a
// date, under a strategy's signals.
type DateRate struct {
	Date time.Time
	Rate float64
}

// EquityPoint is one date of an equity curve.
type EquityPoint struct {
	Date        time.Time `json:"date"`
	Equity      float64   `json:"equity"`
	DrawdownPct float64   `json:"drawdown_pct"`
}

// StrategyEquity is a strategy's dated equity and drawdown series.
type StrategyEquity struct {
	StrategyID string
	Capital    float64
	Points     []EquityPoint
}

// Rate returns the cumulative return rate at point i.
func (se *StrategyEquity) Rate(i int) float64 {
	if se.Capital == 0 {
		return 0
	}
	return se.Points[i].Equity/se.Capital - 1
}

// ReturnRates derives an instrument's cumulative return-rate series from
// a signal sequence: the rate compounds with the daily close change
// while holding and stays flat otherwise.
func ReturnRates(series *model.PriceSeries, signals []model.Signal) []DateRate {
	bars := series.Bars
	n := len(bars)
	if len(signals) < n {
		n = len(signals)
	}

	out := make([]DateRate, 0, n)
	factor := 1.0
	holding := false
	for i := 0; i < n; i++ {
		if holding && i > 0 && bars[i-1].Close != 0 {
			factor *= bars[i].Close / bars[i-1].Close
		}
		switch signals[i] {
		case model.Buy:
			holding = true
		case model.Sell:
			holding = false
		}
		out = append(out, DateRate{Date: bars[i].Date, Rate: factor - 1})
	}
	return out
}

// BuildStrategyEquity averages per-instrument return rates date by date
// into one equity curve. Only instruments with a recorded value on a
// date participate in that date's average.
func BuildStrategyEquity(strategyID string, capital float64, perInstrument [][]DateRate) StrategyEquity {
	type acc struct {
		sum   float64
		count int
	}
	byDate := make(map[time.Time]*acc)
	for _, rates := range perInstrument {
		for _, dr := range rates {
			a := byDate[dr.Date]
			if a == nil {
				a = &acc{}
				byDate[dr.Date] = a
			}
			a.sum += dr.Rate
			a.count++
		}
	}

	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	se := StrategyEquity{StrategyID: strategyID, Capital: capital}
	peak := 0.0
	for _, d := range dates {
		a := byDate[d]
		equity := capital * (1 + a.sum/float64(a.count))
		if equity > peak {
			peak = equity
		}
		dd := 0.0
		if peak > 0 {
			dd = (peak - equity) / peak * 100
		}
		se.Points = append(se.Points, EquityPoint{Date: d, Equity: equity, DrawdownPct: dd})
	}
	return se
}
