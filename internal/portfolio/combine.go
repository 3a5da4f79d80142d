package portfolio

import (
	"math"
	"sort"
	"time"
)

// tradingDaysPerYear annualizes the daily Sharpe ratio.
const tradingDaysPerYear = 250

// PortfolioResult is the equal-allocation combination of several
// strategy equity curves.
type PortfolioResult struct {
	Points []EquityPoint `json:"points"`

	TotalCapital   float64 `json:"total_capital"`
	FinalEquity    float64 `json:"final_equity"`
	TotalReturnPct float64 `json:"total_return_pct"`

	MaxDrawdownPct float64   `json:"max_drawdown_pct"`
	PeakDate       time.Time `json:"peak_date"`
	TroughDate     time.Time `json:"trough_date"`
	RecoveryDate   time.Time `json:"recovery_date"` // zero if never recovered

	// AnnualSharpe is computed from day-over-day combined-equity returns,
	// annualized by sqrt(250). This is deliberately a different Sharpe
	// than the per-trade one reported by backtest statistics.
	AnnualSharpe float64 `json:"annual_sharpe"`

	YearlyReturns map[int]float64 `json:"yearly_returns"` // percent, basis reset each year
}

// Combine merges N strategy curves under equal capital allocation.
// On each date every strategy contributes its allocation compounded by
// its own return rate; a strategy with no value on a date contributes
// its un-compounded allocation (treated as flat that day).
func Combine(strategies []StrategyEquity, totalCapital float64) PortfolioResult {
	res := PortfolioResult{TotalCapital: totalCapital, YearlyReturns: make(map[int]float64)}
	if len(strategies) == 0 {
		return res
	}
	alloc := totalCapital / float64(len(strategies))

	rateByDate := make([]map[time.Time]float64, len(strategies))
	dateSet := make(map[time.Time]bool)
	for i, se := range strategies {
		rateByDate[i] = make(map[time.Time]float64, len(se.Points))
		for j, pt := range se.Points {
			rateByDate[i][pt.Date] = se.Rate(j)
			dateSet[pt.Date] = true
		}
	}
	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	peak := 0.0
	var peakDate time.Time
	troughSeen := false
	var dailyReturns []float64
	prevEquity := 0.0
	yearBasis := make(map[int]float64)
	yearLast := make(map[int]float64)

	for _, d := range dates {
		equity := 0.0
		for i := range strategies {
			if rate, ok := rateByDate[i][d]; ok {
				equity += alloc * (1 + rate)
			} else {
				equity += alloc
			}
		}

		if equity > peak {
			peak = equity
			peakDate = d
			// A new peak after the max-drawdown trough marks recovery.
			if troughSeen && res.RecoveryDate.IsZero() {
				res.RecoveryDate = d
			}
		}
		dd := 0.0
		if peak > 0 {
			dd = (peak - equity) / peak * 100
		}
		if dd > res.MaxDrawdownPct {
			res.MaxDrawdownPct = dd
			res.PeakDate = peakDate
			res.TroughDate = d
			res.RecoveryDate = time.Time{}
			troughSeen = true
		}

		if prevEquity > 0 {
			dailyReturns = append(dailyReturns, equity/prevEquity-1)
		}
		prevEquity = equity

		y := d.Year()
		if _, ok := yearBasis[y]; !ok {
			yearBasis[y] = equity
		}
		yearLast[y] = equity

		res.Points = append(res.Points, EquityPoint{Date: d, Equity: equity, DrawdownPct: dd})
	}

	if n := len(res.Points); n > 0 {
		res.FinalEquity = res.Points[n-1].Equity
		if totalCapital > 0 {
			res.TotalReturnPct = (res.FinalEquity/totalCapital - 1) * 100
		}
	}
	for y, basis := range yearBasis {
		if basis > 0 {
			res.YearlyReturns[y] = (yearLast[y]/basis - 1) * 100
		}
	}
	res.AnnualSharpe = annualSharpe(dailyReturns)
	return res
}

// annualSharpe is mean/stddev of daily returns scaled by sqrt(250).
// Sample stddev; fewer than two observations or zero dispersion yield 0.
func annualSharpe(dailyReturns []float64) float64 {
	if len(dailyReturns) < 2 {
		return 0
	}
	mean := 0.0
	for _, r := range dailyReturns {
		mean += r
	}
	mean /= float64(len(dailyReturns))
	variance := 0.0
	for _, r := range dailyReturns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(dailyReturns) - 1)
	if variance <= 0 {
		return 0
	}
	return mean / math.Sqrt(variance) * math.Sqrt(tradingDaysPerYear)
}
