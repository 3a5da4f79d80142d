package backtest

import (
	"math"
	"sort"

	"strategylab/internal/model"
)

// FactorClamp caps the +Inf profit-factor / recovery-factor sentinels
// before they enter any aggregation (medians, normalization). Raw Stats
// keep the infinities; aggregating callers go through ClampFactor.
const FactorClamp = 999.0

// Stats is the read-only aggregate over a list of round trips.
//
// Sharpe here is computed over the per-trade return series and is not
// annualized; the portfolio layer reports a separate daily annualized
// Sharpe. Drawdowns are computed on an equity curve compounded trade by
// trade (equity *= 1 + pct/100).
type Stats struct {
	Trades int     `json:"trades"`
	Wins   int     `json:"wins"`
	Losses int     `json:"losses"`

	WinRate      float64 `json:"win_rate"`     // wins/trades*100
	TotalReturn  float64 `json:"total_return"` // sum of trade return pcts
	AvgWinPct    float64 `json:"avg_win_pct"`
	AvgLossPct   float64 `json:"avg_loss_pct"`
	GrossProfit  float64 `json:"gross_profit"`
	GrossLoss    float64 `json:"gross_loss"`
	ProfitFactor float64 `json:"profit_factor"` // +Inf when no losses and profit > 0
	Sharpe       float64 `json:"sharpe"`

	MaxDrawdown    float64 `json:"max_drawdown"` // percent, on compounded equity
	AvgDrawdown    float64 `json:"avg_drawdown"`
	RecoveryFactor float64 `json:"recovery_factor"` // totalReturn / maxDrawdown

	FinalEquity float64 `json:"final_equity"`
	NetProfit   float64 `json:"net_profit"`

	Holding HoldingStats `json:"holding"`
}

// HoldingStats is the holding-period distribution in bars.
type HoldingStats struct {
	Min    int     `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    int     `json:"max"`
	Avg    float64 `json:"avg"`
}

// ComputeStats derives the full statistics set from a trade list.
// An empty list yields the zero value with FinalEquity = capital.
func ComputeStats(trades []model.Trade, capital float64) Stats {
	s := Stats{Trades: len(trades), FinalEquity: capital}
	if len(trades) == 0 {
		return s
	}

	returns := make([]float64, len(trades))
	holds := make([]float64, len(trades))
	equity := 1.0
	peak := 1.0
	ddSum := 0.0
	for i, t := range trades {
		returns[i] = t.ReturnPct
		holds[i] = float64(t.HoldingBars())
		s.TotalReturn += t.ReturnPct
		if t.Win() {
			s.Wins++
			s.GrossProfit += t.ReturnPct
		} else {
			s.Losses++
			s.GrossLoss += -t.ReturnPct
		}

		equity *= 1 + t.ReturnPct/100
		if equity > peak {
			peak = equity
		}
		dd := (peak - equity) / peak * 100
		ddSum += dd
		if dd > s.MaxDrawdown {
			s.MaxDrawdown = dd
		}
	}

	s.WinRate = float64(s.Wins) / float64(s.Trades) * 100
	if s.Wins > 0 {
		s.AvgWinPct = s.GrossProfit / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLossPct = -s.GrossLoss / float64(s.Losses)
	}
	s.ProfitFactor = profitFactor(s.GrossProfit, s.GrossLoss)
	s.Sharpe = tradeSharpe(returns)
	s.AvgDrawdown = ddSum / float64(s.Trades)
	s.RecoveryFactor = recoveryFactor(s.TotalReturn, s.MaxDrawdown)
	s.FinalEquity = capital * equity
	s.NetProfit = s.FinalEquity - capital
	s.Holding = holdingStats(holds)
	return s
}

// ClampFactor caps an infinite or oversized factor at FactorClamp so it
// can participate in medians and normalization.
func ClampFactor(v float64) float64 {
	if math.IsInf(v, 1) || v > FactorClamp {
		return FactorClamp
	}
	return v
}

func profitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss == 0 {
		if grossProfit > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return grossProfit / grossLoss
}

func recoveryFactor(totalReturn, maxDD float64) float64 {
	if maxDD == 0 {
		if totalReturn > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return totalReturn / maxDD
}

// tradeSharpe is mean/stddev of the per-trade returns (sample stddev).
// Fewer than two trades, or zero dispersion, yield 0.
func tradeSharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)
	if variance <= 0 {
		return 0
	}
	return mean / math.Sqrt(variance)
}

// holdingStats computes the distribution with interpolated quartiles:
// the q-quantile sits at rank (n-1)*q, linearly interpolated between
// neighbors.
func holdingStats(holds []float64) HoldingStats {
	sorted := make([]float64, len(holds))
	copy(sorted, holds)
	sort.Float64s(sorted)

	sum := 0.0
	for _, h := range sorted {
		sum += h
	}

	return HoldingStats{
		Min:    int(sorted[0]),
		Q1:     quantile(sorted, 0.25),
		Median: quantile(sorted, 0.5),
		Q3:     quantile(sorted, 0.75),
		Max:    int(sorted[len(sorted)-1]),
		Avg:    sum / float64(len(sorted)),
	}
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := q * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
