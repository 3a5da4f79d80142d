package portfolio

import (
	"math"
	"sort"
	"time"
)

// PairCorrelation holds the pairwise statistics for two strategies over
// their common dates.
type PairCorrelation struct {
	StrategyA string `json:"strategy_a"`
	StrategyB string `json:"strategy_b"`

	DrawdownCorr float64 `json:"drawdown_corr"` // Pearson, daily drawdown pcts
	ReturnCorr   float64 `json:"return_corr"`   // Pearson, daily returns
	CommonDates  int     `json:"common_dates"`

	// CoStressDays counts common dates where both strategies exceed the
	// drawdown threshold simultaneously.
	CoStressDays      int     `json:"co_stress_days"`
	StressThresholdPct float64 `json:"stress_threshold_pct"`
}

// Correlate computes the pairwise correlation for every strategy pair.
// thresholdPct is the drawdown level (percent) for the co-stress count.
func Correlate(strategies []StrategyEquity, thresholdPct float64) []PairCorrelation {
	var out []PairCorrelation
	for i := 0; i < len(strategies); i++ {
		for j := i + 1; j < len(strategies); j++ {
			out = append(out, correlatePair(strategies[i], strategies[j], thresholdPct))
		}
	}
	return out
}

func correlatePair(a, b StrategyEquity, thresholdPct float64) PairCorrelation {
	type obs struct {
		dd     float64
		ret    float64
		hasRet bool
	}
	index := func(se StrategyEquity) map[time.Time]obs {
		m := make(map[time.Time]obs, len(se.Points))
		for i, pt := range se.Points {
			o := obs{dd: pt.DrawdownPct}
			if i > 0 && se.Points[i-1].Equity > 0 {
				o.ret = pt.Equity/se.Points[i-1].Equity - 1
				o.hasRet = true
			}
			m[pt.Date] = o
		}
		return m
	}
	ma, mb := index(a), index(b)

	var dates []time.Time
	for d := range ma {
		if _, ok := mb[d]; ok {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	pc := PairCorrelation{
		StrategyA:          a.StrategyID,
		StrategyB:          b.StrategyID,
		CommonDates:        len(dates),
		StressThresholdPct: thresholdPct,
	}

	var ddA, ddB, retA, retB []float64
	for _, d := range dates {
		oa, ob := ma[d], mb[d]
		ddA = append(ddA, oa.dd)
		ddB = append(ddB, ob.dd)
		if oa.hasRet && ob.hasRet {
			retA = append(retA, oa.ret)
			retB = append(retB, ob.ret)
		}
		if oa.dd > thresholdPct && ob.dd > thresholdPct {
			pc.CoStressDays++
		}
	}

	pc.DrawdownCorr = Pearson(ddA, ddB)
	pc.ReturnCorr = Pearson(retA, retB)
	return pc
}

// Pearson computes the Pearson correlation coefficient of two equal
// length series. Constant series (zero variance) yield 0.
func Pearson(xs, ys []float64) float64 {
	n := len(xs)
	if n == 0 || n != len(ys) {
		return 0
	}
	meanX, meanY := 0.0, 0.0
	for i := 0; i < n; i++ {
		meanX += xs[i]
		meanY += ys[i]
	}
	meanX /= float64(n)
	meanY /= float64(n)

	cov, varX, varY := 0.0, 0.0, 0.0
	for i := 0; i < n; i++ {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}
