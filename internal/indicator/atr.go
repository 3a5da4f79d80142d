package indicator

import (
	"math"

	"strategylab/internal/model"
)

// ATR calculates the Average True Range using Wilder's smoothing.
//
// True range = max(high-low, |high-prevClose|, |low-prevClose|); the
// first bar has no previous close and uses high-low. The seed is the
// simple average of the first period true ranges (at index period-1);
// thereafter atr = (atr*(period-1) + tr)/period.
func ATR(bars []model.PriceBar, period int) []float64 {
	out := make([]float64, len(bars))
	if period <= 0 || len(bars) < period {
		undefined(out, len(out))
		return out
	}

	undefined(out, period-1)

	tr := make([]float64, len(bars))
	tr[0] = bars[0].High - bars[0].Low
	for i := 1; i < len(bars); i++ {
		hl := bars[i].High - bars[i].Low
		hc := math.Abs(bars[i].High - bars[i-1].Close)
		lc := math.Abs(bars[i].Low - bars[i-1].Close)
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += tr[i]
	}
	out[period-1] = sum / float64(period)

	p := float64(period)
	for i := period; i < len(bars); i++ {
		out[i] = (out[i-1]*(p-1) + tr[i]) / p
	}
	return out
}
