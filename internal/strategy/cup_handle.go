package strategy

import (
	"strategylab/internal/model"
	"strategylab/internal/pattern"
)

// CupHandle buys cup-with-handle breakout bars found by the pattern
// detector and exits on a take profit or stop loss.
func CupHandle() *Strategy {
	return &Strategy{
		ID:   "cup_handle",
		Name: "Cup With Handle",
		Params: []ParamDef{
			{Key: "takeProfitPct", Default: 0.15, Min: 0.10, Max: 0.30, Step: 0.05},
			{Key: "stopLossPct", Default: 0.08, Min: 0.05, Max: 0.12, Step: 0.01},
		},
		Compute: func(series *model.PriceSeries, p Params) []model.Signal {
			closes := series.Closes()
			signals := make([]model.Signal, len(closes))

			breakouts := make(map[int]bool)
			for _, idx := range pattern.CupHandleBreakouts(series) {
				breakouts[idx] = true
			}

			var pos position
			for i := range closes {
				if !pos.Holding {
					if breakouts[i] {
						signals[i] = model.Buy
						pos = enter(series.Bars, i)
					}
					continue
				}

				gain := pos.gainFrom(closes[i])
				if gain >= p["takeProfitPct"] || gain <= -p["stopLossPct"] {
					signals[i] = model.Sell
					pos = position{}
				}
			}
			return signals
		},
	}
}
