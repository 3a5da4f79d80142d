package strategy

import (
	"strategylab/internal/indicator"
	"strategylab/internal/model"
)

// KairiDip buys deep deviations below the 25-bar moving average (kairi)
// and exits when the deviation normalizes, the close regains the 5-bar
// average, a stop loss hits, or a time stop elapses while underwater.
func KairiDip() *Strategy {
	return &Strategy{
		ID:   "kairi_dip",
		Name: "Kairi Dip",
		Params: []ParamDef{
			{Key: "entryKairi", Default: -0.10, Min: -0.20, Max: -0.05, Step: 0.025},
			{Key: "exitKairi", Default: -0.02, Min: -0.05, Max: 0, Step: 0.01},
			{Key: "stopLossPct", Default: 0.08, Min: 0.05, Max: 0.12, Step: 0.01},
			{Key: "timeStopDays", Default: 20, Min: 10, Max: 40, Step: 10},
		},
		Valid: func(p Params) bool { return p["entryKairi"] < p["exitKairi"] },
		Compute: func(series *model.PriceSeries, p Params) []model.Signal {
			closes := series.Closes()
			ma25 := indicator.SMA(closes, 25)
			ma5 := indicator.SMA(closes, 5)

			signals := make([]model.Signal, len(closes))
			var pos position
			for i := range closes {
				if !indicator.Defined(ma25[i]) || ma25[i] == 0 {
					continue
				}
				kairi := closes[i]/ma25[i] - 1

				if !pos.Holding {
					if kairi <= p["entryKairi"] {
						signals[i] = model.Buy
						pos = enter(series.Bars, i)
					}
					continue
				}

				timeStop := i-pos.EntryIndex >= p.Int("timeStopDays") && closes[i] <= pos.EntryPrice
				exit := kairi >= p["exitKairi"] ||
					(indicator.Defined(ma5[i]) && closes[i] >= ma5[i]) ||
					pos.gainFrom(closes[i]) <= -p["stopLossPct"] ||
					timeStop
				if exit {
					signals[i] = model.Sell
					pos = position{}
				}
			}
			return signals
		},
	}
}
