package strategy

import (
	"strategylab/internal/indicator"
	"strategylab/internal/model"
)

// MACross buys when the short moving average crosses above the long one
// and sells on the cross back below (golden cross / death cross).
func MACross() *Strategy {
	return &Strategy{
		ID:   "ma_cross",
		Name: "MA Cross",
		Params: []ParamDef{
			{Key: "shortPeriod", Default: 5, Min: 3, Max: 20, Step: 1},
			{Key: "longPeriod", Default: 25, Min: 10, Max: 75, Step: 5},
		},
		Valid: func(p Params) bool { return p["shortPeriod"] < p["longPeriod"] },
		Compute: func(series *model.PriceSeries, p Params) []model.Signal {
			closes := series.Closes()
			short := indicator.SMA(closes, p.Int("shortPeriod"))
			long := indicator.SMA(closes, p.Int("longPeriod"))

			signals := make([]model.Signal, len(closes))
			var pos position
			for i := 1; i < len(closes); i++ {
				if !indicator.Defined(short[i]) || !indicator.Defined(long[i]) ||
					!indicator.Defined(short[i-1]) || !indicator.Defined(long[i-1]) {
					continue
				}
				crossUp := short[i-1] <= long[i-1] && short[i] > long[i]
				crossDown := short[i-1] >= long[i-1] && short[i] < long[i]

				switch {
				case !pos.Holding && crossUp:
					signals[i] = model.Buy
					pos = enter(series.Bars, i)
				case pos.Holding && crossDown:
					signals[i] = model.Sell
					pos = position{}
				}
			}
			return signals
		},
	}
}
