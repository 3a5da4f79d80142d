package strategy

import (
	"strategylab/internal/indicator"
	"strategylab/internal/model"
)

// DipRSIVolume buys oversold bars confirmed by a volume spike over the
// trailing 5-bar average, exiting on RSI recovery, a take profit, or a
// break below the entry bar's low.
func DipRSIVolume() *Strategy {
	return &Strategy{
		ID:   "dip_rsi_volume",
		Name: "Dip RSI+Volume",
		Params: []ParamDef{
			{Key: "rsiEntry", Default: 30, Min: 20, Max: 35, Step: 5},
			{Key: "volumeMultiple", Default: 1.5, Min: 1.2, Max: 2.4, Step: 0.3},
			{Key: "rsiExit", Default: 55, Min: 50, Max: 70, Step: 5},
			{Key: "takeProfitPct", Default: 0.10, Min: 0.05, Max: 0.20, Step: 0.05},
		},
		Valid: func(p Params) bool { return p["rsiEntry"] < p["rsiExit"] },
		Compute: func(series *model.PriceSeries, p Params) []model.Signal {
			closes := series.Closes()
			rsi := indicator.RSI(closes, 14)
			// Trailing average excludes the current bar so the spike is
			// measured against the preceding baseline.
			volAvg := indicator.SMA(series.Volumes(), 5)

			signals := make([]model.Signal, len(closes))
			var pos position
			for i := 1; i < len(closes); i++ {
				if !indicator.Defined(rsi[i]) {
					continue
				}

				if !pos.Holding {
					if !indicator.Defined(volAvg[i-1]) || volAvg[i-1] <= 0 {
						continue
					}
					if rsi[i] <= p["rsiEntry"] && series.Bars[i].Volume >= p["volumeMultiple"]*volAvg[i-1] {
						signals[i] = model.Buy
						pos = enter(series.Bars, i)
					}
					continue
				}

				exit := rsi[i] >= p["rsiExit"] ||
					pos.gainFrom(closes[i]) >= p["takeProfitPct"] ||
					closes[i] < pos.EntryLow
				if exit {
					signals[i] = model.Sell
					pos = position{}
				}
			}
			return signals
		},
	}
}
