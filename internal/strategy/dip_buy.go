package strategy

import "strategylab/internal/model"

// DipBuy buys after the close has fallen at least dipPct from its
// running peak, then exits on a recovery of recoveryPct from entry or a
// stop loss of stopLossPct.
func DipBuy() *Strategy {
	return &Strategy{
		ID:   "dip_buy",
		Name: "Dip Buy",
		Params: []ParamDef{
			{Key: "dipPct", Default: 0.10, Min: 0.05, Max: 0.25, Step: 0.05},
			{Key: "recoveryPct", Default: 0.10, Min: 0.05, Max: 0.20, Step: 0.05},
			{Key: "stopLossPct", Default: 0.08, Min: 0.05, Max: 0.12, Step: 0.01},
		},
		Compute: func(series *model.PriceSeries, p Params) []model.Signal {
			closes := series.Closes()
			signals := make([]model.Signal, len(closes))

			var pos position
			peak := 0.0
			for i := range closes {
				if closes[i] > peak {
					peak = closes[i]
				}

				if !pos.Holding {
					if peak > 0 && (peak-closes[i])/peak >= p["dipPct"] {
						signals[i] = model.Buy
						pos = enter(series.Bars, i)
					}
					continue
				}

				gain := pos.gainFrom(closes[i])
				if gain >= p["recoveryPct"] || gain <= -p["stopLossPct"] {
					signals[i] = model.Sell
					pos = position{}
				}
			}
			return signals
		},
	}
}
