package strategy

import (
	"math"

	"strategylab/internal/indicator"
	"strategylab/internal/model"
)

// RSIReversal buys when RSI crosses below the oversold threshold and
// exits when RSI rises above the overbought threshold or the price hits
// a stop. The stop floor is whichever is higher of an ATR-based stop and
// a fixed percentage stop below the entry price.
func RSIReversal() *Strategy {
	return &Strategy{
		ID:   "rsi_reversal",
		Name: "RSI Reversal",
		Params: []ParamDef{
			{Key: "rsiPeriod", Default: 14},
			{Key: "oversold", Default: 30, Min: 20, Max: 35, Step: 5},
			{Key: "overbought", Default: 70, Min: 60, Max: 80, Step: 5},
			{Key: "atrMultiple", Default: 2, Min: 1, Max: 3, Step: 0.5},
			{Key: "stopLossPct", Default: 0.08, Min: 0.05, Max: 0.12, Step: 0.01},
		},
		Valid: func(p Params) bool { return p["oversold"] < p["overbought"] },
		Compute: func(series *model.PriceSeries, p Params) []model.Signal {
			closes := series.Closes()
			rsi := indicator.RSI(closes, p.Int("rsiPeriod"))
			atr := indicator.ATR(series.Bars, p.Int("rsiPeriod"))
			oversold := p["oversold"]
			overbought := p["overbought"]

			signals := make([]model.Signal, len(closes))
			var pos position
			for i := 1; i < len(closes); i++ {
				if !indicator.Defined(rsi[i]) || !indicator.Defined(rsi[i-1]) {
					continue
				}

				if !pos.Holding {
					if rsi[i-1] >= oversold && rsi[i] < oversold {
						signals[i] = model.Buy
						pos = enter(series.Bars, i)
					}
					continue
				}

				stop := pos.EntryPrice * (1 - p["stopLossPct"])
				if indicator.Defined(atr[i]) {
					stop = math.Max(stop, pos.EntryPrice-atr[i]*p["atrMultiple"])
				}
				if rsi[i] > overbought || closes[i] <= stop {
					signals[i] = model.Sell
					pos = position{}
				}
			}
			return signals
		},
	}
}
