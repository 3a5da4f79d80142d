package strategy

import (
	"strategylab/internal/indicator"
	"strategylab/internal/model"
)

// BollingerDip buys closes at or below the lower 3-sigma band and exits
// once the close recovers to the lower 2-sigma band or the stop hits.
func BollingerDip() *Strategy {
	return &Strategy{
		ID:   "boll_dip",
		Name: "Bollinger 3-Sigma Dip",
		Params: []ParamDef{
			{Key: "period", Default: 25, Min: 20, Max: 30, Step: 5},
			{Key: "stopLossPct", Default: 0.08, Min: 0.05, Max: 0.12, Step: 0.01},
		},
		Compute: func(series *model.PriceSeries, p Params) []model.Signal {
			closes := series.Closes()
			period := p.Int("period")
			_, _, lower2 := indicator.Bollinger(closes, period, 2)
			_, _, lower3 := indicator.Bollinger(closes, period, 3)

			signals := make([]model.Signal, len(closes))
			var pos position
			for i := range closes {
				if !indicator.Defined(lower2[i]) {
					continue
				}

				if !pos.Holding {
					if closes[i] <= lower3[i] {
						signals[i] = model.Buy
						pos = enter(series.Bars, i)
					}
					continue
				}

				if closes[i] >= lower2[i] || pos.gainFrom(closes[i]) <= -p["stopLossPct"] {
					signals[i] = model.Sell
					pos = position{}
				}
			}
			return signals
		},
	}
}

// BollingerReversion buys the first green bar after a close below the
// lower 2-sigma band, exiting when the close regains the 25-bar mean or
// breaks the entry bar's low. The exit mean stays at 25 bars regardless
// of the band period.
func BollingerReversion() *Strategy {
	return &Strategy{
		ID:   "boll_reversion",
		Name: "Bollinger Mean Reversion",
		Params: []ParamDef{
			{Key: "period", Default: 25, Min: 20, Max: 30, Step: 5},
		},
		Compute: func(series *model.PriceSeries, p Params) []model.Signal {
			closes := series.Closes()
			period := p.Int("period")
			_, _, lower2 := indicator.Bollinger(closes, period, 2)
			ma25 := indicator.SMA(closes, 25)

			signals := make([]model.Signal, len(closes))
			var pos position
			for i := 1; i < len(closes); i++ {
				if !indicator.Defined(lower2[i-1]) {
					continue
				}
				bar := series.Bars[i]

				if !pos.Holding {
					if closes[i-1] < lower2[i-1] && bar.Close > bar.Open {
						signals[i] = model.Buy
						pos = enter(series.Bars, i)
					}
					continue
				}

				regained := indicator.Defined(ma25[i]) && closes[i] >= ma25[i]
				if regained || closes[i] < pos.EntryLow {
					signals[i] = model.Sell
					pos = position{}
				}
			}
			return signals
		},
	}
}

// BollingerGap buys a gap-down followed by two red bars ending at or
// below bandMultiple times the lower 2-sigma band, betting on a fill of
// the gap. Exits at the pre-gap low or on a break of the entry bar's low.
func BollingerGap() *Strategy {
	return &Strategy{
		ID:   "boll_gap",
		Name: "Bollinger Breakdown Gap",
		Params: []ParamDef{
			{Key: "period", Default: 25, Min: 20, Max: 30, Step: 5},
			{Key: "bandMultiple", Default: 1.10, Min: 1.05, Max: 1.20, Step: 0.05},
		},
		Compute: func(series *model.PriceSeries, p Params) []model.Signal {
			closes := series.Closes()
			bars := series.Bars
			_, _, lower2 := indicator.Bollinger(closes, p.Int("period"), 2)

			signals := make([]model.Signal, len(closes))
			var pos position
			preGapLow := 0.0
			for i := 2; i < len(closes); i++ {
				if !indicator.Defined(lower2[i]) {
					continue
				}

				if !pos.Holding {
					gapDown := bars[i-1].Open < bars[i-2].Low
					red := bars[i-1].Close < bars[i-1].Open && bars[i].Close < bars[i].Open
					if gapDown && red && closes[i] <= p["bandMultiple"]*lower2[i] {
						signals[i] = model.Buy
						pos = enter(bars, i)
						preGapLow = bars[i-2].Low
					}
					continue
				}

				if closes[i] >= preGapLow || closes[i] < pos.EntryLow {
					signals[i] = model.Sell
					pos = position{}
				}
			}
			return signals
		},
	}
}
