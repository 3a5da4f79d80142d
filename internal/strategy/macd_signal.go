package strategy

import (
	"strategylab/internal/indicator"
	"strategylab/internal/model"
)

// macdFilter gates MACD entries; the cross itself is shared by every
// sub-variant.
type macdFilter int

const (
	macdNoFilter macdFilter = iota
	macdRSIFilter                // entry only while RSI(14) < 60
	macdTrendFilter              // entry only while close > MA25
	macdZeroFilter               // entry only while macd < 0
	macdVolumeFilter             // entry only on volume >= 1.2x 20-bar average
)

const (
	macdRSIGate     = 60
	macdTrendMA     = 25
	macdVolumeRatio = 1.2
	macdVolumeBars  = 20
)

// MACDSignal buys when the MACD line crosses above its signal line and
// sells on the cross below. Filter sub-variants additionally gate the
// entry condition.
func MACDSignal() *Strategy { return macdVariant("macd_signal", "MACD Signal", macdNoFilter) }
func MACDRSI() *Strategy    { return macdVariant("macd_rsi", "MACD Signal (RSI gate)", macdRSIFilter) }
func MACDTrend() *Strategy  { return macdVariant("macd_trend", "MACD Signal (trend gate)", macdTrendFilter) }

func MACDZeroLine() *Strategy {
	return macdVariant("macd_zero", "MACD Signal (below zero)", macdZeroFilter)
}
func MACDVolume() *Strategy {
	return macdVariant("macd_volume", "MACD Signal (volume gate)", macdVolumeFilter)
}

func macdVariant(id, name string, filter macdFilter) *Strategy {
	return &Strategy{
		ID:   id,
		Name: name,
		Params: []ParamDef{
			{Key: "shortPeriod", Default: 12, Min: 8, Max: 16, Step: 2},
			{Key: "longPeriod", Default: 26, Min: 20, Max: 32, Step: 3},
			{Key: "signalPeriod", Default: 9},
		},
		Valid: func(p Params) bool { return p["shortPeriod"] < p["longPeriod"] },
		Compute: func(series *model.PriceSeries, p Params) []model.Signal {
			closes := series.Closes()
			macd, sig := indicator.MACD(closes, p.Int("shortPeriod"), p.Int("longPeriod"), p.Int("signalPeriod"))

			var rsi, ma25, volAvg []float64
			switch filter {
			case macdRSIFilter:
				rsi = indicator.RSI(closes, 14)
			case macdTrendFilter:
				ma25 = indicator.SMA(closes, macdTrendMA)
			case macdVolumeFilter:
				volAvg = indicator.SMA(series.Volumes(), macdVolumeBars)
			}

			signals := make([]model.Signal, len(closes))
			var pos position
			for i := 1; i < len(closes); i++ {
				if !indicator.Defined(macd[i]) || !indicator.Defined(sig[i]) ||
					!indicator.Defined(macd[i-1]) || !indicator.Defined(sig[i-1]) {
					continue
				}
				crossUp := macd[i-1] <= sig[i-1] && macd[i] > sig[i]
				crossDown := macd[i-1] >= sig[i-1] && macd[i] < sig[i]

				if !pos.Holding {
					if crossUp && macdEntryAllowed(filter, i, closes, macd, rsi, ma25, volAvg, series.Bars) {
						signals[i] = model.Buy
						pos = enter(series.Bars, i)
					}
					continue
				}
				if crossDown {
					signals[i] = model.Sell
					pos = position{}
				}
			}
			return signals
		},
	}
}

func macdEntryAllowed(filter macdFilter, i int, closes, macd, rsi, ma25, volAvg []float64, bars []model.PriceBar) bool {
	switch filter {
	case macdRSIFilter:
		return indicator.Defined(rsi[i]) && rsi[i] < macdRSIGate
	case macdTrendFilter:
		return indicator.Defined(ma25[i]) && closes[i] > ma25[i]
	case macdZeroFilter:
		return macd[i] < 0
	case macdVolumeFilter:
		return indicator.Defined(volAvg[i]) && volAvg[i] > 0 && bars[i].Volume >= macdVolumeRatio*volAvg[i]
	default:
		return true
	}
}
