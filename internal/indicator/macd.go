package indicator

import "math"

// MACD calculates the MACD line and its signal line.
//
// macd[i] = EMA(short)[i] - EMA(long)[i] wherever both are defined.
// The signal line has its own seeding rule: once signalPeriod defined
// macd values have accumulated, it seeds with the simple average of the
// most recent signalPeriod macd values, then smooths with
// k = 2/(signalPeriod+1).
func MACD(closes []float64, short, long, signalPeriod int) (macd, signal []float64) {
	macd = make([]float64, len(closes))
	signal = make([]float64, len(closes))

	emaShort := EMA(closes, short)
	emaLong := EMA(closes, long)

	for i := range closes {
		if Defined(emaShort[i]) && Defined(emaLong[i]) {
			macd[i] = emaShort[i] - emaLong[i]
		} else {
			macd[i] = math.NaN()
		}
	}

	k := 2.0 / float64(signalPeriod+1)
	seen := 0
	seeded := false
	for i := range macd {
		if !seeded {
			signal[i] = math.NaN()
			if !Defined(macd[i]) {
				continue
			}
			seen++
			if seen < signalPeriod {
				continue
			}
			sum := 0.0
			for j := i - signalPeriod + 1; j <= i; j++ {
				sum += macd[j]
			}
			signal[i] = sum / float64(signalPeriod)
			seeded = true
			continue
		}
		signal[i] = macd[i]*k + signal[i-1]*(1-k)
	}
	return macd, signal
}
