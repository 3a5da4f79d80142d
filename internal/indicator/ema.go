package indicator

// EMA calculates the Exponential Moving Average with an SMA seed.
// The seed (simple average of the first period closes) lands at index
// period-1; thereafter ema[i] = close[i]*k + ema[i-1]*(1-k) with
// k = 2/(period+1).
func EMA(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	if period <= 0 || len(closes) < period {
		undefined(out, len(out))
		return out
	}

	undefined(out, period-1)

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += closes[i]
	}
	out[period-1] = sum / float64(period)

	k := 2.0 / float64(period+1)
	for i := period; i < len(closes); i++ {
		out[i] = closes[i]*k + out[i-1]*(1-k)
	}
	return out
}
