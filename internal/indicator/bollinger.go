package indicator

import "math"

// Bollinger calculates Bollinger Bands: a rolling mean and bands at
// mean +/- k standard deviations. The standard deviation is the
// population form (divide by period, not period-1) over the trailing
// window. All three outputs are defined from index period-1 onward.
func Bollinger(closes []float64, period int, k float64) (middle, upper, lower []float64) {
	middle = SMA(closes, period)
	upper = make([]float64, len(closes))
	lower = make([]float64, len(closes))

	undefined(upper, period-1)
	undefined(lower, period-1)
	if len(closes) < period || period <= 0 {
		undefined(upper, len(upper))
		undefined(lower, len(lower))
		return middle, upper, lower
	}

	for i := period - 1; i < len(closes); i++ {
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			d := closes[j] - middle[i]
			sum += d * d
		}
		sigma := math.Sqrt(sum / float64(period))
		upper[i] = middle[i] + k*sigma
		lower[i] = middle[i] - k*sigma
	}
	return middle, upper, lower
}
