package indicator

// SMA calculates the Simple Moving Average over a rolling window.
// Defined from index window-1 onward; a single pass with a running sum.
func SMA(closes []float64, window int) []float64 {
	out := make([]float64, len(closes))
	if window <= 0 || len(closes) < window {
		undefined(out, len(out))
		return out
	}

	undefined(out, window-1)

	sum := 0.0
	for i := 0; i < window; i++ {
		sum += closes[i]
	}
	out[window-1] = sum / float64(window)

	for i := window; i < len(closes); i++ {
		sum += closes[i] - closes[i-window]
		out[i] = sum / float64(window)
	}
	return out
}
