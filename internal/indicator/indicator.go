// Package indicator provides vectorized technical indicator calculations
// over price series.
//
// Every function returns a slice the same length as its input. Warm-up
// positions, where the indicator is not yet defined, hold math.NaN();
// consumers must check Defined before acting on a value.
package indicator

import "math"

// Defined reports whether an indicator value is usable (not a warm-up NaN).
func Defined(v float64) bool { return !math.IsNaN(v) }

// undefined fills the first n positions of out with NaN.
func undefined(out []float64, n int) {
	if n > len(out) {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		out[i] = math.NaN()
	}
}
