// Package grid expands a strategy's parameter definitions into a bounded
// set of candidate combinations.
//
// Each tunable parameter yields the full arithmetic sequence from min to
// max by step; sequences longer than the per-parameter cap are
// sub-sampled keeping the endpoints and the default and filling the
// remaining slots at evenly spaced ranks. The Cartesian product across
// parameters is then filtered by the strategy's validity rule.
package grid

import (
	"math"

	"strategylab/internal/strategy"
)

// Per-parameter value caps by tunable-parameter count.
const (
	capFewParams  = 8 // <= 2 tunable parameters
	capSomeParams = 5 // <= 4
	capManyParams = 4 // otherwise
)

// Combos generates the bounded, validated combo set for a strategy.
// A strategy without tunable parameters gets a single default combo.
func Combos(s *strategy.Strategy) []strategy.ParamCombo {
	tunable := 0
	for _, d := range s.Params {
		if d.Tunable() {
			tunable++
		}
	}
	if tunable == 0 {
		return []strategy.ParamCombo{{
			Label:  strategy.ComboLabel(s.Params, s.Defaults()),
			Values: s.Defaults(),
		}}
	}

	perParamCap := capValues(tunable)
	valueSets := make([][]float64, len(s.Params))
	for i, d := range s.Params {
		if !d.Tunable() {
			valueSets[i] = []float64{d.Default}
			continue
		}
		seq := sequence(d.Min, d.Max, d.Step)
		if len(seq) > perParamCap {
			seq = subsample(seq, perParamCap, d.Default)
		}
		valueSets[i] = seq
	}

	var combos []strategy.ParamCombo
	values := make(strategy.Params, len(s.Params))
	var expand func(idx int)
	expand = func(idx int) {
		if idx == len(s.Params) {
			if s.Valid != nil && !s.Valid(values) {
				return
			}
			combo := strategy.ParamCombo{Values: make(strategy.Params, len(values))}
			for k, v := range values {
				combo.Values[k] = v
			}
			combo.Label = strategy.ComboLabel(s.Params, combo.Values)
			combos = append(combos, combo)
			return
		}
		for _, v := range valueSets[idx] {
			values[s.Params[idx].Key] = v
			expand(idx + 1)
		}
	}
	expand(0)
	return combos
}

func capValues(tunable int) int {
	switch {
	case tunable <= 2:
		return capFewParams
	case tunable <= 4:
		return capSomeParams
	default:
		return capManyParams
	}
}

// sequence enumerates min..max by step. The epsilon tolerates float
// step accumulation so max itself is always included when it lies on
// the lattice.
func sequence(min, max, step float64) []float64 {
	n := int(math.Floor((max-min)/step+1e-9)) + 1
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, min+step*float64(i))
	}
	return out
}

// subsample reduces seq to at most limit values, always retaining the
// endpoints and the value closest to def, then filling the remaining
// slots at evenly spaced ranks over the full sequence.
func subsample(seq []float64, limit int, def float64) []float64 {
	n := len(seq)
	keep := make(map[int]bool, limit)
	keep[0] = true
	keep[n-1] = true
	keep[closestIndex(seq, def)] = true

	for i := 1; i < limit-1 && len(keep) < limit; i++ {
		rank := int(math.Round(float64(i) * float64(n-1) / float64(limit-1)))
		keep[rank] = true
	}

	out := make([]float64, 0, len(keep))
	for i := 0; i < n; i++ {
		if keep[i] {
			out = append(out, seq[i])
		}
	}
	return out
}

func closestIndex(seq []float64, v float64) int {
	best := 0
	bestDist := math.Abs(seq[0] - v)
	for i, x := range seq[1:] {
		if d := math.Abs(x - v); d < bestDist {
			best = i + 1
			bestDist = d
		}
	}
	return best
}
