// Package score aggregates walk-forward records per parameter combo into
// a single composite stability ranking.
//
// Four metrics feed the ranking: out-of-sample median return, worst
// single-window return (a robustness proxy), return dispersion, and
// overfit degree (train median minus test median). Each is min-max
// normalized within a strategy's combo set, direction-aware, before the
// weighted sum.
package score

import (
	"math"
	"sort"

	"strategylab/internal/model"
)

// Weights for the composite score. They must sum to 1 for the composite
// to stay in [0, 1], but the scorer does not enforce that.
type Weights struct {
	Median  float64
	Min     float64
	StdDev  float64
	Overfit float64
}

// DefaultWeights is the standard 0.4/0.3/0.2/0.1 split.
func DefaultWeights() Weights {
	return Weights{Median: 0.4, Min: 0.3, StdDev: 0.2, Overfit: 0.1}
}

// Scorer ranks parameter combos by walk-forward stability.
type Scorer struct {
	weights Weights
}

// New creates a Scorer with the given weights.
func New(w Weights) *Scorer { return &Scorer{weights: w} }

// Score groups records by (strategy, combo label), computes the four
// stability metrics per group, normalizes them within each strategy and
// ranks combos by descending composite. Rank 1 is the recommended
// parameterization. Output is deterministic regardless of input order.
func (sc *Scorer) Score(records []model.WFRecord) []model.ParamScore {
	type key struct {
		strategy string
		combo    string
	}
	groups := make(map[key][]model.WFRecord)
	for _, r := range records {
		k := key{strategy: r.StrategyID, combo: r.ComboLabel}
		groups[k] = append(groups[k], r)
	}

	byStrategy := make(map[string][]*model.ParamScore)
	for k, recs := range groups {
		sort.Slice(recs, func(i, j int) bool { return recs[i].WindowID < recs[j].WindowID })

		testReturns := make([]float64, len(recs))
		trainReturns := make([]float64, len(recs))
		for i, r := range recs {
			testReturns[i] = r.TestReturn
			trainReturns[i] = r.TrainReturn
		}

		ps := &model.ParamScore{
			StrategyID:    k.strategy,
			ComboLabel:    k.combo,
			TestMedian:    median(testReturns),
			TestMin:       minOf(testReturns),
			TestStdDev:    stddev(testReturns),
			TrainMedian:   median(trainReturns),
			WindowReturns: testReturns,
		}
		ps.OverfitDegree = ps.TrainMedian - ps.TestMedian
		byStrategy[k.strategy] = append(byStrategy[k.strategy], ps)
	}

	var out []model.ParamScore
	for _, scores := range byStrategy {
		medNorm := normalize(scores, func(p *model.ParamScore) float64 { return p.TestMedian }, true)
		minNorm := normalize(scores, func(p *model.ParamScore) float64 { return p.TestMin }, true)
		sdNorm := normalize(scores, func(p *model.ParamScore) float64 { return p.TestStdDev }, false)
		ofNorm := normalize(scores, func(p *model.ParamScore) float64 { return p.OverfitDegree }, false)

		for i, p := range scores {
			p.Composite = sc.weights.Median*medNorm[i] +
				sc.weights.Min*minNorm[i] +
				sc.weights.StdDev*sdNorm[i] +
				sc.weights.Overfit*ofNorm[i]
		}

		sort.Slice(scores, func(i, j int) bool {
			if scores[i].Composite != scores[j].Composite {
				return scores[i].Composite > scores[j].Composite
			}
			return scores[i].ComboLabel < scores[j].ComboLabel
		})
		for i, p := range scores {
			p.Rank = i + 1
			out = append(out, *p)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].StrategyID != out[j].StrategyID {
			return out[i].StrategyID < out[j].StrategyID
		}
		return out[i].Rank < out[j].Rank
	})
	return out
}

// normalize min-max scales the metric across one strategy's combos.
// higherBetter flips the direction for dispersion-style metrics. When
// every value is equal the whole set normalizes to 0.5.
func normalize(scores []*model.ParamScore, metric func(*model.ParamScore) float64, higherBetter bool) []float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range scores {
		v := metric(p)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	out := make([]float64, len(scores))
	if hi == lo {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}
	for i, p := range scores {
		n := (metric(p) - lo) / (hi - lo)
		if !higherBetter {
			n = 1 - n
		}
		out[i] = n
	}
	return out
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func minOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	min := values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

// stddev is the population standard deviation, so a single-window group
// scores zero dispersion instead of being undefined.
func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(values)))
}
