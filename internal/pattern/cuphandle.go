// Package pattern detects chart patterns on raw price bars.
//
// Currently implements the cup-with-handle breakout finder: two similar
// peaks separated by a rounded trough, followed by a shallow pullback
// (handle) and a breakout close above the rims.
package pattern

import (
	"sort"

	"strategylab/internal/model"
)

const (
	peakWindow     = 5    // bars on each side for local-peak detection
	minCupSpan     = 15   // bars between rims
	maxCupSpan     = 120  // bars between rims
	maxRimMismatch = 0.06 // |leftHigh-rightHigh| / max(leftHigh, rightHigh)
	minCupDepth    = 0.08 // (rim-bottom)/rim
	maxCupDepth    = 0.50
	minBottomPos   = 0.15 // relative bottom position along the span
	maxBottomPos   = 0.85
	handleScanBars = 25
	minPullback    = 0.01
	maxPullback    = 0.12
	dedupBars      = 3
)

// CupHandleBreakouts returns the ascending, deduplicated list of breakout
// bar indices for every detected cup-with-handle formation. Series with
// fewer than 30 bars yield no candidates.
func CupHandleBreakouts(series *model.PriceSeries) []int {
	bars := series.Bars
	if len(bars) < 30 {
		return nil
	}

	peaks := localPeaks(bars)

	var candidates []int
	for li, left := range peaks {
		for _, right := range peaks[li+1:] {
			span := right - left
			if span < minCupSpan {
				continue
			}
			if span > maxCupSpan {
				break
			}

			lh, rh := bars[left].High, bars[right].High
			rim := lh
			if rh > rim {
				rim = rh
			}
			mismatch := lh - rh
			if mismatch < 0 {
				mismatch = -mismatch
			}
			if mismatch/rim > maxRimMismatch {
				continue
			}

			bottomIdx := left
			bottom := bars[left].Low
			for i := left + 1; i < right; i++ {
				if bars[i].Low < bottom {
					bottom = bars[i].Low
					bottomIdx = i
				}
			}

			depth := (rim - bottom) / rim
			if depth < minCupDepth || depth > maxCupDepth {
				continue
			}
			pos := float64(bottomIdx-left) / float64(span)
			if pos < minBottomPos || pos > maxBottomPos {
				continue
			}

			if idx, ok := findHandleBreakout(bars, right); ok {
				candidates = append(candidates, idx)
			}
		}
	}

	return dedupe(candidates)
}

// localPeaks returns indices whose high is the strict maximum within a
// +/-peakWindow bar neighborhood.
func localPeaks(bars []model.PriceBar) []int {
	var peaks []int
	for i := peakWindow; i < len(bars)-peakWindow; i++ {
		h := bars[i].High
		isPeak := true
		for j := i - peakWindow; j <= i+peakWindow; j++ {
			if j == i {
				continue
			}
			if bars[j].High >= h {
				isPeak = false
				break
			}
		}
		if isPeak {
			peaks = append(peaks, i)
		}
	}
	return peaks
}

// findHandleBreakout scans up to handleScanBars after the right rim for a
// pullback of 1-12% followed by a close above both the rim high and the
// bar's own open. Scanning stops once the pullback exceeds 12%.
func findHandleBreakout(bars []model.PriceBar, right int) (int, bool) {
	rimHigh := bars[right].High
	runningLow := rimHigh

	end := right + handleScanBars
	if end >= len(bars) {
		end = len(bars) - 1
	}
	for i := right + 1; i <= end; i++ {
		if bars[i].Low < runningLow {
			runningLow = bars[i].Low
		}
		pullback := (rimHigh - runningLow) / rimHigh
		if pullback > maxPullback {
			return 0, false
		}
		if pullback < minPullback {
			continue
		}
		if bars[i].Close > rimHigh && bars[i].Close > bars[i].Open {
			return i, true
		}
	}
	return 0, false
}

// dedupe sorts candidates ascending and keeps the earliest of any group
// of indices within dedupBars of each other.
func dedupe(candidates []int) []int {
	if len(candidates) == 0 {
		return nil
	}
	sort.Ints(candidates)
	out := []int{candidates[0]}
	for _, idx := range candidates[1:] {
		if idx-out[len(out)-1] > dedupBars {
			out = append(out, idx)
		}
	}
	return out
}
