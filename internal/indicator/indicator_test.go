package indicator

import (
	"math"
	"testing"

	"strategylab/internal/model"
)

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

func assertUndefined(t *testing.T, label string, values []float64, upto int) {
	t.Helper()
	for i := 0; i < upto; i++ {
		if Defined(values[i]) {
			t.Errorf("%s: index %d should be warm-up NaN, got %.6f", label, i, values[i])
		}
	}
}

func TestSMA_Correctness(t *testing.T) {
	// Prices: 10, 11, 12, 13, 14
	// SMA(5) at index 4: (10+11+12+13+14)/5 = 12.0
	closes := []float64{10, 11, 12, 13, 14}
	sma := SMA(closes, 5)

	assertUndefined(t, "SMA(5)", sma, 4)
	assertClose(t, "SMA(5) index 4", sma[4], 12.0, 1e-9)
}

func TestSMA_RollingWindow(t *testing.T) {
	// Prices: 100, 102, 104, 103, 105; SMA(3):
	// index 2: (100+102+104)/3 = 102
	// index 3: (102+104+103)/3 = 103
	// index 4: (104+103+105)/3 = 104
	closes := []float64{100, 102, 104, 103, 105}
	sma := SMA(closes, 3)

	want := []float64{102, 103, 104}
	for i, w := range want {
		assertClose(t, "SMA(3)", sma[i+2], w, 1e-9)
	}
}

func TestSMA_ShortInput(t *testing.T) {
	sma := SMA([]float64{1, 2}, 5)
	assertUndefined(t, "SMA short", sma, len(sma))
}

func TestEMA_SeedAndSmoothing(t *testing.T) {
	// Closes 10, 20, 30, 40 with period 3:
	// seed at index 2: (10+20+30)/3 = 20
	// k = 2/4 = 0.5, index 3: 40*0.5 + 20*0.5 = 30
	closes := []float64{10, 20, 30, 40}
	ema := EMA(closes, 3)

	assertUndefined(t, "EMA(3)", ema, 2)
	assertClose(t, "EMA(3) seed", ema[2], 20.0, 1e-9)
	assertClose(t, "EMA(3) index 3", ema[3], 30.0, 1e-9)
}

func TestRSI_AllGainsIs100(t *testing.T) {
	// Monotonically rising closes: avgLoss stays zero, RSI pegs at 100.
	closes := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	rsi := RSI(closes, 5)

	assertUndefined(t, "RSI(5)", rsi, 5)
	for i := 5; i < len(rsi); i++ {
		assertClose(t, "RSI rising", rsi[i], 100.0, 1e-9)
	}
}

func TestRSI_Bounds(t *testing.T) {
	closes := []float64{44, 47, 45, 50, 43, 48, 46, 52, 41, 49, 45, 47, 44, 51}
	rsi := RSI(closes, 5)
	for i := 5; i < len(rsi); i++ {
		if rsi[i] < 0 || rsi[i] > 100 {
			t.Errorf("RSI out of bounds at %d: %.4f", i, rsi[i])
		}
	}
}

func TestRSI_WilderSeed(t *testing.T) {
	// Closes: 10, 11, 10, 12, 11, 13 with period 5.
	// Deltas: +1, -1, +2, -1, +2  → avgGain=(1+2+2)/5=1.0, avgLoss=(1+1)/5=0.4
	// RS = 2.5, RSI = 100 - 100/3.5 = 71.428571
	closes := []float64{10, 11, 10, 12, 11, 13}
	rsi := RSI(closes, 5)
	assertClose(t, "RSI seed", rsi[5], 71.428571, 0.0001)
}

func TestMACD_SignalSeeding(t *testing.T) {
	// With short=2, long=4, macd is defined from index 3. signalPeriod=3
	// means the signal seeds at index 5 with the mean of macd[3..5] and
	// smooths with k = 0.5 afterwards.
	closes := []float64{10, 12, 11, 14, 13, 16, 15, 18, 17, 20}
	macd, signal := MACD(closes, 2, 4, 3)

	assertUndefined(t, "macd", macd, 3)
	assertUndefined(t, "signal", signal, 5)

	seed := (macd[3] + macd[4] + macd[5]) / 3
	assertClose(t, "signal seed", signal[5], seed, 1e-9)
	assertClose(t, "signal smoothing", signal[6], macd[6]*0.5+signal[5]*0.5, 1e-9)
}

func TestBollinger_PopulationSigma(t *testing.T) {
	// Window 2, 4, 6 with period 3: mean 4, population variance
	// ((2-4)^2+(4-4)^2+(6-4)^2)/3 = 8/3, sigma = 1.632993.
	closes := []float64{2, 4, 6}
	middle, upper, lower := Bollinger(closes, 3, 2)

	sigma := math.Sqrt(8.0 / 3.0)
	assertClose(t, "middle", middle[2], 4.0, 1e-9)
	assertClose(t, "upper", upper[2], 4.0+2*sigma, 1e-9)
	assertClose(t, "lower", lower[2], 4.0-2*sigma, 1e-9)
}

func TestBollinger_FlatSeriesCollapses(t *testing.T) {
	closes := []float64{5, 5, 5, 5, 5}
	middle, upper, lower := Bollinger(closes, 3, 2)
	for i := 2; i < len(closes); i++ {
		assertClose(t, "flat middle", middle[i], 5.0, 1e-9)
		assertClose(t, "flat upper", upper[i], 5.0, 1e-9)
		assertClose(t, "flat lower", lower[i], 5.0, 1e-9)
	}
}

func TestATR_SeedAndSmoothing(t *testing.T) {
	bars := []model.PriceBar{
		{High: 12, Low: 10, Close: 11},
		{High: 13, Low: 11, Close: 12},
		{High: 15, Low: 12, Close: 14},
		{High: 16, Low: 13, Close: 15},
	}
	// TR: 2 (first bar high-low), max(2,2,1)=2, max(3,3,0)=3 → seed at
	// index 2: (2+2+3)/3 = 7/3. TR[3] = max(3,2,1)=3,
	// ATR[3] = (7/3*2 + 3)/3 = 23/9.
	atr := ATR(bars, 3)

	assertUndefined(t, "ATR(3)", atr, 2)
	assertClose(t, "ATR seed", atr[2], 7.0/3.0, 1e-9)
	assertClose(t, "ATR smoothed", atr[3], 23.0/9.0, 1e-9)
}

func TestATR_ShortInput(t *testing.T) {
	atr := ATR([]model.PriceBar{{High: 2, Low: 1}}, 3)
	assertUndefined(t, "ATR short", atr, len(atr))
}
