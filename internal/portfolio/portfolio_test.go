package portfolio

import (
	"math"
	"testing"
	"time"

	"strategylab/internal/model"
)

func day(i int) time.Time {
	return time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func assertClose(t *testing.T, label string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s: got %.6f, want %.6f", label, got, want)
	}
}

func barsFromCloses(closes ...float64) *model.PriceSeries {
	bars := make([]model.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = model.PriceBar{Date: day(i), Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return &model.PriceSeries{Symbol: "TEST", Bars: bars}
}

func curve(id string, capital float64, equities ...float64) StrategyEquity {
	se := StrategyEquity{StrategyID: id, Capital: capital}
	peak := 0.0
	for i, eq := range equities {
		if eq > peak {
			peak = eq
		}
		se.Points = append(se.Points, EquityPoint{
			Date: day(i), Equity: eq, DrawdownPct: (peak - eq) / peak * 100,
		})
	}
	return se
}

func TestReturnRatesCompoundWhileHolding(t *testing.T) {
	series := barsFromCloses(100, 110, 121, 121, 130)
	signals := []model.Signal{model.Buy, model.Hold, model.Sell, model.Hold, model.Hold}

	rates := ReturnRates(series, signals)
	want := []float64{0, 0.1, 0.21, 0.21, 0.21}
	if len(rates) != len(want) {
		t.Fatalf("rates = %d, want %d", len(rates), len(want))
	}
	for i, w := range want {
		assertClose(t, rates[i].Date.Format("2006-01-02"), rates[i].Rate, w)
	}
}

func TestReturnRatesFlatWithoutPosition(t *testing.T) {
	series := barsFromCloses(100, 50, 200)
	signals := []model.Signal{model.Hold, model.Hold, model.Hold}
	for _, dr := range ReturnRates(series, signals) {
		assertClose(t, "flat rate", dr.Rate, 0)
	}
}

func TestBuildStrategyEquityAveragesInstruments(t *testing.T) {
	instA := []DateRate{{day(0), 0}, {day(1), 0.10}, {day(2), -0.10}}
	instB := []DateRate{{day(0), 0}, {day(1), 0.30}, {day(2), 0.10}}

	se := BuildStrategyEquity("s", 1000, [][]DateRate{instA, instB})
	if len(se.Points) != 3 {
		t.Fatalf("points = %d, want 3", len(se.Points))
	}
	assertClose(t, "day 0 equity", se.Points[0].Equity, 1000)
	assertClose(t, "day 1 equity", se.Points[1].Equity, 1200)
	assertClose(t, "day 2 equity", se.Points[2].Equity, 1000)
	// Peak 1200 on day 1, so day 2 sits in a 16.67% drawdown.
	assertClose(t, "day 2 drawdown", se.Points[2].DrawdownPct, 200.0/1200*100)
}

func TestBuildStrategyEquityPartialDates(t *testing.T) {
	// Instrument B has no value on day 1; only A participates there.
	instA := []DateRate{{day(0), 0}, {day(1), 0.20}}
	instB := []DateRate{{day(0), 0.10}}

	se := BuildStrategyEquity("s", 1000, [][]DateRate{instA, instB})
	assertClose(t, "day 0 equity", se.Points[0].Equity, 1050)
	assertClose(t, "day 1 equity", se.Points[1].Equity, 1200)
}

func TestCombineIdenticalStrategiesMatchesSingle(t *testing.T) {
	a := curve("a", 100, 100, 110, 105, 120)
	b := curve("b", 100, 100, 110, 105, 120)

	res := Combine([]StrategyEquity{a, b}, 200)
	assertClose(t, "final equity", res.FinalEquity, 240)
	assertClose(t, "total return", res.TotalReturnPct, 20)
	// 110 peak, 105 trough: the combined curve keeps the single curve's
	// 5/110 drawdown.
	assertClose(t, "max drawdown", res.MaxDrawdownPct, 5.0/110*100)
}

func TestCombineDrawdownEpisode(t *testing.T) {
	res := Combine([]StrategyEquity{curve("a", 100, 100, 120, 90, 95, 130)}, 100)

	assertClose(t, "max drawdown", res.MaxDrawdownPct, 25)
	if !res.PeakDate.Equal(day(1)) {
		t.Errorf("peak date = %v, want %v", res.PeakDate, day(1))
	}
	if !res.TroughDate.Equal(day(2)) {
		t.Errorf("trough date = %v, want %v", res.TroughDate, day(2))
	}
	if !res.RecoveryDate.Equal(day(4)) {
		t.Errorf("recovery date = %v, want %v", res.RecoveryDate, day(4))
	}
}

func TestCombineNeverRecovered(t *testing.T) {
	res := Combine([]StrategyEquity{curve("a", 100, 100, 90, 80)}, 100)
	assertClose(t, "max drawdown", res.MaxDrawdownPct, 20)
	if !res.RecoveryDate.IsZero() {
		t.Errorf("recovery date = %v, want zero", res.RecoveryDate)
	}
}

func TestCombineYearlyReturns(t *testing.T) {
	se := StrategyEquity{StrategyID: "a", Capital: 100}
	add := func(d time.Time, eq float64) {
		se.Points = append(se.Points, EquityPoint{Date: d, Equity: eq})
	}
	add(time.Date(2020, time.June, 1, 0, 0, 0, 0, time.UTC), 100)
	add(time.Date(2020, time.December, 31, 0, 0, 0, 0, time.UTC), 110)
	add(time.Date(2021, time.January, 4, 0, 0, 0, 0, time.UTC), 110)
	add(time.Date(2021, time.December, 30, 0, 0, 0, 0, time.UTC), 132)

	res := Combine([]StrategyEquity{se}, 100)
	assertClose(t, "2020 return", res.YearlyReturns[2020], 10)
	assertClose(t, "2021 return", res.YearlyReturns[2021], 20)
}

func TestPearson(t *testing.T) {
	xs := []float64{1, 2, 3, 4}
	assertClose(t, "self correlation", Pearson(xs, xs), 1)
	assertClose(t, "inverse correlation", Pearson(xs, []float64{4, 3, 2, 1}), -1)
	assertClose(t, "constant series", Pearson(xs, []float64{5, 5, 5, 5}), 0)
	assertClose(t, "empty", Pearson(nil, nil), 0)
	ys := []float64{1, 3, 2, 5}
	assertClose(t, "symmetry", Pearson(xs, ys), Pearson(ys, xs))
}

func TestCorrelatePairIdenticalCurves(t *testing.T) {
	a := curve("a", 100, 100, 110, 105, 120)
	b := curve("b", 100, 100, 110, 105, 120)

	pairs := Correlate([]StrategyEquity{a, b}, 5)
	if len(pairs) != 1 {
		t.Fatalf("pairs = %d, want 1", len(pairs))
	}
	pc := pairs[0]
	if pc.StrategyA != "a" || pc.StrategyB != "b" {
		t.Errorf("pair = (%q, %q)", pc.StrategyA, pc.StrategyB)
	}
	if pc.CommonDates != 4 {
		t.Errorf("common dates = %d, want 4", pc.CommonDates)
	}
	assertClose(t, "return correlation", pc.ReturnCorr, 1)
}

func TestCorrelateCoStressDays(t *testing.T) {
	// Drawdowns: a = 0, 10, 20; b = 0, 0, 8. Both exceed 5% only on the
	// last day.
	a := curve("a", 100, 100, 90, 80)
	b := curve("b", 100, 100, 100, 92)

	pc := Correlate([]StrategyEquity{a, b}, 5)[0]
	if pc.CoStressDays != 1 {
		t.Errorf("co-stress days = %d, want 1", pc.CoStressDays)
	}
	assertClose(t, "threshold recorded", pc.StressThresholdPct, 5)
}

func TestCorrelateNoStressOnRisingCurves(t *testing.T) {
	// Monotonically rising curves never draw down, so no date can count
	// as co-stress under a positive threshold.
	a := curve("a", 100, 100, 105, 110, 120)
	b := curve("b", 100, 100, 102, 108, 115)

	pc := Correlate([]StrategyEquity{a, b}, 5)[0]
	if pc.CoStressDays != 0 {
		t.Errorf("co-stress days = %d, want 0", pc.CoStressDays)
	}
	if pc.CommonDates != 4 {
		t.Errorf("common dates = %d, want 4", pc.CommonDates)
	}
}

func TestCorrelateCountsPairs(t *testing.T) {
	curves := []StrategyEquity{
		curve("a", 100, 100, 110),
		curve("b", 100, 100, 105),
		curve("c", 100, 100, 95),
	}
	if got := len(Correlate(curves, 5)); got != 3 {
		t.Errorf("pairs = %d, want 3 for 3 strategies", got)
	}
}
