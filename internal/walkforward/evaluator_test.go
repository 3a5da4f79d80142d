package walkforward

import (
	"context"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"strategylab/internal/model"
	"strategylab/internal/strategy"
)

// alternatingSeries builds daily bars over [startYear, endYear] whose
// closes alternate 100, 110, 100, ... so a strategy's edge is fully
// determined by which side of the swing it buys.
func alternatingSeries(symbol string, startYear, endYear int) *model.PriceSeries {
	var bars []model.PriceBar
	day := time.Date(startYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(endYear, time.December, 31, 0, 0, 0, 0, time.UTC)
	for i := 0; !day.After(end); i++ {
		c := 100.0
		if i%2 == 1 {
			c = 110.0
		}
		bars = append(bars, model.PriceBar{
			Date: day, Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000,
		})
		day = day.AddDate(0, 0, 1)
	}
	return &model.PriceSeries{Symbol: symbol, Bars: bars}
}

// swingStrategy trades the alternating series: period=2 buys the lows,
// period=1 buys the highs. Training selection must land on period=2.
func swingStrategy(id string) *strategy.Strategy {
	return &strategy.Strategy{
		ID:   id,
		Name: "Swing",
		Params: []strategy.ParamDef{
			{Key: "period", Default: 1, Min: 1, Max: 2, Step: 1},
		},
		Compute: func(series *model.PriceSeries, p strategy.Params) []model.Signal {
			buyLow := p.Int("period") == 2
			signals := make([]model.Signal, series.Len())
			for i, bar := range series.Bars {
				if (bar.Close < 105) == buyLow {
					signals[i] = model.Buy
				} else {
					signals[i] = model.Sell
				}
			}
			return signals
		},
	}
}

func mustRegistry(t *testing.T, strategies ...*strategy.Strategy) *strategy.Registry {
	t.Helper()
	reg, err := strategy.NewRegistry(strategies...)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg
}

func runEvaluator(t *testing.T, e *Evaluator) ([]model.WFRecord, []TradeRecord) {
	t.Helper()
	records, trades, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return records, trades
}

func TestEvaluatorPicksProfitableCombo(t *testing.T) {
	e := &Evaluator{
		Registry: mustRegistry(t, swingStrategy("swing")),
		Universe: []*model.PriceSeries{alternatingSeries("AAA", 2020, 2022)},
		Windows:  Windows(1, 1, 2020, 2022),
		Workers:  2,
	}
	records, trades := runEvaluator(t, e)
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2 windows", len(records))
	}
	for _, rec := range records {
		if rec.ComboLabel != "period=2" {
			t.Errorf("window %d selected %q, want period=2", rec.WindowID, rec.ComboLabel)
		}
		if rec.TestReturn <= 0 {
			t.Errorf("window %d test return = %v, want positive", rec.WindowID, rec.TestReturn)
		}
		if rec.TestWinRate < 99 {
			t.Errorf("window %d win rate = %v, want ~100", rec.WindowID, rec.TestWinRate)
		}
	}
	if len(trades) == 0 {
		t.Fatal("no out-of-sample trades recorded")
	}
	for _, tr := range trades[:5] {
		if tr.StrategyID != "swing" || tr.ComboLabel != "period=2" {
			t.Fatalf("trade tagged %q/%q", tr.StrategyID, tr.ComboLabel)
		}
	}
}

func TestEvaluatorDeterministicAcrossRuns(t *testing.T) {
	build := func() *Evaluator {
		return &Evaluator{
			Registry: mustRegistry(t, swingStrategy("a"), swingStrategy("b")),
			Universe: []*model.PriceSeries{
				alternatingSeries("AAA", 2020, 2022),
				alternatingSeries("BBB", 2020, 2022),
			},
			Windows: Windows(1, 1, 2020, 2022),
			Workers: 4,
		}
	}
	rec1, trades1 := runEvaluator(t, build())
	rec2, trades2 := runEvaluator(t, build())
	if !reflect.DeepEqual(rec1, rec2) {
		t.Error("records differ across identical runs")
	}
	if !reflect.DeepEqual(trades1, trades2) {
		t.Error("trades differ across identical runs")
	}
}

func TestEvaluatorUniverseOrderInsensitive(t *testing.T) {
	aaa := alternatingSeries("AAA", 2020, 2022)
	bbb := alternatingSeries("BBB", 2020, 2022)
	run := func(universe []*model.PriceSeries) []model.WFRecord {
		e := &Evaluator{
			Registry: mustRegistry(t, swingStrategy("swing")),
			Universe: universe,
			Windows:  Windows(1, 1, 2020, 2022),
			Workers:  1,
		}
		records, _ := runEvaluator(t, e)
		return records
	}
	fwd := run([]*model.PriceSeries{aaa, bbb})
	rev := run([]*model.PriceSeries{bbb, aaa})
	if !reflect.DeepEqual(fwd, rev) {
		t.Error("records depend on universe input order")
	}
}

func TestEvaluatorSkipsShortHistory(t *testing.T) {
	short := alternatingSeries("AAA", 2020, 2022)
	short.Bars = short.Bars[:10]
	e := &Evaluator{
		Registry: mustRegistry(t, swingStrategy("swing")),
		Universe: []*model.PriceSeries{short},
		Windows:  Windows(1, 1, 2020, 2022),
		Workers:  1,
	}
	records, trades := runEvaluator(t, e)
	if len(records) != 0 || len(trades) != 0 {
		t.Errorf("short history produced %d records, %d trades", len(records), len(trades))
	}
}

func TestEvaluatorProgressCountsSkippedCells(t *testing.T) {
	// Half the windows predate the series, so their cells are skipped;
	// progress must still tick for every cell.
	e := &Evaluator{
		Registry: mustRegistry(t, swingStrategy("a"), swingStrategy("b")),
		Universe: []*model.PriceSeries{alternatingSeries("AAA", 2020, 2022)},
		Windows:  Windows(1, 1, 2016, 2022),
		Workers:  3,
	}
	var progress atomic.Int64
	e.OnProgress = func() { progress.Add(1) }

	records, _ := runEvaluator(t, e)
	total := len(e.Registry.All()) * len(e.Windows)
	if got := int(progress.Load()); got != total {
		t.Errorf("progress fired %d times, want %d", got, total)
	}
	if len(records) >= total {
		t.Fatalf("expected some skipped cells, got %d records for %d cells", len(records), total)
	}
}

func TestEvaluatorRecordOrder(t *testing.T) {
	e := &Evaluator{
		Registry: mustRegistry(t, swingStrategy("a"), swingStrategy("b")),
		Universe: []*model.PriceSeries{alternatingSeries("AAA", 2020, 2022)},
		Windows:  Windows(1, 1, 2020, 2022),
		Workers:  4,
	}
	records, _ := runEvaluator(t, e)
	want := []struct {
		strategy string
		window   int
	}{
		{"a", 1}, {"a", 2}, {"b", 1}, {"b", 2},
	}
	if len(records) != len(want) {
		t.Fatalf("records = %d, want %d", len(records), len(want))
	}
	for i, rec := range records {
		if rec.StrategyID != want[i].strategy || rec.WindowID != want[i].window {
			t.Errorf("record %d = (%s, %d), want (%s, %d)",
				i, rec.StrategyID, rec.WindowID, want[i].strategy, want[i].window)
		}
	}
}

func TestEvaluatorCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := &Evaluator{
		Registry: mustRegistry(t, swingStrategy("swing")),
		Universe: []*model.PriceSeries{alternatingSeries("AAA", 2020, 2022)},
		Windows:  Windows(1, 1, 2010, 2022),
		Workers:  1,
	}
	if _, _, err := e.Run(ctx); err == nil {
		t.Error("cancelled run returned nil error")
	}
}

func TestMedian(t *testing.T) {
	cases := []struct {
		in   []float64
		want float64
	}{
		{nil, 0},
		{[]float64{5}, 5},
		{[]float64{3, 1, 2}, 2},
		{[]float64{4, 1, 3, 2}, 2.5},
	}
	for _, tc := range cases {
		if got := median(tc.in); got != tc.want {
			t.Errorf("median(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
