package backtest

import (
	"math"
	"testing"
	"time"

	"strategylab/internal/model"
)

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f", label, got, want)
	}
}

func seriesOf(closes ...float64) *model.PriceSeries {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = model.PriceBar{
			Date: base.AddDate(0, 0, i),
			Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000,
		}
	}
	return &model.PriceSeries{Symbol: "TEST", Bars: bars}
}

func TestRunSingleRoundTrip(t *testing.T) {
	// Buy at close 100 (bar 1), sell at close 110 (bar 3): +10%.
	series := seriesOf(100, 100, 105, 110)
	signals := []model.Signal{model.Hold, model.Buy, model.Hold, model.Sell}

	res := Run(series, signals, Config{InitialCapital: 1000})
	if len(res.Trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(res.Trades))
	}
	tr := res.Trades[0]
	if tr.EntryIndex != 1 || tr.ExitIndex != 3 {
		t.Fatalf("trade indices = (%d, %d), want (1, 3)", tr.EntryIndex, tr.ExitIndex)
	}
	assertClose(t, "return pct", tr.ReturnPct, 10.0, 1e-9)
	assertClose(t, "win rate", res.Stats.WinRate, 100.0, 1e-9)
	if !math.IsInf(res.Stats.ProfitFactor, 1) {
		t.Errorf("profit factor = %v, want +Inf (no losing trades)", res.Stats.ProfitFactor)
	}
}

func TestRunIgnoresRedundantSignals(t *testing.T) {
	// Second buy while holding and sell while flat are both no-ops.
	series := seriesOf(100, 102, 104, 106, 108, 110)
	signals := []model.Signal{model.Sell, model.Buy, model.Buy, model.Sell, model.Sell, model.Hold}

	res := Run(series, signals, Config{})
	if len(res.Trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(res.Trades))
	}
	if res.Trades[0].EntryIndex != 1 || res.Trades[0].ExitIndex != 3 {
		t.Fatalf("trade = (%d, %d), want (1, 3)", res.Trades[0].EntryIndex, res.Trades[0].ExitIndex)
	}
}

func TestRunCloseOpenAtEnd(t *testing.T) {
	series := seriesOf(100, 100, 120)
	signals := []model.Signal{model.Hold, model.Buy, model.Hold}

	open := Run(series, signals, Config{})
	if len(open.Trades) != 0 {
		t.Fatalf("dangling buy produced %d trades without CloseOpenAtEnd", len(open.Trades))
	}

	closed := Run(series, signals, Config{CloseOpenAtEnd: true})
	if len(closed.Trades) != 1 {
		t.Fatalf("trades = %d, want 1 with CloseOpenAtEnd", len(closed.Trades))
	}
	assertClose(t, "forced exit return", closed.Trades[0].ReturnPct, 20.0, 1e-9)
	if closed.Trades[0].ExitIndex != 2 {
		t.Fatalf("forced exit index = %d, want 2", closed.Trades[0].ExitIndex)
	}
}

func TestComputeStatsMixedTrades(t *testing.T) {
	// Round trips: +10%, -5%, +20%.
	series := seriesOf(100, 110, 100, 95, 100, 120)
	signals := []model.Signal{
		model.Buy, model.Sell, // +10
		model.Buy, model.Sell, // -5
		model.Buy, model.Sell, // +20
	}
	st := Run(series, signals, Config{InitialCapital: 1000}).Stats

	if st.Trades != 3 || st.Wins != 2 || st.Losses != 1 {
		t.Fatalf("counts = (%d, %d, %d), want (3, 2, 1)", st.Trades, st.Wins, st.Losses)
	}
	assertClose(t, "win rate", st.WinRate, 100.0*2/3, 1e-9)
	assertClose(t, "total return", st.TotalReturn, 25.0, 1e-9)
	assertClose(t, "gross profit", st.GrossProfit, 30.0, 1e-9)
	assertClose(t, "gross loss", st.GrossLoss, 5.0, 1e-9)
	assertClose(t, "profit factor", st.ProfitFactor, 6.0, 1e-9)
	// Equity 1.10 * 0.95 * 1.20: the only drawdown is the -5% trade.
	assertClose(t, "max drawdown", st.MaxDrawdown, 5.0, 1e-9)
}

func TestComputeStatsEmpty(t *testing.T) {
	st := ComputeStats(nil, 500)
	if st.Trades != 0 || st.FinalEquity != 500 {
		t.Fatalf("empty stats = %+v", st)
	}
}

func TestProfitFactorSentinels(t *testing.T) {
	// All-losing: gross profit 0, gross loss > 0 → factor 0.
	series := seriesOf(100, 90)
	st := Run(series, []model.Signal{model.Buy, model.Sell}, Config{}).Stats
	assertClose(t, "all-loss profit factor", st.ProfitFactor, 0, 1e-9)
}

func TestClampFactor(t *testing.T) {
	if got := ClampFactor(math.Inf(1)); got != FactorClamp {
		t.Errorf("ClampFactor(+Inf) = %v, want %v", got, FactorClamp)
	}
	if got := ClampFactor(1234); got != FactorClamp {
		t.Errorf("ClampFactor(1234) = %v, want %v", got, FactorClamp)
	}
	if got := ClampFactor(2.5); got != 2.5 {
		t.Errorf("ClampFactor(2.5) = %v, want 2.5", got)
	}
}

func TestTradeSharpeNeedsTwoTrades(t *testing.T) {
	series := seriesOf(100, 110)
	st := Run(series, []model.Signal{model.Buy, model.Sell}, Config{}).Stats
	assertClose(t, "single-trade sharpe", st.Sharpe, 0, 1e-9)
}

func TestHoldingStatsQuartiles(t *testing.T) {
	// Holding periods 1, 2, 3, 4 bars.
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	mk := func(entry, exit int) model.Trade {
		return model.Trade{
			EntryIndex: entry, ExitIndex: exit,
			EntryDate: base.AddDate(0, 0, entry), ExitDate: base.AddDate(0, 0, exit),
			EntryPrice: 100, ExitPrice: 101, ReturnPct: 1,
		}
	}
	st := ComputeStats([]model.Trade{mk(0, 1), mk(2, 4), mk(5, 8), mk(10, 14)}, 0)

	h := st.Holding
	if h.Min != 1 || h.Max != 4 {
		t.Fatalf("holding min/max = (%d, %d), want (1, 4)", h.Min, h.Max)
	}
	assertClose(t, "holding median", h.Median, 2.5, 1e-9)
	assertClose(t, "holding avg", h.Avg, 2.5, 1e-9)
	assertClose(t, "holding q1", h.Q1, 1.75, 1e-9)
	assertClose(t, "holding q3", h.Q3, 3.25, 1e-9)
}
