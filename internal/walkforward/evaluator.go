package walkforward

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"strategylab/internal/backtest"
	"strategylab/internal/grid"
	"strategylab/internal/metrics"
	"strategylab/internal/model"
	"strategylab/internal/strategy"
)

// Instrument eligibility thresholds per window slice.
const (
	minTrainBars = 30
	minTestBars  = 20
)

// minComboTrades is the aggregate-trade floor below which a combo is
// rejected outright during training selection.
const minComboTrades = 3

// Training-score caps, so one runaway metric cannot dominate selection.
const (
	trainPFCap     = 10.0
	trainReturnCap = 200.0
)

// TradeRecord is one out-of-sample round trip tagged with its cell, the
// shape required by the per-trade result sink.
type TradeRecord struct {
	WindowLabel string      `json:"window_label"`
	StrategyID  string      `json:"strategy_id"`
	ComboLabel  string      `json:"combo_label"`
	Symbol      string      `json:"symbol"`
	Trade       model.Trade `json:"trade"`
	Win         bool        `json:"win"`
}

// CellResult is everything one (strategy, window) cell produces.
type CellResult struct {
	Record model.WFRecord
	Trades []TradeRecord
}

// Evaluator runs the strategy x window x combo x instrument loop.
// Cells are independent and side-effect-free, so they are evaluated in
// parallel; results are collected per cell and aggregated only after
// all cells finish, which keeps the output deterministic regardless of
// scheduling.
type Evaluator struct {
	Registry *strategy.Registry
	Universe []*model.PriceSeries
	Windows  []model.WFWindow
	Workers  int

	// OnCell, when set, observes each completed cell from worker
	// goroutines in completion order (progress streaming).
	// Aggregated output order does not depend on it.
	OnCell func(CellResult)

	// OnProgress, when set, fires once per processed cell, skipped
	// cells included, so progress reaches 100% even when cells produce
	// no record. Called from worker goroutines.
	OnProgress func()

	// Metrics, when set, receives instrumentation from the workers.
	Metrics *metrics.Metrics

	Log *slog.Logger
}

type cellJob struct {
	idx  int
	strt *strategy.Strategy
	win  model.WFWindow
}

// Run evaluates every (strategy, window) cell. Underpopulated cells are
// skipped without aborting the batch. The returned records and trades
// are in (strategy, window) order.
func (e *Evaluator) Run(ctx context.Context) ([]model.WFRecord, []TradeRecord, error) {
	strategies := e.Registry.All()
	jobs := make([]cellJob, 0, len(strategies)*len(e.Windows))
	for _, s := range strategies {
		for _, w := range e.Windows {
			jobs = append(jobs, cellJob{idx: len(jobs), strt: s, win: w})
		}
	}

	universe := make([]*model.PriceSeries, len(e.Universe))
	copy(universe, e.Universe)
	sort.Slice(universe, func(i, j int) bool { return universe[i].Symbol < universe[j].Symbol })

	workers := e.Workers
	if workers <= 0 {
		workers = 1
	}

	results := make([]*CellResult, len(jobs))
	jobCh := make(chan cellJob)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if e.Metrics != nil {
				e.Metrics.ActiveWorkers.Inc()
				defer e.Metrics.ActiveWorkers.Dec()
			}
			for job := range jobCh {
				start := time.Now()
				cell, ok := e.evaluateCell(job.strt, job.win, universe)
				if e.Metrics != nil {
					e.Metrics.CellEvalDur.Observe(time.Since(start).Seconds())
				}
				if e.OnProgress != nil {
					e.OnProgress()
				}
				if !ok {
					continue
				}
				if e.Metrics != nil {
					e.Metrics.CellsEvaluated.Inc()
					e.Metrics.TradesRecorded.Add(float64(len(cell.Trades)))
				}
				results[job.idx] = &cell
				if e.OnCell != nil {
					e.OnCell(cell)
				}
			}
		}()
	}

	var err error
dispatch:
	for _, job := range jobs {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break dispatch
		case jobCh <- job:
		}
	}
	close(jobCh)
	wg.Wait()

	var records []model.WFRecord
	var trades []TradeRecord
	for _, cell := range results {
		if cell == nil {
			continue
		}
		records = append(records, cell.Record)
		trades = append(trades, cell.Trades...)
	}
	return records, trades, err
}

// evaluateCell selects the best-training combo and measures it on the
// test slices. Returns ok=false when no instrument has enough history
// or no combo survives selection.
func (e *Evaluator) evaluateCell(s *strategy.Strategy, win model.WFWindow, universe []*model.PriceSeries) (CellResult, bool) {
	type slicePair struct {
		train *model.PriceSeries
		test  *model.PriceSeries
	}
	var pairs []slicePair
	for _, series := range universe {
		train := series.Slice(win.TrainStart, win.TrainEnd)
		test := series.Slice(win.TestStart, win.TestEnd)
		if train.Len() < minTrainBars || test.Len() < minTestBars {
			continue
		}
		pairs = append(pairs, slicePair{train: train, test: test})
	}
	if len(pairs) == 0 {
		if e.Metrics != nil {
			e.Metrics.CellsSkipped.WithLabelValues("no_instruments").Inc()
		}
		if e.Log != nil {
			e.Log.Debug("cell skipped: no eligible instruments",
				slog.String("strategy", s.ID), slog.Int("window", win.ID))
		}
		return CellResult{}, false
	}

	combos := grid.Combos(s)
	trainCfg := backtest.Config{CloseOpenAtEnd: true}

	best := combos[0]
	var bestTrainStats []backtest.Stats
	if len(combos) > 1 {
		bestScore := math.Inf(-1)
		found := false
		for _, combo := range combos {
			perInst := make([]backtest.Stats, 0, len(pairs))
			for _, pair := range pairs {
				signals := s.Compute(pair.train, combo.Values)
				perInst = append(perInst, backtest.Run(pair.train, signals, trainCfg).Stats)
			}
			if e.Metrics != nil {
				e.Metrics.BacktestsTotal.Add(float64(len(pairs)))
			}
			score, ok := trainingScore(perInst)
			if !ok {
				if e.Metrics != nil {
					e.Metrics.CombosRejected.Inc()
				}
				continue
			}
			if score > bestScore {
				bestScore = score
				best = combo
				bestTrainStats = perInst
				found = true
			}
		}
		if !found {
			if e.Metrics != nil {
				e.Metrics.CellsSkipped.WithLabelValues("no_combo").Inc()
			}
			if e.Log != nil {
				e.Log.Debug("cell skipped: every combo rejected in training",
					slog.String("strategy", s.ID), slog.Int("window", win.ID))
			}
			return CellResult{}, false
		}
	} else {
		for _, pair := range pairs {
			signals := s.Compute(pair.train, best.Values)
			bestTrainStats = append(bestTrainStats, backtest.Run(pair.train, signals, trainCfg).Stats)
		}
		if e.Metrics != nil {
			e.Metrics.BacktestsTotal.Add(float64(len(pairs)))
		}
	}

	testCfg := backtest.Config{CloseOpenAtEnd: true}
	rec := model.WFRecord{
		StrategyID: s.ID,
		ComboLabel: best.Label,
		WindowID:   win.ID,
	}
	var cellTrades []TradeRecord
	var testReturns, testWinRates, testDDs, testSharpes []float64
	for _, pair := range pairs {
		signals := s.Compute(pair.test, best.Values)
		res := backtest.Run(pair.test, signals, testCfg)
		testReturns = append(testReturns, res.Stats.TotalReturn)
		testWinRates = append(testWinRates, res.Stats.WinRate)
		testDDs = append(testDDs, res.Stats.MaxDrawdown)
		testSharpes = append(testSharpes, res.Stats.Sharpe)
		rec.TestTrades += res.Stats.Trades
		for _, t := range res.Trades {
			cellTrades = append(cellTrades, TradeRecord{
				WindowLabel: win.Label(),
				StrategyID:  s.ID,
				ComboLabel:  best.Label,
				Symbol:      pair.test.Symbol,
				Trade:       t,
				Win:         t.Win(),
			})
		}
	}

	var trainReturns []float64
	for _, st := range bestTrainStats {
		trainReturns = append(trainReturns, st.TotalReturn)
	}
	rec.TrainReturn = median(trainReturns)
	rec.TestReturn = median(testReturns)
	rec.TestWinRate = median(testWinRates)
	rec.TestMaxDD = median(testDDs)
	rec.TestSharpe = median(testSharpes)
	return CellResult{Record: rec, Trades: cellTrades}, true
}

// trainingScore pools per-instrument training stats into one combo
// score: win rate plus a capped profit-factor term plus capped positive
// return. Combos with fewer than minComboTrades aggregate trades are
// rejected.
func trainingScore(perInst []backtest.Stats) (float64, bool) {
	trades, wins := 0, 0
	grossProfit, grossLoss, totalReturn := 0.0, 0.0, 0.0
	for _, st := range perInst {
		trades += st.Trades
		wins += st.Wins
		grossProfit += st.GrossProfit
		grossLoss += st.GrossLoss
		totalReturn += st.TotalReturn
	}
	if trades < minComboTrades {
		return 0, false
	}

	winRate := float64(wins) / float64(trades) * 100
	pf := trainPFCap
	if grossLoss > 0 {
		pf = math.Min(grossProfit/grossLoss, trainPFCap)
	} else if grossProfit == 0 {
		pf = 0
	}
	ret := math.Min(math.Max(totalReturn, 0), trainReturnCap)
	return winRate + pf*10 + ret, true
}

// median over a copy, so input order never matters.
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
