// cmd/backtest runs a single strategy over one stored instrument and prints
// the trade list and summary statistics. Useful for eyeballing a strategy
// before committing to a full walk-forward run.
//
// Usage:
//
//	go run ./cmd/backtest --symbol=7203 --strategy=ma_cross --params=shortPeriod=5,longPeriod=25
package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"strategylab/config"
	"strategylab/internal/backtest"
	"strategylab/internal/logger"
	sqlitestore "strategylab/internal/store/sqlite"
	"strategylab/internal/strategy"
)

func main() {
	symbol := flag.String("symbol", "", "Instrument symbol to backtest (required)")
	strategyID := flag.String("strategy", "", "Strategy id (required, see --list)")
	paramStr := flag.String("params", "", "Parameter overrides: key=value,key=value")
	capital := flag.Float64("capital", 1_000_000, "Initial capital")
	closeOpen := flag.Bool("close-open", false, "Force-close a position still open at the last bar")
	list := flag.Bool("list", false, "List registered strategies and exit")
	flag.Parse()

	cfg := config.Load()
	logger.Init("backtest", logger.ParseLevel(cfg.LogLevel))

	registry := strategy.DefaultRegistry()
	if *list {
		for _, s := range registry.All() {
			fmt.Printf("%-16s %s\n", s.ID, s.Name)
			for _, p := range s.Params {
				fmt.Printf("    %-14s default=%-8g range=[%g, %g] step=%g\n",
					p.Key, p.Default, p.Min, p.Max, p.Step)
			}
		}
		return
	}
	if *symbol == "" || *strategyID == "" {
		log.Fatal("[backtest] --symbol and --strategy are required (see --list)")
	}

	strt, ok := registry.Get(*strategyID)
	if !ok {
		log.Fatalf("[backtest] unknown strategy %q", *strategyID)
	}

	params := strt.Defaults()
	if err := applyOverrides(params, *paramStr); err != nil {
		log.Fatalf("[backtest] %v", err)
	}
	if strt.Valid != nil && !strt.Valid(params) {
		log.Fatalf("[backtest] invalid parameter set for %s: %v", strt.ID, params)
	}

	reader, err := sqlitestore.NewReader(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[backtest] sqlite open failed: %v", err)
	}
	defer reader.Close()

	series, err := reader.ReadSeries(*symbol)
	if err != nil {
		log.Fatalf("[backtest] load %s: %v", *symbol, err)
	}

	signals := strt.Compute(series, params)
	res := backtest.Run(series, signals, backtest.Config{
		InitialCapital: *capital,
		CloseOpenAtEnd: *closeOpen,
	})

	for i, t := range res.Trades {
		fmt.Printf("  #%-3d %s -> %s  %10.2f -> %10.2f  %+7.2f%%  (%d bars)\n",
			i+1,
			t.EntryDate.Format("2006-01-02"), t.ExitDate.Format("2006-01-02"),
			t.EntryPrice, t.ExitPrice, t.ReturnPct, t.HoldingBars())
	}

	st := res.Stats
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════╗")
	fmt.Println("║            BACKTEST COMPLETE             ║")
	fmt.Println("╠══════════════════════════════════════════╣")
	fmt.Printf("║  Strategy:      %-24s ║\n", strt.ID)
	fmt.Printf("║  Symbol:        %-24s ║\n", series.Symbol)
	fmt.Printf("║  Bars:          %-24d ║\n", series.Len())
	fmt.Printf("║  Trades:        %-24d ║\n", st.Trades)
	fmt.Printf("║  Win rate:      %-23.1f%% ║\n", st.WinRate)
	fmt.Printf("║  Total return:  %-23.2f%% ║\n", st.TotalReturn)
	fmt.Printf("║  Profit factor: %-24.2f ║\n", backtest.ClampFactor(st.ProfitFactor))
	fmt.Printf("║  Sharpe:        %-24.2f ║\n", st.Sharpe)
	fmt.Printf("║  Max drawdown:  %-23.2f%% ║\n", st.MaxDrawdown)
	fmt.Printf("║  Final equity:  %-24.0f ║\n", st.FinalEquity)
	fmt.Println("╚══════════════════════════════════════════╝")
}

// applyOverrides parses "key=value,key=value" into params, rejecting keys
// the strategy does not declare.
func applyOverrides(params strategy.Params, s string) error {
	if s == "" {
		return nil
	}
	for _, part := range strings.Split(s, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			return fmt.Errorf("malformed parameter %q", part)
		}
		key := strings.TrimSpace(kv[0])
		if _, ok := params[key]; !ok {
			return fmt.Errorf("unknown parameter %q", key)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
		if err != nil {
			return fmt.Errorf("parameter %s: %v", key, err)
		}
		params[key] = v
	}
	return nil
}
