// cmd/portfolio simulates running several strategies side by side with an
// equal capital split, then reports the combined equity curve, drawdown
// episode and pairwise correlations between the strategies.
//
// Usage:
//
//	go run ./cmd/portfolio --config=run.yaml --strategies=ma_cross,rsi_reversal,boll_dip
package main

import (
	"flag"
	"fmt"
	"log"
	"sort"
	"strings"

	"strategylab/config"
	"strategylab/internal/logger"
	"strategylab/internal/portfolio"
	sqlitestore "strategylab/internal/store/sqlite"
	"strategylab/internal/strategy"
)

func main() {
	configPath := flag.String("config", "run.yaml", "Path to YAML run configuration")
	strategyCSV := flag.String("strategies", "", "Comma-separated strategy ids (default: run config / all)")
	flag.Parse()

	cfg := config.Load()
	logger.Init("portfolio", logger.ParseLevel(cfg.LogLevel))

	rc, err := config.LoadRun(*configPath)
	if err != nil {
		log.Fatalf("[portfolio] load run config: %v", err)
	}

	ids := rc.Strategies
	if *strategyCSV != "" {
		ids = splitCSV(*strategyCSV)
	}
	registry := strategy.DefaultRegistry()
	if len(ids) > 0 {
		registry, err = registry.Subset(ids)
		if err != nil {
			log.Fatalf("[portfolio] strategy selection: %v", err)
		}
	}
	strategies := registry.All()
	if len(strategies) == 0 {
		log.Fatal("[portfolio] no strategies selected")
	}

	reader, err := sqlitestore.NewReader(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[portfolio] sqlite open failed: %v", err)
	}
	defer reader.Close()

	universe, err := reader.ReadUniverse(rc.Universe)
	if err != nil {
		log.Fatalf("[portfolio] load universe: %v", err)
	}

	// One equity curve per strategy: default parameters, averaged across
	// every instrument the strategy trades.
	var curves []portfolio.StrategyEquity
	for _, strt := range strategies {
		params := strt.Defaults()
		var perInstrument [][]portfolio.DateRate
		for _, series := range universe {
			signals := strt.Compute(series, params)
			perInstrument = append(perInstrument, portfolio.ReturnRates(series, signals))
		}
		curves = append(curves, portfolio.BuildStrategyEquity(strt.ID, rc.CapitalPerStrategy, perInstrument))
	}

	total := rc.CapitalPerStrategy * float64(len(curves))
	result := portfolio.Combine(curves, total)
	pairs := portfolio.Correlate(curves, rc.StressThresholdPct)

	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════╗")
	fmt.Println("║           PORTFOLIO SIMULATION           ║")
	fmt.Println("╠══════════════════════════════════════════╣")
	fmt.Printf("║  Strategies:    %-24d ║\n", len(curves))
	fmt.Printf("║  Instruments:   %-24d ║\n", len(universe))
	fmt.Printf("║  Capital:       %-24.0f ║\n", result.TotalCapital)
	fmt.Printf("║  Final equity:  %-24.0f ║\n", result.FinalEquity)
	fmt.Printf("║  Total return:  %-23.2f%% ║\n", result.TotalReturnPct)
	fmt.Printf("║  Max drawdown:  %-23.2f%% ║\n", result.MaxDrawdownPct)
	fmt.Printf("║  Annual Sharpe: %-24.2f ║\n", result.AnnualSharpe)
	fmt.Println("╚══════════════════════════════════════════╝")

	if !result.PeakDate.IsZero() {
		fmt.Printf("\n  Worst drawdown: peak %s, trough %s", result.PeakDate.Format("2006-01-02"), result.TroughDate.Format("2006-01-02"))
		if result.RecoveryDate.IsZero() {
			fmt.Println(", never recovered")
		} else {
			fmt.Printf(", recovered %s\n", result.RecoveryDate.Format("2006-01-02"))
		}
	}

	years := make([]int, 0, len(result.YearlyReturns))
	for y := range result.YearlyReturns {
		years = append(years, y)
	}
	sort.Ints(years)
	fmt.Println("\n  Yearly returns:")
	for _, y := range years {
		fmt.Printf("    %d  %+7.2f%%\n", y, result.YearlyReturns[y])
	}

	fmt.Println("\n  Pairwise correlations (returns / drawdowns / co-stress days):")
	for _, p := range pairs {
		fmt.Printf("    %-16s x %-16s ret=%+5.2f dd=%+5.2f stress=%d (of %d common days)\n",
			p.StrategyA, p.StrategyB, p.ReturnCorr, p.DrawdownCorr, p.CoStressDays, p.CommonDates)
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
