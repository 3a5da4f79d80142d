// cmd/walkforward runs the full evaluation pipeline: load the universe from
// SQLite, evaluate every registered strategy across sliding train/test
// windows, rank parameter sets by stability, and persist everything.
//
// Usage:
//
//	go run ./cmd/walkforward --config=run.yaml --serve
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"sync/atomic"
	"syscall"
	"time"

	"strategylab/config"
	"strategylab/internal/api"
	"strategylab/internal/gateway"
	"strategylab/internal/logger"
	"strategylab/internal/metrics"
	"strategylab/internal/model"
	"strategylab/internal/notification"
	"strategylab/internal/score"
	redisstore "strategylab/internal/store/redis"
	sqlitestore "strategylab/internal/store/sqlite"
	"strategylab/internal/strategy"
	"strategylab/internal/walkforward"
)

func main() {
	configPath := flag.String("config", "run.yaml", "Path to YAML run configuration")
	runID := flag.String("run", "", "Run identifier (default: config hash + timestamp)")
	serve := flag.Bool("serve", false, "Keep the HTTP API and progress WebSocket up after the run")
	flag.Parse()

	cfg := config.Load()
	lg := logger.Init("walkforward", logger.ParseLevel(cfg.LogLevel))

	rc, err := config.LoadRun(*configPath)
	if err != nil {
		log.Fatalf("[walkforward] load run config: %v", err)
	}
	if *runID == "" {
		*runID = rc.Hash() + "-" + time.Now().UTC().Format("20060102T150405")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		lg.Info("shutdown signal received")
		cancel()
	}()

	// Storage
	reader, err := sqlitestore.NewReader(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[walkforward] sqlite reader: %v", err)
	}
	defer reader.Close()

	writer, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[walkforward] sqlite writer: %v", err)
	}
	defer writer.Close()

	// Best-effort cache: a dead Redis downgrades the run, never blocks it.
	var cache *redisstore.Cache
	if c, err := redisstore.New(redisstore.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}); err != nil {
		lg.Warn("redis unavailable, running without score cache", "err", err)
	} else {
		cache = c
		defer cache.Close()
	}

	// Observability
	m := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	health.SetRunActive(true)
	if cache != nil {
		health.StartLivenessChecker(ctx, cache.Client(), writer.DB(), 15*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, writer.DB(), 15*time.Second)
	}
	msrv := metrics.NewServer(cfg.MetricsAddr, health)
	msrv.Start()
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 3*time.Second)
		msrv.Stop(sctx)
		scancel()
	}()

	// Progress gateway + API
	hub := gateway.NewHub(lg, 0)
	apiSrv := &http.Server{
		Addr:    cfg.GatewayAddr,
		Handler: api.NewRouter(api.Deps{Hub: hub, Cache: cache, RunID: *runID}),
	}
	go func() {
		lg.Info("api server listening", "addr", cfg.GatewayAddr)
		if err := apiSrv.ListenAndServe(); err != http.ErrServerClosed {
			lg.Error("api server", "err", err)
		}
	}()

	// Universe
	universeMap, err := reader.ReadUniverse(rc.Universe)
	if err != nil {
		log.Fatalf("[walkforward] load universe: %v", err)
	}
	universe := make([]*model.PriceSeries, 0, len(universeMap))
	for _, s := range universeMap {
		universe = append(universe, s)
	}
	sort.Slice(universe, func(i, j int) bool { return universe[i].Symbol < universe[j].Symbol })

	// Strategies
	registry := strategy.DefaultRegistry()
	if len(rc.Strategies) > 0 {
		registry, err = registry.Subset(rc.Strategies)
		if err != nil {
			log.Fatalf("[walkforward] strategy selection: %v", err)
		}
	}

	windows := walkforward.Windows(rc.TrainYears, rc.TestYears, rc.StartYear, rc.EndYear)
	if len(windows) == 0 {
		log.Fatalf("[walkforward] span %d-%d too short for %d+%d year windows",
			rc.StartYear, rc.EndYear, rc.TrainYears, rc.TestYears)
	}

	totalCells := len(registry.All()) * len(windows)
	var done atomic.Int64
	lg.Info("run starting",
		"run", *runID,
		"strategies", len(registry.All()),
		"windows", len(windows),
		"instruments", len(universe),
		"cells", totalCells,
		"workers", cfg.Workers)
	hub.Broadcast("run_started", map[string]interface{}{
		"run_id":      *runID,
		"cells":       totalCells,
		"strategies":  registry.IDs(),
		"windows":     len(windows),
		"instruments": len(universe),
	})

	ev := &walkforward.Evaluator{
		Registry: registry,
		Universe: universe,
		Windows:  windows,
		Workers:  cfg.Workers,
		Metrics:  m,
		Log:      lg,
		OnProgress: func() {
			m.RunProgress.Set(float64(done.Add(1)) / float64(totalCells))
		},
		OnCell: func(cell walkforward.CellResult) {
			hub.Broadcast("cell", cell)
			if cache != nil {
				if data, err := cellEventJSON(cell); err == nil {
					cache.PublishProgress(ctx, *runID, data)
				}
			}
		},
	}

	start := time.Now()
	records, trades, runErr := ev.Run(ctx)
	elapsed := time.Since(start)
	health.SetRunActive(false)

	notifier := buildNotifier(cfg)
	if runErr != nil {
		notifier.Send(context.Background(), notification.FailureAlert(*runID, runErr))
		log.Fatalf("[walkforward] run aborted: %v", runErr)
	}

	// Score and persist.
	scorer := score.New(score.Weights{
		Median:  rc.Weights.Median,
		Min:     rc.Weights.Min,
		StdDev:  rc.Weights.StdDev,
		Overfit: rc.Weights.Overfit,
	})
	scores := scorer.Score(records)

	if err := writer.SaveRecords(*runID, records); err != nil {
		log.Fatalf("[walkforward] save records: %v", err)
	}
	if err := writer.SaveTrades(*runID, trades); err != nil {
		log.Fatalf("[walkforward] save trades: %v", err)
	}
	if err := writer.SaveScores(*runID, scores); err != nil {
		log.Fatalf("[walkforward] save scores: %v", err)
	}
	if cache != nil {
		if err := cache.SaveScores(ctx, *runID, scores); err != nil {
			lg.Warn("score cache write failed", "err", err)
		}
		cache.MarkRunComplete(ctx, *runID)
	}

	topScores := rankOne(scores)
	hub.Broadcast("run_complete", map[string]interface{}{
		"run_id":  *runID,
		"records": len(records),
		"trades":  len(trades),
		"elapsed": elapsed.String(),
	})
	notifier.Send(context.Background(), notification.RunSummary{
		RunID:       *runID,
		Windows:     len(windows),
		Strategies:  len(registry.All()),
		Instruments: len(universe),
		Records:     len(records),
		Trades:      len(trades),
		Elapsed:     elapsed,
		TopScores:   topScores,
	}.Alert())

	printSummary(*runID, elapsed, len(records), len(trades), topScores)

	if *serve {
		lg.Info("run finished, serving results until interrupted")
		<-ctx.Done()
	}
	sctx, scancel := context.WithTimeout(context.Background(), 3*time.Second)
	apiSrv.Shutdown(sctx)
	scancel()
}

// rankOne filters the ranked scores down to each strategy's best combo.
func rankOne(scores []model.ParamScore) []model.ParamScore {
	var top []model.ParamScore
	for _, s := range scores {
		if s.Rank == 1 {
			top = append(top, s)
		}
	}
	return top
}

func cellEventJSON(cell walkforward.CellResult) ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"strategy": cell.Record.StrategyID,
		"combo":    cell.Record.ComboLabel,
		"window":   cell.Record.WindowID,
		"test_ret": cell.Record.TestReturn,
		"trades":   cell.Record.TestTrades,
	})
}

func buildNotifier(cfg *config.Config) notification.Notifier {
	var backends []notification.Notifier
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		backends = append(backends, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	if cfg.WebhookURL != "" {
		backends = append(backends, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	return notification.NewFanOut(backends...)
}

func printSummary(runID string, elapsed time.Duration, records, trades int, top []model.ParamScore) {
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════════╗")
	fmt.Println("║              WALK-FORWARD COMPLETE               ║")
	fmt.Println("╠══════════════════════════════════════════════════╣")
	fmt.Printf("║  Run:      %-37s ║\n", truncate(runID, 37))
	fmt.Printf("║  Elapsed:  %-37s ║\n", elapsed.Round(time.Millisecond))
	fmt.Printf("║  Records:  %-37d ║\n", records)
	fmt.Printf("║  Trades:   %-37d ║\n", trades)
	fmt.Println("╚══════════════════════════════════════════════════╝")
	for _, s := range top {
		fmt.Printf("  %-16s best=%-24s median=%7.2f%%  min=%7.2f%%  overfit=%6.2f\n",
			s.StrategyID, s.ComboLabel, s.TestMedian, s.TestMin, s.OverfitDegree)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
