// cmd/loadbars imports daily OHLCV history from CSV files into the price
// database. Each file holds one instrument; the symbol defaults to the file
// name without extension.
//
// Expected columns: date,open,high,low,close,volume with the date as
// YYYY-MM-DD. A header row is detected and skipped.
//
// Usage:
//
//	go run ./cmd/loadbars data/7203.csv data/9984.csv
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"strategylab/config"
	"strategylab/internal/logger"
	"strategylab/internal/model"
	sqlitestore "strategylab/internal/store/sqlite"
)

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		log.Fatal("[loadbars] usage: loadbars <csv file>...")
	}

	cfg := config.Load()
	logger.Init("loadbars", logger.ParseLevel(cfg.LogLevel))

	writer, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[loadbars] sqlite open failed: %v", err)
	}
	defer writer.Close()

	total := 0
	for _, path := range flag.Args() {
		series, err := readCSV(path)
		if err != nil {
			log.Fatalf("[loadbars] %s: %v", path, err)
		}
		if err := writer.SaveBars(series); err != nil {
			log.Fatalf("[loadbars] save %s: %v", series.Symbol, err)
		}
		fmt.Printf("  %-12s %5d bars  %s .. %s\n",
			series.Symbol, series.Len(),
			series.Bars[0].Date.Format("2006-01-02"),
			series.Bars[len(series.Bars)-1].Date.Format("2006-01-02"))
		total += series.Len()
	}
	fmt.Printf("[loadbars] imported %d bars from %d files\n", total, flag.NArg())
}

func readCSV(path string) (*model.PriceSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	symbol := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	r := csv.NewReader(f)
	r.FieldsPerRecord = 6
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	var bars []model.PriceBar
	for i, row := range rows {
		date, err := time.Parse("2006-01-02", row[0])
		if err != nil {
			if i == 0 {
				continue // header row
			}
			return nil, fmt.Errorf("row %d: bad date %q", i+1, row[0])
		}
		b := model.PriceBar{Date: date.UTC()}
		fields := []*float64{&b.Open, &b.High, &b.Low, &b.Close, &b.Volume}
		for j, dst := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[j+1]), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d col %d: %v", i+1, j+2, err)
			}
			*dst = v
		}
		bars = append(bars, b)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no data rows")
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	for i := 1; i < len(bars); i++ {
		if bars[i].Date.Equal(bars[i-1].Date) {
			return nil, fmt.Errorf("duplicate date %s", bars[i].Date.Format("2006-01-02"))
		}
	}
	return &model.PriceSeries{Symbol: symbol, Bars: bars}, nil
}
