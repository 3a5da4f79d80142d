package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"SQLITE_PATH", "REDIS_ADDR", "METRICS_ADDR", "GATEWAY_ADDR", "LOG_LEVEL", "WORKERS"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.SQLitePath != "data/strategylab.db" {
		t.Errorf("SQLitePath = %q", cfg.SQLitePath)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q", cfg.RedisAddr)
	}
	if cfg.MetricsAddr != ":9090" || cfg.GatewayAddr != ":8080" {
		t.Errorf("addrs = %q, %q", cfg.MetricsAddr, cfg.GatewayAddr)
	}
	if cfg.LogLevel != "info" || cfg.Workers != 0 {
		t.Errorf("runtime = %q, %d", cfg.LogLevel, cfg.Workers)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SQLITE_PATH", "/tmp/other.db")
	t.Setenv("WORKERS", "8")
	cfg := Load()
	if cfg.SQLitePath != "/tmp/other.db" {
		t.Errorf("SQLitePath = %q", cfg.SQLitePath)
	}
	if cfg.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Workers)
	}
}

func TestLoadInvalidIntFallsBack(t *testing.T) {
	t.Setenv("WORKERS", "many")
	if got := Load().Workers; got != 0 {
		t.Errorf("Workers = %d, want fallback 0", got)
	}
}

func validRun() RunConfig {
	rc := DefaultRun()
	rc.Universe = []string{"INFY", "TCS"}
	return rc
}

func TestValidateAcceptsDefaults(t *testing.T) {
	rc := validRun()
	if err := rc.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if rc.CapitalPerStrategy != rc.InitialCapital {
		t.Errorf("CapitalPerStrategy = %v", rc.CapitalPerStrategy)
	}
	// Drawdown percentages are positive, so the default threshold must be.
	if rc.StressThresholdPct <= 0 {
		t.Errorf("StressThresholdPct = %v, want positive", rc.StressThresholdPct)
	}
}

func TestValidateErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*RunConfig)
	}{
		{"empty universe", func(rc *RunConfig) { rc.Universe = nil }},
		{"inverted years", func(rc *RunConfig) { rc.StartYear, rc.EndYear = 2025, 2016 }},
		{"zero train years", func(rc *RunConfig) { rc.TrainYears = 0 }},
		{"windows exceed span", func(rc *RunConfig) { rc.TrainYears, rc.TestYears = 8, 4 }},
		{"non-positive capital", func(rc *RunConfig) { rc.InitialCapital = 0 }},
		{"zero stress threshold", func(rc *RunConfig) { rc.StressThresholdPct = 0 }},
		{"negative stress threshold", func(rc *RunConfig) { rc.StressThresholdPct = -5 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rc := validRun()
			tc.mutate(&rc)
			if err := rc.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestValidateSortsUniverseAndFillsWeights(t *testing.T) {
	rc := validRun()
	rc.Universe = []string{"TCS", "INFY", "HDFC"}
	rc.Weights = RunWeights{}
	if err := rc.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	want := []string{"HDFC", "INFY", "TCS"}
	for i, s := range want {
		if rc.Universe[i] != s {
			t.Fatalf("universe = %v, want %v", rc.Universe, want)
		}
	}
	if rc.Weights.Median != 0.4 || rc.Weights.Overfit != 0.1 {
		t.Errorf("weights not defaulted: %+v", rc.Weights)
	}
}

func TestLoadRunMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	body := "universe: [TCS, INFY]\ntrainYears: 2\ntestYears: 2\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	rc, err := LoadRun(path)
	if err != nil {
		t.Fatalf("load run: %v", err)
	}
	if rc.TrainYears != 2 || rc.TestYears != 2 {
		t.Errorf("windows = %d/%d", rc.TrainYears, rc.TestYears)
	}
	if rc.StartYear != 2016 || rc.EndYear != 2025 {
		t.Errorf("span = %d-%d, want defaults", rc.StartYear, rc.EndYear)
	}
	if len(rc.Universe) != 2 || rc.Universe[0] != "INFY" {
		t.Errorf("universe = %v", rc.Universe)
	}
}

func TestLoadRunRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte("universe: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRun(path); err == nil {
		t.Error("expected validation failure for empty universe")
	}
	if _, err := LoadRun(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestHashStableAndSensitive(t *testing.T) {
	a := validRun()
	b := validRun()
	if a.Hash() != b.Hash() {
		t.Error("identical configs hash differently")
	}
	b.TrainYears = 4
	if a.Hash() == b.Hash() {
		t.Error("changed config hashes the same")
	}
}
