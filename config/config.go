package config

import (
	"fmt"
	"hash/fnv"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds infrastructure settings loaded from environment variables.
type Config struct {
	// Storage
	SQLitePath    string
	RedisAddr     string
	RedisPassword string

	// Servers
	MetricsAddr string
	GatewayAddr string

	// Notifications (optional, empty disables the backend)
	TelegramBotToken string
	TelegramChatID   string
	WebhookURL       string

	// Runtime
	LogLevel string
	Workers  int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		SQLitePath:    getEnv("SQLITE_PATH", "data/strategylab.db"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
		GatewayAddr: getEnv("GATEWAY_ADDR", ":8080"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		Workers:  getEnvInt("WORKERS", 0), // 0 = GOMAXPROCS
	}
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		log.Printf("[config] ignoring invalid %s=%q", key, v)
		return fallback
	}
	return n
}

// RunConfig describes one walk-forward run: the instrument universe, the
// year span, the window split and the scoring weights. It is loaded from
// a YAML file so runs are reproducible and diffable.
type RunConfig struct {
	Universe []string `yaml:"universe"`

	StartYear  int `yaml:"startYear"`
	EndYear    int `yaml:"endYear"`
	TrainYears int `yaml:"trainYears"`
	TestYears  int `yaml:"testYears"`

	// Strategy ids to evaluate; empty means every registered strategy.
	Strategies []string `yaml:"strategies"`

	InitialCapital     float64 `yaml:"initialCapital"`
	CapitalPerStrategy float64 `yaml:"capitalPerStrategy"`
	StressThresholdPct float64 `yaml:"stressThresholdPct"`

	Weights RunWeights `yaml:"weights"`
}

// RunWeights are the stability-score weights. Zero values fall back to
// the defaults in Validate.
type RunWeights struct {
	Median  float64 `yaml:"median"`
	Min     float64 `yaml:"min"`
	StdDev  float64 `yaml:"stddev"`
	Overfit float64 `yaml:"overfit"`
}

// DefaultRun returns a run configuration with workable defaults:
// a 2016-2025 span split 3 train / 1 test.
func DefaultRun() RunConfig {
	return RunConfig{
		StartYear:          2016,
		EndYear:            2025,
		TrainYears:         3,
		TestYears:          1,
		InitialCapital:     1_000_000,
		CapitalPerStrategy: 1_000_000,
		StressThresholdPct: 5,
		Weights:            RunWeights{Median: 0.4, Min: 0.3, StdDev: 0.2, Overfit: 0.1},
	}
}

// LoadRun reads a YAML run file, merging it over DefaultRun.
func LoadRun(path string) (*RunConfig, error) {
	rc := DefaultRun()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read run config: %w", err)
	}
	if err := yaml.Unmarshal(b, &rc); err != nil {
		return nil, fmt.Errorf("parse run config %s: %w", path, err)
	}
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	return &rc, nil
}

// Validate checks span and window arithmetic and normalizes the weights.
func (rc *RunConfig) Validate() error {
	if len(rc.Universe) == 0 {
		return fmt.Errorf("run config: universe must list at least one symbol")
	}
	if rc.StartYear >= rc.EndYear {
		return fmt.Errorf("run config: startYear %d must precede endYear %d", rc.StartYear, rc.EndYear)
	}
	if rc.TrainYears < 1 || rc.TestYears < 1 {
		return fmt.Errorf("run config: trainYears and testYears must be >= 1")
	}
	span := rc.EndYear - rc.StartYear + 1
	if rc.TrainYears+rc.TestYears > span {
		return fmt.Errorf("run config: train %d + test %d years exceed span %d", rc.TrainYears, rc.TestYears, span)
	}
	if rc.InitialCapital <= 0 {
		return fmt.Errorf("run config: initialCapital must be positive")
	}
	if rc.CapitalPerStrategy <= 0 {
		rc.CapitalPerStrategy = rc.InitialCapital
	}
	// Drawdowns are reported as positive percentages, so the co-stress
	// threshold must be positive too.
	if rc.StressThresholdPct <= 0 {
		return fmt.Errorf("run config: stressThresholdPct must be a positive drawdown percentage, got %g", rc.StressThresholdPct)
	}
	w := &rc.Weights
	if w.Median <= 0 && w.Min <= 0 && w.StdDev <= 0 && w.Overfit <= 0 {
		*w = RunWeights{Median: 0.4, Min: 0.3, StdDev: 0.2, Overfit: 0.1}
	}
	sort.Strings(rc.Universe)
	return nil
}

// Hash returns a short stable digest of the run configuration, used as
// the cache key namespace for run artifacts.
func (rc *RunConfig) Hash() string {
	b, _ := yaml.Marshal(rc)
	h := fnv.New64a()
	h.Write(b)
	return strconv.FormatUint(h.Sum64(), 16)
}
