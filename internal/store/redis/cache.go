package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"strategylab/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	defaultScoreTTL = 24 * time.Hour

	breakerMaxFailures  = 5
	breakerResetTimeout = 10 * time.Second
)

// Config configures the Redis cache.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Cache stores ranked scores and run progress in Redis. Everything here is
// best-effort: the authoritative copy lives in SQLite, so cache failures are
// logged and absorbed by a circuit breaker instead of failing the run.
type Cache struct {
	client  *goredis.Client
	breaker *Breaker
}

// Client returns the underlying Redis client for health checks.
func (c *Cache) Client() *goredis.Client { return c.client }

// New creates a new Cache and pings the server.
func New(cfg Config) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	cache := &Cache{client: client, breaker: NewBreaker(breakerMaxFailures, breakerResetTimeout)}
	cache.breaker.OnStateChange = func(from, to BreakerState) {
		log.Printf("[redis] circuit breaker %s -> %s", from, to)
	}
	return cache, nil
}

// SaveScores caches the ranked scores of one run: each score as a JSON value
// and a per-strategy leaderboard sorted by composite score. Pipelined into a
// single roundtrip per call.
func (c *Cache) SaveScores(ctx context.Context, runID string, scores []model.ParamScore) error {
	if len(scores) == 0 {
		return nil
	}
	return c.breaker.Execute(func() error {
		pipe := c.client.Pipeline()
		for i := range scores {
			s := &scores[i]
			data, err := json.Marshal(s)
			if err != nil {
				return fmt.Errorf("marshal score %s/%s: %w", s.StrategyID, s.ComboLabel, err)
			}
			key := "score:" + runID + ":" + s.StrategyID + ":" + s.ComboLabel
			pipe.Set(ctx, key, data, defaultScoreTTL)
			pipe.ZAdd(ctx, "leaderboard:"+runID+":"+s.StrategyID, &goredis.Z{
				Score:  s.Composite,
				Member: s.ComboLabel,
			})
		}
		for _, lb := range leaderboardKeys(runID, scores) {
			pipe.Expire(ctx, lb, defaultScoreTTL)
		}
		_, err := pipe.Exec(ctx)
		return err
	})
}

// TopCombos returns the highest-composite combo labels for one strategy,
// best first. Returns nil when nothing is cached for the run.
func (c *Cache) TopCombos(ctx context.Context, runID, strategyID string, n int) ([]string, error) {
	labels, err := c.client.ZRevRange(ctx, "leaderboard:"+runID+":"+strategyID, 0, int64(n-1)).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis ZREVRANGE leaderboard: %w", err)
	}
	return labels, nil
}

// GetScore loads one cached score. Returns nil without error on a cache miss.
func (c *Cache) GetScore(ctx context.Context, runID, strategyID, comboLabel string) (*model.ParamScore, error) {
	data, err := c.client.Get(ctx, "score:"+runID+":"+strategyID+":"+comboLabel).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis GET score: %w", err)
	}
	var s model.ParamScore
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal cached score: %w", err)
	}
	return &s, nil
}

// PublishProgress fans a progress event out to subscribers of the run's
// channel. Dropped silently while the breaker is open.
func (c *Cache) PublishProgress(ctx context.Context, runID string, event []byte) {
	err := c.breaker.Execute(func() error {
		return c.client.Publish(ctx, "progress:"+runID, event).Err()
	})
	if err != nil && err != ErrBreakerOpen {
		log.Printf("[redis] publish progress: %v", err)
	}
}

// MarkRunComplete records run completion time so dashboards can tell a
// finished run from a stalled one.
func (c *Cache) MarkRunComplete(ctx context.Context, runID string) {
	err := c.breaker.Execute(func() error {
		return c.client.Set(ctx, "run:"+runID+":completed_at", time.Now().UTC().Format(time.RFC3339), defaultScoreTTL).Err()
	})
	if err != nil && err != ErrBreakerOpen {
		log.Printf("[redis] mark run complete: %v", err)
	}
}

func leaderboardKeys(runID string, scores []model.ParamScore) []string {
	seen := make(map[string]struct{})
	var keys []string
	for i := range scores {
		k := "leaderboard:" + runID + ":" + scores[i].StrategyID
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}
