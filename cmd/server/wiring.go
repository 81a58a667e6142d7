package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/feedback-insights/internal/adapter/ai"
	"github.com/fairyhunter13/feedback-insights/internal/adapter/ai/gemini"
	"github.com/fairyhunter13/feedback-insights/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/feedback-insights/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/feedback-insights/internal/adapter/repo/memory"
	"github.com/fairyhunter13/feedback-insights/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/feedback-insights/internal/config"
	"github.com/fairyhunter13/feedback-insights/internal/domain"
	"github.com/fairyhunter13/feedback-insights/internal/service/ratelimiter"
)

type store struct {
	kind     string
	subjects domain.SubjectRepository
	feedback domain.FeedbackRepository
	pool     *pgxpool.Pool
	close    func()
}

// buildStore picks Postgres when DB_URL is set and the in-memory store otherwise.
func buildStore(ctx context.Context, cfg config.Config) (store, error) {
	if cfg.DBURL == "" {
		m := memory.New()
		slog.Warn("DB_URL not set, feedback is kept in memory only")
		return store{kind: "memory", subjects: m, feedback: m, close: func() {}}, nil
	}
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		return store{}, err
	}
	maxElapsed, initial, maxInterval := cfg.GetConnectBackoffConfig()
	if err := postgres.WaitReady(ctx, pool, maxElapsed, initial, maxInterval); err != nil {
		pool.Close()
		return store{}, err
	}
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return store{}, err
	}
	return store{
		kind:     "postgres",
		subjects: postgres.NewSubjectRepo(pool),
		feedback: postgres.NewFeedbackRepo(pool),
		pool:     pool,
		close:    pool.Close,
	}, nil
}

// connectRedis returns nil without error when REDIS_URL is unset.
func connectRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("op=redis.parse_url: %w", err)
	}
	rdb := redis.NewClient(opt)
	maxElapsed, initial, maxInterval := cfg.GetConnectBackoffConfig()
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = initial
	expo.MaxInterval = maxInterval
	expo.MaxElapsedTime = maxElapsed
	if err := backoff.Retry(func() error { return rdb.Ping(ctx).Err() }, backoff.WithContext(expo, ctx)); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("op=redis.ping: %w", err)
	}
	return rdb, nil
}

// buildAnalyzer assembles the Gemini-backed analyzer. Pacing is enabled only
// with Redis and a positive AI_PACE_PER_MIN.
func buildAnalyzer(cfg config.Config, rdb *redis.Client) *ai.Analyzer {
	attempt, paceMaxWait, _ := cfg.GetAITimeouts()
	opts := ai.Options{
		Provider:          "gemini",
		Models:            cfg.Models(),
		AttemptTimeout:    attempt,
		PaceMaxWait:       paceMaxWait,
		Counter:           tokencount.NewCounter(),
		PromptTokenBudget: cfg.AIPromptTokenBudget,
	}
	if rdb != nil && cfg.AIPacePerMin > 0 {
		lim := ratelimiter.NewRedisLuaLimiter(rdb, nil)
		lim.SetPrefixConfig("gemini:", ratelimiter.NewBucketConfigFromPerMinute(cfg.AIPacePerMin))
		opts.Pacer = lim
	}
	pool := ai.NewCredentialPool(cfg.Credentials())
	if pool.Stats().Total == 0 {
		slog.Warn("no Gemini credentials configured, using local heuristics only")
	}
	return ai.NewAnalyzer(pool, gemini.New(cfg.GeminiBaseURL), opts)
}

// buildPublisher returns a nil publisher when events are disabled or the
// brokers cannot be reached; submissions never depend on it.
func buildPublisher(ctx context.Context, cfg config.Config) (domain.EventPublisher, func()) {
	if !cfg.EventsEnabled() {
		return nil, func() {}
	}
	p, err := redpanda.NewProducer(ctx, cfg.KafkaBrokers, cfg.FeedbackTopic)
	if err != nil {
		slog.Error("redpanda producer setup failed, events disabled", slog.Any("error", err))
		return nil, func() {}
	}
	return p, p.Close
}
