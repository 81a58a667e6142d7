// Package ratelimiter provides a Redis-backed token bucket shared by every
// process that talks to the same Redis.
package ratelimiter

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter reports whether cost tokens may be taken from key's bucket and,
// when not, how long until they will be available.
type Limiter interface {
	Allow(ctx context.Context, key string, cost int64) (allowed bool, retryAfter time.Duration, err error)
}

// BucketConfig sizes one bucket. RefillRate is tokens per second.
type BucketConfig struct {
	Capacity   int64
	RefillRate float64
}

// NewBucketConfigFromPerMinute returns a bucket that allows perMinute calls
// per minute with a burst of the same size. Zero disables the bucket.
func NewBucketConfigFromPerMinute(perMinute int) BucketConfig {
	if perMinute <= 0 {
		return BucketConfig{}
	}
	return BucketConfig{
		Capacity:   int64(perMinute),
		RefillRate: float64(perMinute) / 60.0,
	}
}

func (c BucketConfig) enabled() bool { return c.Capacity > 0 && c.RefillRate > 0 }

// RedisLuaLimiter evaluates the bucket atomically in a Lua script.
// Buckets are resolved by exact key first, then by the longest configured
// prefix, so "gemini:" covers every per-credential key.
type RedisLuaLimiter struct {
	redis    *redis.Client
	buckets  map[string]BucketConfig
	prefixes map[string]BucketConfig
	script   *redis.Script
	mu       sync.RWMutex
}

// NewRedisLuaLimiter returns nil when rdb is nil; a nil limiter allows everything.
func NewRedisLuaLimiter(rdb *redis.Client, buckets map[string]BucketConfig) *RedisLuaLimiter {
	if rdb == nil {
		return nil
	}
	l := &RedisLuaLimiter{
		redis:    rdb,
		buckets:  map[string]BucketConfig{},
		prefixes: map[string]BucketConfig{},
		script:   redis.NewScript(luaTokenBucketScript),
	}
	for k, v := range buckets {
		l.buckets[k] = v
	}
	return l
}

// The script returns integers only; Redis truncates Lua numbers on the way
// out, so the wait is reported in whole milliseconds rounded up.
const luaTokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])

local tokens = capacity
local last_refill = now

local data = redis.call("HMGET", key, "tokens", "last_refill")
if data[1] then
  tokens = tonumber(data[1]) or capacity
end
if data[2] then
  last_refill = tonumber(data[2]) or now
end

local delta = now - last_refill
if delta < 0 then
  delta = 0
end

tokens = math.min(capacity, tokens + delta * refill_rate)

local allowed = 0
local retry_ms = 0

if tokens >= cost then
  tokens = tokens - cost
  allowed = 1
else
  retry_ms = math.ceil(((cost - tokens) / refill_rate) * 1000)
end

redis.call("HSET", key, "tokens", tostring(tokens), "last_refill", tostring(now))
redis.call("EXPIRE", key, math.ceil(capacity / refill_rate) + 1)

return { allowed, retry_ms }
`

// Allow takes cost tokens from key's bucket. Keys without a bucket, a nil
// limiter and Redis failures all allow the call; the error is still returned
// so callers can log it.
func (l *RedisLuaLimiter) Allow(ctx context.Context, key string, cost int64) (bool, time.Duration, error) {
	if l == nil || l.redis == nil {
		return true, 0, nil
	}
	cfg, ok := l.lookup(key)
	if !ok || !cfg.enabled() {
		return true, 0, nil
	}
	if cost <= 0 {
		cost = 1
	}

	nowSec := float64(time.Now().UnixNano()) / 1e9
	res, err := l.script.Run(ctx, l.redis, []string{"rate:" + key}, cfg.Capacity, cfg.RefillRate, nowSec, cost).Result()
	if err != nil {
		slog.Error("redis rate limiter script error", slog.String("key", key), slog.Any("error", err))
		return true, 0, fmt.Errorf("op=ratelimiter.allow: %w", err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) < 2 {
		slog.Error("redis rate limiter unexpected script result", slog.String("key", key), slog.Any("result", res))
		return true, 0, nil
	}
	allowed := toInt64(vals[0]) == 1
	retryMs := toFloat64(vals[1])
	if math.IsNaN(retryMs) || retryMs < 0 {
		retryMs = 0
	}
	return allowed, time.Duration(retryMs) * time.Millisecond, nil
}

func (l *RedisLuaLimiter) lookup(key string) (BucketConfig, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if cfg, ok := l.buckets[key]; ok {
		return cfg, true
	}
	best, found := "", false
	var cfg BucketConfig
	for p, c := range l.prefixes {
		if strings.HasPrefix(key, p) && len(p) >= len(best) {
			best, cfg, found = p, c, true
		}
	}
	return cfg, found
}

// SetBucketConfig updates or creates the bucket for an exact key. It is safe
// for concurrent use.
func (l *RedisLuaLimiter) SetBucketConfig(key string, cfg BucketConfig) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets[key] = cfg
}

// SetPrefixConfig applies cfg to every key starting with prefix that has no
// exact configuration.
func (l *RedisLuaLimiter) SetPrefixConfig(prefix string, cfg BucketConfig) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prefixes[prefix] = cfg
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}

func toFloat64(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case int:
		return float64(t)
	default:
		return math.NaN()
	}
}
