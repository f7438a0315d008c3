package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/modelfactory/portal/pkg/redis"
)

// Limiter rate limiter interface
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	AllowN(ctx context.Context, key string, n int) (bool, error)
	Reset(ctx context.Context, key string) error
}

// Config limiter configuration
type Config struct {
	Rate  int // requests per second
	Burst int // burst capacity
}

// DefaultConfig returns default config
func DefaultConfig() *Config {
	return &Config{
		Rate:  100,
		Burst: 150,
	}
}

// TokenBucket is a Redis-backed token bucket limiter
type TokenBucket struct {
	redis  *redis.Client
	config *Config
	prefix string
}

// NewTokenBucket creates a token bucket limiter
func NewTokenBucket(rdb *redis.Client, config *Config, prefix string) *TokenBucket {
	if config == nil {
		config = DefaultConfig()
	}
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &TokenBucket{
		redis:  rdb,
		config: config,
		prefix: prefix,
	}
}

// Allow checks whether a single request is allowed
func (tb *TokenBucket) Allow(ctx context.Context, key string) (bool, error) {
	return tb.AllowN(ctx, key, 1)
}

// AllowN checks whether n requests are allowed
func (tb *TokenBucket) AllowN(ctx context.Context, key string, n int) (bool, error) {
	fullKey := fmt.Sprintf("%s:%s", tb.prefix, key)

	// Token bucket implemented as a Lua script so refill and take are atomic
	script := `
		local key = KEYS[1]
		local rate = tonumber(ARGV[1])
		local burst = tonumber(ARGV[2])
		local now = tonumber(ARGV[3])
		local requested = tonumber(ARGV[4])
		local ttl = math.ceil((burst / rate) * 2)

		local bucket = redis.call('HMGET', key, 'tokens', 'last_updated')
		local tokens = tonumber(bucket[1]) or burst
		local last_updated = tonumber(bucket[2]) or now

		local elapsed = math.max(0, now - last_updated)
		tokens = math.min(burst, tokens + (elapsed * rate))

		local allowed = tokens >= requested
		local new_tokens = tokens
		if allowed then
			new_tokens = tokens - requested
		end

		redis.call('HMSET', key, 'tokens', new_tokens, 'last_updated', now)
		redis.call('EXPIRE', key, ttl)

		return allowed and 1 or 0
	`

	now := time.Now().Unix()
	result, err := tb.redis.GetClient().Eval(ctx, script, []string{fullKey},
		float64(tb.config.Rate),
		float64(tb.config.Burst),
		float64(now),
		n,
	).Result()

	if err != nil {
		return false, err
	}

	allowed, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected result type from redis script")
	}

	return allowed == 1, nil
}

// Reset clears the bucket state for a key
func (tb *TokenBucket) Reset(ctx context.Context, key string) error {
	fullKey := fmt.Sprintf("%s:%s", tb.prefix, key)
	return tb.redis.Del(ctx, fullKey)
}
