package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/fablekeep/fablekeep/pkg/fault"
	"github.com/fablekeep/fablekeep/pkg/httputil"
)

// DistributedRateLimiter implements rate limiting using Redis so limits are
// shared across instances. It backs the login throttle: credential stuffing
// must not get a fresh budget per replica.
type DistributedRateLimiter struct {
	redis  *redis.Client
	config *RateLimitConfig
	prefix string
}

// NewDistributedRateLimiter creates a new Redis-backed rate limiter
func NewDistributedRateLimiter(redisClient *redis.Client, config *RateLimitConfig, prefix string) *DistributedRateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	if prefix == "" {
		prefix = "ratelimit"
	}

	return &DistributedRateLimiter{
		redis:  redisClient,
		config: config,
		prefix: prefix,
	}
}

// Allow checks if a request is allowed using a Redis fixed window counter.
func (rl *DistributedRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	pipe := rl.redis.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.config.WindowDuration)

	_, err := pipe.Exec(ctx)
	if err != nil {
		// Fail open on Redis errors so an unavailable Redis never takes
		// login down with it.
		return true, fmt.Errorf("redis error: %w", err)
	}

	count := incr.Val()
	return count <= int64(rl.config.RequestsPerWindow), nil
}

// Remaining returns the number of remaining requests in the window
func (rl *DistributedRateLimiter) Remaining(ctx context.Context, key string) (int, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	count, err := rl.redis.Get(ctx, redisKey).Int()
	if err == redis.Nil {
		return rl.config.RequestsPerWindow, nil
	} else if err != nil {
		return 0, err
	}

	remaining := rl.config.RequestsPerWindow - count
	if remaining < 0 {
		remaining = 0
	}

	return remaining, nil
}

// TTL returns the time until the rate limit window resets
func (rl *DistributedRateLimiter) TTL(ctx context.Context, key string) (time.Duration, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)
	return rl.redis.TTL(ctx, redisKey).Result()
}

// Reset clears the rate limit for a key (for testing or admin purposes)
func (rl *DistributedRateLimiter) Reset(ctx context.Context, key string) error {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)
	return rl.redis.Del(ctx, redisKey).Err()
}

// LoginThrottleConfig returns the attempt budget for credential endpoints.
func LoginThrottleConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 10,
		WindowDuration:    time.Minute,
	}
}

// LoginThrottle limits authentication attempts per client IP across all
// instances. Nil redis disables throttling.
type LoginThrottle struct {
	limiter *DistributedRateLimiter

	// OnLimited is called when an attempt is rejected. Optional.
	OnLimited func(scope string)
}

// NewLoginThrottle creates a Redis-backed login throttle.
func NewLoginThrottle(redisClient *redis.Client) *LoginThrottle {
	if redisClient == nil {
		return &LoginThrottle{}
	}
	return &LoginThrottle{
		limiter: NewDistributedRateLimiter(redisClient, LoginThrottleConfig(), "throttle:login"),
	}
}

// Handler wraps credential endpoints with the attempt budget.
func (t *LoginThrottle) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if t.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		key := "ip:" + getClientIP(r)

		allowed, err := t.limiter.Allow(ctx, key)
		if err != nil {
			// Fail open, already counted as allowed by the limiter.
			next.ServeHTTP(w, r)
			return
		}

		if !allowed {
			if t.OnLimited != nil {
				t.OnLimited("login")
			}
			retryAfter := t.limiter.config.WindowDuration.Seconds()
			if ttl, err := t.limiter.TTL(ctx, key); err == nil && ttl > 0 {
				retryAfter = ttl.Seconds()
			}
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", retryAfter))
			httputil.WriteErrorCode(w, fault.KindRateLimited, "too many authentication attempts")
			return
		}

		next.ServeHTTP(w, r)
	})
}
