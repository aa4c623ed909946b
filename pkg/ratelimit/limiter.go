package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limiting.
var (
	inspectorRateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inspector_rate_limit_blocks_total",
		Help: "Total number of inspections blocked by the per-client rate limit",
	})

	inspectorRateLimitErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inspector_rate_limit_errors_total",
		Help: "Total number of rate limit checks that failed to reach Redis",
	})
)

// Config holds limiter configuration.
type Config struct {
	// Limit is the number of requests a client may make per window.
	Limit int

	// Window is the length of a fixed window.
	Window time.Duration
}

// DefaultConfig returns the default limiter configuration.
func DefaultConfig() Config {
	return Config{
		Limit:  DefaultLimit,
		Window: DefaultWindow,
	}
}

// Limiter is a fixed-window request limiter backed by Redis.
// A nil *Limiter allows everything.
type Limiter struct {
	redis  *redis.Client
	config Config
	logger zerolog.Logger
	now    func() time.Time
}

// NewLimiter creates a new limiter.
func NewLimiter(redisClient *redis.Client, config Config, logger zerolog.Logger) *Limiter {
	if redisClient == nil {
		panic("ratelimit: redis client must not be nil")
	}
	if config.Limit <= 0 {
		config.Limit = DefaultLimit
	}
	if config.Window <= 0 {
		config.Window = DefaultWindow
	}
	return &Limiter{
		redis:  redisClient,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Allow counts one request for clientKey and reports whether it fits in the
// current window. On a Redis error the request is allowed and the error
// returned, so callers can decide to fail open.
func (l *Limiter) Allow(ctx context.Context, clientKey string) (State, bool, error) {
	if l == nil {
		return State{}, true, nil
	}

	now := l.now()
	start := windowStart(now, l.config.Window)
	key := windowKey(clientKey, start)

	// the key is unique per window, so refreshing its expiry is harmless
	pipe := l.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.config.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		inspectorRateLimitErrorsTotal.Inc()
		return stateFor(0, l.config.Limit, start, l.config.Window), true, fmt.Errorf("increment rate limit counter: %w", err)
	}

	count := incr.Val()
	state := stateFor(count, l.config.Limit, start, l.config.Window)
	if count > int64(l.config.Limit) {
		inspectorRateLimitBlocksTotal.Inc()
		l.logger.Warn().
			Str("client", clientKey).
			Int64("count", count).
			Int("limit", l.config.Limit).
			Time("reset_at", state.ResetAt).
			Msg("Rate limit exceeded - blocking request")
		return state, false, nil
	}

	l.logger.Debug().
		Str("client", clientKey).
		Int("remaining", state.Remaining).
		Msg("Rate limit check passed")

	return state, true, nil
}

// Config returns the limiter configuration.
func (l *Limiter) Config() Config {
	return l.config
}
