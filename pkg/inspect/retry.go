package inspect

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var (
	inspectorRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inspector_retries_total",
		Help: "Inspection attempts repeated after a retryable failure, by error class",
	}, []string{"error_class"})

	inspectorRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inspector_retry_backoff_seconds",
		Help:    "Time waited before repeating an inspection, by error class",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"error_class"})

	inspectorRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inspector_retry_exhausted_total",
		Help: "Inspections that failed on every attempt, by error class",
	}, []string{"error_class"})
)

// RetryConfig controls how often and how patiently a failed fetch is
// repeated.
type RetryConfig struct {
	// MaxAttempts counts the first request. Values below 1 mean 1.
	MaxAttempts int

	// InitialBackoff is the wait before the second attempt.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between any two attempts.
	MaxBackoff time.Duration

	// BackoffMultiplier grows the wait after each attempt.
	BackoffMultiplier float64
}

// DefaultRetryConfig gives up after three attempts spread over about 1.5s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// attempts is MaxAttempts with its floor applied.
func (c RetryConfig) attempts() int {
	if c.MaxAttempts < 1 {
		return 1
	}
	return c.MaxAttempts
}

// delay is the wait after the given failed attempt (1-based), before jitter.
func (c RetryConfig) delay(attempt int) time.Duration {
	d := float64(c.InitialBackoff)
	for i := 1; i < attempt; i++ {
		d *= c.BackoffMultiplier
		if d >= float64(c.MaxBackoff) {
			return c.MaxBackoff
		}
	}
	if time.Duration(d) > c.MaxBackoff {
		return c.MaxBackoff
	}
	return time.Duration(d)
}

// jitter spreads d uniformly over ±20%.
func jitter(d time.Duration) time.Duration {
	return time.Duration(float64(d) * (0.8 + rand.Float64()*0.4))
}

// wait blocks for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryWithBackoff calls fn until it succeeds, fails with a class that is
// not worth retrying, or runs out of attempts. classify maps an error from
// fn to its class.
func retryWithBackoff(ctx context.Context, config RetryConfig, fn func() error, classify func(error) ErrorClass) error {
	maxAttempts := config.attempts()

	var (
		err   error
		class ErrorClass
	)
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			if attempt > 1 {
				log.Info().
					Str("error_class", string(class)).
					Int("attempt", attempt).
					Msg("Inspection succeeded after retry")
			}
			return nil
		}

		class = classify(err)
		if !shouldRetry(class) {
			return err
		}
		if attempt == maxAttempts {
			break
		}

		d := jitter(config.delay(attempt))
		inspectorRetriesTotal.WithLabelValues(string(class)).Inc()
		inspectorRetryBackoffSeconds.WithLabelValues(string(class)).Observe(d.Seconds())
		log.Debug().
			Err(err).
			Str("error_class", string(class)).
			Int("attempt", attempt).
			Dur("backoff", d).
			Msg("Retrying inspection")

		if waitErr := wait(ctx, d); waitErr != nil {
			log.Warn().
				Str("error_class", string(class)).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %v", ErrContextCancelled, waitErr)
		}
	}

	inspectorRetryExhaustedTotal.WithLabelValues(string(class)).Inc()
	log.Warn().
		Err(err).
		Str("error_class", string(class)).
		Int("max_attempts", maxAttempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, maxAttempts, err)
}
