// Package ratelimit throttles inspections per client with a fixed-window
// counter kept in Redis, so every server instance sees the same budget.
package ratelimit

import (
	"fmt"
	"time"
)

// KeyPrefix namespaces the window counters in Redis.
const KeyPrefix = "inspector:rate_limit"

// Defaults for the inspect endpoint.
const (
	DefaultLimit  = 30
	DefaultWindow = time.Minute
)

// State is the client's budget in the current window.
type State struct {
	// Limit is the number of requests allowed per window.
	Limit int `json:"limit"`

	// Remaining is the number of requests still allowed in this window.
	Remaining int `json:"remaining"`

	// ResetAt is when the current window ends.
	ResetAt time.Time `json:"reset_at"`
}

// IsExhausted returns true if no requests remain in the window.
func (s State) IsExhausted() bool {
	return s.Remaining <= 0
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the reset time has already passed.
func (s State) TimeUntilReset(now time.Time) time.Duration {
	d := s.ResetAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// RetryAfterSeconds rounds the wait until reset up to whole seconds, as the
// Retry-After header expects.
func (s State) RetryAfterSeconds(now time.Time) int {
	d := s.TimeUntilReset(now)
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}

// windowStart truncates now to the beginning of its window.
func windowStart(now time.Time, window time.Duration) time.Time {
	return now.Truncate(window)
}

// windowKey is the Redis key counting clientKey's requests in the window
// starting at start.
func windowKey(clientKey string, start time.Time) string {
	return fmt.Sprintf("%s:%s:%d", KeyPrefix, clientKey, start.Unix())
}

// stateFor derives the state after count requests in the window.
func stateFor(count int64, limit int, start time.Time, window time.Duration) State {
	remaining := int64(limit) - count
	if remaining < 0 {
		remaining = 0
	}
	return State{
		Limit:     limit,
		Remaining: int(remaining),
		ResetAt:   start.Add(window),
	}
}
