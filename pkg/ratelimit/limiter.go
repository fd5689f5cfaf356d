// Package ratelimit provides a token bucket limiter used to throttle
// incoming fetch requests.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter controls the rate of request admission
type Limiter interface {
	// Allow reports whether a request may proceed now, consuming a token if so
	Allow() bool
	// RetryAfter returns how long until the next token becomes available
	RetryAfter() time.Duration
	// Reset restores the limiter to a full bucket
	Reset()
}

// TokenBucket implements a token bucket rate limiter
type TokenBucket struct {
	mu         sync.Mutex
	maxTokens  float64
	tokens     float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	now        func() time.Time
}

// NewTokenBucket creates a limiter admitting requestsPerMinute requests,
// with bursts up to the same amount
func NewTokenBucket(requestsPerMinute int) *TokenBucket {
	max := float64(requestsPerMinute)
	return &TokenBucket{
		maxTokens:  max,
		tokens:     max,
		refillRate: max / 60.0,
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

// Allow consumes a token if one is available
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// RetryAfter reports the time until a token is available
func (tb *TokenBucket) RetryAfter() time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens >= 1 {
		return 0
	}
	missing := 1 - tb.tokens
	seconds := missing / tb.refillRate
	return time.Duration(seconds * float64(time.Second))
}

// Reset restores a full bucket
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.maxTokens
	tb.lastRefill = tb.now()
}

// refill adds tokens based on elapsed time; caller must hold the lock
func (tb *TokenBucket) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens += elapsed * tb.refillRate
	if tb.tokens > tb.maxTokens {
		tb.tokens = tb.maxTokens
	}
	tb.lastRefill = now
}

// WithClock overrides the limiter's time source for tests
func (tb *TokenBucket) WithClock(now func() time.Time) *TokenBucket {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.now = now
	tb.lastRefill = now()
	return tb
}
