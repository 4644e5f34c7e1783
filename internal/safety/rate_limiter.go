package safety

import (
	"context"
	"sync"
	"time"
)

// RateLimiter implements token bucket rate limiting
type RateLimiter struct {
	capacity   float64   // Maximum number of tokens
	tokens     float64   // Current number of tokens
	refillRate float64   // Tokens added per second
	lastRefill time.Time // Last time tokens were added
	mutex      sync.Mutex
	name       string

	now func() time.Time
}

// NewRateLimiter creates a limiter allowing bursts of capacity and refillRate operations per second
func NewRateLimiter(name string, capacity, refillRate int) *RateLimiter {
	if capacity < 1 {
		capacity = 1
	}
	if refillRate < 1 {
		refillRate = 1
	}
	return &RateLimiter{
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		refillRate: float64(refillRate),
		lastRefill: time.Now(),
		name:       name,
		now:        time.Now,
	}
}

// Allow checks if an operation is allowed under the rate limit
func (rl *RateLimiter) Allow() bool {
	_, ok := rl.reserve(1)
	return ok
}

// Wait blocks until an operation is allowed or ctx is done
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		wait, ok := rl.reserve(1)
		if ok {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve takes n tokens when available; otherwise it returns how long until they are
func (rl *RateLimiter) reserve(n float64) (time.Duration, bool) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	rl.refill(rl.now())

	if rl.tokens >= n {
		rl.tokens -= n
		return 0, true
	}
	missing := n - rl.tokens
	return time.Duration(missing / rl.refillRate * float64(time.Second)), false
}

// refill adds the tokens earned since the last refill. Callers hold the mutex.
func (rl *RateLimiter) refill(now time.Time) {
	elapsed := now.Sub(rl.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	rl.tokens += elapsed * rl.refillRate
	if rl.tokens > rl.capacity {
		rl.tokens = rl.capacity
	}
	rl.lastRefill = now
}

// RateLimiterStats holds statistics about a rate limiter
type RateLimiterStats struct {
	Name       string
	Capacity   int
	Tokens     int
	RefillRate int
}

// GetStats returns current statistics about the rate limiter
func (rl *RateLimiter) GetStats() RateLimiterStats {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	rl.refill(rl.now())
	return RateLimiterStats{
		Name:       rl.name,
		Capacity:   int(rl.capacity),
		Tokens:     int(rl.tokens),
		RefillRate: int(rl.refillRate),
	}
}
