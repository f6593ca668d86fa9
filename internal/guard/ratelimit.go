// Package guard protects steward operations with keyed rate limits, circuit
// breakers, and timeout enforcement. Commands wrap their work in Execute so
// a misbehaving operation (a flapping skill reload, a wedged registry scan)
// degrades gracefully instead of hammering the workspace.
package guard

import (
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter enforces a token-bucket limit per operation key.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	capacity int
	refill   rate.Limit

	allowed int64
	denied  int64
}

// NewRateLimiter creates a limiter pool. capacity is the burst size and
// refill the sustained tokens per second shared by every key.
func NewRateLimiter(capacity int, refill float64) *RateLimiter {
	if capacity <= 0 {
		capacity = 100
	}
	if refill <= 0 {
		refill = 10
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		capacity: capacity,
		refill:   rate.Limit(refill),
	}
}

// Allow consumes one token for the key, creating the key's bucket on first
// use. It returns false when the bucket is empty.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	l, ok := r.limiters[key]
	if !ok {
		l = rate.NewLimiter(r.refill, r.capacity)
		r.limiters[key] = l
	}
	r.mu.Unlock()

	if l.Allow() {
		r.mu.Lock()
		r.allowed++
		r.mu.Unlock()
		return true
	}
	r.mu.Lock()
	r.denied++
	r.mu.Unlock()
	return false
}

// RateStats reports limiter usage counters.
type RateStats struct {
	Keys    int   `json:"keys"`
	Allowed int64 `json:"allowed"`
	Denied  int64 `json:"denied"`
}

// Stats returns a snapshot of limiter activity.
func (r *RateLimiter) Stats() RateStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RateStats{
		Keys:    len(r.limiters),
		Allowed: r.allowed,
		Denied:  r.denied,
	}
}

// ErrRateLimited is wrapped into Execute errors when a key's bucket is empty.
type ErrRateLimited struct {
	Key string
}

func (e *ErrRateLimited) Error() string {
	return fmt.Sprintf("operation %q rate limited", e.Key)
}
