// rate_limiter.go - Per-client token buckets for the HTTP surface
package main

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// RateLimiter is a token bucket refilled to capacity once per period.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     int
	maxTokens  int
	period     time.Duration
	lastRefill time.Time
	now        func() time.Time
}

// NewRateLimiter returns a full bucket.
func NewRateLimiter(maxTokens int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		period:     period,
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

// Allow consumes a token if one is available.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastRefill) >= rl.period {
		rl.tokens = rl.maxTokens
		rl.lastRefill = now
	}
	if rl.tokens > 0 {
		rl.tokens--
		return true
	}
	return false
}

// ClientRateLimiter keeps one bucket per client key.
type ClientRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*RateLimiter
	maxTokens int
	period    time.Duration
}

// NewClientRateLimiter creates an empty per-client limiter.
func NewClientRateLimiter(maxTokens int, period time.Duration) *ClientRateLimiter {
	return &ClientRateLimiter{
		limiters:  make(map[string]*RateLimiter),
		maxTokens: maxTokens,
		period:    period,
	}
}

// Allow reports whether client may make another request.
func (c *ClientRateLimiter) Allow(client string) bool {
	c.mu.Lock()
	limiter, ok := c.limiters[client]
	if !ok {
		limiter = NewRateLimiter(c.maxTokens, c.period)
		c.limiters[client] = limiter
	}
	c.mu.Unlock()
	return limiter.Allow()
}

// Middleware rejects requests over the limit with 429, keyed by remote IP.
func (c *ClientRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !c.Allow(host) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, `{"error":"rate_limited","message":"too many requests"}`, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
