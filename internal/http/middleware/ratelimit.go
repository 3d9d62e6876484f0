// Package middleware contains the shared Gin middleware of the HTTP layer.
//
// This file implements a process-local token-bucket rate limiter with
// per-identity buckets and opportunistic eviction of idle buckets. It is an
// edge-level abuse control for a single-process deployment; a horizontally
// scaled setup would need a shared limiter instead.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// keyFunc maps a request to the identity that owns its token bucket.
type keyFunc func(*gin.Context) string

// KeyByUserOrIP prefers the authenticated user identity and falls back to the
// client IP. Keys are namespaced so a user id can never collide with an IP.
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if v, ok := c.Get("userID"); ok {
			if s, ok := v.(string); ok && s != "" {
				return "user:" + s
			}
		}
		return "ip:" + c.ClientIP()
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per identity. Safe for concurrent use.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	keyFn keyFunc

	mu       sync.Mutex
	visitors map[string]*visitor
	ttl      time.Duration
	lookups  uint64
}

// NewRateLimiter builds a limiter replenishing rps tokens per second with the
// given burst (coerced to at least 1), keyed by keyFn.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		visitors: make(map[string]*visitor),
		ttl:      10 * time.Minute,
	}
}

// getVisitor fetches or creates the bucket for key. Every ~5000 lookups it
// sweeps buckets idle for longer than the TTL; the sweep runs before the
// fetch so even the requested bucket can be evicted when stale.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups >= 5000 {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.lookups = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// IsRateBypass reports whether RequireIdempotencyKey flagged this request as
// a replay of a recorded outcome. Replays skip limiting.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler enforces the per-identity limit, answering 429 with a Retry-After
// hint when the bucket is empty.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		if rl.getVisitor(rl.keyFn(c)).Allow() {
			c.Next()
			return
		}

		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": RequestIDFrom(c),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
