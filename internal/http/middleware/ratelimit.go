package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// bucket is a token bucket refilled lazily on each take.
type bucket struct {
	last   time.Time
	tokens float64
}

// full reports whether the bucket would be back at capacity by now. A full
// bucket behaves exactly like a missing one.
func (b *bucket) full(now time.Time, capacity float64) bool {
	return b.tokens+now.Sub(b.last).Minutes()*capacity >= capacity
}

// sweepInterval is how often idle buckets are dropped.
const sweepInterval = time.Minute

// RateLimiter hands out a per-client token bucket of perMinute requests.
type RateLimiter struct {
	now       func() time.Time
	lastSweep time.Time
	buckets   map[string]*bucket
	perMinute float64
	mu        sync.Mutex
}

// NewRateLimiter allows each client perMinute requests per minute, with
// bursts up to perMinute.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	return &RateLimiter{
		now:       time.Now,
		buckets:   make(map[string]*bucket),
		perMinute: float64(perMinute),
	}
}

// Allow takes a token for key. When none is left it reports how long until
// the next one.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{last: now, tokens: rl.perMinute}
		rl.buckets[key] = b
	}

	b.tokens = math.Min(rl.perMinute, b.tokens+now.Sub(b.last).Minutes()*rl.perMinute)
	b.last = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	wait := time.Duration((1 - b.tokens) / rl.perMinute * float64(time.Minute))
	return false, wait
}

// sweep drops every bucket that has refilled to capacity. Callers hold mu.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < sweepInterval {
		return
	}
	rl.lastSweep = now
	for key, b := range rl.buckets {
		if b.full(now, rl.perMinute) {
			delete(rl.buckets, key)
		}
	}
}

// RateLimit rejects requests over the limiter's budget with 429, keyed by
// client IP.
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, wait := rl.Allow(c.ClientIP())
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
