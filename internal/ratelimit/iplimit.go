package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const ipLimiterIdleTTL = 10 * time.Minute

type ipEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPLimiter is a token bucket per client IP for unauthenticated endpoints.
type IPLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipEntry
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

// NewIPLimiter returns nil when perSecond is not positive, which disables limiting.
func NewIPLimiter(perSecond float64, burst int) *IPLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &IPLimiter{
		limiters: make(map[string]*ipEntry),
		limit:    rate.Limit(perSecond),
		burst:    burst,
		now:      time.Now,
	}
}

// Allow spends one token for ip.
func (l *IPLimiter) Allow(ip string) bool {
	if l == nil {
		return true
	}
	now := l.now()

	l.mu.Lock()
	entry, ok := l.limiters[ip]
	if !ok {
		l.evictIdle(now)
		entry = &ipEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = now
	l.mu.Unlock()

	return entry.limiter.AllowN(now, 1)
}

// evictIdle drops buckets unused for ipLimiterIdleTTL. Callers hold l.mu.
func (l *IPLimiter) evictIdle(now time.Time) {
	for ip, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > ipLimiterIdleTTL {
			delete(l.limiters, ip)
		}
	}
}

// Middleware rejects over-limit requests with reject, or 429 when reject is nil.
// reject must abort the context.
func (l *IPLimiter) Middleware(reject gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.Allow(c.ClientIP()) {
			c.Next()
			return
		}
		if reject != nil {
			reject(c)
			if !c.IsAborted() {
				c.Abort()
			}
			return
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
	}
}
