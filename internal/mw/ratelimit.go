package mw

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long an untouched bucket is kept before eviction.
const limiterIdleTTL = 10 * time.Minute

// KeyedRateLimiter keeps one token bucket per caller key. Buckets that go
// unused for the idle TTL are evicted.
type KeyedRateLimiter struct {
	limiters *cache.Cache
	mu       sync.Mutex
	r        rate.Limit
	b        int
}

// NewKeyedRateLimiter creates a limiter allowing r events per second with burst b per key.
func NewKeyedRateLimiter(r rate.Limit, b int) *KeyedRateLimiter {
	return newKeyedRateLimiter(r, b, limiterIdleTTL)
}

func newKeyedRateLimiter(r rate.Limit, b int, idle time.Duration) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		limiters: cache.New(idle, idle),
		r:        r,
		b:        b,
	}
}

// Limiter returns the bucket for key, creating it on first use. Every call
// pushes the bucket's eviction back.
func (l *KeyedRateLimiter) Limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	var limiter *rate.Limiter
	if v, found := l.limiters.Get(key); found {
		limiter = v.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(l.r, l.b)
	}
	l.limiters.Set(key, limiter, cache.DefaultExpiration)
	return limiter
}

// Allow charges the client IP bucket and then, when the request names one,
// the acting user's bucket. Every request pays the IP bucket.
func (l *KeyedRateLimiter) Allow(c *gin.Context) bool {
	if !l.Limiter("ip:" + c.ClientIP()).Allow() {
		return false
	}
	if id := c.GetHeader(HeaderUserID); id != "" {
		return l.Limiter("user:" + id).Allow()
	}
	return true
}

// RateLimiter rejects callers that exceed their bucket with 429.
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	return rateLimit(NewKeyedRateLimiter(r, b))
}

func rateLimit(limiter *KeyedRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "too many requests",
			})
			return
		}
		c.Next()
	}
}
