package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"naxovate-backend/internal/metrics"
)

// limiterIdleTTL is how long an unused bucket is kept. A bucket idle this
// long has refilled, so dropping it loses nothing.
const limiterIdleTTL = 10 * time.Minute

type userLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// UserRateLimiter keeps one token bucket per authenticated user.
type UserRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*userLimiter
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
}

func NewUserRateLimiter(perMinute, burst int) *UserRateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Every(time.Minute / time.Duration(perMinute))
	idle := limiterIdleTTL
	// A bucket must outlive its own refill time or eviction would hand out
	// a fresh burst early.
	if refill := time.Duration(float64(burst) / float64(limit) * float64(time.Second)); refill > idle {
		idle = refill
	}
	return &UserRateLimiter{
		limiters: make(map[string]*userLimiter),
		limit:    limit,
		burst:    burst,
		idleTTL:  idle,
		now:      time.Now,
	}
}

func (l *UserRateLimiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.limiters[key]
	if !ok {
		entry = &userLimiter{lim: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = entry
	}
	entry.lastSeen = l.now()
	return entry.lim
}

// Cleanup drops buckets that have been idle longer than the idle TTL and
// returns how many were removed.
func (l *UserRateLimiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.idleTTL)
	removed := 0
	for key, entry := range l.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(l.limiters, key)
			removed++
		}
	}
	return removed
}

// Len reports how many buckets are currently held.
func (l *UserRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// StartCleanup sweeps idle buckets every interval until ctx is done.
func (l *UserRateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Cleanup()
			}
		}
	}()
}

func (l *UserRateLimiter) Allow(key string) bool {
	return l.limiter(key).Allow()
}

// Middleware rejects requests once the caller's bucket is empty. Must run
// after AuthMiddleware; anonymous requests share the client IP bucket.
func (l *UserRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString(UserIDKey)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}

		lim := l.limiter(key)
		if !lim.Allow() {
			metrics.RecordQuotaRejection("rate_limit")
			retry := time.Duration(float64(time.Second) / float64(l.limit))
			c.Header("Retry-After", strconv.Itoa(int(retry.Seconds()+0.5)))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate limit exceeded",
				"message": "too many generation requests, slow down",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
