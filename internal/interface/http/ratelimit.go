package http

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Skobyn/alexaLunchDad-sub000/internal/infra/config"
)

const bucketIdleTTL = 5 * time.Minute

func rateLimitMiddleware(cfg config.RateLimitConfig, logger *slog.Logger) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RequestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiter := newClientLimiter(cfg)
	return func(c *gin.Context) {
		client := c.ClientIP()
		wait, ok := limiter.take(client)
		if ok {
			c.Next()
			return
		}
		logger.Warn("rate limit exceeded", "client", client, "path", c.Request.URL.Path, "retry_after", wait)
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		abortWithError(c, NewHTTPError(http.StatusTooManyRequests, "rate_limit_exceeded", "too many requests", nil))
	}
}

// clientLimiter keeps one token bucket per client address. Buckets refill
// continuously at perMinute tokens a minute up to capacity.
type clientLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	perMinute float64
	capacity  float64
	lastPrune time.Time
	now       func() time.Time
}

type bucket struct {
	tokens  float64
	updated time.Time
}

func newClientLimiter(cfg config.RateLimitConfig) *clientLimiter {
	capacity := float64(cfg.Burst)
	if capacity < 1 {
		capacity = 1
	}
	return &clientLimiter{
		buckets:   make(map[string]*bucket),
		perMinute: float64(cfg.RequestsPerMinute),
		capacity:  capacity,
		now:       time.Now,
	}
}

// take spends one token for client. When the bucket is empty it reports how
// long until the next token arrives.
func (l *clientLimiter) take(client string) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.pruneLocked(now)

	b, ok := l.buckets[client]
	if !ok {
		b = &bucket{tokens: l.capacity, updated: now}
		l.buckets[client] = b
	}
	if elapsed := now.Sub(b.updated); elapsed > 0 {
		b.tokens = math.Min(l.capacity, b.tokens+elapsed.Minutes()*l.perMinute)
	}
	b.updated = now

	if b.tokens >= 1 {
		b.tokens--
		return 0, true
	}
	missing := 1 - b.tokens
	return time.Duration(missing * float64(time.Minute) / l.perMinute), false
}

func (l *clientLimiter) pruneLocked(now time.Time) {
	if now.Sub(l.lastPrune) < bucketIdleTTL {
		return
	}
	l.lastPrune = now
	for client, b := range l.buckets {
		if now.Sub(b.updated) > bucketIdleTTL {
			delete(l.buckets, client)
		}
	}
}
