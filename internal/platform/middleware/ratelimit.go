package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig sizes the per-client token buckets.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimitConfig returns the limits used when none are configured.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{RequestsPerSecond: 20, BurstSize: 40}
}

// idleBucketTTL is how long a client may stay quiet before its bucket is
// forgotten. A forgotten bucket comes back full.
const idleBucketTTL = 10 * time.Minute

type bucket struct {
	tokens float64
	seen   time.Time
}

// limiter keeps one bucket per client key behind a single lock.
type limiter struct {
	mu      sync.Mutex
	rate    float64
	burst   float64
	buckets map[string]*bucket
	swept   time.Time
}

func newLimiter(cfg RateLimitConfig) *limiter {
	return &limiter{
		rate:    cfg.RequestsPerSecond,
		burst:   float64(cfg.BurstSize),
		buckets: make(map[string]*bucket),
	}
}

// take spends one token for key. When none is left it reports how long
// until one will be.
func (l *limiter) take(key string, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.swept) > idleBucketTTL {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > idleBucketTTL {
				delete(l.buckets, k)
			}
		}
		l.swept = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst, seen: now}
		l.buckets[key] = b
	}
	b.tokens = math.Min(l.burst, b.tokens+now.Sub(b.seen).Seconds()*l.rate)
	b.seen = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	if l.rate <= 0 {
		return false, time.Second
	}
	return false, time.Duration((1 - b.tokens) / l.rate * float64(time.Second))
}

// clientKey scopes the caller's IP to its office when one is known.
func clientKey(c echo.Context) string {
	office, _ := c.Get("jwt_office_id").(string)
	if office == "" {
		office = c.Request().Header.Get("X-Office-ID")
	}
	if office == "" {
		return c.RealIP()
	}
	return office + ":" + c.RealIP()
}

// RateLimit limits requests per office and client IP.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	l := newLimiter(cfg)
	limit := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', -1, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)

			ok, wait := l.take(clientKey(c), time.Now())
			if !ok {
				secs := int(math.Ceil(wait.Seconds()))
				if secs < 1 {
					secs = 1
				}
				h.Set("Retry-After", strconv.Itoa(secs))
				h.Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
