package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"chocosales-dashboard/internal/config"
	"chocosales-dashboard/internal/errors"
)

const (
	limiterTTL     = time.Minute
	limiterCleanup = 5 * time.Minute
)

// Paths that are never rate limited. Health probes poll on a fixed cadence.
var unlimitedPaths = map[string]bool{
	"/health": true,
}

// RateLimiter hands out one token bucket per client IP. Buckets of idle
// clients expire after limiterTTL.
type RateLimiter struct {
	buckets *cache.Cache
	limit   rate.Limit
	burst   int
	enabled bool
}

func NewRateLimiter(cfg config.SecurityConfig) *RateLimiter {
	return &RateLimiter{
		buckets: cache.New(limiterTTL, limiterCleanup),
		limit:   rate.Limit(cfg.RateLimitRPS),
		burst:   cfg.RateLimitBurst,
		enabled: cfg.EnableRateLimit,
	}
}

func (rl *RateLimiter) bucket(ip string) *rate.Limiter {
	if v, ok := rl.buckets.Get(ip); ok {
		rl.buckets.Set(ip, v, cache.DefaultExpiration)
		return v.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(rl.limit, rl.burst)
	// Add fails when a concurrent request created the bucket first.
	if err := rl.buckets.Add(ip, limiter, cache.DefaultExpiration); err != nil {
		if v, ok := rl.buckets.Get(ip); ok {
			return v.(*rate.Limiter)
		}
	}
	return limiter
}

// Reserve takes a token for ip. When none is available it returns false and
// how long the client should wait before retrying.
func (rl *RateLimiter) Reserve(ip string) (bool, time.Duration) {
	if !rl.enabled {
		return true, 0
	}

	res := rl.bucket(ip).Reserve()
	if !res.OK() {
		return false, time.Second
	}
	if delay := res.Delay(); delay > 0 {
		res.Cancel()
		return false, delay
	}
	return true, 0
}

func (rl *RateLimiter) Allow(ip string) bool {
	ok, _ := rl.Reserve(ip)
	return ok
}

func RateLimit(limiter *RateLimiter, logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if unlimitedPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)
			ok, retryAfter := limiter.Reserve(ip)
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
				logger.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path, "retry_after", retryAfter)
				errors.Respond(w, r, logger, errors.RateLimit("Too many requests"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
