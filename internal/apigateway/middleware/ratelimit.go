package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fieldplan/allocator/internal/utils/cache"
	"github.com/fieldplan/allocator/internal/utils/errors"
	"github.com/fieldplan/allocator/pkg/constants"
)

const (
	defaultRateLimit       = 100
	defaultWindow          = time.Minute
	redisKeyPrefix         = "ratelimit:"
	defaultBurstMultiplier = 1.5
	redisTimeout           = 100 * time.Millisecond
)

var (
	rateLimitExceeded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldplan",
		Subsystem: "api_gateway",
		Name:      "rate_limit_exceeded_total",
		Help:      "Total number of requests that exceeded the rate limit",
	}, []string{"ip"})

	rateLimitRemaining = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "fieldplan",
		Subsystem: "api_gateway",
		Name:      "rate_limit_remaining",
		Help:      "Remaining requests before rate limit is reached",
	}, []string{"ip"})
)

func init() {
	prometheus.MustRegister(rateLimitExceeded, rateLimitRemaining)
}

// RateLimitOptions configures the rate limiter's burst allowance and
// trusted IPs.
type RateLimitOptions struct {
	BurstMultiplier float64
	TrustedIPs      []string
	Timeout         time.Duration
}

type rateLimiter struct {
	cache           *cache.ResultClient
	limit           int
	window          time.Duration
	burstMultiplier float64
	trustedIPs      map[string]bool
	timeout         time.Duration
}

// RateLimit builds a per-IP rate-limiting middleware backed by the result
// cache's Redis client. Requests proceed unthrottled if Redis is
// unreachable (graceful degradation) rather than failing closed.
func RateLimit(resultCache *cache.ResultClient, limit int, window time.Duration, opts *RateLimitOptions) func(http.Handler) http.Handler {
	if resultCache == nil {
		panic("cache client is required for rate limiting")
	}
	if limit <= 0 {
		limit = defaultRateLimit
	}
	if window <= 0 {
		window = defaultWindow
	}

	rl := &rateLimiter{
		cache:           resultCache,
		limit:           limit,
		window:          window,
		burstMultiplier: defaultBurstMultiplier,
		timeout:         redisTimeout,
	}
	if opts != nil {
		if opts.BurstMultiplier > 0 {
			rl.burstMultiplier = opts.BurstMultiplier
		}
		if len(opts.TrustedIPs) > 0 {
			rl.trustedIPs = make(map[string]bool, len(opts.TrustedIPs))
			for _, ip := range opts.TrustedIPs {
				rl.trustedIPs[ip] = true
			}
		}
		if opts.Timeout > 0 {
			rl.timeout = opts.Timeout
		}
	}

	return rl.middleware
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		if rl.trustedIPs[ip] {
			next.ServeHTTP(w, r)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), rl.timeout)
		defer cancel()

		count, err := rl.getCount(ctx, ip)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		effectiveLimit := int(float64(rl.limit) * rl.burstMultiplier)
		if count >= effectiveLimit {
			rateLimitExceeded.WithLabelValues(ip).Inc()
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", strconv.FormatInt(int64(rl.window.Seconds()), 10))
			http.Error(w, errors.NewError(constants.ErrRateLimited, "rate limit exceeded", nil).Error(), http.StatusTooManyRequests)
			return
		}

		if err := rl.increment(ctx, ip, count); err != nil {
			next.ServeHTTP(w, r)
			return
		}

		remaining := effectiveLimit - count - 1
		rateLimitRemaining.WithLabelValues(ip).Set(float64(remaining))
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		next.ServeHTTP(w, r)
	})
}

func (rl *rateLimiter) getCount(ctx context.Context, ip string) (int, error) {
	var count int
	err := rl.cache.Get(ctx, redisKeyPrefix+ip, &count)
	if err != nil {
		if errors.Is(err, constants.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

func (rl *rateLimiter) increment(ctx context.Context, ip string, current int) error {
	return rl.cache.Set(ctx, redisKeyPrefix+ip, current+1, rl.window)
}

func extractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if parts := strings.Split(xff, ","); len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return strings.TrimSpace(ip)
}
