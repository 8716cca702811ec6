// Package middleware provides the chi middleware chain for the planning
// service's HTTP gateway: auth, CORS, rate limiting, and request logging.
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fieldplan/allocator/internal/utils/auth"
	"github.com/fieldplan/allocator/internal/utils/errors"
	cfgtypes "github.com/fieldplan/allocator/pkg/types/config"
)

const (
	authHeaderKey  = "Authorization"
	bearerPrefix   = "Bearer "
	claimsKey      contextKey = "claims"
	maxTokenLength = 1000
)

type contextKey string

var (
	authRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldplan",
		Subsystem: "api_gateway",
		Name:      "auth_requests_total",
		Help:      "Total number of authentication attempts by outcome",
	}, []string{"status"})

	authLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fieldplan",
		Subsystem: "api_gateway",
		Name:      "auth_latency_seconds",
		Help:      "Token validation latency in seconds",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1},
	})
)

func init() {
	prometheus.MustRegister(authRequests, authLatency)
}

// Auth validates the bearer token on every request and stores its claims
// in the request context.
func Auth(cfg *cfgtypes.ServiceConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			defer func() { authLatency.Observe(time.Since(start).Seconds()) }()

			token, err := extractToken(r)
			if err != nil {
				authRequests.WithLabelValues("invalid_header").Inc()
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			validated, err := auth.ValidateToken(token, cfg)
			if err != nil {
				authRequests.WithLabelValues("invalid_token").Inc()
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			claims, ok := validated.Claims.(*auth.Claims)
			if !ok {
				authRequests.WithLabelValues("invalid_claims").Inc()
				http.Error(w, "invalid token claims", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			authRequests.WithLabelValues("success").Inc()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(r *http.Request) (string, error) {
	header := r.Header.Get(authHeaderKey)
	if header == "" {
		return "", errors.NewError("UNAUTHORIZED", "missing authorization header", nil)
	}
	if strings.Contains(header, "\x00") {
		return "", errors.NewError("UNAUTHORIZED", "invalid authorization header", nil)
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", errors.NewError("UNAUTHORIZED", "invalid authorization format", nil)
	}

	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if len(token) == 0 || len(token) > maxTokenLength {
		return "", errors.NewError("UNAUTHORIZED", "invalid token length", nil)
	}
	for _, c := range token {
		if !unicode.IsPrint(c) {
			return "", errors.NewError("UNAUTHORIZED", "invalid token characters", nil)
		}
	}
	return token, nil
}

// ClaimsFromContext retrieves the validated claims stored by Auth.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok
}
