// Package apigateway assembles the chi router and HTTP server that expose
// planservice.Service over HTTP (teacher's api/gateway/main.go pattern).
package apigateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/fieldplan/allocator/internal/advisory"
	"github.com/fieldplan/allocator/internal/apigateway/middleware"
	"github.com/fieldplan/allocator/internal/apigateway/routes"
	"github.com/fieldplan/allocator/internal/planservice"
	"github.com/fieldplan/allocator/internal/utils/cache"
	"github.com/fieldplan/allocator/internal/utils/validator"
	cfgtypes "github.com/fieldplan/allocator/pkg/types/config"
	"github.com/fieldplan/allocator/tools/swagger"
)

var (
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fieldplan",
			Subsystem: "api_gateway",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"route", "method", "status"},
	)

	requestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldplan",
			Subsystem: "api_gateway",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
)

func init() {
	prometheus.MustRegister(requestDuration, requestTotal)
}

// Dependencies bundles everything the router needs to wire the plan and
// health routes.
type Dependencies struct {
	Config      *cfgtypes.ServiceConfig
	PlanService *planservice.Service
	ResultCache *cache.ResultClient
	Advisory    *advisory.Client
	Log         *zap.Logger
}

// NewRouter builds the full chi middleware chain and route tree.
func NewRouter(deps Dependencies) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.RequestLogger(deps.Log, middleware.LogConfig{
		SampleRate:   1.0,
		ExcludePaths: []string{"/health", "/metrics"},
		MaskHeaders:  []string{"Authorization"},
		MaxBodySize:  4096,
	}))
	router.Use(middleware.CORS(deps.Config.API, deps.Log))
	// A coarse in-memory cap protects the process itself from abusive
	// bursts before any request reaches the distributed limiter below.
	router.Use(httprate.LimitByIP(deps.Config.API.RateLimit*10, deps.Config.API.RateLimitWindow))
	if deps.ResultCache != nil {
		router.Use(middleware.RateLimit(deps.ResultCache, deps.Config.API.RateLimit, deps.Config.API.RateLimitWindow, &middleware.RateLimitOptions{
			TrustedIPs: []string{"127.0.0.1"},
		}))
	}
	router.Use(metricsMiddleware)

	routes.RegisterHealthRoutes(router, &routes.HealthHandlers{ResultCache: deps.ResultCache})
	swagger.RegisterSwagger(router)

	router.Group(func(r chi.Router) {
		r.Use(middleware.Auth(deps.Config))
		routes.RegisterPlanRoutes(r, &routes.PlanHandlers{
			Service:   deps.PlanService,
			Advisory:  deps.Advisory,
			Validator: validator.NewValidator(),
			Log:       deps.Log,
		})
	})

	return router
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start).Seconds()
		status := fmt.Sprintf("%d", ww.Status())
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		requestDuration.WithLabelValues(route, r.Method, status).Observe(duration)
		requestTotal.WithLabelValues(route, r.Method, status).Inc()
	})
}

// NewServer configures an *http.Server from the service's API config.
func NewServer(router *chi.Mux, cfg *cfgtypes.APIConfig) *http.Server {
	return &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:        router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderSize,
	}
}

// Shutdown gracefully drains srv within cfg's shutdown timeout.
func Shutdown(ctx context.Context, srv *http.Server, timeout time.Duration) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
