// Package cache provides a Redis-backed result cache for the planning
// service, with circuit breaking, compression, and Prometheus metrics.
package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/klauspost/compress/s2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"

	"github.com/fieldplan/allocator/internal/utils/errors"
	"github.com/fieldplan/allocator/pkg/constants"
	cfgtypes "github.com/fieldplan/allocator/pkg/types/config"
)

const (
	defaultConnTimeout   = 5 * time.Second
	defaultReadTimeout   = 3 * time.Second
	defaultWriteTimeout  = 3 * time.Second
	defaultMaxRetries    = 3
	defaultPoolSize      = 10
	defaultMinIdleConns  = 2
	compressionThreshold = 1024 // bytes
	s2MagicByte          = 0x28
)

const (
	metricNamespace = "fieldplan"
	metricSubsystem = "plan_cache"
)

// ResultClient is a Redis-backed cache for plan OptimizationResults, guarded
// by a circuit breaker and transparently compressing large payloads.
type ResultClient struct {
	client     *redis.Client
	breaker    *gobreaker.CircuitBreaker
	compressor *s2.Writer
	metrics    *cacheMetrics
	mu         sync.Mutex
}

type cacheMetrics struct {
	operationDuration *prometheus.HistogramVec
	operationErrors   *prometheus.CounterVec
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
}

func initMetrics() *cacheMetrics {
	m := &cacheMetrics{
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricNamespace,
				Subsystem: metricSubsystem,
				Name:      "operation_duration_seconds",
				Help:      "Duration of plan cache operations in seconds",
			},
			[]string{"operation"},
		),
		operationErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Subsystem: metricSubsystem,
				Name:      "operation_errors_total",
				Help:      "Total number of plan cache operation errors",
			},
			[]string{"operation"},
		),
		cacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Subsystem: metricSubsystem,
				Name:      "hits_total",
				Help:      "Total number of plan cache hits",
			},
		),
		cacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Subsystem: metricSubsystem,
				Name:      "misses_total",
				Help:      "Total number of plan cache misses",
			},
		),
	}

	prometheus.MustRegister(
		m.operationDuration,
		m.operationErrors,
		m.cacheHits,
		m.cacheMisses,
	)

	return m
}

// NewResultClient dials Redis using cfg and verifies connectivity before
// returning.
func NewResultClient(cfg *cfgtypes.RedisConfig) (*ResultClient, error) {
	if cfg == nil {
		return nil, errors.NewError(constants.ErrInvalidInput, "redis configuration is required", nil)
	}

	connTimeout := cfg.ConnTimeout
	if connTimeout == 0 {
		connTimeout = defaultConnTimeout
	}
	readTimeout := cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = defaultReadTimeout
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = defaultWriteTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	poolSize := cfg.PoolSize
	if poolSize == 0 {
		poolSize = defaultPoolSize
	}
	minIdleConns := cfg.MinIdleConns
	if minIdleConns == 0 {
		minIdleConns = defaultMinIdleConns
	}

	breakerSettings := gobreaker.Settings{
		Name:    "plan-cache-circuit-breaker",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
	}

	opts := &redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  connTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		PoolSize:     poolSize,
		MinIdleConns: minIdleConns,
		MaxRetries:   maxRetries,
	}
	if cfg.EnableTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), connTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.WrapError(err, "failed to connect to redis", nil)
	}

	return &ResultClient{
		client:     client,
		breaker:    gobreaker.NewCircuitBreaker(breakerSettings),
		compressor: s2.NewWriter(nil),
		metrics:    initMetrics(),
	}, nil
}

// Set stores value under key, compressing the encoded payload when it
// exceeds compressionThreshold.
func (rc *ResultClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if key == "" {
		return errors.NewError(constants.ErrInvalidInput, "cache key cannot be empty", nil)
	}

	start := time.Now()
	defer func() {
		rc.metrics.operationDuration.WithLabelValues("set").Observe(time.Since(start).Seconds())
	}()

	_, err := rc.breaker.Execute(func() (interface{}, error) {
		data, err := json.Marshal(value)
		if err != nil {
			return nil, errors.WrapError(err, "failed to marshal plan result", nil)
		}

		if len(data) > compressionThreshold {
			rc.mu.Lock()
			rc.compressor.Reset(nil)
			compressed := rc.compressor.EncodeAll(data, nil)
			rc.mu.Unlock()
			data = compressed
		}

		if err := rc.client.Set(ctx, key, data, expiration).Err(); err != nil {
			rc.metrics.operationErrors.WithLabelValues("set").Inc()
			return nil, errors.WrapError(err, "failed to set plan result in redis", nil)
		}
		return nil, nil
	})

	return err
}

// Get retrieves the value stored under key into value, decompressing it
// first if it carries the s2 magic byte.
func (rc *ResultClient) Get(ctx context.Context, key string, value interface{}) error {
	if key == "" {
		return errors.NewError(constants.ErrInvalidInput, "cache key cannot be empty", nil)
	}

	start := time.Now()
	defer func() {
		rc.metrics.operationDuration.WithLabelValues("get").Observe(time.Since(start).Seconds())
	}()

	_, err := rc.breaker.Execute(func() (interface{}, error) {
		data, err := rc.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			rc.metrics.cacheMisses.Inc()
			return nil, errors.NewError(constants.ErrNotFound, "plan result not found in cache", nil)
		}
		if err != nil {
			rc.metrics.operationErrors.WithLabelValues("get").Inc()
			return nil, errors.WrapError(err, "failed to get plan result from redis", nil)
		}

		if len(data) > 0 && data[0] == s2MagicByte {
			decompressed, err := s2.Decode(nil, data)
			if err != nil {
				return nil, errors.WrapError(err, "failed to decompress plan result", nil)
			}
			data = decompressed
		}

		if err := json.Unmarshal(data, value); err != nil {
			return nil, errors.WrapError(err, "failed to unmarshal plan result", nil)
		}

		rc.metrics.cacheHits.Inc()
		return nil, nil
	})

	return err
}

// Close shuts down the underlying Redis client.
func (rc *ResultClient) Close() error {
	if err := rc.client.Close(); err != nil {
		return errors.WrapError(err, "failed to close redis client", nil)
	}
	return nil
}

// Health pings Redis to verify connectivity.
func (rc *ResultClient) Health(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}
