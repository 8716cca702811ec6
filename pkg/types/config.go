// Package config carries the shared configuration value types used by
// internal/config's loaders and by every service layer that consumes them.
package config

import "time"

// ServiceConfig is the complete, validated configuration for one instance
// of the planning service.
type ServiceConfig struct {
	Environment     string
	ServiceName     string
	Version         string
	Database        *DatabaseConfig
	Redis           *RedisConfig
	API             *APIConfig
	Debug           bool
	ShutdownTimeout time.Duration
	FeatureFlags    map[string]bool
}

// DatabaseConfig configures the Postgres connection pool.
type DatabaseConfig struct {
	Host                string
	Port                int
	User                string
	Password            string
	DBName              string
	SSLMode             string
	ConnTimeout         time.Duration
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	MaxOpenConns        int
	MaxIdleConns        int
	MaxConnLifetime     time.Duration
	MaxIdleTime         time.Duration
	EnableAutoMigration bool
}

// RedisConfig configures the Redis client used for result caching and
// distributed rate limiting.
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	ConnTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxRetries   int
	PoolSize     int
	MinIdleConns int
	EnableTLS    bool
}

// APIConfig configures the HTTP gateway.
type APIConfig struct {
	Host                 string
	Port                 int
	ReadTimeout          time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	ShutdownTimeout      time.Duration
	MaxRequestSize       int64
	EnableCORS           bool
	AllowedOrigins       []string
	AllowedMethods       []string
	AllowedHeaders       []string
	EnableTLS            bool
	TLSCertPath          string
	TLSKeyPath           string
	MaxHeaderSize        int
	EnableRequestLogging bool
	EnableMetrics        bool
	RateLimit            int
	RateLimitWindow      time.Duration
}
