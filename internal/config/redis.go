package config

import (
	"os"
	"strconv"
	"time"

	cfgtypes "github.com/fieldplan/allocator/pkg/types/config"
	"github.com/fieldplan/allocator/internal/utils/errors"
	"github.com/fieldplan/allocator/pkg/constants"
)

const (
	defaultRedisHost   = "localhost"
	defaultRedisPort   = 6379
	defaultRedisDB     = 0
	defaultRedisConnTimeout = 5 * time.Second
	defaultRedisReadTimeout = 3 * time.Second
	defaultWriteTimeo  = 3 * time.Second
	defaultMaxRetries   = 3
	defaultPoolSize     = 10
	defaultMinIdleConns = 2

	redisMinPort   = 1
	redisMaxPort   = 65535
	maxTimeout     = 30 * time.Second
	minPoolSize    = 5
	maxPoolSize    = 1000
	minRetries     = 1
	maxRetries     = 10
	minPasswordLen = 8
)

// LoadRedisConfig loads Redis configuration from environment variables.
func LoadRedisConfig() (*cfgtypes.RedisConfig, error) {
	cfg := &cfgtypes.RedisConfig{
		Host:         getEnvOrDefault("REDIS_HOST", defaultRedisHost),
		Port:         getEnvIntOrDefault("REDIS_PORT", defaultRedisPort),
		Password:     os.Getenv("REDIS_PASSWORD"),
		DB:           getEnvIntOrDefault("REDIS_DB", defaultRedisDB),
		ConnTimeout:  getDurationOrDefault("REDIS_CONN_TIMEOUT", defaultRedisConnTimeout),
		ReadTimeout:  getDurationOrDefault("REDIS_READ_TIMEOUT", defaultRedisReadTimeout),
		WriteTimeout: getDurationOrDefault("REDIS_WRITE_TIMEOUT", defaultWriteTimeo),
		MaxRetries:   getEnvIntOrDefault("REDIS_MAX_RETRIES", defaultMaxRetries),
		PoolSize:     getEnvIntOrDefault("REDIS_POOL_SIZE", defaultPoolSize),
		MinIdleConns: getEnvIntOrDefault("REDIS_MIN_IDLE_CONNS", defaultMinIdleConns),
		EnableTLS:    getEnvBoolOrDefault("REDIS_TLS_ENABLED", false),
	}
	if err := ValidateRedisConfig(cfg); err != nil {
		return nil, errors.WrapError(err, "failed to validate Redis configuration", nil)
	}
	return cfg, nil
}

// ValidateRedisConfig validates a RedisConfig's fields.
func ValidateRedisConfig(cfg *cfgtypes.RedisConfig) error {
	if cfg == nil {
		return errors.NewError(constants.ErrValidation, "redis configuration cannot be nil", nil)
	}
	if cfg.Host == "" {
		return errors.NewError(constants.ErrValidation, "redis host cannot be empty", nil)
	}
	if cfg.Port < redisMinPort || cfg.Port > redisMaxPort {
		return errors.NewError(constants.ErrValidation, "redis port must be between 1 and 65535", nil)
	}
	if cfg.DB < 0 {
		return errors.NewError(constants.ErrValidation, "redis database number cannot be negative", nil)
	}
	if cfg.Password != "" && len(cfg.Password) < minPasswordLen {
		return errors.NewError(constants.ErrValidation, "redis password must be at least 8 characters long", nil)
	}
	if err := validateTimeout("connection", cfg.ConnTimeout); err != nil {
		return err
	}
	if err := validateTimeout("read", cfg.ReadTimeout); err != nil {
		return err
	}
	if err := validateTimeout("write", cfg.WriteTimeout); err != nil {
		return err
	}
	if cfg.PoolSize < minPoolSize || cfg.PoolSize > maxPoolSize {
		return errors.NewError(constants.ErrValidation, "redis pool size must be between 5 and 1000", nil)
	}
	if cfg.MaxRetries < minRetries || cfg.MaxRetries > maxRetries {
		return errors.NewError(constants.ErrValidation, "redis max retries must be between 1 and 10", nil)
	}
	return nil
}

func validateTimeout(kind string, timeout time.Duration) error {
	if timeout <= 0 {
		return errors.NewError(constants.ErrValidation, "redis "+kind+" timeout must be positive", nil)
	}
	if timeout > maxTimeout {
		return errors.NewError(constants.ErrValidation, "redis "+kind+" timeout exceeds maximum allowed value", nil)
	}
	return nil
}

func getEnvIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvBoolOrDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationOrDefault(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
