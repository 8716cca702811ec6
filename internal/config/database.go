package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cfgtypes "github.com/fieldplan/allocator/pkg/types/config"
)

const (
	defaultDBHost        = "localhost"
	defaultDBPort        = 5432
	defaultDBUser        = "postgres"
	defaultDBName        = "fieldplan"
	defaultSSLMode       = "disable"
	defaultConnTimeout   = "30s"
	defaultMaxOpenConns  = 25
	defaultMaxIdleConns  = 10
	defaultConnLifetime  = "1h"
	defaultIdleTime      = "10m"
	minPasswordLength    = 8
	maxPort              = 65535
	minPort              = 1
	maxConnTimeoutAllow  = 300 * time.Second
	minConnTimeoutAllow  = 1 * time.Second
)

var validSSLModes = map[string]bool{
	"disable": true, "require": true, "verify-ca": true, "verify-full": true,
}

// LoadDatabaseConfig loads Postgres configuration from environment
// variables with secure defaults and validates the result.
func LoadDatabaseConfig() (*cfgtypes.DatabaseConfig, error) {
	cfg := &cfgtypes.DatabaseConfig{}

	cfg.Host = getEnvOrDefault("DB_HOST", defaultDBHost)

	port, err := strconv.Atoi(getEnvOrDefault("DB_PORT", strconv.Itoa(defaultDBPort)))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	cfg.Port = port

	cfg.User = getEnvOrDefault("DB_USER", defaultDBUser)
	cfg.Password = os.Getenv("DB_PASSWORD")
	cfg.DBName = getEnvOrDefault("DB_NAME", defaultDBName)
	cfg.SSLMode = strings.ToLower(getEnvOrDefault("DB_SSL_MODE", defaultSSLMode))

	timeout, err := time.ParseDuration(getEnvOrDefault("DB_CONN_TIMEOUT", defaultConnTimeout))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_CONN_TIMEOUT: %w", err)
	}
	cfg.ConnTimeout = timeout
	cfg.ReadTimeout = timeout
	cfg.WriteTimeout = timeout

	maxOpen, err := strconv.Atoi(getEnvOrDefault("DB_MAX_OPEN_CONNS", strconv.Itoa(defaultMaxOpenConns)))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_OPEN_CONNS: %w", err)
	}
	cfg.MaxOpenConns = maxOpen

	maxIdle, err := strconv.Atoi(getEnvOrDefault("DB_MAX_IDLE_CONNS", strconv.Itoa(defaultMaxIdleConns)))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_IDLE_CONNS: %w", err)
	}
	cfg.MaxIdleConns = maxIdle

	connLifetime, err := time.ParseDuration(getEnvOrDefault("DB_MAX_CONN_LIFETIME", defaultConnLifetime))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONN_LIFETIME: %w", err)
	}
	cfg.MaxConnLifetime = connLifetime

	idleTime, err := time.ParseDuration(getEnvOrDefault("DB_MAX_IDLE_TIME", defaultIdleTime))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_IDLE_TIME: %w", err)
	}
	cfg.MaxIdleTime = idleTime
	cfg.EnableAutoMigration = getEnvBoolOrDefault("DB_AUTO_MIGRATE", false)

	if err := ValidateDatabaseConfig(cfg); err != nil {
		return nil, fmt.Errorf("database configuration validation failed: %w", err)
	}
	return cfg, nil
}

// ValidateDatabaseConfig validates a DatabaseConfig's fields.
func ValidateDatabaseConfig(cfg *cfgtypes.DatabaseConfig) error {
	if cfg == nil {
		return fmt.Errorf("database configuration is nil")
	}
	if strings.TrimSpace(cfg.Host) == "" {
		return fmt.Errorf("database host cannot be empty")
	}
	if cfg.Port < minPort || cfg.Port > maxPort {
		return fmt.Errorf("invalid port number %d", cfg.Port)
	}
	if strings.TrimSpace(cfg.User) == "" {
		return fmt.Errorf("database user cannot be empty")
	}
	if len(cfg.Password) > 0 && len(cfg.Password) < minPasswordLength {
		return fmt.Errorf("database password must be at least %d characters", minPasswordLength)
	}
	if strings.TrimSpace(cfg.DBName) == "" {
		return fmt.Errorf("database name cannot be empty")
	}
	if strings.ContainsAny(cfg.DBName, " ;'\"") {
		return fmt.Errorf("database name contains invalid characters")
	}
	if !validSSLModes[cfg.SSLMode] {
		return fmt.Errorf("invalid SSL mode %q", cfg.SSLMode)
	}
	if cfg.ConnTimeout < minConnTimeoutAllow || cfg.ConnTimeout > maxConnTimeoutAllow {
		return fmt.Errorf("connection timeout must be between %v and %v", minConnTimeoutAllow, maxConnTimeoutAllow)
	}
	if cfg.MaxOpenConns < 1 {
		return fmt.Errorf("max open connections must be at least 1")
	}
	if cfg.MaxIdleConns < 1 {
		return fmt.Errorf("max idle connections must be at least 1")
	}
	if cfg.MaxIdleConns > cfg.MaxOpenConns {
		return fmt.Errorf("max idle connections (%d) cannot exceed max open connections (%d)", cfg.MaxIdleConns, cfg.MaxOpenConns)
	}
	return nil
}
