// Package config loads and validates the planning service's configuration
// from environment variables (spec.md's ambient configuration layer).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	cfgtypes "github.com/fieldplan/allocator/pkg/types/config"
)

const (
	defaultEnvironment = "development"
	defaultServiceName = "fieldplan-allocator"
	defaultVersion     = "1.0.0"
)

var validEnvironments = []string{"development", "staging", "production"}

// LoadConfig loads the complete service configuration from environment
// variables, applying environment-specific overrides and validating the
// result before returning it.
func LoadConfig() (*cfgtypes.ServiceConfig, error) {
	cfg := &cfgtypes.ServiceConfig{}

	cfg.Environment = strings.ToLower(getEnvOrDefault("ENV", defaultEnvironment))
	if !isValidEnvironment(cfg.Environment) {
		return nil, fmt.Errorf("invalid environment %q: must be one of %v", cfg.Environment, validEnvironments)
	}

	cfg.ServiceName = getEnvOrDefault("SERVICE_NAME", defaultServiceName)

	version := getEnvOrDefault("VERSION", defaultVersion)
	if _, err := semver.NewVersion(version); err != nil {
		return nil, fmt.Errorf("invalid version format %q: %w", version, err)
	}
	cfg.Version = version

	dbConfig, err := LoadDatabaseConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load database configuration: %w", err)
	}
	cfg.Database = dbConfig

	redisConfig, err := LoadRedisConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load Redis configuration: %w", err)
	}
	cfg.Redis = redisConfig

	apiConfig, err := loadAPIConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load API configuration: %w", err)
	}
	cfg.API = apiConfig

	cfg.Debug = getEnvBoolOrDefault("DEBUG", cfg.Environment == "development")
	cfg.ShutdownTimeout = getDurationOrDefault("SHUTDOWN_TIMEOUT", 15*time.Second)

	if flags := os.Getenv("FEATURE_FLAGS"); flags != "" {
		parsed, err := parseFeatureFlags(flags)
		if err != nil {
			return nil, fmt.Errorf("failed to parse feature flags: %w", err)
		}
		cfg.FeatureFlags = parsed
	}

	applyEnvironmentOverrides(cfg)

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// ValidateConfig validates every sub-configuration of a ServiceConfig.
func ValidateConfig(cfg *cfgtypes.ServiceConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	if !isValidEnvironment(cfg.Environment) {
		return fmt.Errorf("invalid environment %q", cfg.Environment)
	}
	if strings.TrimSpace(cfg.ServiceName) == "" {
		return fmt.Errorf("service name cannot be empty")
	}
	if _, err := semver.NewVersion(cfg.Version); err != nil {
		return fmt.Errorf("invalid version format: %w", err)
	}
	if err := ValidateDatabaseConfig(cfg.Database); err != nil {
		return fmt.Errorf("database configuration invalid: %w", err)
	}
	if err := ValidateRedisConfig(cfg.Redis); err != nil {
		return fmt.Errorf("redis configuration invalid: %w", err)
	}
	if err := validateAPIConfig(cfg.API); err != nil {
		return fmt.Errorf("API configuration invalid: %w", err)
	}
	return nil
}

func isValidEnvironment(env string) bool {
	for _, v := range validEnvironments {
		if env == v {
			return true
		}
	}
	return false
}

func parseFeatureFlags(flags string) (map[string]bool, error) {
	result := make(map[string]bool)
	for _, pair := range strings.Split(flags, ",") {
		kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid feature flag format: %s", pair)
		}
		key := strings.TrimSpace(kv[0])
		value := strings.ToLower(strings.TrimSpace(kv[1]))
		if key == "" {
			return nil, fmt.Errorf("empty feature flag key")
		}
		switch value {
		case "true":
			result[key] = true
		case "false":
			result[key] = false
		default:
			return nil, fmt.Errorf("invalid feature flag value: %s", value)
		}
	}
	return result, nil
}

func applyEnvironmentOverrides(cfg *cfgtypes.ServiceConfig) {
	switch cfg.Environment {
	case "production":
		cfg.API.EnableTLS = true
		cfg.Redis.EnableTLS = true
		cfg.Database.SSLMode = "verify-full"
	case "staging":
		cfg.API.EnableTLS = true
		cfg.Redis.EnableTLS = true
		cfg.Database.SSLMode = "require"
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
