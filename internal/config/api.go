package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	cfgtypes "github.com/fieldplan/allocator/pkg/types/config"
)

const (
	defaultAPIHost            = "0.0.0.0"
	defaultAPIPort            = 8080
	defaultReadTimeout        = 15 * time.Second
	defaultWriteTimeout       = 30 * time.Second
	defaultIdleTimeout        = 60 * time.Second
	defaultShutdownTimeout    = 15 * time.Second
	defaultMaxRequestSize     = 10 << 20 // 10 MiB
	defaultMaxHeaderSize      = 1 << 20  // 1 MiB
	defaultRateLimit          = 100
	defaultRateLimitWindow    = time.Minute
)

// loadAPIConfig loads the HTTP gateway's configuration from environment
// variables.
func loadAPIConfig() (*cfgtypes.APIConfig, error) {
	cfg := &cfgtypes.APIConfig{
		Host:                 getEnvOrDefault("API_HOST", defaultAPIHost),
		Port:                 getEnvIntOrDefault("API_PORT", defaultAPIPort),
		ReadTimeout:          getDurationOrDefault("API_READ_TIMEOUT", defaultReadTimeout),
		WriteTimeout:         getDurationOrDefault("API_WRITE_TIMEOUT", defaultWriteTimeout),
		IdleTimeout:          getDurationOrDefault("API_IDLE_TIMEOUT", defaultIdleTimeout),
		ShutdownTimeout:      getDurationOrDefault("API_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		MaxRequestSize:       getEnvInt64OrDefault("API_MAX_REQUEST_SIZE", defaultMaxRequestSize),
		EnableCORS:           getEnvBoolOrDefault("API_ENABLE_CORS", true),
		AllowedOrigins:       getEnvListOrDefault("API_ALLOWED_ORIGINS", []string{"*"}),
		AllowedMethods:       getEnvListOrDefault("API_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		AllowedHeaders:       getEnvListOrDefault("API_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		EnableTLS:            getEnvBoolOrDefault("API_ENABLE_TLS", false),
		TLSCertPath:          getEnvOrDefault("API_TLS_CERT_PATH", ""),
		TLSKeyPath:           getEnvOrDefault("API_TLS_KEY_PATH", ""),
		MaxHeaderSize:        getEnvIntOrDefault("API_MAX_HEADER_SIZE", defaultMaxHeaderSize),
		EnableRequestLogging: getEnvBoolOrDefault("API_ENABLE_REQUEST_LOGGING", true),
		EnableMetrics:        getEnvBoolOrDefault("API_ENABLE_METRICS", true),
		RateLimit:            getEnvIntOrDefault("API_RATE_LIMIT", defaultRateLimit),
		RateLimitWindow:      getDurationOrDefault("API_RATE_LIMIT_WINDOW", defaultRateLimitWindow),
	}
	if err := validateAPIConfig(cfg); err != nil {
		return nil, fmt.Errorf("API configuration validation failed: %w", err)
	}
	return cfg, nil
}

func validateAPIConfig(cfg *cfgtypes.APIConfig) error {
	if cfg == nil {
		return fmt.Errorf("API configuration is nil")
	}
	if cfg.Port < redisMinPort || cfg.Port > redisMaxPort {
		return fmt.Errorf("invalid API port %d", cfg.Port)
	}
	if cfg.ReadTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return fmt.Errorf("API timeouts must be positive")
	}
	if cfg.MaxRequestSize <= 0 {
		return fmt.Errorf("API max request size must be positive")
	}
	if cfg.EnableTLS && (cfg.TLSCertPath == "" || cfg.TLSKeyPath == "") {
		return fmt.Errorf("TLS enabled but cert/key path is empty")
	}
	if cfg.RateLimit <= 0 {
		return fmt.Errorf("API rate limit must be positive")
	}
	return nil
}

func getEnvInt64OrDefault(key string, def int64) int64 {
	v := getEnvOrDefault(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func getEnvListOrDefault(key string, def []string) []string {
	v := getEnvOrDefault(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
