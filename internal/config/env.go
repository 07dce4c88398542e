package config

import (
	"os"
	"strconv"
)

// LoadFromEnv overrides cfg fields from BINSYNC_* environment variables.
func LoadFromEnv(cfg *Config) {
	if port := os.Getenv("BINSYNC_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	if logLevel := os.Getenv("BINSYNC_LOG_LEVEL"); logLevel != "" {
		cfg.Server.LogLevel = logLevel
	}

	if baseURL := os.Getenv("BINSYNC_REMOTE_URL"); baseURL != "" {
		cfg.Remote.BaseURL = baseURL
	}

	if cacheLimit := os.Getenv("BINSYNC_CACHE_LIMIT"); cacheLimit != "" {
		if limit, err := strconv.ParseUint(cacheLimit, 10, 64); err == nil {
			cfg.Remote.CacheLimit = limit
		}
	}

	if workers := os.Getenv("BINSYNC_MANIFEST_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil {
			cfg.Manifest.Workers = w
		}
	}
}

// GetEnvOrDefault returns environment variable or default value.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
