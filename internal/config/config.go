package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port            string
	DBPath          string
	OllamaURL       string
	OllamaModel     string
	Timezone        string
	LogMode         string
	CatalogPath     string
	RedisAddr       string
	GatewayToken    string
	RateLimit       int
	PromoteInterval time.Duration
	SweepInterval   time.Duration
	SemanticTimeout time.Duration
	SweepEnabled    bool

	location *time.Location
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PPL_PORT", "8080"),
		DBPath:       getEnv("PPL_DB_PATH", ""),
		OllamaURL:    getEnv("PPL_OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:  getEnv("PPL_OLLAMA_MODEL", "qwen2.5:7b"),
		Timezone:     getEnv("PPL_TIMEZONE", "America/Los_Angeles"),
		LogMode:      getEnv("PPL_LOG_MODE", "prod"),
		CatalogPath:  getEnv("PPL_CATALOG_PATH", ""),
		RedisAddr:    getEnv("PPL_REDIS_ADDR", ""),
		GatewayToken: getEnv("PPL_GATEWAY_TOKEN", ""),
	}

	var err error
	if cfg.RateLimit, err = getEnvInt("PPL_RATE_LIMIT", 60); err != nil {
		return nil, err
	}
	if cfg.PromoteInterval, err = getEnvDuration("PPL_PROMOTE_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getEnvDuration("PPL_SWEEP_INTERVAL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SemanticTimeout, err = getEnvDuration("PPL_SEMANTIC_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.SweepEnabled, err = getEnvBool("PPL_SWEEP_ENABLED", true); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("PPL_DB_PATH is required")
	}
	if c.LogMode != "dev" && c.LogMode != "prod" {
		return fmt.Errorf("PPL_LOG_MODE must be dev or prod, got %q", c.LogMode)
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("PPL_RATE_LIMIT must be positive")
	}
	if c.PromoteInterval <= 0 || c.SweepInterval <= 0 || c.SemanticTimeout <= 0 {
		return fmt.Errorf("intervals and timeouts must be positive")
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("PPL_TIMEZONE: %w", err)
	}
	c.location = loc
	return nil
}

// Location is the timezone events are scheduled in
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
