// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	baseURL := cfg.Platform.BaseURL
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration
type Config struct {
	Platform      PlatformConfig      `yaml:"platform"`
	Webhook       WebhookConfig       `yaml:"webhook"`
	Sync          SyncConfig          `yaml:"sync"`
	Storage       StorageConfig       `yaml:"storage"`
	API           APIConfig           `yaml:"api"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// PlatformConfig holds credentials and tuning for the remote storefront API
type PlatformConfig struct {
	BaseURL        string        `yaml:"base_url"`
	ConsumerKey    string        `yaml:"consumer_key"`
	ConsumerSecret string        `yaml:"consumer_secret"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	PageSize       int           `yaml:"page_size"`
}

// WebhookConfig holds the shared secret for inbound webhook verification.
// An empty secret disables signature checks (local development only).
type WebhookConfig struct {
	Secret string `yaml:"secret"`
}

// SyncConfig holds job-loop tuning
type SyncConfig struct {
	InterPageDelay time.Duration `yaml:"inter_page_delay"`
	PageRetryDelay time.Duration `yaml:"page_retry_delay"`
	JobRetention   int           `yaml:"job_retention_days"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// APIConfig holds HTTP server configuration
type APIConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${PLATFORM_CONSUMER_SECRET})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := &Config{
		Platform: PlatformConfig{
			BaseURL:        os.Getenv("PLATFORM_BASE_URL"),
			ConsumerKey:    os.Getenv("PLATFORM_CONSUMER_KEY"),
			ConsumerSecret: os.Getenv("PLATFORM_CONSUMER_SECRET"),
			PageSize:       getEnvInt("PLATFORM_PAGE_SIZE", 0),
		},
		Webhook: WebhookConfig{
			Secret: os.Getenv("WEBHOOK_SECRET"),
		},
		Storage: StorageConfig{
			DatabasePath: getEnv("SYNC_DB_PATH", "erpsync.db"),
		},
		Sync: SyncConfig{
			JobRetention: getEnvInt("JOB_RETENTION_DAYS", 0),
		},
		API: APIConfig{
			Port: getEnvInt("API_PORT", 0),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// applyDefaults fills zero values with working defaults
func (c *Config) applyDefaults() {
	if c.Platform.RequestTimeout == 0 {
		c.Platform.RequestTimeout = 3 * time.Minute
	}
	if c.Platform.PageSize == 0 {
		c.Platform.PageSize = 50
	}
	if c.Sync.InterPageDelay == 0 {
		c.Sync.InterPageDelay = 500 * time.Millisecond
	}
	if c.Sync.PageRetryDelay == 0 {
		c.Sync.PageRetryDelay = 10 * time.Second
	}
	if c.Sync.JobRetention == 0 {
		c.Sync.JobRetention = 30
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "erpsync.db"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if len(c.API.AllowedOrigins) == 0 {
		c.API.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

// GetCredential retrieves a credential from config first, then tries environment variable names
// Usage: GetCredential(cfg.Platform.ConsumerKey, "PLATFORM_CONSUMER_KEY")
func (c *Config) GetCredential(configValue string, envVarNames ...string) string {
	if configValue != "" {
		return configValue
	}
	for _, envVar := range envVarNames {
		if val := os.Getenv(envVar); val != "" {
			return val
		}
	}
	return ""
}
