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
//	token := cfg.Ledger.APIToken
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration
type Config struct {
	Ledger        LedgerConfig        `yaml:"ledger"`
	Engine        EngineConfig        `yaml:"engine"`
	Storage       StorageConfig       `yaml:"storage"`
	API           APIConfig           `yaml:"api"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// LedgerConfig holds the accounting system API configuration
type LedgerConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIToken       string `yaml:"api_token"`
	PageSize       int    `yaml:"page_size"`
	MaxRetries     int    `yaml:"max_retries"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// EngineConfig holds reconciliation run settings
type EngineConfig struct {
	// AutoCreateThreshold is the minimum classifier confidence for
	// creating ledger entries without operator input.
	AutoCreateThreshold float64 `yaml:"auto_create_threshold"`
	SimilarLimit        int     `yaml:"similar_limit"`
	// ReviewTimeoutSeconds bounds manual-review waits in batch mode.
	// Zero waits forever (interactive mode).
	ReviewTimeoutSeconds int `yaml:"review_timeout_seconds"`
	// MaxPages caps ledger pagination per source kind.
	MaxPages int `yaml:"max_pages"`
	// RetrainBatch is how many learning examples accumulate before the
	// classifier retrains. 1 retrains on every insert.
	RetrainBatch int `yaml:"retrain_batch"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// APIConfig holds HTTP server configuration
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
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

	// Expand environment variables (e.g., ${LEDGER_API_TOKEN})
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
		Ledger: LedgerConfig{
			BaseURL:        os.Getenv("LEDGER_BASE_URL"),
			APIToken:       os.Getenv("LEDGER_API_TOKEN"),
			PageSize:       getEnvInt("LEDGER_PAGE_SIZE", 0),
			MaxRetries:     getEnvInt("LEDGER_MAX_RETRIES", 0),
			TimeoutSeconds: getEnvInt("LEDGER_TIMEOUT_SECONDS", 0),
		},
		Engine: EngineConfig{
			AutoCreateThreshold:  getEnvFloat("RECON_AUTO_CREATE_THRESHOLD", 0),
			SimilarLimit:         getEnvInt("RECON_SIMILAR_LIMIT", 0),
			ReviewTimeoutSeconds: getEnvInt("RECON_REVIEW_TIMEOUT_SECONDS", 0),
			MaxPages:             getEnvInt("RECON_MAX_PAGES", 0),
			RetrainBatch:         getEnvInt("RECON_RETRAIN_BATCH", 0),
		},
		Storage: StorageConfig{
			DatabasePath: getEnv("RECON_DB_PATH", ""),
		},
		API: APIConfig{
			ListenAddr: getEnv("RECON_LISTEN_ADDR", ""),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", ""),
				Format: getEnv("LOG_FORMAT", ""),
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

// applyDefaults fills in zero-valued settings
func (c *Config) applyDefaults() {
	if c.Ledger.PageSize <= 0 {
		c.Ledger.PageSize = 100
	}
	if c.Ledger.MaxRetries <= 0 {
		c.Ledger.MaxRetries = 3
	}
	if c.Ledger.TimeoutSeconds <= 0 {
		c.Ledger.TimeoutSeconds = 30
	}
	if c.Engine.AutoCreateThreshold <= 0 {
		c.Engine.AutoCreateThreshold = 0.6
	}
	if c.Engine.SimilarLimit <= 0 {
		c.Engine.SimilarLimit = 5
	}
	if c.Engine.MaxPages <= 0 {
		c.Engine.MaxPages = 15
	}
	if c.Engine.RetrainBatch <= 0 {
		c.Engine.RetrainBatch = 1
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "bank_recon.db"
	}
	if c.API.ListenAddr == "" {
		c.API.ListenAddr = ":8080"
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
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

// getEnvFloat retrieves a float environment variable with a fallback default
func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		var result float64
		if _, err := fmt.Sscanf(val, "%g", &result); err == nil {
			return result
		}
	}
	return fallback
}
