package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Oracle   OracleConfig
	Scrape   ScrapeConfig
	Search   SearchConfig
	Pipeline PipelineConfig
	Cache    CacheConfig
	Log      LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// OracleConfig holds AI verifier configuration
type OracleConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ScrapeConfig holds page-scraper configuration
type ScrapeConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	UserAgent     string        `mapstructure:"user_agent"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	MaxBodyChars  int           `mapstructure:"max_body_chars"`
}

// SearchConfig holds search-backend configuration
type SearchConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxResults int           `mapstructure:"max_results"`
}

// PipelineConfig holds acquisition-loop configuration
type PipelineConfig struct {
	MaxCycles     int `mapstructure:"max_cycles"`
	TargetSources int `mapstructure:"target_sources"`
	VerifyBatch   int `mapstructure:"verify_batch"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/labellens/")

	// Environment variable settings
	v.SetEnvPrefix("LABELLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"chrome-extension://*"})

	// Oracle defaults
	v.SetDefault("oracle.api_key", "")
	v.SetDefault("oracle.base_url", "")
	v.SetDefault("oracle.model", "gpt-4o-mini")
	v.SetDefault("oracle.timeout", "60s")

	// Scrape defaults
	v.SetDefault("scrape.timeout", "8s")
	v.SetDefault("scrape.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	v.SetDefault("scrape.max_concurrent", 6)
	v.SetDefault("scrape.max_body_chars", 40000)

	// Search defaults
	v.SetDefault("search.timeout", "10s")
	v.SetDefault("search.max_results", 10)

	// Pipeline defaults
	v.SetDefault("pipeline.max_cycles", 5)
	v.SetDefault("pipeline.target_sources", 5)
	v.SetDefault("pipeline.verify_batch", 10)

	// Cache defaults
	v.SetDefault("cache.ttl", "168h") // 7 days

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Oracle.APIKey == "" {
		return fmt.Errorf("oracle API key is required (set LABELLENS_ORACLE_API_KEY)")
	}

	if config.Pipeline.MaxCycles < 1 {
		return fmt.Errorf("pipeline max_cycles must be at least 1, got: %d", config.Pipeline.MaxCycles)
	}

	if config.Pipeline.TargetSources < 1 {
		return fmt.Errorf("pipeline target_sources must be at least 1, got: %d", config.Pipeline.TargetSources)
	}

	if config.Scrape.MaxConcurrent < 1 {
		return fmt.Errorf("scrape max_concurrent must be at least 1, got: %d", config.Scrape.MaxConcurrent)
	}

	return nil
}
