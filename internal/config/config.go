package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Manifold ManifoldConfig `mapstructure:"manifold"`
	Kalshi   KalshiConfig   `mapstructure:"kalshi"`
	TextGen  TextGenConfig  `mapstructure:"textgen"`
	Matching MatchingConfig `mapstructure:"matching"`
	Enrich   EnrichConfig   `mapstructure:"enrich"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// HTTPClientConfig holds the retry and transport settings shared by the venue clients
type HTTPClientConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// ManifoldConfig holds source venue API configuration
type ManifoldConfig struct {
	APIBaseURL       string `mapstructure:"api_base_url"`
	Limit            int    `mapstructure:"limit"`
	MaxPages         int    `mapstructure:"max_pages"`
	HTTPClientConfig `mapstructure:",squash"`
}

// KalshiConfig holds target venue API configuration
type KalshiConfig struct {
	APIBaseURL       string `mapstructure:"api_base_url"`
	Status           string `mapstructure:"status"`
	PageLimit        int    `mapstructure:"page_limit"`
	MaxPages         int    `mapstructure:"max_pages"`
	HTTPClientConfig `mapstructure:",squash"`
}

// TextGenConfig holds the external text-generation service configuration
type TextGenConfig struct {
	APIURL      string        `mapstructure:"api_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// MatchingConfig holds cross-venue matching behavior configuration
type MatchingConfig struct {
	BatchSize        int           `mapstructure:"batch_size"`
	MatchTTL         time.Duration `mapstructure:"match_ttl"`
	ClassifierDelay  time.Duration `mapstructure:"classifier_delay"`
	MaxCandidates    int           `mapstructure:"max_candidates"`
	TargetEventLimit int           `mapstructure:"target_event_limit"`
	TargetCategory   string        `mapstructure:"target_category"`
}

// EnrichConfig holds summary and geotag generation configuration
type EnrichConfig struct {
	BatchSize  int           `mapstructure:"batch_size"`
	SummaryTTL time.Duration `mapstructure:"summary_ttl"`
	GeoTagTTL  time.Duration `mapstructure:"geotag_ttl"`
	Delay      time.Duration `mapstructure:"delay"`
}

// StorageConfig holds storage and persistence configuration
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// MetricsConfig holds the Prometheus endpoint configuration. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
// An empty path skips the file and uses defaults plus environment only.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Enable environment variable override, e.g. POLYMATCH_TEXTGEN_API_KEY
	v.SetEnvPrefix("POLYMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Source venue defaults
	v.SetDefault("manifold.api_base_url", "https://api.manifold.markets")
	v.SetDefault("manifold.limit", 500)
	v.SetDefault("manifold.max_pages", 4)
	v.SetDefault("manifold.timeout", "30s")
	v.SetDefault("manifold.max_retries", 3)
	v.SetDefault("manifold.retry_delay_base", "1s")

	// Target venue defaults
	v.SetDefault("kalshi.api_base_url", "https://api.elections.kalshi.com/trade-api/v2")
	v.SetDefault("kalshi.status", "open")
	v.SetDefault("kalshi.page_limit", 200)
	v.SetDefault("kalshi.max_pages", 10)
	v.SetDefault("kalshi.timeout", "30s")
	v.SetDefault("kalshi.max_retries", 3)
	v.SetDefault("kalshi.retry_delay_base", "1s")

	// Text generation defaults
	v.SetDefault("textgen.api_url", "https://api.openai.com/v1")
	v.SetDefault("textgen.api_key", "")
	v.SetDefault("textgen.model", "gpt-4o-mini")
	v.SetDefault("textgen.temperature", 0.1)
	v.SetDefault("textgen.max_tokens", 500)
	v.SetDefault("textgen.timeout", "60s")

	// Matching defaults
	v.SetDefault("matching.batch_size", 50)
	v.SetDefault("matching.match_ttl", "24h")
	v.SetDefault("matching.classifier_delay", "500ms")
	v.SetDefault("matching.max_candidates", 30)
	v.SetDefault("matching.target_event_limit", 5000)
	v.SetDefault("matching.target_category", "")

	// Enrichment defaults
	v.SetDefault("enrich.batch_size", 20)
	v.SetDefault("enrich.summary_ttl", "72h")
	v.SetDefault("enrich.geotag_ttl", "720h")
	v.SetDefault("enrich.delay", "500ms")

	// Storage defaults
	v.SetDefault("storage.db_path", "./data/polymatch.db")

	// Telegram defaults
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Metrics endpoint is off unless an address is given
	v.SetDefault("metrics.addr", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate venue configs
	if c.Manifold.APIBaseURL == "" {
		return fmt.Errorf("manifold.api_base_url is required")
	}
	if c.Manifold.Limit < 1 || c.Manifold.Limit > 1000 {
		return fmt.Errorf("manifold.limit must be between 1 and 1000")
	}
	if c.Kalshi.APIBaseURL == "" {
		return fmt.Errorf("kalshi.api_base_url is required")
	}
	if c.Kalshi.PageLimit < 1 || c.Kalshi.PageLimit > 200 {
		return fmt.Errorf("kalshi.page_limit must be between 1 and 200")
	}
	if c.Kalshi.MaxPages < 1 {
		return fmt.Errorf("kalshi.max_pages must be at least 1")
	}

	// Validate text generation config
	if c.TextGen.APIURL == "" {
		return fmt.Errorf("textgen.api_url is required")
	}
	if c.TextGen.Model == "" {
		return fmt.Errorf("textgen.model is required")
	}
	if c.TextGen.Temperature < 0.0 || c.TextGen.Temperature > 2.0 {
		return fmt.Errorf("textgen.temperature must be between 0.0 and 2.0")
	}
	if c.TextGen.MaxTokens < 1 {
		return fmt.Errorf("textgen.max_tokens must be at least 1")
	}

	// Validate matching config
	if c.Matching.BatchSize < 1 {
		return fmt.Errorf("matching.batch_size must be at least 1")
	}
	if c.Matching.MatchTTL < 1*time.Minute {
		return fmt.Errorf("matching.match_ttl must be at least 1 minute")
	}
	if c.Matching.ClassifierDelay < 0 {
		return fmt.Errorf("matching.classifier_delay must not be negative")
	}
	if c.Matching.MaxCandidates < 1 || c.Matching.MaxCandidates > 30 {
		return fmt.Errorf("matching.max_candidates must be between 1 and 30")
	}
	if c.Matching.TargetEventLimit < 1 {
		return fmt.Errorf("matching.target_event_limit must be at least 1")
	}

	// Validate enrichment config
	if c.Enrich.BatchSize < 1 {
		return fmt.Errorf("enrich.batch_size must be at least 1")
	}
	if c.Enrich.SummaryTTL < 1*time.Minute || c.Enrich.GeoTagTTL < 1*time.Minute {
		return fmt.Errorf("enrich.summary_ttl and enrich.geotag_ttl must be at least 1 minute")
	}

	// Validate Storage config
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// RequireTextGen checks the settings needed by commands that call the generation service.
func (c *Config) RequireTextGen() error {
	if c.TextGen.APIKey == "" {
		return fmt.Errorf("textgen.api_key is required (set POLYMATCH_TEXTGEN_API_KEY)")
	}
	return nil
}
