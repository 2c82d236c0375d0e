package config

import (
	"github.com/mathieupelo/sentiment-reddit/pkg/config"
)

// Defaults applied when the config file omits a value.
const (
	DefaultLookbackDays           = 30
	DefaultConfidenceCeilingPosts = 20
	DefaultSignalName             = "SENTIMENT_RDDT"

	DefaultGeminiMaxRequestPerMinute = 15
	DefaultGeminiMaxTokenPerMinute   = 1_000_000
)

// Signal holds the aggregation parameters for the sentiment sweep.
type Signal struct {
	Name                   string `mapstructure:"name"`
	LookbackDays           int    `mapstructure:"lookback_days"`
	ConfidenceCeilingPosts int    `mapstructure:"confidence_ceiling_posts"`
	MaxConcurrentPairs     int    `mapstructure:"max_concurrent_pairs"`
}

// AI holds configuration for classifier providers.
type AI struct {
	Provider string `mapstructure:"provider"`
}

// Gemini holds the configuration for the Gemini API.
type Gemini struct {
	BaseURL             string `mapstructure:"base_url"`
	APIKey              string `mapstructure:"api_key"`
	Model               string `mapstructure:"model"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
	MaxTokenPerMinute   int    `mapstructure:"max_token_per_minute"`
}

// ClassifierCache holds settings for the classifier score cache.
type ClassifierCache struct {
	Enabled    bool   `mapstructure:"enabled"`
	TTL        string `mapstructure:"ttl"`
	RedisTTL   string `mapstructure:"redis_ttl"`
	RedisIndex string `mapstructure:"redis_prefix"`
}

// Telegram holds configuration for the sweep summary notifier.
type Telegram struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// Export holds CSV export configuration.
type Export struct {
	OutputDir string `mapstructure:"output_dir"`
}

// Config holds the full configuration for the signal service.
type Config struct {
	App             config.App      `mapstructure:"app"`
	Logger          config.Logger   `mapstructure:"logger"`
	Database        config.Database `mapstructure:"database"`
	Redis           config.Redis    `mapstructure:"redis"`
	API             config.API      `mapstructure:"api"`
	Signal          Signal          `mapstructure:"signal"`
	AI              AI              `mapstructure:"ai"`
	Gemini          Gemini          `mapstructure:"gemini"`
	ClassifierCache ClassifierCache `mapstructure:"classifier_cache"`
	Telegram        Telegram        `mapstructure:"telegram"`
	Export          Export          `mapstructure:"export"`
}

// Load loads the signal service configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}

	if cfg.Signal.Name == "" {
		cfg.Signal.Name = DefaultSignalName
	}
	if cfg.Signal.LookbackDays == 0 {
		cfg.Signal.LookbackDays = DefaultLookbackDays
	}
	if cfg.Signal.ConfidenceCeilingPosts == 0 {
		cfg.Signal.ConfidenceCeilingPosts = DefaultConfidenceCeilingPosts
	}
	if cfg.Signal.MaxConcurrentPairs <= 0 {
		cfg.Signal.MaxConcurrentPairs = 1
	}

	// The Gemini limiters divide by these, so zero is never acceptable
	// even when the provider block is omitted entirely.
	if cfg.Gemini.MaxRequestPerMinute <= 0 {
		cfg.Gemini.MaxRequestPerMinute = DefaultGeminiMaxRequestPerMinute
	}
	if cfg.Gemini.MaxTokenPerMinute <= 0 {
		cfg.Gemini.MaxTokenPerMinute = DefaultGeminiMaxTokenPerMinute
	}

	return &cfg, nil
}
