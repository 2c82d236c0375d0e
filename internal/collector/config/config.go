package config

import (
	"github.com/mathieupelo/sentiment-reddit/pkg/config"
)

// Defaults applied when the config file omits a value.
const (
	DefaultUserAgent       = "sentiment-reddit-collector/1.0"
	DefaultSearchLimit     = 100
	DefaultRequestsPerMin  = 30
	DefaultCronSpec        = "0 */6 * * *"
	DefaultMaxPostAgeDays  = 45
	DefaultMaxConcurrent   = 2
	DefaultDedupRedisTTL   = "168h"
	DefaultDedupMemoryTTL  = "30m"
	DefaultDedupRedisIndex = "collector:seen"
)

// Reddit holds settings for the Reddit JSON search API client.
type Reddit struct {
	BaseURL           string   `mapstructure:"base_url"`
	UserAgent         string   `mapstructure:"user_agent"`
	Subreddits        []string `mapstructure:"subreddits"`
	SearchLimit       int      `mapstructure:"search_limit"`
	TimeFilter        string   `mapstructure:"time_filter"`
	RequestsPerMinute int      `mapstructure:"requests_per_minute"`
}

// Feed holds settings for the subreddit RSS fallback path.
type Feed struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
}

// Collector holds scheduling and collection parameters.
type Collector struct {
	CronSpec             string `mapstructure:"cron_spec"`
	MaxPostAgeDays       int    `mapstructure:"max_post_age_days"`
	MaxConcurrentTickers int    `mapstructure:"max_concurrent_tickers"`
}

// Dedup holds the seen-post cache settings.
type Dedup struct {
	RedisTTL   string `mapstructure:"redis_ttl"`
	MemoryTTL  string `mapstructure:"memory_ttl"`
	RedisIndex string `mapstructure:"redis_prefix"`
}

// Config holds the full configuration for the collector service.
type Config struct {
	App       config.App      `mapstructure:"app"`
	Logger    config.Logger   `mapstructure:"logger"`
	Database  config.Database `mapstructure:"database"`
	Redis     config.Redis    `mapstructure:"redis"`
	Reddit    Reddit          `mapstructure:"reddit"`
	Feed      Feed            `mapstructure:"feed"`
	Collector Collector       `mapstructure:"collector"`
	Dedup     Dedup           `mapstructure:"dedup"`
}

// Load loads the collector service configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}

	if cfg.Reddit.BaseURL == "" {
		cfg.Reddit.BaseURL = "https://www.reddit.com"
	}
	if cfg.Reddit.UserAgent == "" {
		cfg.Reddit.UserAgent = DefaultUserAgent
	}
	if cfg.Reddit.SearchLimit <= 0 {
		cfg.Reddit.SearchLimit = DefaultSearchLimit
	}
	if cfg.Reddit.TimeFilter == "" {
		cfg.Reddit.TimeFilter = "month"
	}
	if cfg.Reddit.RequestsPerMinute <= 0 {
		cfg.Reddit.RequestsPerMinute = DefaultRequestsPerMin
	}
	if cfg.Feed.BaseURL == "" {
		cfg.Feed.BaseURL = "https://www.reddit.com"
	}
	if cfg.Collector.CronSpec == "" {
		cfg.Collector.CronSpec = DefaultCronSpec
	}
	if cfg.Collector.MaxPostAgeDays <= 0 {
		cfg.Collector.MaxPostAgeDays = DefaultMaxPostAgeDays
	}
	if cfg.Collector.MaxConcurrentTickers <= 0 {
		cfg.Collector.MaxConcurrentTickers = DefaultMaxConcurrent
	}
	if cfg.Dedup.RedisTTL == "" {
		cfg.Dedup.RedisTTL = DefaultDedupRedisTTL
	}
	if cfg.Dedup.MemoryTTL == "" {
		cfg.Dedup.MemoryTTL = DefaultDedupMemoryTTL
	}
	if cfg.Dedup.RedisIndex == "" {
		cfg.Dedup.RedisIndex = DefaultDedupRedisIndex
	}

	return &cfg, nil
}
