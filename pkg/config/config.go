// Package config reads service settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Host     string
	Port     string
	LogLevel string

	CacheDBPath string
	CacheTTL    time.Duration
	StateDBPath string

	OpenAI OpenAIConfig

	AmazonTag        string
	FlipkartID       string
	AggregatorPrefix string

	VerifyOffers      bool
	VerifyConcurrency int

	ShutdownTimeout time.Duration
}

type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	VisionModel string
}

func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

var defaults = map[string]any{
	"port":                "9090",
	"host":                "",
	"log_level":           "info",
	"cache_db_path":       "./cache.db",
	"cache_ttl_minutes":   1440,
	"state_db_path":       "./state.db",
	"openai_api_key":      "",
	"openai_base_url":     "",
	"openai_model":        "",
	"openai_vision_model": "",
	"amazon_tag":          "shopsmart-21",
	"flipkart_id":         "shopsmart_aff",
	"aggregator_prefix":   "",
	"verify_offers":       false,
	"verify_concurrency":  3,
	"shutdown_timeout":    "10s",
}

// Load reads every setting from its upper-case environment variable, e.g.
// CACHE_TTL_MINUTES, falling back to defaults.
func Load() (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	ttl := v.GetInt("cache_ttl_minutes")
	if ttl <= 0 {
		ttl = defaults["cache_ttl_minutes"].(int)
	}

	cfg := &Config{
		Host:        v.GetString("host"),
		Port:        v.GetString("port"),
		LogLevel:    strings.ToLower(v.GetString("log_level")),
		CacheDBPath: v.GetString("cache_db_path"),
		CacheTTL:    time.Duration(ttl) * time.Minute,
		StateDBPath: v.GetString("state_db_path"),
		OpenAI: OpenAIConfig{
			APIKey:      v.GetString("openai_api_key"),
			BaseURL:     v.GetString("openai_base_url"),
			Model:       v.GetString("openai_model"),
			VisionModel: v.GetString("openai_vision_model"),
		},
		AmazonTag:         v.GetString("amazon_tag"),
		FlipkartID:        v.GetString("flipkart_id"),
		AggregatorPrefix:  v.GetString("aggregator_prefix"),
		VerifyOffers:      v.GetBool("verify_offers"),
		VerifyConcurrency: v.GetInt("verify_concurrency"),
		ShutdownTimeout:   v.GetDuration("shutdown_timeout"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.VerifyConcurrency <= 0 {
		return fmt.Errorf("VERIFY_CONCURRENCY must be positive, got %d", c.VerifyConcurrency)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %s", c.ShutdownTimeout)
	}
	return nil
}
