// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	DB      DBConfig      `mapstructure:"db"`
	Scraper ScraperConfig `mapstructure:"scraper"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Summary SummaryConfig `mapstructure:"summary"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port            int `mapstructure:"port"`
	ShutdownTimeout int `mapstructure:"shutdown_timeout_seconds"`
}

// DBConfig controls access to Postgres.
type DBConfig struct {
	DSN             string `mapstructure:"dsn"`
	MaxConns        int    `mapstructure:"max_conns"`
	MinConns        int    `mapstructure:"min_conns"`
	MaxConnLifetime int    `mapstructure:"max_conn_lifetime_seconds"`
}

// ScraperConfig governs the headless browser and crawl bounds.
type ScraperConfig struct {
	Headless          bool   `mapstructure:"headless"`
	UserAgent         string `mapstructure:"user_agent"`
	BaseURL           string `mapstructure:"base_url"`
	PostLimit         int    `mapstructure:"post_limit"`
	CommentLimit      int    `mapstructure:"comment_limit"`
	RetryAttempts     int    `mapstructure:"retry_attempts"`
	RetryDelaySec     int    `mapstructure:"retry_delay_seconds"`
	PageLoadTimeout   int    `mapstructure:"page_load_timeout_seconds"`
	NavigationTimeout int    `mapstructure:"navigation_timeout_seconds"`
}

// RetryDelay returns the inter-attempt delay as a duration.
func (c ScraperConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySec) * time.Second
}

// CacheConfig controls the optional Redis read cache.
type CacheConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TTLSec   int    `mapstructure:"ttl_seconds"`
}

// TTL returns the cache expiry as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
}

// ArchiveConfig selects the snapshot sink. An empty backend disables
// archiving.
type ArchiveConfig struct {
	Backend string `mapstructure:"backend"`
	BaseDir string `mapstructure:"base_dir"`
	Bucket  string `mapstructure:"bucket"`
}

// SummaryConfig controls AI summary generation. An empty APIKey
// disables the feature.
type SummaryConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	MaxTokens  int64  `mapstructure:"max_tokens"`
	TimeoutSec int    `mapstructure:"timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PAGEINSIGHTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("db.max_conns", 10)
	v.SetDefault("db.min_conns", 2)
	v.SetDefault("db.max_conn_lifetime_seconds", 1800)
	v.SetDefault("scraper.headless", true)
	v.SetDefault("scraper.base_url", "https://www.linkedin.com")
	v.SetDefault("scraper.post_limit", 20)
	v.SetDefault("scraper.comment_limit", 10)
	v.SetDefault("scraper.retry_attempts", 3)
	v.SetDefault("scraper.retry_delay_seconds", 2)
	v.SetDefault("scraper.page_load_timeout_seconds", 10)
	v.SetDefault("scraper.navigation_timeout_seconds", 30)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.ttl_seconds", 300)
	v.SetDefault("summary.model", "claude-sonnet-4-20250514")
	v.SetDefault("summary.max_tokens", 1024)
	v.SetDefault("summary.timeout_seconds", 30)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Scraper.PostLimit <= 0 {
		return fmt.Errorf("scraper.post_limit must be > 0")
	}
	if c.Scraper.CommentLimit <= 0 {
		return fmt.Errorf("scraper.comment_limit must be > 0")
	}
	if c.Scraper.RetryAttempts <= 0 {
		return fmt.Errorf("scraper.retry_attempts must be > 0")
	}
	if c.Cache.Enabled && c.Cache.Addr == "" {
		return fmt.Errorf("cache.addr must be set when cache is enabled")
	}
	switch c.Archive.Backend {
	case "", "local", "gcs":
	default:
		return fmt.Errorf("archive.backend must be one of \"\", \"local\", \"gcs\"")
	}
	if c.Archive.Backend == "local" && c.Archive.BaseDir == "" {
		return fmt.Errorf("archive.base_dir must be set for the local backend")
	}
	if c.Archive.Backend == "gcs" && c.Archive.Bucket == "" {
		return fmt.Errorf("archive.bucket must be set for the gcs backend")
	}
	return nil
}
