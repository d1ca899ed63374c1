// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Source   SourceConfig   `mapstructure:"source"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Throttle ThrottleConfig `mapstructure:"throttle"`
	Images   ImagesConfig   `mapstructure:"images"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls the observability HTTP listener.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// BrowserConfig governs the headless browser session.
type BrowserConfig struct {
	UserAgent            string   `mapstructure:"user_agent"`
	Locale               string   `mapstructure:"locale"`
	Timezone             string   `mapstructure:"timezone"`
	Referer              string   `mapstructure:"referer"`
	StorageStatePath     string   `mapstructure:"storage_state_path"`
	NavTimeoutSec        int      `mapstructure:"nav_timeout_seconds"`
	SettleDelayMs        int      `mapstructure:"settle_delay_ms"`
	ScrollBottomDelaySec int      `mapstructure:"scroll_bottom_delay_seconds"`
	ScrollTopDelaySec    int      `mapstructure:"scroll_top_delay_seconds"`
	LoginURLPatterns     []string `mapstructure:"login_url_patterns"`
}

// SourceConfig names the upstream listing endpoint and the search terms.
type SourceConfig struct {
	APIBase           string   `mapstructure:"api_base"`
	ContaineridPrefix string   `mapstructure:"containerid_prefix"`
	Keywords          []string `mapstructure:"keywords"`
	DetailURLs        []string `mapstructure:"detail_urls"`
	StopwordsPath     string   `mapstructure:"stopwords_path"`
}

// PipelineConfig governs coordinator behavior.
type PipelineConfig struct {
	MaxInFlight    int    `mapstructure:"max_in_flight"`
	DeadLetterPath string `mapstructure:"dead_letter_path"`
}

// ThrottleConfig bounds the adaptive per-host request pacing.
type ThrottleConfig struct {
	MinDelaySec       int     `mapstructure:"min_delay_seconds"`
	StartDelaySec     int     `mapstructure:"start_delay_seconds"`
	MaxDelaySec       int     `mapstructure:"max_delay_seconds"`
	TargetConcurrency float64 `mapstructure:"target_concurrency"`
}

// ImagesConfig toggles downloading of post media to local files.
type ImagesConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// MongoConfig controls access to the document store.
type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVEST")
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
	v.SetDefault("browser.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	v.SetDefault("browser.locale", "zh-CN")
	v.SetDefault("browser.timezone", "Asia/Shanghai")
	v.SetDefault("browser.referer", "https://m.weibo.cn/search")
	v.SetDefault("browser.storage_state_path", "state.json")
	v.SetDefault("browser.nav_timeout_seconds", 30)
	v.SetDefault("browser.settle_delay_ms", 2000)
	v.SetDefault("browser.scroll_bottom_delay_seconds", 3)
	v.SetDefault("browser.scroll_top_delay_seconds", 1)
	v.SetDefault("browser.login_url_patterns", []string{"login.sina.com.cn", "passport.weibo.com"})
	v.SetDefault("source.api_base", "https://m.weibo.cn/api/container/getIndex")
	v.SetDefault("source.containerid_prefix", "100103type=61&q=")
	v.SetDefault("source.keywords", []string{"正能量"})
	v.SetDefault("pipeline.max_in_flight", 8)
	v.SetDefault("pipeline.dead_letter_path", "dead_letters.jsonl")
	v.SetDefault("throttle.min_delay_seconds", 3)
	v.SetDefault("throttle.start_delay_seconds", 5)
	v.SetDefault("throttle.max_delay_seconds", 60)
	v.SetDefault("throttle.target_concurrency", 1.0)
	v.SetDefault("images.enabled", false)
	v.SetDefault("images.dir", "images")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "weibo_data")
	v.SetDefault("mongo.collection", "posts")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Browser.UserAgent == "" {
		return fmt.Errorf("browser.user_agent must be set")
	}
	if c.Browser.NavTimeoutSec <= 0 {
		return fmt.Errorf("browser.nav_timeout_seconds must be > 0")
	}
	if c.Source.APIBase == "" {
		return fmt.Errorf("source.api_base must be set")
	}
	if len(c.Source.Keywords) == 0 && len(c.Source.DetailURLs) == 0 {
		return fmt.Errorf("at least one of source.keywords or source.detail_urls must be set")
	}
	if c.Pipeline.MaxInFlight <= 0 {
		return fmt.Errorf("pipeline.max_in_flight must be > 0")
	}
	if c.Throttle.MaxDelaySec < c.Throttle.MinDelaySec {
		return fmt.Errorf("throttle.max_delay_seconds must be >= throttle.min_delay_seconds")
	}
	if c.Images.Enabled && c.Images.Dir == "" {
		return fmt.Errorf("images.dir must be set when images.enabled is true")
	}
	if c.Mongo.URI == "" {
		return fmt.Errorf("mongo.uri must be set")
	}
	return nil
}

// NavTimeout converts the navigation budget into a duration.
func (c BrowserConfig) NavTimeout() time.Duration {
	return time.Duration(c.NavTimeoutSec) * time.Second
}

// SettleDelay converts the post-navigation settle window into a duration.
func (c BrowserConfig) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMs) * time.Millisecond
}

// ScrollBottomDelay converts the scroll-bottom settle window into a duration.
func (c BrowserConfig) ScrollBottomDelay() time.Duration {
	return time.Duration(c.ScrollBottomDelaySec) * time.Second
}

// ScrollTopDelay converts the scroll-top settle window into a duration.
func (c BrowserConfig) ScrollTopDelay() time.Duration {
	return time.Duration(c.ScrollTopDelaySec) * time.Second
}

// MinDelay converts the throttle floor into a duration.
func (c ThrottleConfig) MinDelay() time.Duration {
	return time.Duration(c.MinDelaySec) * time.Second
}

// StartDelay converts the initial throttle delay into a duration.
func (c ThrottleConfig) StartDelay() time.Duration {
	return time.Duration(c.StartDelaySec) * time.Second
}

// MaxDelay converts the throttle ceiling into a duration.
func (c ThrottleConfig) MaxDelay() time.Duration {
	return time.Duration(c.MaxDelaySec) * time.Second
}
