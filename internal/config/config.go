// Package config provides Viper-based configuration management for moltwatch
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/gauthierbraillon/moltwatch/internal/trends"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "MOLTWATCH"

// Config represents the complete moltwatch configuration
type Config struct {
	Agent   string        `mapstructure:"agent" yaml:"agent"`
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Collect CollectConfig `mapstructure:"collect" yaml:"collect"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Report  ReportConfig  `mapstructure:"report" yaml:"report"`
	Trends  TrendsConfig  `mapstructure:"trends" yaml:"trends"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`
}

// APIConfig contains Moltbook API settings
type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url" yaml:"base_url"`
	Key       string        `mapstructure:"key" yaml:"key"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	UserAgent string        `mapstructure:"user_agent" yaml:"user_agent"`
}

// CollectConfig contains daily collection settings
type CollectConfig struct {
	Channels     []string `mapstructure:"channels" yaml:"channels"`
	GlobalLimit  int      `mapstructure:"global_limit" yaml:"global_limit"`
	ChannelLimit int      `mapstructure:"channel_limit" yaml:"channel_limit"`
	TopTrending  int      `mapstructure:"top_trending" yaml:"top_trending"`
	TopAuthors   int      `mapstructure:"top_authors" yaml:"top_authors"`
}

// StorageConfig contains snapshot and report locations
type StorageConfig struct {
	DataDir   string `mapstructure:"data_dir" yaml:"data_dir"`
	ReportDir string `mapstructure:"report_dir" yaml:"report_dir"`
}

// ReportConfig contains weekly report settings
type ReportConfig struct {
	WindowDays      int `mapstructure:"window_days" yaml:"window_days"`
	TopTrending     int `mapstructure:"top_trending" yaml:"top_trending"`
	TopContributors int `mapstructure:"top_contributors" yaml:"top_contributors"`
	TopTerms        int `mapstructure:"top_terms" yaml:"top_terms"`
}

// TrendsConfig contains title tokenization settings
type TrendsConfig struct {
	StopWords []string `mapstructure:"stop_words" yaml:"stop_words"`
	MinLength int      `mapstructure:"min_length" yaml:"min_length"`
	TopTerms  int      `mapstructure:"top_terms" yaml:"top_terms"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// OutputConfig contains output formatting settings
type OutputConfig struct {
	Colors bool `mapstructure:"colors" yaml:"colors"`
}

// Error reports a missing or invalid setting.
type Error struct {
	Key string
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %s", e.Key, e.Msg)
}

// Load reads configuration from a .env file, the config file and environment
// variables, in increasing order of precedence.
func Load(cfgFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".moltwatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/moltwatch")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("api.key", EnvPrefix+"_API_KEY", "MOLTBOOK_API_KEY"); err != nil {
		return nil, fmt.Errorf("binding env: %w", err)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults configures default values
func setDefaults(v *viper.Viper) {
	v.SetDefault("agent", "moltwatch")

	v.SetDefault("api.base_url", "https://www.moltbook.com")
	v.SetDefault("api.key", "")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.user_agent", "moltwatch/1.0")

	v.SetDefault("collect.channels", []string{"memory", "openclaw-explorers", "builds"})
	v.SetDefault("collect.global_limit", 50)
	v.SetDefault("collect.channel_limit", 20)
	v.SetDefault("collect.top_trending", 5)
	v.SetDefault("collect.top_authors", 10)

	v.SetDefault("storage.data_dir", "moltbook-daily")
	v.SetDefault("storage.report_dir", "moltbook-weekly")

	v.SetDefault("report.window_days", 7)
	v.SetDefault("report.top_trending", 10)
	v.SetDefault("report.top_contributors", 10)
	v.SetDefault("report.top_terms", 15)

	v.SetDefault("trends.stop_words", trends.DefaultStopWords)
	v.SetDefault("trends.min_length", trends.DefaultMinLength)
	v.SetDefault("trends.top_terms", trends.DefaultTop)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("output.colors", true)
}

// validate checks the configuration for errors
func validate(cfg *Config) error {
	if len(cfg.Collect.Channels) == 0 {
		return &Error{Key: "collect.channels", Msg: "at least one channel is required"}
	}
	for _, ch := range cfg.Collect.Channels {
		if strings.TrimSpace(ch) == "" {
			return &Error{Key: "collect.channels", Msg: "channel names must not be empty"}
		}
	}

	positive := []struct {
		key string
		val int
	}{
		{"collect.global_limit", cfg.Collect.GlobalLimit},
		{"collect.channel_limit", cfg.Collect.ChannelLimit},
		{"collect.top_trending", cfg.Collect.TopTrending},
		{"collect.top_authors", cfg.Collect.TopAuthors},
		{"report.window_days", cfg.Report.WindowDays},
		{"report.top_trending", cfg.Report.TopTrending},
		{"report.top_contributors", cfg.Report.TopContributors},
		{"report.top_terms", cfg.Report.TopTerms},
		{"trends.min_length", cfg.Trends.MinLength},
		{"trends.top_terms", cfg.Trends.TopTerms},
	}
	for _, p := range positive {
		if p.val <= 0 {
			return &Error{Key: p.key, Msg: fmt.Sprintf("must be positive, got %d", p.val)}
		}
	}

	if cfg.API.Timeout <= 0 {
		return &Error{Key: "api.timeout", Msg: "must be positive"}
	}
	if cfg.Storage.DataDir == "" {
		return &Error{Key: "storage.data_dir", Msg: "must not be empty"}
	}
	if cfg.Storage.ReportDir == "" {
		return &Error{Key: "storage.report_dir", Msg: "must not be empty"}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return &Error{Key: "logging.level", Msg: fmt.Sprintf("invalid level %q (must be debug, info, warn, or error)", cfg.Logging.Level)}
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[cfg.Logging.Format] {
		return &Error{Key: "logging.format", Msg: fmt.Sprintf("invalid format %q (must be text or json)", cfg.Logging.Format)}
	}

	return nil
}

// RequireAPIKey fails when no API key was configured. Only commands that talk
// to the network call it.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.API.Key) == "" {
		return &Error{Key: "api.key", Msg: "not set (export " + EnvPrefix + "_API_KEY or MOLTBOOK_API_KEY)"}
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	out := *c
	if out.API.Key != "" {
		out.API.Key = "****"
	}
	return out
}
