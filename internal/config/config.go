// Package config loads the daemon configuration from a TOML file with
// WEBWATCH_* environment overrides, so deployments can supply the database
// DSN and worker secret through the environment alone.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ochse/webwatch/internal/fetch"
	"github.com/ochse/webwatch/internal/schedule"
)

// Config is the top-level configuration.
type Config struct {
	Listen       string        `mapstructure:"listen"`
	BasePath     string        `mapstructure:"base_path"`
	Database     string        `mapstructure:"database"`
	WorkerSecret string        `mapstructure:"worker_secret"`
	Interval     time.Duration `mapstructure:"interval"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	Concurrency  int           `mapstructure:"concurrency"`
	UserAgent    string        `mapstructure:"user_agent"`

	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	File       string `mapstructure:"file"` // explicit path overrides Dir
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
	JSON       bool   `mapstructure:"json"`
	Level      string `mapstructure:"level"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

// Load reads the config file at path (optional; empty path means environment
// only) and applies defaults and env overrides. Only the interval and fetch
// timeout carry baked defaults; everything else is externally supplied.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("listen", ":8080")
	v.SetDefault("interval", schedule.DefaultInterval)
	v.SetDefault("fetch_timeout", fetch.DefaultTimeout)
	v.SetDefault("concurrency", 4)
	v.SetDefault("metrics.enabled", true)

	v.SetEnvPrefix("WEBWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Unmarshal only sees env values for keys viper already knows about, so
	// bind the ones without defaults explicitly.
	for _, key := range []string{
		"base_path", "database", "worker_secret", "user_agent",
		"log.dir", "log.file", "log.level",
		"telegram.token", "telegram.chat_id",
	} {
		_ = v.BindEnv(key)
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Database) == "" {
		return errors.New("database DSN is required (set database in the config or WEBWATCH_DATABASE)")
	}
	if c.Interval <= 0 {
		return errors.New("interval must be positive")
	}
	if c.FetchTimeout <= 0 {
		return errors.New("fetch_timeout must be positive")
	}
	if c.Concurrency < 1 {
		return errors.New("concurrency must be at least 1")
	}
	if (c.Telegram.Token == "") != (c.Telegram.ChatID == 0) {
		return errors.New("telegram requires both token and chat_id")
	}
	return nil
}
