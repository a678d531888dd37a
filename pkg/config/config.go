package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var ErrMissingTarget = errors.New("GROUP_NAME is required")

// Config holds the application configuration.
type Config struct {
	LogLevel string `mapstructure:"LOG_LEVEL"`

	GroupName string `mapstructure:"GROUP_NAME"`
	IsGroup   bool   `mapstructure:"IS_GROUP"`
	Layout    string `mapstructure:"LAYOUT"`
	BaseURL   string `mapstructure:"BASE_URL"`
	Username  string `mapstructure:"USERNAME"`
	Password  string `mapstructure:"PASS"`

	PostsCount      int    `mapstructure:"POSTS_COUNT"`
	Timeout         int    `mapstructure:"TIMEOUT"`      // seconds
	HardTimeout     int    `mapstructure:"HARD_TIMEOUT"` // seconds, 0 = 10x TIMEOUT
	BackoffCooldown int    `mapstructure:"BACKOFF_COOLDOWN"`
	MaxBackoffs     int    `mapstructure:"MAX_BACKOFFS"`
	EnrichPause     int    `mapstructure:"ENRICH_PAUSE"`
	Headless        bool   `mapstructure:"HEADLESS"`
	Proxy           string `mapstructure:"PROXY"`

	MaxConcurrency int    `mapstructure:"MAX_CONCURRENCY"`
	ServerURL      string `mapstructure:"SERVER_URL"`
	DataDir        string `mapstructure:"DATA_DIR"`

	PostgresURL   string `mapstructure:"POSTGRES_URL"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	KafkaBrokers  string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic    string `mapstructure:"KAFKA_TOPIC"`

	ServerPort   string `mapstructure:"SERVER_PORT"`
	MetricsAddr  string `mapstructure:"METRICS_ADDR"`
	PollInterval int    `mapstructure:"POLL_INTERVAL"`
}

var defaults = map[string]any{
	"LOG_LEVEL":        "info",
	"GROUP_NAME":       "",
	"IS_GROUP":         true,
	"LAYOUT":           "auto",
	"BASE_URL":         "https://www.facebook.com",
	"USERNAME":         "",
	"PASS":             "",
	"POSTS_COUNT":      10,
	"TIMEOUT":          30,
	"HARD_TIMEOUT":     0,
	"BACKOFF_COOLDOWN": 60,
	"MAX_BACKOFFS":     0,
	"ENRICH_PAUSE":     3,
	"HEADLESS":         true,
	"PROXY":            "",
	"MAX_CONCURRENCY":  10,
	"SERVER_URL":       "",
	"DATA_DIR":         "data",
	"POSTGRES_URL":     "",
	"REDIS_ADDR":       "",
	"REDIS_PASSWORD":   "",
	"REDIS_DB":         0,
	"KAFKA_BROKERS":    "",
	"KAFKA_TOPIC":      "harvested-posts",
	"SERVER_PORT":      "8080",
	"METRICS_ADDR":     "",
	"POLL_INTERVAL":    5,
}

// flagKeys maps command-line flag names onto configuration keys.
var flagKeys = map[string]string{
	"timeout":      "TIMEOUT",
	"count":        "POSTS_COUNT",
	"headless":     "HEADLESS",
	"group":        "GROUP_NAME",
	"metrics-addr": "METRICS_ADDR",
	"concurrency":  "MAX_CONCURRENCY",
}

// Load reads configuration from an optional .env file, the environment and,
// when given, command-line flags that were explicitly set.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// A missing .env is fine; production configures purely through the environment.
	_ = v.ReadInConfig()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the fields a harvest cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.GroupName) == "" {
		return ErrMissingTarget
	}
	if c.PostsCount <= 0 {
		return fmt.Errorf("POSTS_COUNT must be positive, got %d", c.PostsCount)
	}
	return nil
}

func (c *Config) RecordsPath() string {
	return filepath.Join(c.DataDir, "posts.csv")
}

func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// HardTimeoutDuration caps a whole harvest session.
func (c *Config) HardTimeoutDuration() time.Duration {
	if c.HardTimeout <= 0 {
		return 10 * c.TimeoutDuration()
	}
	return time.Duration(c.HardTimeout) * time.Second
}

func (c *Config) BackoffCooldownDuration() time.Duration {
	return time.Duration(c.BackoffCooldown) * time.Second
}

func (c *Config) EnrichPauseDuration() time.Duration {
	return time.Duration(c.EnrichPause) * time.Second
}

// PollIntervalDuration is how often serve polls the request queue; at least a second.
func (c *Config) PollIntervalDuration() time.Duration {
	if c.PollInterval <= 0 {
		return time.Second
	}
	return time.Duration(c.PollInterval) * time.Second
}

// Proxies returns the configured proxy list.
func (c *Config) Proxies() []string {
	return splitList(c.Proxy)
}

func (c *Config) KafkaBrokerList() []string {
	return splitList(c.KafkaBrokers)
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
