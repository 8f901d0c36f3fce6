// Package config loads the YAML file configuration: infrastructure knobs only.
// Billing knobs live in DB settings so they can change without a restart; the
// billing section here is just their startup baseline.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rockyway/rephlo-sites-sub016/internal/billing"
)

// Config is the root file configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Billing  BillingConfig  `yaml:"billing"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Listen string `yaml:"listen"` // host:port to bind.
}

// DatabaseConfig configures the relational store.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"` // PostgreSQL DSN or SQLite path.
}

// RedisConfig configures the optional rate-lookup cache.
type RedisConfig struct {
	Addr       string `yaml:"addr"`        // Redis address; empty disables caching.
	Password   string `yaml:"password"`    // Redis password.
	DB         int    `yaml:"db"`          // Redis database index.
	TTLSeconds int    `yaml:"ttl-seconds"` // Cache entry TTL.
}

// LoggingConfig configures logrus output and rotation.
type LoggingConfig struct {
	Level      string `yaml:"level"`       // logrus level name.
	File       string `yaml:"file"`        // Log file path; empty logs to stderr.
	MaxSizeMB  int    `yaml:"max-size"`    // Rotate after this many megabytes.
	MaxBackups int    `yaml:"max-backups"` // Rotated files to retain.
	MaxAgeDays int    `yaml:"max-age"`     // Days to retain rotated files.
}

// BillingConfig is the startup baseline for the billing engine defaults.
type BillingConfig struct {
	DefaultMultiplier  float64 `yaml:"default-multiplier"`   // Fallback margin multiplier.
	CreditCentValue    float64 `yaml:"credit-cent-value"`    // USD cents per credit.
	ConversionMode     string  `yaml:"conversion-mode"`      // "separate" or "legacy".
	ProrationGraceDays int     `yaml:"proration-grace-days"` // Grace window for change dates.
}

// Load reads and validates the configuration file.
func Load(path string) (*Config, error) {
	data, errRead := os.ReadFile(path)
	if errRead != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, errRead)
	}

	cfg := defaults()
	if errUnmarshal := yaml.Unmarshal(data, cfg); errUnmarshal != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
	}
	if errValidate := cfg.Validate(); errValidate != nil {
		return nil, errValidate
	}
	return cfg, nil
}

// defaults returns the configuration baseline before file overrides.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{Listen: ":8318"},
		Redis:  RedisConfig{TTLSeconds: 30},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Billing: BillingConfig{
			DefaultMultiplier:  1.0,
			CreditCentValue:    1.0,
			ConversionMode:     "separate",
			ProrationGraceDays: 3,
		},
	}
}

// Validate rejects configurations the process cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("config: database.dsn is required")
	}
	if c.Billing.DefaultMultiplier <= 0 {
		return fmt.Errorf("config: billing.default-multiplier must be > 0")
	}
	if c.Billing.CreditCentValue <= 0 {
		return fmt.Errorf("config: billing.credit-cent-value must be > 0")
	}
	mode := billing.ConversionMode(c.Billing.ConversionMode)
	if !mode.Valid() {
		return fmt.Errorf("config: unknown billing.conversion-mode %q", c.Billing.ConversionMode)
	}
	if c.Billing.ProrationGraceDays < 0 {
		return fmt.Errorf("config: billing.proration-grace-days must be >= 0")
	}
	return nil
}

// EngineConfig converts the billing section into engine defaults.
func (c *Config) EngineConfig() billing.Config {
	return billing.Config{
		DefaultMultiplier: c.Billing.DefaultMultiplier,
		CreditCentValue:   c.Billing.CreditCentValue,
		DefaultMode:       billing.ConversionMode(c.Billing.ConversionMode),
		ProrationGrace:    time.Duration(c.Billing.ProrationGraceDays) * 24 * time.Hour,
	}
}
