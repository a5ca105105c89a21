// Package config loads the instrumentation settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned by Validate for unusable settings.
var ErrInvalid = errors.New("invalid config")

// Config holds all instrumentation settings.
type Config struct {
	Feedback  FeedbackConfig  `yaml:"feedback"`
	Constants ConstantsConfig `yaml:"constants"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// FeedbackConfig configures the comparison progress map.
type FeedbackConfig struct {
	Slots int `yaml:"slots"` // power of two
}

// ConstantsConfig configures the constant candidate registry.
type ConstantsConfig struct {
	Enabled        bool `yaml:"enabled"`
	Capacity       int  `yaml:"capacity"`
	MinLen         int  `yaml:"min_len"`
	MaxLen         int  `yaml:"max_len"`
	VerifyReadOnly bool `yaml:"verify_read_only"`

	// RefreshInterval limits how often process mappings are re-read.
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Feedback: FeedbackConfig{
			Slots: 1 << 16,
		},
		Constants: ConstantsConfig{
			Enabled:         true,
			Capacity:        1024,
			MinLen:          2,
			MaxLen:          64,
			VerifyReadOnly:  true,
			RefreshInterval: time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the settings can be used.
func (c *Config) Validate() error {
	if n := c.Feedback.Slots; n <= 0 || n&(n-1) != 0 {
		return fmt.Errorf("%w: feedback.slots must be a positive power of two, got %d", ErrInvalid, n)
	}
	if c.Constants.Enabled {
		if c.Constants.Capacity <= 0 {
			return fmt.Errorf("%w: constants.capacity must be positive, got %d", ErrInvalid, c.Constants.Capacity)
		}
		if c.Constants.MinLen <= 0 || c.Constants.MaxLen < c.Constants.MinLen {
			return fmt.Errorf("%w: constants length range [%d, %d]", ErrInvalid, c.Constants.MinLen, c.Constants.MaxLen)
		}
	}
	if _, err := c.Logging.level(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}
