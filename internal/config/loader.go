package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if SOMA_CONFIG is set
//  3. env (prefix SOMA_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("SOMA_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: SOMA_ADDR, SOMA_QUEUE_SIZE, ...
	// Map env keys like SOMA_QUEUE_SIZE -> queue_size (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("SOMA_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "soma_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects configurations the wiring cannot run with.
func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.BaselineWindowDays < 1 {
		return fmt.Errorf("%w: baseline_window_days must be positive", ErrInvalidConfig)
	}
	if c.BaselineMinCoverage < 1 || c.BaselineMinCoverage > c.BaselineWindowDays {
		return fmt.Errorf("%w: baseline_min_coverage must be within the window", ErrInvalidConfig)
	}
	if c.MorningSyncFromHour < 0 || c.MorningSyncToHour > 24 || c.MorningSyncFromHour >= c.MorningSyncToHour {
		return fmt.Errorf("%w: morning sync window must be an ordered hour range", ErrInvalidConfig)
	}
	if c.CurveUpGain <= 0 || c.CurveDownGain <= 0 {
		return fmt.Errorf("%w: curve gains must be positive", ErrInvalidConfig)
	}
	return nil
}
