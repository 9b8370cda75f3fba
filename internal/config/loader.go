package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/internal/domain/signal"
	"github.com/okian/cadence/internal/domain/weights"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if CADENCE_CONFIG is set
//  3. env (prefix CADENCE_)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("CADENCE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: CADENCE_WORKER_COUNT -> worker_count.
	// Underscores are preserved to match the koanf struct tags.
	envProvider := env.Provider("CADENCE_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "cadence_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate applies load-time schema checks so a bad configuration never
// reaches scoring.
func (c *Config) Validate() error {
	if c.WorkerCount < 1 {
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	}
	if c.RetentionDays < 1 {
		return fmt.Errorf("%w: retention_days must be positive", ErrInvalidConfig)
	}
	if c.DealSizeCeiling <= 0 {
		return fmt.Errorf("%w: deal_size_ceiling must be positive", ErrInvalidConfig)
	}
	if c.CampaignDeadlineHours < 1 {
		return fmt.Errorf("%w: campaign_deadline_hours must be positive", ErrInvalidConfig)
	}
	if c.ResponseWindowHours < 1 {
		return fmt.Errorf("%w: response_window_hours must be positive", ErrInvalidConfig)
	}
	if len(c.Channels) == 0 {
		return fmt.Errorf("%w: channels must not be empty", ErrInvalidConfig)
	}
	for name := range c.SignalWeights {
		if !signal.Known(model.SignalType(name)) {
			return fmt.Errorf("%w: unknown signal type %q", ErrInvalidConfig, name)
		}
	}
	if c.Industry.Industry == "" {
		return fmt.Errorf("%w: industry_template.industry must be set", ErrInvalidConfig)
	}
	if c.Calibration.MaxDelta <= 0 || c.Calibration.LearningRate <= 0 || c.Calibration.MinSample < 1 {
		return fmt.Errorf("%w: calibration values must be positive", ErrInvalidConfig)
	}

	// The weight set and policy carry their own validation; surface their
	// failures at load rather than at first scoring pass.
	if _, err := c.WeightSet(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// WeightSet builds the initial validated weight set from configuration.
func (c *Config) WeightSet() (weights.WeightSet, error) {
	signals := make(map[model.SignalType]float64, len(c.SignalWeights))
	for name, w := range c.SignalWeights {
		signals[model.SignalType(name)] = w
	}
	return weights.New(c.FinancialWeights, signals, c.DecayFactor, c.SquashGain)
}
