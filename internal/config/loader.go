package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/trialmatch/pkg/logger"
)

// Environment variable prefix and the variable naming the config file.
const (
	EnvPrefix = "TRIALMATCH_"
	EnvConfig = EnvPrefix + "CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML or TOML by extension) from path, or TRIALMATCH_CONFIG when path is empty
//  3. env (prefix TRIALMATCH_)
func Load(_ context.Context, path string) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		parser, err := parserFor(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// TRIALMATCH_WORKER_COUNT -> worker_count (flat keys).
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	// Lists replace their defaults instead of merging element-wise.
	for key, list := range map[string]any{
		"comparison_thresholds": &cfg.ComparisonThresholds,
		"sweep_thresholds":      &cfg.SweepThresholds,
		"trial_statuses":        &cfg.TrialStatuses,
	} {
		if !k.Exists(key) {
			continue
		}
		switch l := list.(type) {
		case *[]int:
			*l = nil
		case *[]string:
			*l = nil
		}
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".toml":
		return TOML(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		add("log_level: %v", err)
	}
	if c.WorkerCount < 1 {
		add("worker_count must be positive, got %d", c.WorkerCount)
	}
	if c.QueueSize < 1 {
		add("queue_size must be positive, got %d", c.QueueSize)
	}
	if c.TopK < 1 {
		add("top_k must be positive, got %d", c.TopK)
	}
	if c.MinScore < 0 || c.MinScore > 100 {
		add("min_score must be within 0-100, got %d", c.MinScore)
	}
	if err := c.Weights().Validate(); err != nil {
		add("%v", err)
	}
	if err := c.Policy().Validate(); err != nil {
		add("%v", err)
	}
	if c.EvalThreshold < 0 || c.EvalThreshold > 100 {
		add("eval_threshold must be within 0-100, got %d", c.EvalThreshold)
	}
	for name, v := range map[string]int{
		"eval_sample_patients":       c.EvalSamplePatients,
		"eval_negative_samples":      c.EvalNegativeSamples,
		"eval_max_examples":          c.EvalMaxExamples,
		"comparison_sample_patients": c.ComparisonPatients,
		"strict_sample_patients":     c.StrictSamplePatients,
		"strict_top_n":               c.StrictTopN,
		"negative_sample_patients":   c.NegativeSamplePatients,
		"negative_sample_trials":     c.NegativeSampleTrials,
		"sweep_sample_patients":      c.SweepSamplePatients,
		"sweep_top_n":                c.SweepTopN,
		"performance_patients":       c.PerformancePatients,
	} {
		if v < 0 {
			add("%s must not be negative, got %d", name, v)
		}
	}

	return errors.Join(errs...)
}
