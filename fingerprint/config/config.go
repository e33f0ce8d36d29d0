// Package config holds the detection configuration consumed by the scoring,
// classification and clustering components. Configuration is passed explicitly
// into each component rather than read from global state.
package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// ErrInvalidConfig is returned (wrapped) by Validate for any out-of-range or
// inconsistent setting. Configuration errors are fatal at initialization,
// never mid-batch.
var ErrInvalidConfig = errors.New("config: invalid detection config")

// DetectionConfig configures fingerprint comparison and duplicate clustering
type DetectionConfig struct {
	// Similarity bands, inclusive at the lower bound of each band
	IdenticalThreshold   float64 `env:"IDENTICAL_THRESHOLD, default=0.95" json:"identical_threshold"`
	SameContentThreshold float64 `env:"SAME_CONTENT_THRESHOLD, default=0.80" json:"same_content_threshold"`
	VariantThreshold     float64 `env:"VARIANT_THRESHOLD, default=0.60" json:"variant_threshold"`

	// MinOverlapRatio is the shortest trusted overlap between two fingerprints.
	// Below it an Identical classification is downgraded one band, since a short
	// overlap cannot certify full-file identity.
	MinOverlapRatio       float64 `env:"MIN_OVERLAP_RATIO, default=0.5" json:"min_overlap_ratio"`
	DowngradeShortOverlap bool    `env:"DOWNGRADE_SHORT_OVERLAP, default=true" json:"downgrade_short_overlap"`

	// Duration window for candidate pruning. The effective tolerance for a
	// record is the larger of the absolute tolerance in seconds and
	// duration * RelativeDurationTolerance.
	DurationTolerance         float64 `env:"DURATION_TOLERANCE_SECONDS, default=2.0" json:"duration_tolerance_seconds"`
	RelativeDurationTolerance float64 `env:"RELATIVE_DURATION_TOLERANCE, default=0" json:"relative_duration_tolerance"`

	// MaxWorkers bounds the parallel edge-scoring pool. Zero means one worker
	// per CPU.
	MaxWorkers int `env:"MAX_WORKERS, default=0" json:"max_workers"`
}

// DefaultDetectionConfig returns the default detection configuration
func DefaultDetectionConfig() *DetectionConfig {
	return &DetectionConfig{
		IdenticalThreshold:        0.95,
		SameContentThreshold:      0.80,
		VariantThreshold:          0.60,
		MinOverlapRatio:           0.5,
		DowngradeShortOverlap:     true,
		DurationTolerance:         2.0,
		RelativeDurationTolerance: 0,
		MaxWorkers:                0,
	}
}

// LoadDetectionConfig reads overrides from the environment and validates the
// result. It fails fast on any invalid setting.
func LoadDetectionConfig(ctx context.Context) (*DetectionConfig, error) {
	cfg := &DetectionConfig{}

	if err := envconfig.Process(ctx, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that thresholds lie in [0,1] and descend across bands, and
// that tolerances are non-negative.
func (c *DetectionConfig) Validate() error {
	thresholds := map[string]float64{
		"identical_threshold":    c.IdenticalThreshold,
		"same_content_threshold": c.SameContentThreshold,
		"variant_threshold":      c.VariantThreshold,
		"min_overlap_ratio":      c.MinOverlapRatio,
	}
	for name, v := range thresholds {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s must be between 0 and 1, got %f", ErrInvalidConfig, name, v)
		}
	}

	if c.IdenticalThreshold < c.SameContentThreshold {
		return fmt.Errorf("%w: identical_threshold (%f) must be >= same_content_threshold (%f)",
			ErrInvalidConfig, c.IdenticalThreshold, c.SameContentThreshold)
	}
	if c.SameContentThreshold < c.VariantThreshold {
		return fmt.Errorf("%w: same_content_threshold (%f) must be >= variant_threshold (%f)",
			ErrInvalidConfig, c.SameContentThreshold, c.VariantThreshold)
	}

	if c.DurationTolerance < 0 {
		return fmt.Errorf("%w: duration_tolerance_seconds must be non-negative, got %f",
			ErrInvalidConfig, c.DurationTolerance)
	}
	if c.RelativeDurationTolerance < 0 {
		return fmt.Errorf("%w: relative_duration_tolerance must be non-negative, got %f",
			ErrInvalidConfig, c.RelativeDurationTolerance)
	}
	if c.MaxWorkers < 0 {
		return fmt.Errorf("%w: max_workers must be non-negative, got %d",
			ErrInvalidConfig, c.MaxWorkers)
	}

	return nil
}

// EffectiveTolerance returns the duration window applied to a record of the
// given duration in seconds.
func (c *DetectionConfig) EffectiveTolerance(duration float64) float64 {
	tolerance := c.DurationTolerance
	if relative := duration * c.RelativeDurationTolerance; relative > tolerance {
		tolerance = relative
	}
	return tolerance
}
