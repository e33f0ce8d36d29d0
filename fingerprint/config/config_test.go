package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDetectionConfig(t *testing.T) {
	cfg := DefaultDetectionConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0.95, cfg.IdenticalThreshold)
	assert.Equal(t, 0.80, cfg.SameContentThreshold)
	assert.Equal(t, 0.60, cfg.VariantThreshold)
	assert.Equal(t, 2.0, cfg.DurationTolerance)
	assert.True(t, cfg.DowngradeShortOverlap)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*DetectionConfig)
	}{
		{"threshold above one", func(c *DetectionConfig) { c.IdenticalThreshold = 1.5 }},
		{"negative threshold", func(c *DetectionConfig) { c.VariantThreshold = -0.1 }},
		{"bands out of order", func(c *DetectionConfig) { c.SameContentThreshold = 0.99 }},
		{"variant above same content", func(c *DetectionConfig) { c.VariantThreshold = 0.85 }},
		{"negative duration tolerance", func(c *DetectionConfig) { c.DurationTolerance = -1 }},
		{"negative relative tolerance", func(c *DetectionConfig) { c.RelativeDurationTolerance = -0.5 }},
		{"negative worker count", func(c *DetectionConfig) { c.MaxWorkers = -2 }},
		{"overlap ratio above one", func(c *DetectionConfig) { c.MinOverlapRatio = 1.1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultDetectionConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestEffectiveTolerance(t *testing.T) {
	t.Run("absolute tolerance only", func(t *testing.T) {
		cfg := DefaultDetectionConfig()
		assert.Equal(t, 2.0, cfg.EffectiveTolerance(10))
		assert.Equal(t, 2.0, cfg.EffectiveTolerance(3600))
	})

	t.Run("relative tolerance wins on long audio", func(t *testing.T) {
		cfg := DefaultDetectionConfig()
		cfg.RelativeDurationTolerance = 0.01

		assert.Equal(t, 2.0, cfg.EffectiveTolerance(10), "absolute floor for short audio")
		assert.InDelta(t, 36.0, cfg.EffectiveTolerance(3600), 1e-12)
	})
}

func TestLoadDetectionConfig(t *testing.T) {
	t.Run("defaults from empty environment", func(t *testing.T) {
		cfg, err := LoadDetectionConfig(context.Background())
		require.NoError(t, err)
		assert.Equal(t, DefaultDetectionConfig(), cfg)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("IDENTICAL_THRESHOLD", "0.98")
		t.Setenv("DURATION_TOLERANCE_SECONDS", "5.0")
		t.Setenv("MAX_WORKERS", "4")

		cfg, err := LoadDetectionConfig(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0.98, cfg.IdenticalThreshold)
		assert.Equal(t, 5.0, cfg.DurationTolerance)
		assert.Equal(t, 4, cfg.MaxWorkers)
	})

	t.Run("invalid override fails fast", func(t *testing.T) {
		t.Setenv("IDENTICAL_THRESHOLD", "0.5")

		_, err := LoadDetectionConfig(context.Background())
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("unparseable override fails fast", func(t *testing.T) {
		t.Setenv("MAX_WORKERS", "many")

		_, err := LoadDetectionConfig(context.Background())
		assert.Error(t, err)
	})
}
