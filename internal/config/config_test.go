package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		HTTPPort:     8080,
		LogLevel:     "info",
		RegistryPath: "processors.yaml",
		Engine: EngineConfig{
			MaxConcurrency: 4,
			SafetyMargin:   0.9,
		},
		Cache: CacheConfig{Backend: "memory"},
		LLM: LLMConfig{
			Provider:       "anthropic",
			APIKey:         "key",
			Models:         []string{"m1", "m2"},
			ContextWindows: []int{200000, 200000},
			CostWeights:    []float64{1.0, 3.0},
		},
	}
}

func TestValidate(t *testing.T) {
	t.Run("Should accept a complete config", func(t *testing.T) {
		require.NoError(t, validConfig().Validate())
	})

	t.Run("Should reject an out-of-range port", func(t *testing.T) {
		cfg := validConfig()
		cfg.HTTPPort = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("Should reject a safety margin outside (0,1]", func(t *testing.T) {
		cfg := validConfig()
		cfg.Engine.SafetyMargin = 1.2
		assert.Error(t, cfg.Validate())
	})

	t.Run("Should reject an unknown cache backend", func(t *testing.T) {
		cfg := validConfig()
		cfg.Cache.Backend = "disk"
		assert.Error(t, cfg.Validate())
	})

	t.Run("Should require a redis address for the redis backend", func(t *testing.T) {
		cfg := validConfig()
		cfg.Cache.Backend = "redis"
		cfg.Redis.Addr = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("Should require parallel LLM roster slices to line up", func(t *testing.T) {
		cfg := validConfig()
		cfg.LLM.CostWeights = []float64{1.0}
		assert.Error(t, cfg.Validate())
	})

	t.Run("Should reject a missing API key", func(t *testing.T) {
		cfg := validConfig()
		cfg.LLM.APIKey = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("Should reject a non-positive context window", func(t *testing.T) {
		cfg := validConfig()
		cfg.LLM.ContextWindows = []int{200000, 0}
		assert.Error(t, cfg.Validate())
	})

	t.Run("Should reject an unknown log level", func(t *testing.T) {
		cfg := validConfig()
		cfg.LogLevel = "verbose"
		assert.Error(t, cfg.Validate())
	})
}
