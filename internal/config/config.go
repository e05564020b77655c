package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the docforge orchestrator
type Config struct {
	// Server configuration
	HTTPPort int    `env:"DOCFORGE_HTTP_PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Registry document
	RegistryPath string `env:"DOCFORGE_REGISTRY_PATH" envDefault:"processors.yaml"`

	// Engine configuration
	Engine EngineConfig

	// Cache configuration
	Cache CacheConfig

	// Redis configuration (cache backend + event stream)
	Redis RedisConfig

	// LLM configuration
	LLM LLMConfig
}

// EngineConfig holds execution engine tuning knobs
type EngineConfig struct {
	MaxConcurrency int           `env:"DOCFORGE_MAX_CONCURRENCY" envDefault:"4"`
	SlowThreshold  time.Duration `env:"DOCFORGE_SLOW_THRESHOLD" envDefault:"30s"`
	SlowestN       int           `env:"DOCFORGE_SLOWEST_N" envDefault:"5"`
	SafetyMargin   float64       `env:"DOCFORGE_SAFETY_MARGIN" envDefault:"0.9"`
	RunTimeout     time.Duration `env:"DOCFORGE_RUN_TIMEOUT" envDefault:"30m"`
	TokenEncoding  string        `env:"DOCFORGE_TOKEN_ENCODING" envDefault:"cl100k_base"`

	// Retry policy for transient backend failures
	MaxRetries     int           `env:"DOCFORGE_MAX_RETRIES" envDefault:"3"`
	RetryBaseDelay time.Duration `env:"DOCFORGE_RETRY_BASE_DELAY" envDefault:"1s"`
	RetryMaxDelay  time.Duration `env:"DOCFORGE_RETRY_MAX_DELAY" envDefault:"30s"`
	CallTimeout    time.Duration `env:"DOCFORGE_CALL_TIMEOUT" envDefault:"120s"`
}

// CacheConfig selects and sizes the result cache backend
type CacheConfig struct {
	Backend string        `env:"DOCFORGE_CACHE_BACKEND" envDefault:"memory"`
	MaxSize int           `env:"DOCFORGE_CACHE_MAX_SIZE" envDefault:"1024"`
	TTL     time.Duration `env:"DOCFORGE_CACHE_TTL" envDefault:"24h"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Mirror run events onto a Redis stream for external consumers
	Events bool `env:"REDIS_EVENTS" envDefault:"false"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// LLMConfig holds the generation backend roster. The slices are parallel:
// index i of each describes one backend profile, ordered by preference.
type LLMConfig struct {
	Provider string `env:"LLM_PROVIDER" envDefault:"anthropic"`
	APIKey   string `env:"LLM_API_KEY"`

	Models         []string  `env:"LLM_MODELS" envSeparator:"," envDefault:"claude-3-5-haiku-20241022,claude-3-5-sonnet-20241022"`
	ContextWindows []int     `env:"LLM_CONTEXT_WINDOWS" envSeparator:"," envDefault:"200000,200000"`
	CostWeights    []float64 `env:"LLM_COST_WEIGHTS" envSeparator:"," envDefault:"1.0,3.0"`

	DefaultTemperature float64 `env:"LLM_DEFAULT_TEMPERATURE" envDefault:"0.2"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	if c.RegistryPath == "" {
		return fmt.Errorf("registry path is required")
	}

	// Validate engine config
	if c.Engine.MaxConcurrency < 1 {
		return fmt.Errorf("max concurrency must be at least 1")
	}
	if c.Engine.SafetyMargin <= 0 || c.Engine.SafetyMargin > 1 {
		return fmt.Errorf("safety margin must be in (0, 1], got %v", c.Engine.SafetyMargin)
	}
	if c.Engine.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative")
	}

	// Validate cache config
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported cache backend: %s (must be memory or redis)", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required for redis cache backend")
	}

	// Validate LLM config
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key is required")
	}
	if c.LLM.Provider != "anthropic" {
		return fmt.Errorf("unsupported LLM provider: %s (only 'anthropic' is supported)", c.LLM.Provider)
	}
	if len(c.LLM.Models) == 0 {
		return fmt.Errorf("at least one LLM model is required")
	}
	if len(c.LLM.Models) != len(c.LLM.ContextWindows) || len(c.LLM.Models) != len(c.LLM.CostWeights) {
		return fmt.Errorf("LLM models, context windows and cost weights must have the same length")
	}
	for i, w := range c.LLM.ContextWindows {
		if w <= 0 {
			return fmt.Errorf("context window for model %s must be positive", c.LLM.Models[i])
		}
	}
	for i, w := range c.LLM.CostWeights {
		if w < 0 {
			return fmt.Errorf("cost weight for model %s must not be negative", c.LLM.Models[i])
		}
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
