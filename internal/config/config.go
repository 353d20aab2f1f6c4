package config

import (
	"fmt"
	"os"
	"strconv"

	"tiva/domain/core"
	"tiva/internal"
	"tiva/internal/activity"
	"tiva/internal/errors"
)

// Config represents the runtime configuration of the analysis tools
type Config struct {
	Sampler SamplerConfig
	Output  OutputConfig
	Log     LogConfig
}

// SamplerConfig holds concurrency sampling settings
type SamplerConfig struct {
	Resolution   core.Resolution
	Workers      int
	Parallelism  int
	IncludeLeft  bool
	IncludeRight bool
	TrailingSpan activity.TrailingSpanPolicy
	Confidence   float64
	Alpha        float64
}

// OutputConfig holds output paths
type OutputConfig struct {
	Dir         string
	MetricsFile string
}

// LogConfig holds logging settings
type LogConfig struct {
	Level internal.LogLevel
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	samplerConfig, err := loadSamplerConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load sampler configuration")
	}
	config.Sampler = *samplerConfig

	config.Output = OutputConfig{
		Dir:         getEnvOrDefault("TIVA_OUTPUT_DIR", "."),
		MetricsFile: getEnvOrDefault("TIVA_METRICS_FILE", ""),
	}
	config.Log = LogConfig{
		Level: internal.ParseLogLevel(getEnvOrDefault("LOG_LEVEL", "info")),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// Bounds returns the interval bounds selected by the sampler settings.
func (c SamplerConfig) Bounds() activity.Bounds {
	return activity.Bounds{IncludeLeft: c.IncludeLeft, IncludeRight: c.IncludeRight}
}

// NewRunner builds a runner from the sampler settings.
func (c SamplerConfig) NewRunner(opts ...activity.SamplerOption) *activity.Runner {
	s := activity.NewSampler(activity.SamplerConfig{
		Step:    c.Resolution,
		Bounds:  c.Bounds(),
		Workers: c.Workers,
	}, opts...)
	return activity.NewRunner(s, c.TrailingSpan)
}

func loadSamplerConfig() (*SamplerConfig, error) {
	resolution, err := core.ParseResolution(getEnvOrDefault("TIVA_RESOLUTION", "1min"))
	if err != nil {
		return nil, errors.ConfigInvalid(fmt.Sprintf("TIVA_RESOLUTION: %v", err))
	}
	policy, err := activity.ParseTrailingSpanPolicy(os.Getenv("TIVA_TRAILING_SPAN"))
	if err != nil {
		return nil, errors.ConfigInvalid(fmt.Sprintf("TIVA_TRAILING_SPAN: %v", err))
	}
	workers, err := getEnvIntStrict("TIVA_WORKERS", activity.DefaultWorkers())
	if err != nil {
		return nil, err
	}
	parallelism, err := getEnvIntStrict("TIVA_PARALLELISM", 1)
	if err != nil {
		return nil, err
	}

	return &SamplerConfig{
		Resolution:   resolution,
		Workers:      workers,
		Parallelism:  parallelism,
		IncludeLeft:  getEnvBoolOrDefault("TIVA_INCLUDE_LEFT", true),
		IncludeRight: getEnvBoolOrDefault("TIVA_INCLUDE_RIGHT", false),
		TrailingSpan: policy,
		Confidence:   getEnvFloatOrDefault("TIVA_CONFIDENCE", 0.95),
		Alpha:        getEnvFloatOrDefault("TIVA_ALPHA", 0.05),
	}, nil
}

func validateConfig(config *Config) error {
	if config.Sampler.Workers < 1 {
		return errors.ConfigInvalid("TIVA_WORKERS must be at least 1")
	}
	if config.Sampler.Parallelism < 1 {
		return errors.ConfigInvalid("TIVA_PARALLELISM must be at least 1")
	}
	if c := config.Sampler.Confidence; c <= 0 || c >= 1 {
		return errors.ConfigInvalid("TIVA_CONFIDENCE must be in (0, 1)")
	}
	if a := config.Sampler.Alpha; a <= 0 || a >= 1 {
		return errors.ConfigInvalid("TIVA_ALPHA must be in (0, 1)")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntStrict(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s: %q is not an integer", key, value))
	}
	return intValue, nil
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
