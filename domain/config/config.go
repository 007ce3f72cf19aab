// Package config provides domain models for freshness configuration.
package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config represents the complete freshness subsystem configuration.
type Config struct {
	// Name is a human-readable name for this configuration.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Cache contains query cache and staleness settings.
	Cache CacheConfig `json:"cache,omitempty" yaml:"cache,omitempty"`
	// Retry contains retry session settings.
	Retry RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty"`
	// Refresh contains background refresher settings.
	Refresh RefreshConfig `json:"refresh,omitempty" yaml:"refresh,omitempty"`
	// Connectivity contains reachability probe settings.
	Connectivity ConnectivityConfig `json:"connectivity,omitempty" yaml:"connectivity,omitempty"`
	// Logging contains logger settings.
	Logging LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`
}

// CacheConfig contains query cache settings.
type CacheConfig struct {
	// MaxAge is the absolute validity window for fetched values.
	MaxAge Duration `json:"max_age,omitempty" yaml:"max_age,omitempty"`
	// MirrorDir is the directory for the durable mirror. Empty disables
	// the mirror.
	MirrorDir string `json:"mirror_dir,omitempty" yaml:"mirror_dir,omitempty"`
	// MirrorInMemory keeps the durable mirror in memory.
	MirrorInMemory bool `json:"mirror_in_memory,omitempty" yaml:"mirror_in_memory,omitempty"`
}

// RetryConfig contains retry session settings.
type RetryConfig struct {
	// MaxRetries is the per-session retry budget.
	MaxRetries int `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
}

// RefreshConfig contains background refresher settings.
type RefreshConfig struct {
	// Interval is the sweep interval.
	Interval Duration `json:"interval,omitempty" yaml:"interval,omitempty"`
	// MaxAttempts is the fetch retry budget per key per sweep.
	MaxAttempts int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	// InitialDelay is the initial delay between fetch retries.
	InitialDelay Duration `json:"initial_delay,omitempty" yaml:"initial_delay,omitempty"`
	// BackoffMultiplier is the exponential backoff multiplier.
	BackoffMultiplier float64 `json:"backoff_multiplier,omitempty" yaml:"backoff_multiplier,omitempty"`
}

// ConnectivityConfig contains reachability probe settings.
type ConnectivityConfig struct {
	// ProbeURL is probed with a HEAD request to detect reachability.
	// Empty disables active probing.
	ProbeURL string `json:"probe_url,omitempty" yaml:"probe_url,omitempty"`
	// ProbeInterval is the probe interval.
	ProbeInterval Duration `json:"probe_interval,omitempty" yaml:"probe_interval,omitempty"`
	// ProbeTimeout is the per-probe timeout.
	ProbeTimeout Duration `json:"probe_timeout,omitempty" yaml:"probe_timeout,omitempty"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
	// Format is the output format (json or console).
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// Default returns a configuration with sensible defaults.
func Default() Config {
	return Config{
		Cache: CacheConfig{
			MaxAge: Duration(15 * time.Minute),
		},
		Retry: RetryConfig{
			MaxRetries: 3,
		},
		Refresh: RefreshConfig{
			Interval:          Duration(time.Minute),
			MaxAttempts:       3,
			InitialDelay:      Duration(100 * time.Millisecond),
			BackoffMultiplier: 2.0,
		},
		Connectivity: ConnectivityConfig{
			ProbeInterval: Duration(30 * time.Second),
			ProbeTimeout:  Duration(5 * time.Second),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Cache.MaxAge < 0 {
		return fmt.Errorf("%w: cache.max_age must not be negative", ErrValidationFailed)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("%w: retry.max_retries must not be negative", ErrValidationFailed)
	}
	if c.Refresh.Interval < 0 {
		return fmt.Errorf("%w: refresh.interval must not be negative", ErrValidationFailed)
	}
	if c.Refresh.MaxAttempts < 0 {
		return fmt.Errorf("%w: refresh.max_attempts must not be negative", ErrValidationFailed)
	}
	if c.Refresh.BackoffMultiplier < 0 {
		return fmt.Errorf("%w: refresh.backoff_multiplier must not be negative", ErrValidationFailed)
	}
	switch c.Logging.Level {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown logging.level %q", ErrValidationFailed, c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("%w: unknown logging.format %q", ErrValidationFailed, c.Logging.Format)
	}
	return nil
}

// Duration is a time.Duration that supports YAML string representation
// ("15m", "30s").
type Duration time.Duration

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%w: invalid duration %q", ErrInvalidFormat, s)
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%w: invalid duration %q", ErrInvalidFormat, s)
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
