package config_test

import (
	"errors"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dealgrid/freshness/domain/config"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	if cfg.Cache.MaxAge.Duration() != 15*time.Minute {
		t.Errorf("Cache.MaxAge = %v, want 15m", cfg.Cache.MaxAge.Duration())
	}
	if cfg.Retry.MaxRetries != 3 {
		t.Errorf("Retry.MaxRetries = %d, want 3", cfg.Retry.MaxRetries)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{"defaults are valid", func(*config.Config) {}, false},
		{"negative max age", func(c *config.Config) { c.Cache.MaxAge = -1 }, true},
		{"negative max retries", func(c *config.Config) { c.Retry.MaxRetries = -1 }, true},
		{"negative refresh interval", func(c *config.Config) { c.Refresh.Interval = -1 }, true},
		{"unknown log level", func(c *config.Config) { c.Logging.Level = "loud" }, true},
		{"unknown log format", func(c *config.Config) { c.Logging.Format = "xml" }, true},
		{"empty logging section", func(c *config.Config) { c.Logging = config.LoggingConfig{} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, config.ErrValidationFailed) {
				t.Errorf("Validate() error = %v, want ErrValidationFailed", err)
			}
		})
	}
}

func TestDuration_YAML(t *testing.T) {
	t.Parallel()

	t.Run("unmarshals duration strings", func(t *testing.T) {
		t.Parallel()

		var cfg config.Config
		data := []byte("cache:\n  max_age: 10m\nrefresh:\n  interval: 90s\n")
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if cfg.Cache.MaxAge.Duration() != 10*time.Minute {
			t.Errorf("max_age = %v, want 10m", cfg.Cache.MaxAge.Duration())
		}
		if cfg.Refresh.Interval.Duration() != 90*time.Second {
			t.Errorf("interval = %v, want 90s", cfg.Refresh.Interval.Duration())
		}
	})

	t.Run("rejects malformed durations", func(t *testing.T) {
		t.Parallel()

		var cfg config.Config
		err := yaml.Unmarshal([]byte("cache:\n  max_age: soon\n"), &cfg)
		if !errors.Is(err, config.ErrInvalidFormat) {
			t.Errorf("Unmarshal() error = %v, want ErrInvalidFormat", err)
		}
	})

	t.Run("marshals back to a string", func(t *testing.T) {
		t.Parallel()

		out, err := yaml.Marshal(struct {
			D config.Duration `yaml:"d"`
		}{D: config.Duration(5 * time.Minute)})
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if string(out) != "d: 5m0s\n" {
			t.Errorf("Marshal() = %q, want %q", out, "d: 5m0s\n")
		}
	})
}
