// Package config loads and validates the serverino.toml configuration
// surface consumed by the worker (spec.md §7, SPEC_FULL.md §4.9).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config is the worker's configuration surface (spec.md §7
// "Config surface (consumed by worker)").
type Config struct {
	Address string `toml:"address" validate:"omitempty,hostname_port|ip"`

	MaxRequestTime         time.Duration `toml:"max_request_time" validate:"gt=0"`
	MaxWorkerIdling        time.Duration `toml:"max_worker_idling" validate:"gt=0"`
	MaxWorkerLifetime      time.Duration `toml:"max_worker_lifetime" validate:"gt=0"`
	MaxDynamicWorkerIdling time.Duration `toml:"max_dynamic_worker_idling" validate:"gt=0"`

	KeepAlive bool `toml:"keep_alive"`

	User  string `toml:"user" validate:"omitempty"`
	Group string `toml:"group" validate:"omitempty"`

	MetricsAddress string `toml:"metrics_address" validate:"omitempty,hostname_port|ip"`
}

// Default returns the configuration a worker runs with absent a
// serverino.toml on disk, following the Default*() constructor pattern
// of shockwave/pkg/shockwave/server.DefaultConfig.
func Default() Config {
	return Config{
		Address:                ":8080",
		MaxRequestTime:         30 * time.Second,
		MaxWorkerIdling:        60 * time.Second,
		MaxWorkerLifetime:      10 * time.Minute,
		MaxDynamicWorkerIdling: 5 * time.Second,
		KeepAlive:              true,
		MetricsAddress:         ":9090",
	}
}

var validate = validator.New()

// Load reads and validates a serverino.toml file at path. Fields left
// unset in the file keep the Default() values. Validation failure is
// fatal at startup (spec.md §7 "Fatal errors (user/group resolution
// failure at startup) abort the worker before it begins serving" —
// this is the same error class, just surfaced one step earlier).
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("config: invalid %s: %w", path, err)
	}
	return cfg, nil
}
