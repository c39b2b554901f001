// Package config loads routekit configuration from defaults, an optional YAML
// file and ROUTEKIT_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix marks environment variables read by Load.
	EnvPrefix = "ROUTEKIT_"
	// DefaultFile is read by Load when present.
	DefaultFile = "config.yaml"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads configuration with priority, highest first:
// 1. Environment variables
// 2. config.yaml in the working directory, if present
// 3. Defaults
func Load() (*Config, error) {
	return LoadFrom(DefaultFile)
}

// LoadFrom is Load with an explicit YAML path. A missing file is not an error.
func LoadFrom(path string) (*Config, error) {
	return load(func(k *koanf.Koanf) error {
		if path == "" {
			return nil
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return newLoadError(path, err)
		}
		return nil
	})
}

// LoadBytes reads YAML content instead of a file. Environment variables
// still override it.
func LoadBytes(content []byte) (*Config, error) {
	return load(func(k *koanf.Koanf) error {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return newLoadError("yaml", err)
		}
		return nil
	})
}

func load(source func(*koanf.Koanf) error) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := source(k); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: transformEnv,
	}), nil); err != nil {
		return nil, newLoadError("environment", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.k = k

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// transformEnv maps ROUTEKIT_CLIENT_BACKOFF_POLICY to client.backoff.policy.
func transformEnv(key, value string) (string, any) {
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "_", "."), value
}

func defaults() map[string]any {
	return map[string]any{
		"client.timeout":              "30s",
		"client.retry.maxattempts":    3,
		"client.retry.maxretryafter":  "30s",
		"client.retry.idempotentonly": false,
		"client.retry.transient":      true,
		"client.backoff.policy":       "exponential",
		"client.backoff.initial":      "200ms",
		"client.backoff.max":          "10s",
		"client.backoff.multiplier":   2.0,
		"client.backoff.jitter":       0.2,
		"client.ratelimit.rps":        0,
		"client.ratelimit.burst":      1,
		"client.log.payloads":         false,
		"client.log.maxbytes":         1024,
		"client.traceheader":          "X-Request-ID",
		"client.traceparent":          false,

		"auth.scheme":         "Bearer",
		"auth.tokenkey":       "routekit:auth:token",
		"auth.tokenttl":       "0s",
		"auth.refreshtimeout": "15s",
		"auth.store":          "memory",

		"log.level":  "info",
		"log.pretty": false,

		"redis.host":        "localhost",
		"redis.port":        6379,
		"redis.database":    0,
		"redis.poolsize":    10,
		"redis.dialtimeout": "5s",

		"telemetry.enabled":          false,
		"telemetry.servicename":      "routekit",
		"telemetry.serviceversion":   "unknown",
		"telemetry.environment":      "development",
		"telemetry.trace.enabled":    true,
		"telemetry.trace.endpoint":   "stdout",
		"telemetry.trace.protocol":   "http",
		"telemetry.trace.samplerate": 1.0,
		"telemetry.metrics.enabled":  true,
		"telemetry.metrics.endpoint": "stdout",
		"telemetry.metrics.protocol": "http",
		"telemetry.metrics.interval": "10s",
	}
}

// Validate checks struct constraints and cross-field rules.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fromValidationErrors(err)
	}
	if cfg.Auth.Store == "redis" && cfg.Redis.Host == "" {
		return NewMissingFieldError("redis.host")
	}
	return nil
}

// String returns a raw value by dotted key, for settings outside the typed structs.
func (c *Config) String(key string) string {
	if c.k == nil {
		return ""
	}
	return c.k.String(key)
}

// Duration returns a raw duration by dotted key or fallback when unset.
func (c *Config) Duration(key string, fallback time.Duration) time.Duration {
	if c.k == nil || !c.k.Exists(key) {
		return fallback
	}
	return c.k.Duration(key)
}
