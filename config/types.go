package config

import (
	"time"

	"github.com/knadh/koanf/v2"
)

// Config is the root configuration.
type Config struct {
	Client       ClientConfig                 `koanf:"client" json:"client" yaml:"client" mapstructure:"client"`
	Auth         AuthConfig                   `koanf:"auth" json:"auth" yaml:"auth" mapstructure:"auth"`
	Log          LogConfig                    `koanf:"log" json:"log" yaml:"log" mapstructure:"log"`
	Redis        RedisConfig                  `koanf:"redis" json:"redis" yaml:"redis" mapstructure:"redis"`
	Telemetry    TelemetryConfig              `koanf:"telemetry" json:"telemetry" yaml:"telemetry" mapstructure:"telemetry"`
	Environments map[string]EnvironmentConfig `koanf:"environments" json:"environments" yaml:"environments" mapstructure:"environments" validate:"dive"`

	k *koanf.Koanf
}

// ClientConfig configures the request pipeline.
type ClientConfig struct {
	Timeout     time.Duration    `koanf:"timeout" json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	Retry       RetryConfig      `koanf:"retry" json:"retry" yaml:"retry" mapstructure:"retry"`
	Backoff     BackoffConfig    `koanf:"backoff" json:"backoff" yaml:"backoff" mapstructure:"backoff"`
	RateLimit   RateLimitConfig  `koanf:"ratelimit" json:"ratelimit" yaml:"ratelimit" mapstructure:"ratelimit"`
	Log         PayloadLogConfig `koanf:"log" json:"log" yaml:"log" mapstructure:"log"`
	TraceHeader string           `koanf:"traceheader" json:"traceheader" yaml:"traceheader" mapstructure:"traceheader"`
	TraceParent bool             `koanf:"traceparent" json:"traceparent" yaml:"traceparent" mapstructure:"traceparent"`
}

// RetryConfig bounds retries.
type RetryConfig struct {
	MaxAttempts    int           `koanf:"maxattempts" json:"maxattempts" yaml:"maxattempts" mapstructure:"maxattempts" validate:"gte=1,lte=20"`
	MaxRetryAfter  time.Duration `koanf:"maxretryafter" json:"maxretryafter" yaml:"maxretryafter" mapstructure:"maxretryafter" validate:"gte=0"`
	IdempotentOnly bool          `koanf:"idempotentonly" json:"idempotentonly" yaml:"idempotentonly" mapstructure:"idempotentonly"`
	// Transient enables the status based retrier for 5xx, timeouts and connection failures.
	Transient bool `koanf:"transient" json:"transient" yaml:"transient" mapstructure:"transient"`
}

// BackoffConfig selects the delay schedule between attempts.
type BackoffConfig struct {
	Policy     string        `koanf:"policy" json:"policy" yaml:"policy" mapstructure:"policy" validate:"oneof=fixed linear exponential"`
	Initial    time.Duration `koanf:"initial" json:"initial" yaml:"initial" mapstructure:"initial" validate:"gt=0"`
	Max        time.Duration `koanf:"max" json:"max" yaml:"max" mapstructure:"max" validate:"gtefield=Initial"`
	Multiplier float64       `koanf:"multiplier" json:"multiplier" yaml:"multiplier" mapstructure:"multiplier" validate:"gte=1"`
	Jitter     float64       `koanf:"jitter" json:"jitter" yaml:"jitter" mapstructure:"jitter" validate:"gte=0,lte=1"`
}

// RateLimitConfig gates outbound attempts. RPS of zero disables the gate.
type RateLimitConfig struct {
	RPS   float64 `koanf:"rps" json:"rps" yaml:"rps" mapstructure:"rps" validate:"gte=0"`
	Burst int     `koanf:"burst" json:"burst" yaml:"burst" mapstructure:"burst" validate:"gte=0"`
}

// PayloadLogConfig controls debug payload logging.
type PayloadLogConfig struct {
	Payloads bool `koanf:"payloads" json:"payloads" yaml:"payloads" mapstructure:"payloads"`
	MaxBytes int  `koanf:"maxbytes" json:"maxbytes" yaml:"maxbytes" mapstructure:"maxbytes" validate:"gte=0"`
}

// AuthConfig configures the token refresh coordinator.
type AuthConfig struct {
	Scheme         string        `koanf:"scheme" json:"scheme" yaml:"scheme" mapstructure:"scheme"`
	TokenKey       string        `koanf:"tokenkey" json:"tokenkey" yaml:"tokenkey" mapstructure:"tokenkey"`
	TokenTTL       time.Duration `koanf:"tokenttl" json:"tokenttl" yaml:"tokenttl" mapstructure:"tokenttl" validate:"gte=0"`
	RefreshTimeout time.Duration `koanf:"refreshtimeout" json:"refreshtimeout" yaml:"refreshtimeout" mapstructure:"refreshtimeout" validate:"gt=0"`
	// Store selects token persistence: "memory", "redis" or "none".
	Store string `koanf:"store" json:"store" yaml:"store" mapstructure:"store" validate:"oneof=memory redis none"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" mapstructure:"level" validate:"oneof=trace debug info warn error fatal"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty" mapstructure:"pretty"`
}

// RedisConfig configures the Redis token store.
type RedisConfig struct {
	Host        string        `koanf:"host" json:"host" yaml:"host" mapstructure:"host"`
	Port        int           `koanf:"port" json:"port" yaml:"port" mapstructure:"port" validate:"gte=0,lte=65535"`
	Password    string        `koanf:"password" json:"-" yaml:"password" mapstructure:"password"`
	Database    int           `koanf:"database" json:"database" yaml:"database" mapstructure:"database" validate:"gte=0,lte=15"`
	PoolSize    int           `koanf:"poolsize" json:"poolsize" yaml:"poolsize" mapstructure:"poolsize" validate:"gte=0"`
	DialTimeout time.Duration `koanf:"dialtimeout" json:"dialtimeout" yaml:"dialtimeout" mapstructure:"dialtimeout" validate:"gte=0"`
}

// EnvironmentConfig describes one service domain.
type EnvironmentConfig struct {
	BaseURL      string            `koanf:"baseurl" json:"baseurl" yaml:"baseurl" mapstructure:"baseurl" validate:"required,url"`
	Headers      map[string]string `koanf:"headers" json:"headers" yaml:"headers" mapstructure:"headers"`
	APIKey       string            `koanf:"apikey" json:"-" yaml:"apikey" mapstructure:"apikey"`
	APIKeyHeader string            `koanf:"apikeyheader" json:"apikeyheader" yaml:"apikeyheader" mapstructure:"apikeyheader"`
}

// TelemetryConfig selects OpenTelemetry exporters for spans and metrics.
type TelemetryConfig struct {
	Enabled        bool           `koanf:"enabled" json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	ServiceName    string         `koanf:"servicename" json:"servicename" yaml:"servicename" mapstructure:"servicename" validate:"required_if=Enabled true"`
	ServiceVersion string         `koanf:"serviceversion" json:"serviceversion" yaml:"serviceversion" mapstructure:"serviceversion"`
	Environment    string         `koanf:"environment" json:"environment" yaml:"environment" mapstructure:"environment"`
	Trace          ExporterConfig `koanf:"trace" json:"trace" yaml:"trace" mapstructure:"trace"`
	Metrics        ExporterConfig `koanf:"metrics" json:"metrics" yaml:"metrics" mapstructure:"metrics"`
}

// ExporterConfig configures one signal. Endpoint "stdout" prints locally;
// anything else is an OTLP collector address.
type ExporterConfig struct {
	Enabled  bool              `koanf:"enabled" json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Endpoint string            `koanf:"endpoint" json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`
	Protocol string            `koanf:"protocol" json:"protocol" yaml:"protocol" mapstructure:"protocol" validate:"oneof=http grpc"`
	Insecure bool              `koanf:"insecure" json:"insecure" yaml:"insecure" mapstructure:"insecure"`
	Headers  map[string]string `koanf:"headers" json:"-" yaml:"headers" mapstructure:"headers"`

	// SampleRate applies to traces only.
	SampleRate float64 `koanf:"samplerate" json:"samplerate" yaml:"samplerate" mapstructure:"samplerate" validate:"gte=0,lte=1"`

	// Interval applies to metrics only.
	Interval time.Duration `koanf:"interval" json:"interval" yaml:"interval" mapstructure:"interval" validate:"gte=0"`
}
