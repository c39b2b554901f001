package httpclient

import (
	"github.com/gaborage/routekit/config"
	"github.com/gaborage/routekit/logger"
)

// ConfigFromSettings maps loaded client settings onto a provider Config.
func ConfigFromSettings(s config.ClientConfig) Config {
	return Config{
		Timeout:     s.Timeout,
		MaxAttempts: s.Retry.MaxAttempts,
		Backoff: BackoffConfig{
			Policy:     BackoffPolicy(s.Backoff.Policy),
			Initial:    s.Backoff.Initial,
			Max:        s.Backoff.Max,
			Multiplier: s.Backoff.Multiplier,
			Jitter:     s.Backoff.Jitter,
		},
		MaxRetryAfter:      s.Retry.MaxRetryAfter,
		RateLimit:          s.RateLimit.RPS,
		RateBurst:          s.RateLimit.Burst,
		LogPayloads:        s.Log.Payloads,
		MaxPayloadLogBytes: s.Log.MaxBytes,
	}
}

// ResolverFromSettings builds a StaticResolver from configured environments.
func ResolverFromSettings(envs map[string]config.EnvironmentConfig) *StaticResolver {
	out := make(map[ServiceDomain]Environment, len(envs))
	for name, e := range envs {
		out[ServiceDomain(name)] = Environment{
			BaseURL:      e.BaseURL,
			Headers:      e.Headers,
			APIKey:       e.APIKey,
			APIKeyHeader: e.APIKeyHeader,
		}
	}
	return NewStaticResolver(out)
}

// NewBuilderFromConfig prepares a Builder from loaded configuration: client
// settings, environments, request ID propagation and, when enabled, the
// transient failure retrier. Further interceptors can still be appended.
func NewBuilderFromConfig(log logger.Logger, cfg *config.Config) *Builder {
	b := NewBuilder(log).
		WithConfig(ConfigFromSettings(cfg.Client)).
		WithResolver(ResolverFromSettings(cfg.Environments)).
		WithInterceptor(NewTraceIDInterceptorFor(cfg.Client.TraceHeader))

	if cfg.Client.TraceParent {
		b.WithInterceptor(NewTraceParentInterceptor())
	}
	if cfg.Client.Retry.Transient {
		b.WithInterceptor(NewStatusRetrier(cfg.Client.Retry.IdempotentOnly))
	}
	return b
}
