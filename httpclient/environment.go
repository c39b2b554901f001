package httpclient

import (
	"maps"
	"sync"
)

// DefaultAPIKeyHeader carries Environment.APIKey when no header is configured.
const DefaultAPIKeyHeader = "X-API-Key"

// ServiceDomain names a logical backend service a route targets.
type ServiceDomain string

// Environment is the deployment-specific configuration for one domain.
type Environment struct {
	// BaseURL is an absolute http or https URL, optionally with a path prefix
	// and query string.
	BaseURL string
	// Headers are applied to every request for the domain.
	Headers map[string]string
	// APIKey is sent in APIKeyHeader when non-empty.
	APIKey       string
	APIKeyHeader string
}

// EnvironmentResolver maps a domain to its environment.
type EnvironmentResolver interface {
	Resolve(domain ServiceDomain) (Environment, bool)
}

// ResolverFunc adapts a function to EnvironmentResolver.
type ResolverFunc func(domain ServiceDomain) (Environment, bool)

func (f ResolverFunc) Resolve(domain ServiceDomain) (Environment, bool) { return f(domain) }

// StaticResolver is a concurrency-safe map of environments.
type StaticResolver struct {
	mu   sync.RWMutex
	envs map[ServiceDomain]Environment
}

// NewStaticResolver copies envs into a new resolver.
func NewStaticResolver(envs map[ServiceDomain]Environment) *StaticResolver {
	r := &StaticResolver{envs: make(map[ServiceDomain]Environment, len(envs))}
	for d, e := range envs {
		r.envs[d] = e
	}
	return r
}

// Resolve implements EnvironmentResolver.
func (r *StaticResolver) Resolve(domain ServiceDomain) (Environment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	env, ok := r.envs[domain]
	if ok {
		env.Headers = maps.Clone(env.Headers)
	}
	return env, ok
}

// Set registers or replaces the environment for domain.
func (r *StaticResolver) Set(domain ServiceDomain, env Environment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs[domain] = env
}
