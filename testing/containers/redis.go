//go:build integration

// Package containers starts throwaway backing services for integration tests.
// Tests are skipped when no Docker daemon is reachable.
package containers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

// RedisOptions configure the Redis container.
type RedisOptions struct {
	// Image defaults to redis:7-alpine.
	Image          string
	StartupTimeout time.Duration
}

// DefaultRedisOptions returns the options used when nil is passed.
func DefaultRedisOptions() *RedisOptions {
	return &RedisOptions{
		Image:          "redis:7-alpine",
		StartupTimeout: time.Minute,
	}
}

// Redis is a running Redis container.
type Redis struct {
	container *tcredis.RedisContainer
	host      string
	port      int
}

// StartRedis launches a container and resolves its mapped address.
func StartRedis(ctx context.Context, t *testing.T, opts *RedisOptions) (*Redis, error) {
	t.Helper()
	if opts == nil {
		opts = DefaultRedisOptions()
	}
	if !dockerAvailable(ctx) {
		t.Skip("Docker is not available, skipping integration test")
	}

	c, err := tcredis.Run(ctx, opts.Image,
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").WithStartupTimeout(opts.StartupTimeout),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start redis container: %w", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("redis container host: %w", err)
	}
	port, err := c.MappedPort(ctx, "6379/tcp")
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("redis container port: %w", err)
	}

	t.Logf("redis container listening on %s:%d", host, port.Int())
	return &Redis{container: c, host: host, port: port.Int()}, nil
}

// MustStartRedis is StartRedis failing the test on error.
func MustStartRedis(ctx context.Context, t *testing.T, opts *RedisOptions) *Redis {
	t.Helper()
	r, err := StartRedis(ctx, t, opts)
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	return r.withCleanup(t)
}

func (r *Redis) Host() string { return r.host }

func (r *Redis) Port() int { return r.port }

// Terminate stops and removes the container.
func (r *Redis) Terminate(ctx context.Context) error {
	if r == nil || r.container == nil {
		return nil
	}
	return r.container.Terminate(ctx)
}

func (r *Redis) withCleanup(t *testing.T) *Redis {
	t.Cleanup(func() {
		if err := r.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	})
	return r
}
