// Package redis implements kvstore.Store on top of go-redis.
package redis

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gaborage/routekit/internal/tracking"
	"github.com/gaborage/routekit/kvstore"
)

const (
	systemRedis        = "redis"
	defaultDialTimeout = 5 * time.Second
)

// Client implements kvstore.Store using Redis as the backend.
type Client struct {
	client *redis.Client
	config *Config
	closed atomic.Bool
}

var _ kvstore.Store = (*Client)(nil)

// NewClient validates cfg, connects and verifies the connection with PING.
func NewClient(cfg *Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dialTimeout := cfg.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = defaultDialTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address(),
		Password:     cfg.Password,
		DB:           cfg.Database,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  dialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxRetries:   cfg.MaxRetries,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, kvstore.NewConnectionError("ping", cfg.Address(), err)
	}

	return &Client{client: client, config: cfg}, nil
}

// Get returns kvstore.ErrNotFound on a miss.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	if c.closed.Load() {
		return nil, kvstore.ErrClosed
	}

	start := time.Now()
	result, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.record(ctx, kvstore.OpGet, start, nil)
		return nil, kvstore.ErrNotFound
	}
	c.record(ctx, kvstore.OpGet, start, err)

	if err != nil {
		return nil, kvstore.NewOperationError(kvstore.OpGet, key, err)
	}
	return result, nil
}

func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c.closed.Load() {
		return kvstore.ErrClosed
	}
	if ttl < 0 {
		return kvstore.ErrInvalidTTL
	}

	start := time.Now()
	err := c.client.Set(ctx, key, value, ttl).Err()
	c.record(ctx, kvstore.OpSet, start, err)

	if err != nil {
		return kvstore.NewOperationError(kvstore.OpSet, key, err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	if c.closed.Load() {
		return kvstore.ErrClosed
	}

	start := time.Now()
	err := c.client.Del(ctx, key).Err()
	c.record(ctx, kvstore.OpDelete, start, err)

	if err != nil {
		return kvstore.NewOperationError(kvstore.OpDelete, key, err)
	}
	return nil
}

// Health pings the server.
func (c *Client) Health(ctx context.Context) error {
	if c.closed.Load() {
		return kvstore.ErrClosed
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		return kvstore.NewConnectionError("ping", c.config.Address(), err)
	}
	return nil
}

// Close releases the connection pool. A second call returns kvstore.ErrClosed.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return kvstore.ErrClosed
	}
	return c.client.Close()
}

func (c *Client) record(ctx context.Context, op string, start time.Time, err error) {
	errorType := ""
	if err != nil {
		errorType = "redis_error"
		if errors.Is(err, context.DeadlineExceeded) {
			errorType = "timeout"
		}
	}
	tracking.RecordStoreOperation(ctx, systemRedis, op, time.Since(start), errorType)
}
