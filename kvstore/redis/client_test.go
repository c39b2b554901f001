package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/routekit/config"
	"github.com/gaborage/routekit/kvstore"
)

const testKey = "routekit:auth:token"

func setupTestRedis(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := NewClient(&Config{
		Host:     mr.Host(),
		Port:     mr.Server().Addr().Port,
		PoolSize: 4,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestNewClient(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		client, _ := setupTestRedis(t)
		assert.False(t, client.closed.Load())
	})

	t.Run("InvalidConfig", func(t *testing.T) {
		client, err := NewClient(&Config{Port: 6379})
		assert.Nil(t, client)

		var cfgErr *kvstore.ConfigError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "redis.host", cfgErr.Field)
	})

	t.Run("ConnectionFailed", func(t *testing.T) {
		mr := miniredis.RunT(t)
		host, addr := mr.Host(), mr.Server().Addr()
		mr.Close()

		client, err := NewClient(&Config{Host: host, Port: addr.Port, DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
		assert.Nil(t, client)

		var connErr *kvstore.ConnectionError
		assert.True(t, errors.As(err, &connErr))
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		field string
	}{
		{name: "valid", cfg: Config{Host: "localhost", Port: 6379}},
		{name: "port", cfg: Config{Host: "localhost", Port: 70000}, field: "redis.port"},
		{name: "database", cfg: Config{Host: "localhost", Port: 6379, Database: 16}, field: "redis.database"},
		{name: "pool", cfg: Config{Host: "localhost", Port: 6379, PoolSize: -1}, field: "redis.poolsize"},
		{name: "dial", cfg: Config{Host: "localhost", Port: 6379, DialTimeout: -time.Second}, field: "redis.dialtimeout"},
		{name: "read", cfg: Config{Host: "localhost", Port: 6379, ReadTimeout: -2}, field: "redis.timeouts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *kvstore.ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestFromSettings(t *testing.T) {
	cfg := FromSettings(config.RedisConfig{Host: "cache", Port: 6380, Database: 2, PoolSize: 5, DialTimeout: time.Second})
	assert.Equal(t, "cache:6380", cfg.Address())
	assert.Equal(t, 2, cfg.Database)
	assert.Equal(t, time.Second, cfg.DialTimeout)
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	client, mr := setupTestRedis(t)

	_, err := client.Get(ctx, testKey)
	assert.ErrorIs(t, err, kvstore.ErrNotFound)

	require.NoError(t, client.Set(ctx, testKey, []byte(`{"access_token":"a"}`), time.Minute))
	assert.True(t, mr.Exists(testKey))
	assert.Equal(t, time.Minute, mr.TTL(testKey))

	got, err := client.Get(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"access_token":"a"}`), got)

	mr.FastForward(time.Minute)
	_, err = client.Get(ctx, testKey)
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
}

func TestClientSetZeroTTLPersists(t *testing.T) {
	client, mr := setupTestRedis(t)
	require.NoError(t, client.Set(context.Background(), testKey, []byte("v"), 0))
	assert.Equal(t, time.Duration(0), mr.TTL(testKey))
}

func TestClientSetInvalidTTL(t *testing.T) {
	client, _ := setupTestRedis(t)
	err := client.Set(context.Background(), testKey, []byte("v"), -time.Second)
	assert.ErrorIs(t, err, kvstore.ErrInvalidTTL)
}

func TestClientDelete(t *testing.T) {
	ctx := context.Background()
	client, mr := setupTestRedis(t)

	require.NoError(t, mr.Set(testKey, "v"))
	require.NoError(t, client.Delete(ctx, testKey))
	assert.False(t, mr.Exists(testKey))
	require.NoError(t, client.Delete(ctx, testKey))
}

func TestClientOperationError(t *testing.T) {
	client, mr := setupTestRedis(t)
	mr.SetError("ERR forced failure")

	_, err := client.Get(context.Background(), testKey)
	var opErr *kvstore.OperationError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, kvstore.OpGet, opErr.Op)
	assert.Equal(t, testKey, opErr.Key)
}

func TestClientHealth(t *testing.T) {
	client, mr := setupTestRedis(t)
	require.NoError(t, client.Health(context.Background()))

	mr.SetError("down")
	var connErr *kvstore.ConnectionError
	assert.True(t, errors.As(client.Health(context.Background()), &connErr))
}

func TestClientClosed(t *testing.T) {
	ctx := context.Background()
	client, _ := setupTestRedis(t)

	require.NoError(t, client.Close())
	assert.ErrorIs(t, client.Close(), kvstore.ErrClosed)

	_, err := client.Get(ctx, testKey)
	assert.ErrorIs(t, err, kvstore.ErrClosed)
	assert.ErrorIs(t, client.Set(ctx, testKey, nil, 0), kvstore.ErrClosed)
	assert.ErrorIs(t, client.Delete(ctx, testKey), kvstore.ErrClosed)
	assert.ErrorIs(t, client.Health(ctx), kvstore.ErrClosed)
}
