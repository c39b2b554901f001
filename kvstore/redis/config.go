package redis

import (
	"fmt"
	"time"

	"github.com/gaborage/routekit/config"
	"github.com/gaborage/routekit/kvstore"
)

// Config holds Redis connection options.
type Config struct {
	Host     string
	Port     int
	Password string
	Database int
	PoolSize int

	// DialTimeout bounds new connections and the initial PING (default: 5s).
	DialTimeout time.Duration

	// ReadTimeout and WriteTimeout accept -1 to disable the deadline.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MaxRetries of -1 disables go-redis command retries.
	MaxRetries int
}

// FromSettings maps the loaded redis section onto a Config.
func FromSettings(s config.RedisConfig) *Config {
	return &Config{
		Host:        s.Host,
		Port:        s.Port,
		Password:    s.Password,
		Database:    s.Database,
		PoolSize:    s.PoolSize,
		DialTimeout: s.DialTimeout,
	}
}

// Validate performs fail-fast validation of the connection options.
func (c *Config) Validate() error {
	if c.Host == "" {
		return kvstore.NewConfigError("redis.host", "host is required", nil)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return kvstore.NewConfigError("redis.port", fmt.Sprintf("invalid port: %d", c.Port), nil)
	}
	if c.Database < 0 || c.Database > 15 {
		return kvstore.NewConfigError("redis.database", fmt.Sprintf("invalid database number: %d (must be 0-15)", c.Database), nil)
	}
	if c.PoolSize < 0 {
		return kvstore.NewConfigError("redis.poolsize", fmt.Sprintf("invalid pool size: %d", c.PoolSize), nil)
	}
	if c.DialTimeout < 0 {
		return kvstore.NewConfigError("redis.dialtimeout", "dial timeout cannot be negative", nil)
	}
	if c.ReadTimeout < -1 || c.WriteTimeout < -1 {
		return kvstore.NewConfigError("redis.timeouts", "read/write timeout cannot be less than -1", nil)
	}
	return nil
}

// Address returns "host:port".
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
