package auth

import (
	"fmt"

	"github.com/gaborage/routekit/config"
	"github.com/gaborage/routekit/kvstore"
	"github.com/gaborage/routekit/kvstore/redis"
	"github.com/gaborage/routekit/logger"
)

// Token store backends accepted in auth.store.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreNone   = "none"
)

// OpenStore opens the key-value store selected by auth.store. It returns a
// nil store for "none". The caller owns the returned store and must Close it.
func OpenStore(cfg *config.Config) (kvstore.Store, error) {
	switch cfg.Auth.Store {
	case StoreNone:
		return nil, nil
	case StoreMemory, "":
		return kvstore.NewMemory(), nil
	case StoreRedis:
		client, err := redis.NewClient(redis.FromSettings(cfg.Redis))
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, config.NewInvalidFieldError("auth.store", fmt.Sprintf("unknown token store %q", cfg.Auth.Store))
	}
}

// NewCoordinatorFromConfig builds a Coordinator from the auth section. store
// may be nil, in which case tokens are not persisted.
func NewCoordinatorFromConfig(refresher Refresher, cfg config.AuthConfig, store kvstore.Store, log logger.Logger) *Coordinator {
	opts := Options{RefreshTimeout: cfg.RefreshTimeout, Logger: log}
	if store != nil {
		opts.Store = NewTokenStore(store, cfg.TokenKey, cfg.TokenTTL)
	}
	return NewCoordinator(refresher, opts)
}
