package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gaborage/routekit/kvstore"
)

// DefaultTokenKey is the store key used when none is configured.
const DefaultTokenKey = "routekit:auth:token"

// ErrNoToken is returned by TokenStore.Load when nothing is persisted.
var ErrNoToken = errors.New("auth: no persisted token")

// TokenStore persists a Token as JSON in a kvstore.Store.
type TokenStore struct {
	store kvstore.Store
	key   string
	ttl   time.Duration
}

// NewTokenStore stores under key. ttl applies to tokens without an expiry;
// 0 keeps them until overwritten.
func NewTokenStore(store kvstore.Store, key string, ttl time.Duration) *TokenStore {
	if key == "" {
		key = DefaultTokenKey
	}
	return &TokenStore{store: store, key: key, ttl: ttl}
}

// Save writes t. Tokens with an expiry live exactly until they expire.
func (s *TokenStore) Save(ctx context.Context, t Token) error {
	ttl := s.ttl
	if !t.ExpiresAt.IsZero() {
		ttl = time.Until(t.ExpiresAt)
		if ttl <= 0 {
			return s.Clear(ctx)
		}
	}

	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	return s.store.Set(ctx, s.key, payload, ttl)
}

// Load reads the persisted token. Returns ErrNoToken on a miss.
func (s *TokenStore) Load(ctx context.Context) (Token, error) {
	payload, err := s.store.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return Token{}, ErrNoToken
		}
		return Token{}, err
	}

	var t Token
	if err := json.Unmarshal(payload, &t); err != nil {
		return Token{}, fmt.Errorf("decode token: %w", err)
	}
	return t, nil
}

// Clear removes the persisted token.
func (s *TokenStore) Clear(ctx context.Context) error {
	return s.store.Delete(ctx, s.key)
}
