package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/routekit/kvstore"
)

func TestTokenStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewTokenStore(kvstore.NewMemory(), "svc:token", 0)

	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, ErrNoToken)

	in := Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", ExpiresAt: time.Now().Add(time.Hour).UTC().Truncate(time.Second)}
	require.NoError(t, s.Save(ctx, in))

	out, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, in.AccessToken, out.AccessToken)
	assert.Equal(t, in.RefreshToken, out.RefreshToken)
	assert.True(t, in.ExpiresAt.Equal(out.ExpiresAt))

	require.NoError(t, s.Clear(ctx))
	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestTokenStoreExpiredTokenIsCleared(t *testing.T) {
	ctx := context.Background()
	s := NewTokenStore(kvstore.NewMemory(), "", 0)

	require.NoError(t, s.Save(ctx, Token{AccessToken: "a"}))
	require.NoError(t, s.Save(ctx, Token{AccessToken: "b", ExpiresAt: time.Now().Add(-time.Second)}))

	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestTokenStoreOmitsEmptyFields(t *testing.T) {
	ctx := context.Background()
	mem := kvstore.NewMemory()
	s := NewTokenStore(mem, "", 0)

	require.NoError(t, s.Save(ctx, Token{AccessToken: "a"}))
	raw, err := mem.Get(ctx, DefaultTokenKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"access_token":"a"}`, string(raw))
}
