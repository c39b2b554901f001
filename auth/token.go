package auth

import (
	"context"
	"strings"
	"time"
)

// DefaultScheme is used when a token carries no type of its own.
const DefaultScheme = "Bearer"

// Token is an immutable authorization artifact.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitzero"`
}

// Valid reports whether the token carries an access token.
func (t Token) Valid() bool { return t.AccessToken != "" }

// Expired reports whether the token has a known expiry at or before now.
func (t Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// Authorization renders the header value, falling back to scheme when the
// token has no type.
func (t Token) Authorization(scheme string) string {
	typ := t.TokenType
	if typ == "" {
		typ = scheme
	}
	if typ == "" {
		typ = DefaultScheme
	}
	return typ + " " + t.AccessToken
}

// accessTokenFromHeader extracts the credential from an Authorization value.
func accessTokenFromHeader(value string) string {
	if _, cred, ok := strings.Cut(value, " "); ok {
		return strings.TrimSpace(cred)
	}
	return value
}

// Refresher obtains a new token. current is the last committed token, nil
// when none is held. Implementations should honor ctx.
type Refresher interface {
	Refresh(ctx context.Context, current *Token) (Token, error)
}

// RefreshFunc adapts a function to Refresher.
type RefreshFunc func(ctx context.Context, current *Token) (Token, error)

func (f RefreshFunc) Refresh(ctx context.Context, current *Token) (Token, error) {
	return f(ctx, current)
}
