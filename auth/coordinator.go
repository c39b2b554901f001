// Package auth keeps the current authorization token for a provider and
// refreshes it when a call is rejected as unauthorized.
//
// Many calls may fail with 401 at once. The Coordinator runs a single refresh
// for all of them: the first caller starts it, the rest join it, and every
// caller observes the same outcome. The refresh runs detached from any one
// caller's cancellation, so a caller that gives up does not abort the refresh
// for the others. Failures are not cached; the next caller starts over.
package auth

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gaborage/routekit/internal/tracking"
	"github.com/gaborage/routekit/logger"
)

const (
	// DefaultRefreshTimeout bounds a single refresh.
	DefaultRefreshTimeout = 15 * time.Second

	refreshKey = "refresh"
)

// ErrNoRefresher is returned when a refresh is needed but none is configured.
var ErrNoRefresher = errors.New("auth: no refresher configured")

// Options configure a Coordinator. The zero value is usable.
type Options struct {
	RefreshTimeout time.Duration
	Store          *TokenStore
	Logger         logger.Logger
}

// Coordinator owns the current token slot and the in-flight refresh.
type Coordinator struct {
	refresher Refresher
	store     *TokenStore
	logger    logger.Logger
	timeout   time.Duration

	current atomic.Pointer[Token]
	group   singleflight.Group
	waiting atomic.Int32
	now     func() time.Time
}

// NewCoordinator creates a coordinator around refresher.
func NewCoordinator(refresher Refresher, opts Options) *Coordinator {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	timeout := opts.RefreshTimeout
	if timeout <= 0 {
		timeout = DefaultRefreshTimeout
	}
	return &Coordinator{
		refresher: refresher,
		store:     opts.Store,
		logger:    log,
		timeout:   timeout,
		now:       time.Now,
	}
}

// Token returns the last committed token.
func (c *Coordinator) Token() (Token, bool) {
	if t := c.current.Load(); t != nil {
		return *t, true
	}
	return Token{}, false
}

// SetToken commits t without refreshing. An invalid token clears the slot.
func (c *Coordinator) SetToken(t Token) {
	if !t.Valid() {
		c.current.Store(nil)
		return
	}
	c.current.Store(&t)
}

// Waiters reports how many callers are currently blocked on a refresh,
// including the one that started it.
func (c *Coordinator) Waiters() int { return int(c.waiting.Load()) }

// RefreshIfNeeded joins the in-flight refresh or starts one.
func (c *Coordinator) RefreshIfNeeded(ctx context.Context) (Token, error) {
	return c.shared(ctx, func() (any, error) {
		return c.refresh(ctx)
	})
}

// RefreshIfStale refreshes only if used is still the committed access token.
// A caller whose 401 came from an already superseded token gets the current
// token back and retries with it.
func (c *Coordinator) RefreshIfStale(ctx context.Context, used string) (Token, error) {
	if t, ok := c.fresher(used); ok {
		return t, nil
	}
	return c.shared(ctx, func() (any, error) {
		// Re-check under the flight: a refresh may have committed between
		// the check above and joining the group.
		if t, ok := c.fresher(used); ok {
			return t, nil
		}
		return c.refresh(ctx)
	})
}

func (c *Coordinator) fresher(used string) (Token, bool) {
	t := c.current.Load()
	if t == nil || t.AccessToken == used || t.Expired(c.now()) {
		return Token{}, false
	}
	return *t, true
}

func (c *Coordinator) shared(ctx context.Context, fn func() (any, error)) (Token, error) {
	ch := c.group.DoChan(refreshKey, fn)
	c.waiting.Add(1)
	defer c.waiting.Add(-1)

	select {
	case <-ctx.Done():
		return Token{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Token{}, res.Err
		}
		return res.Val.(Token), nil
	}
}

// refresh runs once per flight. It is detached from the starting caller's
// cancellation and bounded by the refresh timeout instead.
func (c *Coordinator) refresh(caller context.Context) (Token, error) {
	if c.refresher == nil {
		return Token{}, ErrNoRefresher
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(caller), c.timeout)
	defer cancel()

	start := time.Now()
	tok, err := c.refresher.Refresh(ctx, c.current.Load())
	if err == nil && !tok.Valid() {
		err = errors.New("auth: refresher returned an empty access token")
	}
	duration := time.Since(start)
	tracking.RecordRefresh(ctx, duration, err)

	if err != nil {
		c.logger.Warn().Err(err).Dur("duration", duration).Int("waiters", c.Waiters()).Msg("token refresh failed")
		return Token{}, err
	}

	c.current.Store(&tok)
	c.logger.Info().
		Dur("duration", duration).
		Int("waiters", c.Waiters()).
		Bool("expires", !tok.ExpiresAt.IsZero()).
		Msg("token refreshed")

	if c.store != nil {
		if perr := c.store.Save(ctx, tok); perr != nil {
			c.logger.Warn().Err(perr).Msg("token persistence failed")
		}
	}
	return tok, nil
}

// Restore loads a persisted token into the slot. It reports false when no
// usable token was stored.
func (c *Coordinator) Restore(ctx context.Context) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	tok, err := c.store.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNoToken) {
			return false, nil
		}
		return false, err
	}
	if !tok.Valid() || tok.Expired(c.now()) {
		return false, nil
	}
	c.current.Store(&tok)
	return true, nil
}
