package httpclient

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// DefaultMaxAttempts caps the attempts of one call, first attempt included.
const DefaultMaxAttempts = 3

type retryPhase int

const (
	phaseAttempting retryPhase = iota
	phaseRetryable
	phaseSucceeded
	phaseFailed
)

func (p retryPhase) String() string {
	switch p {
	case phaseAttempting:
		return "attempting"
	case phaseRetryable:
		return "retryable"
	case phaseSucceeded:
		return "succeeded"
	default:
		return "failed"
	}
}

// retryState is owned by a single call and never shared.
type retryState struct {
	phase       retryPhase
	attempt     int
	maxAttempts int
	backoff     backoff.BackOff
	// retryAfterCap bounds server-provided Retry-After delays; zero ignores them.
	retryAfterCap time.Duration
}

func newRetryState(maxAttempts int, b backoff.BackOff, retryAfterCap time.Duration) *retryState {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &retryState{maxAttempts: maxAttempts, backoff: b, retryAfterCap: retryAfterCap}
}

// begin enters attempting(n+1).
func (s *retryState) begin() int {
	s.phase = phaseAttempting
	s.attempt++
	return s.attempt
}

func (s *retryState) succeed() { s.phase = phaseSucceeded }
func (s *retryState) fail()    { s.phase = phaseFailed }

// exhausted reports whether no further attempt is allowed.
func (s *retryState) exhausted() bool { return s.attempt >= s.maxAttempts }

// next moves to retryable and returns the delay before the next attempt.
// ok is false when the schedule has stopped.
func (s *retryState) next(resp *Response) (delay time.Duration, ok bool) {
	s.phase = phaseRetryable
	if s.backoff != nil {
		delay = s.backoff.NextBackOff()
		if delay == backoff.Stop {
			return 0, false
		}
	}
	if s.retryAfterCap > 0 && resp != nil {
		if ra := parseRetryAfter(resp.Header.Get("Retry-After")); ra > delay {
			delay = min(ra, s.retryAfterCap)
		}
	}
	return max(delay, 0), true
}

// wait sleeps for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
