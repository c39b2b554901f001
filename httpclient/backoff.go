package httpclient

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// BackoffPolicy names a delay schedule between attempts.
type BackoffPolicy string

const (
	BackoffFixed       BackoffPolicy = "fixed"
	BackoffLinear      BackoffPolicy = "linear"
	BackoffExponential BackoffPolicy = "exponential"
)

const (
	DefaultBackoffInitial    = 200 * time.Millisecond
	DefaultBackoffMax        = 10 * time.Second
	DefaultBackoffMultiplier = 2.0
	DefaultBackoffJitter     = 0.2
	maxRetryAfter            = time.Hour
)

// BackoffConfig configures the delay between attempts.
type BackoffConfig struct {
	Policy     BackoffPolicy
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	// Jitter is a randomization factor in [0, 1]; 0 disables jitter.
	Jitter float64
}

// DefaultBackoffConfig returns exponential backoff with moderate jitter.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Policy:     BackoffExponential,
		Initial:    DefaultBackoffInitial,
		Max:        DefaultBackoffMax,
		Multiplier: DefaultBackoffMultiplier,
		Jitter:     DefaultBackoffJitter,
	}
}

// Validate reports configuration that cannot produce a schedule.
func (c BackoffConfig) Validate() error {
	switch c.Policy {
	case BackoffFixed, BackoffLinear, BackoffExponential, "":
	default:
		return fmt.Errorf("unknown backoff policy %q", c.Policy)
	}
	if c.Initial < 0 || c.Max < 0 {
		return fmt.Errorf("backoff intervals must not be negative")
	}
	if c.Jitter < 0 || c.Jitter > 1 {
		return fmt.Errorf("backoff jitter %.2f outside [0, 1]", c.Jitter)
	}
	return nil
}

// NewBackOff builds a fresh schedule. Each call gets its own instance since
// BackOff values are stateful.
func (c BackoffConfig) NewBackOff() backoff.BackOff {
	initial := c.Initial
	if initial <= 0 {
		initial = DefaultBackoffInitial
	}
	maxDelay := c.Max
	if maxDelay <= 0 {
		maxDelay = DefaultBackoffMax
	}
	if maxDelay < initial {
		maxDelay = initial
	}

	switch c.Policy {
	case BackoffFixed:
		return withJitter(backoff.NewConstantBackOff(initial), c.Jitter)
	case BackoffLinear:
		return withJitter(&linearBackOff{step: initial, max: maxDelay}, c.Jitter)
	default:
		mult := c.Multiplier
		if mult < 1 {
			mult = DefaultBackoffMultiplier
		}
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = initial
		b.MaxInterval = maxDelay
		b.Multiplier = mult
		b.RandomizationFactor = c.Jitter
		b.Reset()
		return b
	}
}

// linearBackOff grows by one step per attempt up to max.
type linearBackOff struct {
	step time.Duration
	max  time.Duration
	n    int
}

func (l *linearBackOff) NextBackOff() time.Duration {
	l.n++
	d := time.Duration(l.n) * l.step
	if d > l.max || d <= 0 {
		return l.max
	}
	return d
}

func (l *linearBackOff) Reset() { l.n = 0 }

type jitteredBackOff struct {
	inner  backoff.BackOff
	factor float64
}

func withJitter(b backoff.BackOff, factor float64) backoff.BackOff {
	if factor <= 0 {
		return b
	}
	return &jitteredBackOff{inner: b, factor: factor}
}

func (j *jitteredBackOff) NextBackOff() time.Duration {
	d := j.inner.NextBackOff()
	if d == backoff.Stop || d <= 0 {
		return d
	}
	delta := j.factor * float64(d)
	return time.Duration(float64(d) - delta + rand.Float64()*(2*delta))
}

func (j *jitteredBackOff) Reset() { j.inner.Reset() }

// parseRetryAfter reads a Retry-After header in either delta-seconds or
// HTTP-date form. Zero means absent or unusable.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0
		}
		return min(time.Duration(seconds)*time.Second, maxRetryAfter)
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := time.Until(t); d > 0 {
			return min(d, maxRetryAfter)
		}
	}
	return 0
}
