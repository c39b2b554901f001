package httpclient

import (
	"context"

	"golang.org/x/time/rate"
)

// newLimiter returns nil when rps is not positive, which disables the gate.
func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// admit blocks until the limiter lets one more request through.
func admit(ctx context.Context, l *rate.Limiter) *NetworkError {
	if l == nil {
		return nil
	}
	if err := l.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return AsNetworkError(ctxErr)
		}
		return newError(KindTimeout, "rate limit wait would exceed deadline", err)
	}
	return nil
}
