// Package httpclient executes declarative routes against configured service
// environments.
//
// A route names a service domain, a method, a relative path and its
// parameters. Compile resolves the domain to an Environment and builds a
// Request without performing any I/O. A Provider then runs the request
// through its interceptor chain, sends it over a Transport and classifies the
// outcome into a decoded value or a *NetworkError.
//
// Retries
//   - Nothing is retried unless an interceptor's ShouldRetry says so.
//     StatusRetrier covers the usual transient failures.
//   - Config.MaxAttempts caps attempts per call, the first one included.
//   - invalidURL, missingEnvironment and bodyEncodingFailed are raised before
//     any attempt and are never retried.
//
// Backoff Strategy
//   - fixed, linear or exponential, with optional jitter.
//   - A Retry-After header longer than the computed delay is honored up to
//     Config.MaxRetryAfter.
//   - Waiting observes the caller's context; cancellation ends the call with
//     a cancelled error.
//
// Notes
//   - Every attempt adapts a fresh clone of the compiled request, so
//     interceptors always see current credentials.
//   - Timeouts apply per attempt.
package httpclient
