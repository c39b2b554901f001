package httpclient

import (
	"context"
	"net/http"
	"slices"

	"github.com/gaborage/routekit/trace"
)

// Interceptor participates in every call a Provider performs.
//
// Adapt receives a private copy of the request for the current attempt and
// returns the request to send. ShouldRetry is consulted after a failed
// attempt; returning true authorizes another attempt, and returning an error
// aborts the call with that error.
type Interceptor interface {
	Adapt(ctx context.Context, req *Request) (*Request, error)
	ShouldRetry(ctx context.Context, req *Request, resp *Response, err *NetworkError) (bool, error)
}

// RequestInterceptor is an adapt-only interceptor.
type RequestInterceptor func(ctx context.Context, req *Request) (*Request, error)

func (f RequestInterceptor) Adapt(ctx context.Context, req *Request) (*Request, error) {
	return f(ctx, req)
}

func (RequestInterceptor) ShouldRetry(context.Context, *Request, *Response, *NetworkError) (bool, error) {
	return false, nil
}

// RetryFunc is a retry-only interceptor.
type RetryFunc func(ctx context.Context, req *Request, resp *Response, err *NetworkError) (bool, error)

func (RetryFunc) Adapt(_ context.Context, req *Request) (*Request, error) { return req, nil }

func (f RetryFunc) ShouldRetry(ctx context.Context, req *Request, resp *Response, err *NetworkError) (bool, error) {
	return f(ctx, req, resp, err)
}

// Chain runs interceptors in registration order.
type Chain []Interceptor

// Adapt clones req and passes it through every interceptor in order.
// A nil result from an interceptor keeps the current request.
func (c Chain) Adapt(ctx context.Context, req *Request) (*Request, error) {
	cur := req.Clone()
	for _, i := range c {
		next, err := i.Adapt(ctx, cur)
		if err != nil {
			return nil, AsNetworkError(err)
		}
		if next != nil {
			cur = next
		}
	}
	return cur, nil
}

// ShouldRetry asks interceptors in order. The first one that authorizes a
// retry wins and later ones are not consulted.
func (c Chain) ShouldRetry(ctx context.Context, req *Request, resp *Response, nerr *NetworkError) (bool, error) {
	for _, i := range c {
		retry, err := i.ShouldRetry(ctx, req, resp, nerr)
		if err != nil {
			return false, AsNetworkError(err)
		}
		if retry {
			return true, nil
		}
	}
	return false, nil
}

// NewTraceIDInterceptor propagates the request ID in X-Request-ID.
func NewTraceIDInterceptor() Interceptor {
	return NewTraceIDInterceptorFor(trace.HeaderXRequestID)
}

// NewTraceIDInterceptorFor propagates the request ID in a custom header.
// An existing header value is left untouched.
func NewTraceIDInterceptorFor(header string) Interceptor {
	if header == "" {
		header = trace.HeaderXRequestID
	}
	return RequestInterceptor(func(ctx context.Context, req *Request) (*Request, error) {
		if req.Header.Get(header) == "" {
			req.Header.Set(header, trace.EnsureTraceID(ctx))
		}
		return req, nil
	})
}

// NewTraceParentInterceptor adds a W3C traceparent header, taken from the
// active span when there is one.
func NewTraceParentInterceptor() Interceptor {
	return RequestInterceptor(func(ctx context.Context, req *Request) (*Request, error) {
		if req.Header.Get(trace.HeaderTraceParent) != "" {
			return req, nil
		}
		tp, ok := trace.ParentFromContext(ctx)
		if !ok {
			tp = trace.GenerateTraceParent()
		}
		req.Header.Set(trace.HeaderTraceParent, tp)
		return req, nil
	})
}

// StatusRetrier authorizes retries for transient failures: serverError,
// timeout, noConnection and clientError with a status in RetryStatuses.
type StatusRetrier struct {
	// RetryStatuses are 4xx codes worth retrying (default 408 and 429).
	RetryStatuses []int
	// IdempotentOnly restricts retries to idempotent methods.
	IdempotentOnly bool
}

// NewStatusRetrier returns a StatusRetrier with the default retry statuses.
func NewStatusRetrier(idempotentOnly bool) *StatusRetrier {
	return &StatusRetrier{
		RetryStatuses:  []int{http.StatusRequestTimeout, http.StatusTooManyRequests},
		IdempotentOnly: idempotentOnly,
	}
}

func (s *StatusRetrier) Adapt(_ context.Context, req *Request) (*Request, error) { return req, nil }

func (s *StatusRetrier) ShouldRetry(_ context.Context, req *Request, _ *Response, nerr *NetworkError) (bool, error) {
	if nerr == nil {
		return false, nil
	}
	if s.IdempotentOnly && !isIdempotent(req.Method) {
		return false, nil
	}
	switch nerr.Kind {
	case KindServerError, KindTimeout, KindNoConnection:
		return true, nil
	case KindClientError:
		return slices.Contains(s.RetryStatuses, nerr.StatusCode), nil
	}
	return false, nil
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}
