package httpclient

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/routekit/trace"
)

func setHeader(key, value string) Interceptor {
	return RequestInterceptor(func(_ context.Context, req *Request) (*Request, error) {
		req.Header.Set(key, value)
		return req, nil
	})
}

func TestChainAdaptComposesInOrderOnAClone(t *testing.T) {
	chain := Chain{setHeader("X-Order", "first"), setHeader("X-Order", "second"), setHeader("X-Other", "1")}
	orig := &Request{Method: http.MethodGet, URL: "https://x", Header: http.Header{}}

	got, err := chain.Adapt(context.Background(), orig)
	require.NoError(t, err)
	assert.Equal(t, "second", got.Header.Get("X-Order"))
	assert.Equal(t, "1", got.Header.Get("X-Other"))
	assert.Empty(t, orig.Header, "compiled request must stay untouched")
}

func TestChainAdaptNilResultKeepsRequest(t *testing.T) {
	chain := Chain{
		setHeader("A", "1"),
		RequestInterceptor(func(context.Context, *Request) (*Request, error) { return nil, nil }),
	}
	got, err := chain.Adapt(context.Background(), &Request{Header: http.Header{}})
	require.NoError(t, err)
	assert.Equal(t, "1", got.Header.Get("A"))
}

func TestChainAdaptErrorAborts(t *testing.T) {
	called := false
	chain := Chain{
		RequestInterceptor(func(context.Context, *Request) (*Request, error) { return nil, errors.New("signer offline") }),
		RequestInterceptor(func(_ context.Context, r *Request) (*Request, error) { called = true; return r, nil }),
	}
	_, err := chain.Adapt(context.Background(), &Request{Header: http.Header{}})
	assert.ErrorIs(t, err, ErrUnknown)
	assert.False(t, called)
}

func TestChainShouldRetryFirstTrueWins(t *testing.T) {
	var consulted []string
	record := func(name string, answer bool) Interceptor {
		return RetryFunc(func(context.Context, *Request, *Response, *NetworkError) (bool, error) {
			consulted = append(consulted, name)
			return answer, nil
		})
	}
	chain := Chain{record("a", false), record("b", true), record("c", true)}

	retry, err := chain.ShouldRetry(context.Background(), &Request{}, nil, ErrTimeout)
	require.NoError(t, err)
	assert.True(t, retry)
	assert.Equal(t, []string{"a", "b"}, consulted)
}

func TestChainShouldRetryErrorReplacesOriginal(t *testing.T) {
	chain := Chain{RetryFunc(func(context.Context, *Request, *Response, *NetworkError) (bool, error) {
		return false, NewAuthenticationFailedError(errors.New("refresh denied"))
	})}

	retry, err := chain.ShouldRetry(context.Background(), &Request{}, nil, ErrUnauthorized)
	assert.False(t, retry)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestChainShouldRetryNoneAuthorize(t *testing.T) {
	retry, err := Chain{}.ShouldRetry(context.Background(), &Request{}, nil, ErrServer)
	require.NoError(t, err)
	assert.False(t, retry)
}

func TestTraceIDInterceptor(t *testing.T) {
	ctx := trace.WithTraceID(context.Background(), "trace-42")

	req, err := NewTraceIDInterceptor().Adapt(ctx, &Request{Header: http.Header{}})
	require.NoError(t, err)
	assert.Equal(t, "trace-42", req.Header.Get(trace.HeaderXRequestID))

	req, err = NewTraceIDInterceptorFor("X-Correlation-ID").Adapt(ctx, &Request{Header: http.Header{}})
	require.NoError(t, err)
	assert.Equal(t, "trace-42", req.Header.Get("X-Correlation-ID"))

	existing := &Request{Header: http.Header{}}
	existing.Header.Set(trace.HeaderXRequestID, "keep")
	req, err = NewTraceIDInterceptor().Adapt(ctx, existing)
	require.NoError(t, err)
	assert.Equal(t, "keep", req.Header.Get(trace.HeaderXRequestID))
}

func TestTraceParentInterceptor(t *testing.T) {
	tp := "00-0123456789abcdef0123456789abcdef-0123456789abcdef-01"
	ctx := trace.WithTraceParent(context.Background(), tp)

	req, err := NewTraceParentInterceptor().Adapt(ctx, &Request{Header: http.Header{}})
	require.NoError(t, err)
	assert.Equal(t, tp, req.Header.Get(trace.HeaderTraceParent))

	req, err = NewTraceParentInterceptor().Adapt(context.Background(), &Request{Header: http.Header{}})
	require.NoError(t, err)
	assert.Regexp(t, `^00-[0-9a-f]{32}-[0-9a-f]{16}-01$`, req.Header.Get(trace.HeaderTraceParent))
}

func TestStatusRetrier(t *testing.T) {
	r := NewStatusRetrier(false)
	get := &Request{Method: http.MethodGet}
	post := &Request{Method: http.MethodPost}

	tests := []struct {
		name string
		req  *Request
		err  *NetworkError
		want bool
	}{
		{name: "server_error", req: post, err: NewStatusError(respond(503, "")), want: true},
		{name: "timeout", req: get, err: ErrTimeout, want: true},
		{name: "no_connection", req: get, err: ErrNoConnection, want: true},
		{name: "too_many_requests", req: get, err: NewStatusError(respond(429, "")), want: true},
		{name: "not_found", req: get, err: NewStatusError(respond(404, "")), want: false},
		{name: "unauthorized", req: get, err: NewStatusError(respond(401, "")), want: false},
		{name: "parsing", req: get, err: ErrParsing, want: false},
		{name: "nil_error", req: get, err: nil, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ShouldRetry(context.Background(), tt.req, nil, tt.err)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusRetrierIdempotentOnly(t *testing.T) {
	r := NewStatusRetrier(true)

	got, err := r.ShouldRetry(context.Background(), &Request{Method: http.MethodPost}, nil, ErrServer)
	require.NoError(t, err)
	assert.False(t, got)

	got, err = r.ShouldRetry(context.Background(), &Request{Method: http.MethodPut}, nil, ErrServer)
	require.NoError(t, err)
	assert.True(t, got)
}
