package auth

import (
	"context"
	"net/http"

	"github.com/gaborage/routekit/httpclient"
)

const headerAuthorization = "Authorization"

// Interceptor stamps the current token on outgoing requests and, on an
// unauthorized response, refreshes it through the Coordinator before asking
// for a retry.
type Interceptor struct {
	coordinator *Coordinator
	scheme      string
}

var _ httpclient.Interceptor = (*Interceptor)(nil)

// NewInterceptor creates an auth interceptor. An empty scheme means Bearer.
func NewInterceptor(c *Coordinator, scheme string) *Interceptor {
	if scheme == "" {
		scheme = DefaultScheme
	}
	return &Interceptor{coordinator: c, scheme: scheme}
}

// Adapt sets the Authorization header when a token is held. Requests are
// sent unauthenticated otherwise and the first 401 triggers a refresh.
func (i *Interceptor) Adapt(_ context.Context, req *httpclient.Request) (*httpclient.Request, error) {
	tok, ok := i.coordinator.Token()
	if !ok {
		return req, nil
	}
	if req.Header == nil {
		req.Header = http.Header{}
	}
	req.Header.Set(headerAuthorization, tok.Authorization(i.scheme))
	return req, nil
}

// ShouldRetry reacts to unauthorized only. A failed refresh surfaces as
// authenticationFailed; a caller that stops waiting sees cancelled.
func (i *Interceptor) ShouldRetry(ctx context.Context, req *httpclient.Request, _ *httpclient.Response, nerr *httpclient.NetworkError) (bool, error) {
	if nerr == nil || nerr.Kind != httpclient.KindUnauthorized {
		return false, nil
	}

	used := accessTokenFromHeader(req.Header.Get(headerAuthorization))
	if _, err := i.coordinator.RefreshIfStale(ctx, used); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, httpclient.AsNetworkError(ctxErr)
		}
		return false, httpclient.NewAuthenticationFailedError(err)
	}
	return true, nil
}
