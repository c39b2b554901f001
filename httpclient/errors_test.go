package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  *NetworkError
		want string
	}{
		{name: "status", err: NewStatusError(respond(http.StatusBadGateway, "")), want: "serverError: HTTP 502 Bad Gateway"},
		{name: "missing_environment", err: NewMissingEnvironmentError("ledger"), want: "missingEnvironment: no environment for domain ledger"},
		{name: "invalid_url", err: NewInvalidURLError("bad path", nil), want: "invalidURL: bad path"},
		{name: "cause", err: NewUnknownError(errors.New("boom")), want: "unknown: boom"},
		{name: "parsing_detail_once", err: NewParsingError(respond(http.StatusOK, "oops"), errors.New("invalid character 'o'")), want: "parsingError: HTTP 200 OK (invalid character 'o')"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestNewStatusErrorKinds(t *testing.T) {
	tests := []struct {
		code int
		kind ErrorKind
	}{
		{http.StatusUnauthorized, KindUnauthorized},
		{http.StatusForbidden, KindClientError},
		{http.StatusNotFound, KindClientError},
		{http.StatusTooManyRequests, KindClientError},
		{http.StatusInternalServerError, KindServerError},
		{http.StatusServiceUnavailable, KindServerError},
		{http.StatusNotModified, KindInvalidResponse},
		{http.StatusSwitchingProtocols, KindInvalidResponse},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			resp := respond(tt.code, `{"error":"x"}`)
			err := NewStatusError(resp)
			assert.Equal(t, tt.kind, err.Kind)
			assert.Equal(t, tt.code, err.StatusCode)
			assert.Equal(t, resp.Body, err.Body)
			assert.Same(t, resp, err.Response)
		})
	}
}

func TestErrorsIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewStatusError(respond(503, "")))
	assert.ErrorIs(t, err, ErrServer)
	assert.NotErrorIs(t, err, ErrClient)
	assert.True(t, IsKind(err, KindServerError))
	assert.True(t, IsHTTPStatusError(err, 503))
	assert.False(t, IsHTTPStatusError(errors.New("plain"), 503))
	assert.False(t, IsKind(errors.New("plain"), KindUnknown))
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("dial failed")
	err := newError(KindNoConnection, "", cause)
	assert.ErrorIs(t, err, cause)
}

func TestStructural(t *testing.T) {
	assert.True(t, NewInvalidURLError("", nil).Structural())
	assert.True(t, NewMissingEnvironmentError("x").Structural())
	assert.True(t, NewBodyEncodingError("", nil).Structural())
	assert.False(t, ErrTimeout.Structural())
	assert.False(t, ErrUnauthorized.Structural())
}

func TestAsNetworkError(t *testing.T) {
	assert.Nil(t, AsNetworkError(nil))

	ne := NewStatusError(respond(404, ""))
	assert.Same(t, ne, AsNetworkError(fmt.Errorf("ctx: %w", ne)))

	assert.Equal(t, KindCancelled, AsNetworkError(context.Canceled).Kind)
	assert.Equal(t, KindTimeout, AsNetworkError(context.DeadlineExceeded).Kind)
	assert.Equal(t, KindUnknown, AsNetworkError(errors.New("other")).Kind)
}

func TestDecodeBody(t *testing.T) {
	err := NewStatusError(respond(422, `{"id":"inv-1","amount":3}`))

	var payload invoice
	require.NoError(t, err.DecodeBody(nil, &payload))
	assert.Equal(t, invoice{ID: "inv-1", Amount: 3}, payload)

	assert.Error(t, NewUnknownError(nil).DecodeBody(nil, &payload))
}

func TestParsingErrorCarriesBodyAndDetail(t *testing.T) {
	resp := respond(200, "not-json")
	err := NewParsingError(resp, errors.New("invalid character"))
	assert.Equal(t, KindParsingError, err.Kind)
	assert.Equal(t, []byte("not-json"), err.Body)
	assert.Equal(t, "invalid character", err.Detail)
	assert.Equal(t, 200, err.StatusCode)
}

func TestIsSuccessStatus(t *testing.T) {
	assert.True(t, IsSuccessStatus(200))
	assert.True(t, IsSuccessStatus(299))
	assert.False(t, IsSuccessStatus(199))
	assert.False(t, IsSuccessStatus(300))
}
