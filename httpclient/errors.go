package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind is the closed set of failure categories a call can end in.
type ErrorKind string

const (
	KindInvalidURL           ErrorKind = "invalidURL"
	KindMissingEnvironment   ErrorKind = "missingEnvironment"
	KindBodyEncodingFailed   ErrorKind = "bodyEncodingFailed"
	KindParsingError         ErrorKind = "parsingError"
	KindUnauthorized         ErrorKind = "unauthorized"
	KindClientError          ErrorKind = "clientError"
	KindServerError          ErrorKind = "serverError"
	KindTimeout              ErrorKind = "timeout"
	KindNoConnection         ErrorKind = "noConnection"
	KindCancelled            ErrorKind = "cancelled"
	KindAuthenticationFailed ErrorKind = "authenticationFailed"
	KindInvalidResponse      ErrorKind = "invalidResponse"
	KindUnknown              ErrorKind = "unknown"
)

// Sentinels for errors.Is. Matching is by kind only.
var (
	ErrInvalidURL           = &NetworkError{Kind: KindInvalidURL}
	ErrMissingEnvironment   = &NetworkError{Kind: KindMissingEnvironment}
	ErrBodyEncodingFailed   = &NetworkError{Kind: KindBodyEncodingFailed}
	ErrParsing              = &NetworkError{Kind: KindParsingError}
	ErrUnauthorized         = &NetworkError{Kind: KindUnauthorized}
	ErrClient               = &NetworkError{Kind: KindClientError}
	ErrServer               = &NetworkError{Kind: KindServerError}
	ErrTimeout              = &NetworkError{Kind: KindTimeout}
	ErrNoConnection         = &NetworkError{Kind: KindNoConnection}
	ErrCancelled            = &NetworkError{Kind: KindCancelled}
	ErrAuthenticationFailed = &NetworkError{Kind: KindAuthenticationFailed}
	ErrInvalidResponse      = &NetworkError{Kind: KindInvalidResponse}
	ErrUnknown              = &NetworkError{Kind: KindUnknown}
)

// NetworkError is the single error type surfaced by Perform and Do.
type NetworkError struct {
	Kind ErrorKind
	// Message is a short human readable description.
	Message string
	// Domain is set for missingEnvironment and for errors raised while
	// executing a route.
	Domain ServiceDomain
	// StatusCode is set for clientError and serverError and for any error
	// produced from a received response.
	StatusCode int
	// Body holds the raw response body for parsingError, clientError,
	// serverError and unauthorized.
	Body []byte
	// Response is the response that produced the error, when there was one.
	Response *Response
	// Detail describes the decoding failure for parsingError.
	Detail string
	// Err is the underlying cause.
	Err error
}

func (e *NetworkError) Error() string {
	msg := string(e.Kind)
	switch {
	case e.Message != "":
		msg += ": " + e.Message
	case e.StatusCode != 0:
		msg += fmt.Sprintf(": HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	case e.Domain != "" && e.Kind == KindMissingEnvironment:
		msg += ": no environment for domain " + string(e.Domain)
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Err != nil && e.Err.Error() != e.Detail {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Is reports whether target is a NetworkError of the same kind.
func (e *NetworkError) Is(target error) bool {
	t, ok := target.(*NetworkError)
	return ok && t.Kind == e.Kind
}

// Structural reports whether the error was raised before any attempt was
// sent. Structural errors are never retried.
func (e *NetworkError) Structural() bool {
	switch e.Kind {
	case KindInvalidURL, KindMissingEnvironment, KindBodyEncodingFailed:
		return true
	}
	return false
}

// DecodeBody unmarshals the captured response body into v, which is useful
// for structured API error payloads.
func (e *NetworkError) DecodeBody(codec Codec, v any) error {
	if len(e.Body) == 0 {
		return errors.New("httpclient: error has no response body")
	}
	if codec == nil {
		codec = JSONCodec{}
	}
	return codec.Unmarshal(e.Body, v)
}

func newError(kind ErrorKind, msg string, cause error) *NetworkError {
	return &NetworkError{Kind: kind, Message: msg, Err: cause}
}

// NewInvalidURLError reports a URL that cannot be built from a route.
func NewInvalidURLError(msg string, cause error) *NetworkError {
	return newError(KindInvalidURL, msg, cause)
}

// NewMissingEnvironmentError reports a domain with no resolvable environment.
func NewMissingEnvironmentError(domain ServiceDomain) *NetworkError {
	return &NetworkError{Kind: KindMissingEnvironment, Domain: domain}
}

// NewBodyEncodingError reports a payload that could not be serialized.
func NewBodyEncodingError(msg string, cause error) *NetworkError {
	return newError(KindBodyEncodingFailed, msg, cause)
}

// NewParsingError reports a successful response whose body could not be decoded.
func NewParsingError(resp *Response, cause error) *NetworkError {
	e := &NetworkError{Kind: KindParsingError, Err: cause, Response: resp}
	if cause != nil {
		e.Detail = cause.Error()
	}
	if resp != nil {
		e.StatusCode = resp.StatusCode
		e.Body = resp.Body
	}
	return e
}

// NewStatusError builds the error for a non-2xx response.
func NewStatusError(resp *Response) *NetworkError {
	kind := KindInvalidResponse
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		kind = KindUnauthorized
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		kind = KindClientError
	case resp.StatusCode >= 500 && resp.StatusCode < 600:
		kind = KindServerError
	}
	return &NetworkError{Kind: kind, StatusCode: resp.StatusCode, Body: resp.Body, Response: resp}
}

// NewAuthenticationFailedError wraps a failed token refresh.
func NewAuthenticationFailedError(cause error) *NetworkError {
	return newError(KindAuthenticationFailed, "token refresh failed", cause)
}

// NewCancelledError reports that the caller cancelled the call.
func NewCancelledError(cause error) *NetworkError {
	if cause == nil {
		cause = context.Canceled
	}
	return newError(KindCancelled, "", cause)
}

// NewUnknownError wraps an error that fits no other kind.
func NewUnknownError(cause error) *NetworkError {
	return newError(KindUnknown, "", cause)
}

// AsNetworkError converts any error into a NetworkError. Errors that already
// are one are returned as is; anything else becomes unknown, except context
// errors which keep their meaning.
func AsNetworkError(err error) *NetworkError {
	if err == nil {
		return nil
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne
	}
	switch {
	case errors.Is(err, context.Canceled):
		return NewCancelledError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return newError(KindTimeout, "", err)
	}
	return NewUnknownError(err)
}

// IsKind reports whether err is a NetworkError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Kind == kind
	}
	return false
}

// IsHTTPStatusError reports whether err carries the given HTTP status code.
func IsHTTPStatusError(err error, statusCode int) bool {
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.StatusCode == statusCode
	}
	return false
}

// IsSuccessStatus reports whether statusCode is in the 2xx range.
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
