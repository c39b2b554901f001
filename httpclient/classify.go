package httpclient

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

// ClassifyResponse returns nil for a 2xx response and the matching error
// otherwise: 401 is unauthorized, other 4xx clientError, 5xx serverError and
// anything else invalidResponse.
func ClassifyResponse(resp *Response) *NetworkError {
	if resp == nil {
		return &NetworkError{Kind: KindInvalidResponse, Message: "no response"}
	}
	if IsSuccessStatus(resp.StatusCode) {
		return nil
	}
	return NewStatusError(resp)
}

// ClassifyTransportError maps an error returned by a Transport.
func ClassifyTransportError(err error) *NetworkError {
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
	case isTimeout(err):
		return newError(KindTimeout, "", err)
	case isConnectionFailure(err):
		return newError(KindNoConnection, "", err)
	}
	return NewUnknownError(err)
}

// decodeResult decodes a 2xx response for route, turning a decoder failure
// into parsingError.
func decodeResult[T any](route Route[T], codec Codec, resp *Response) (T, error) {
	out, err := route.Decode(codec, resp)
	if err != nil {
		var zero T
		pe := NewParsingError(resp, err)
		pe.Domain = route.Domain()
		return zero, pe
	}
	return out, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isConnectionFailure(err error) bool {
	var opErr *net.OpError
	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &dnsErr), errors.As(err, &opErr):
		return true
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ENETUNREACH), errors.Is(err, syscall.EHOSTUNREACH):
		return true
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return true
	}
	return false
}
