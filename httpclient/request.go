package httpclient

import (
	"bytes"
	"net/http"
	"time"
)

// Request is a compiled, transport-ready request.
type Request struct {
	Domain  ServiceDomain
	Method  string
	URL     string
	Header  http.Header
	Body    []byte
	Timeout time.Duration
}

// Clone returns a deep copy. Interceptors adapt clones so every attempt
// starts from the compiled request.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	c := *r
	c.Header = r.Header.Clone()
	if c.Header == nil {
		c.Header = http.Header{}
	}
	if r.Body != nil {
		c.Body = bytes.Clone(r.Body)
	}
	return &c
}

// Response represents a received HTTP response with tracking information.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Stats      Stats
}

// Stats contains request execution statistics
type Stats struct {
	ElapsedTime time.Duration
	// Attempt is the 1-based attempt that produced the response.
	Attempt int
}
