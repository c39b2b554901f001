// Package stubapi provides a programmable HTTP API for exercising clients in
// tests and examples. Handlers are registered per method and path, and every
// received request is recorded for later assertions.
//
// Example usage:
//
//	api := stubapi.Start()
//	defer api.Close()
//
//	api.Sequence(http.MethodGet, "/invoices/:id",
//		stubapi.Reply(http.StatusServiceUnavailable, nil),
//		stubapi.Reply(http.StatusOK, map[string]any{"id": "inv-1"}),
//	)
package stubapi

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

const serviceName = "stubapi"

// Recorded is a request as seen by the stub server.
type Recorded struct {
	Method string
	Path   string
	Route  string
	Query  string
	Header http.Header
	Body   []byte
}

// Server is a running stub API.
type Server struct {
	echo *echo.Echo
	http *httptest.Server

	mu       sync.Mutex
	requests []Recorded
}

// Start launches a stub server on a loopback port.
func Start() *Server {
	s := &Server{echo: echo.New()}
	s.echo.HideBanner = true
	s.echo.HidePort = true

	s.echo.Use(middleware.Recover())
	s.echo.Use(otelecho.Middleware(serviceName))
	s.echo.Use(s.record)

	s.http = httptest.NewServer(s.echo)
	return s
}

// URL returns the base URL, without a trailing slash.
func (s *Server) URL() string { return s.http.URL }

// Close shuts the server down and blocks until outstanding requests finish.
func (s *Server) Close() { s.http.Close() }

// Handle registers a raw echo handler. Paths use echo syntax (":id", "*").
func (s *Server) Handle(method, path string, h echo.HandlerFunc) {
	s.echo.Add(method, path, h)
}

// JSON always answers with status and body.
func (s *Server) JSON(method, path string, status int, body any) {
	s.Handle(method, path, Reply(status, body).handler())
}

// Sequence answers with steps in order. The last step repeats once the
// sequence is exhausted.
func (s *Server) Sequence(method, path string, steps ...Step) {
	if len(steps) == 0 {
		steps = []Step{Reply(http.StatusOK, nil)}
	}

	var mu sync.Mutex
	next := 0
	s.Handle(method, path, func(c echo.Context) error {
		mu.Lock()
		step := steps[min(next, len(steps)-1)]
		next++
		mu.Unlock()
		return step.handler()(c)
	})
}

// Requests returns a copy of every recorded request in arrival order.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Recorded(nil), s.requests...)
}

// Count returns how many requests matched method and route pattern.
func (s *Server) Count(method, route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Method == method && r.Route == route {
			n++
		}
	}
	return n
}

func (s *Server) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()

		var body []byte
		if req.Body != nil {
			body, _ = io.ReadAll(req.Body)
			req.Body = io.NopCloser(bytes.NewReader(body))
		}

		s.mu.Lock()
		s.requests = append(s.requests, Recorded{
			Method: req.Method,
			Path:   req.URL.Path,
			Route:  c.Path(),
			Query:  req.URL.RawQuery,
			Header: req.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()

		return next(c)
	}
}
