package httpclient

import (
	"context"
	"maps"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gaborage/routekit/logger"
)

const (
	testDomain  ServiceDomain = "billing"
	testBaseURL               = "https://billing.example.com/v1"
)

// fakeLogEvent implements logger.LogEvent for testing
type fakeLogEvent struct {
	logger *fakeLogger
	level  string
	fields map[string]any
}

func (e *fakeLogEvent) Msg(msg string) {
	e.logger.mu.Lock()
	defer e.logger.mu.Unlock()
	e.logger.events = append(e.logger.events, loggedEvent{level: e.level, fields: maps.Clone(e.fields), message: msg})
}

func (e *fakeLogEvent) Msgf(format string, _ ...any) { e.Msg(format) }

func (e *fakeLogEvent) Err(err error) logger.LogEvent {
	e.fields["error"] = err
	return e
}

func (e *fakeLogEvent) Str(key, value string) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Int(key string, value int) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Int64(key string, value int64) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Uint64(key string, value uint64) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Bool(key string, value bool) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Dur(key string, d time.Duration) logger.LogEvent {
	e.fields[key] = d
	return e
}

func (e *fakeLogEvent) Interface(key string, i any) logger.LogEvent {
	e.fields[key] = i
	return e
}

func (e *fakeLogEvent) Bytes(key string, val []byte) logger.LogEvent {
	e.fields[key] = val
	return e
}

// fakeLogger implements logger.Logger for testing
type fakeLogger struct {
	mu     sync.Mutex
	events []loggedEvent
}

type loggedEvent struct {
	level   string
	fields  map[string]any
	message string
}

func (l *fakeLogger) event(level string) logger.LogEvent {
	return &fakeLogEvent{logger: l, level: level, fields: make(map[string]any)}
}

func (l *fakeLogger) Info() logger.LogEvent                     { return l.event("info") }
func (l *fakeLogger) Error() logger.LogEvent                    { return l.event("error") }
func (l *fakeLogger) Debug() logger.LogEvent                    { return l.event("debug") }
func (l *fakeLogger) Warn() logger.LogEvent                     { return l.event("warn") }
func (l *fakeLogger) Fatal() logger.LogEvent                    { return l.event("fatal") }
func (l *fakeLogger) WithContext(_ any) logger.Logger           { return l }
func (l *fakeLogger) WithFields(_ map[string]any) logger.Logger { return l }

func (l *fakeLogger) eventsByLevel(level string) []loggedEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []loggedEvent
	for _, e := range l.events {
		if e.level == level {
			out = append(out, e)
		}
	}
	return out
}

// panicLogger panics on every event to prove logging never affects a call.
type panicLogger struct{ fakeLogger }

func (l *panicLogger) Info() logger.LogEvent  { panic("sink down") }
func (l *panicLogger) Warn() logger.LogEvent  { panic("sink down") }
func (l *panicLogger) Error() logger.LogEvent { panic("sink down") }
func (l *panicLogger) Debug() logger.LogEvent { panic("sink down") }

// scriptedTransport replays responses in order and records every request.
type scriptedTransport struct {
	mu       sync.Mutex
	steps    []func(ctx context.Context, req *Request) (*Response, error)
	requests []*Request
}

func (s *scriptedTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req.Clone())
	n := len(s.requests)
	var step func(ctx context.Context, req *Request) (*Response, error)
	if n <= len(s.steps) {
		step = s.steps[n-1]
	} else if len(s.steps) > 0 {
		step = s.steps[len(s.steps)-1]
	}
	s.mu.Unlock()

	if step == nil {
		return respond(http.StatusOK, `{}`), nil
	}
	return step(ctx, req)
}

func (s *scriptedTransport) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *scriptedTransport) request(i int) *Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[i]
}

func respond(status int, body string) *Response {
	return &Response{StatusCode: status, Header: http.Header{}, Body: []byte(body)}
}

func status(code int, body string) func(context.Context, *Request) (*Response, error) {
	return func(context.Context, *Request) (*Response, error) { return respond(code, body), nil }
}

func fail(err error) func(context.Context, *Request) (*Response, error) {
	return func(context.Context, *Request) (*Response, error) { return nil, err }
}

func testResolver() *StaticResolver {
	return NewStaticResolver(map[ServiceDomain]Environment{
		testDomain: {BaseURL: testBaseURL},
	})
}

// newTestProvider builds a provider with zero backoff delays.
func newTestProvider(t *testing.T, tr Transport, interceptors ...Interceptor) *Provider {
	t.Helper()
	b := NewBuilder(&fakeLogger{}).
		WithTransport(tr).
		WithResolver(testResolver()).
		WithBackoff(BackoffConfig{Policy: BackoffFixed, Initial: time.Nanosecond})
	for _, i := range interceptors {
		b.WithInterceptor(i)
	}
	return b.Build()
}

type invoice struct {
	ID     string `json:"id"`
	Amount int    `json:"amount"`
}
